package subtitles

import (
	"strings"

	"github.com/cbeau79/YouTubeReports/internal/engine"
)

// regionVariants maps a base language to the regional codes the platform
// commonly labels its caption tracks with.
var regionVariants = map[string][]string{
	"en": {"en-US", "en-GB"},
	"es": {"es-419", "es-ES"},
	"pt": {"pt-BR", "pt-PT"},
	"zh": {"zh-Hans", "zh-Hant"},
}

// expandLangs turns an ordered preference list into the concrete codes to
// try: each preference, then its regional variants, then its base form.
// Falls back to the engine default list when prefs is empty. Order is
// preserved and duplicates are dropped.
func expandLangs(prefs []string) []string {
	if len(prefs) == 0 {
		prefs = engine.Cfg.SubtitleLangs
	}
	if len(prefs) == 0 {
		prefs = []string{"en"}
	}

	seen := make(map[string]bool)
	var out []string
	add := func(code string) {
		code = strings.TrimSpace(code)
		if code == "" || seen[code] {
			return
		}
		seen[code] = true
		out = append(out, code)
	}

	for _, p := range prefs {
		add(p)
		if base, _, found := strings.Cut(p, "-"); !found {
			for _, v := range regionVariants[p] {
				add(v)
			}
		} else {
			add(base)
		}
	}
	return out
}
