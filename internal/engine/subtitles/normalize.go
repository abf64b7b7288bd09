package subtitles

import (
	"html"
	"regexp"
	"strings"
)

// Timed-text cleanup. Input may be WebVTT, SRT, TTML or timedtext XML;
// output is a single prose string with no markup, timestamps or cue
// numbering left. Normalize never fails on malformed input and is
// idempotent: re-normalizing clean text returns it unchanged.

var (
	vttHeaderRe = regexp.MustCompile(`^WEBVTT\b`)
	vttMetaRe   = regexp.MustCompile(`^(Kind|Language|NOTE|STYLE|REGION)\b`)
	xmlDeclRe   = regexp.MustCompile(`^<\?xml\b`)

	// Cue timing ranges: "00:00:01.000 --> 00:00:02.000" and the SRT comma
	// and short mm:ss variants, with any trailing cue settings.
	cueTimingRe = regexp.MustCompile(`\d{1,2}:\d{2}(?::\d{2})?[.,]\d{1,3}\s*-->\s*\d{1,2}:\d{2}(?::\d{2})?[.,]\d{1,3}[^\n]*`)

	// Stray timestamps left inline after cue removal.
	strayTimeRe = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?[.,]\d{1,3}\b`)

	// Positioning and alignment directives ("align:start position:0%").
	cueSettingRe = regexp.MustCompile(`\b(?:align|position|line|size|vertical|region):[^\s]+`)

	cueIndexRe = regexp.MustCompile(`^\d+$`)

	markupTagRe   = regexp.MustCompile(`<[^<>]+>`)
	bracketNoteRe = regexp.MustCompile(`\[[^\[\]]*\]`)
	parenNoteRe   = regexp.MustCompile(`\([^()]*\)`)

	multiSpaceRe       = regexp.MustCompile(`\s+`)
	spaceBeforePunctRe = regexp.MustCompile(`\s+([.,!?])`)
	// Sentences glued together by cue boundaries: "word.Next" → "word. Next".
	gluedSentenceRe = regexp.MustCompile(`([.!?])([A-Z])`)
)

// Normalize converts a raw timed-text payload into clean prose. Pure and
// total: malformed input degrades to best-effort cleanup, never an error.
func Normalize(raw string) string {
	// Iterate to a fixed point: entity decoding can uncover markup that the
	// next pass must strip (double-escaped exports), and each pass output
	// must survive re-normalization unchanged.
	text := raw
	for range 8 {
		next := normalizeOnce(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func normalizeOnce(raw string) string {
	var kept []string
	prev := ""
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))

		if line == "" || vttHeaderRe.MatchString(line) || vttMetaRe.MatchString(line) ||
			xmlDeclRe.MatchString(line) {
			continue
		}
		// A digits-only line is a cue index only when a timing range follows;
		// otherwise it is prose ("42") and stays.
		if cueIndexRe.MatchString(line) && nextLineIsTiming(lines, i+1) {
			continue
		}

		line = cueTimingRe.ReplaceAllString(line, "")
		line = cueSettingRe.ReplaceAllString(line, "")
		line = strayTimeRe.ReplaceAllString(line, "")

		// Decode entities before tag stripping so escaped markup
		// (&lt;i&gt;) is removed in the same pass it surfaces.
		line = html.UnescapeString(line)
		// Tags become spaces, not nothing: adjacent XML text nodes must not
		// glue together ("cover</text><text>the").
		line = markupTagRe.ReplaceAllString(line, " ")
		line = bracketNoteRe.ReplaceAllString(line, "")
		line = parenNoteRe.ReplaceAllString(line, "")

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Auto-generated captions repeat each line across overlapping cues.
		if line == prev {
			continue
		}
		prev = line
		kept = append(kept, line)
	}

	text := strings.Join(kept, " ")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = spaceBeforePunctRe.ReplaceAllString(text, "$1")
	text = gluedSentenceRe.ReplaceAllString(text, "$1 $2")
	return strings.TrimSpace(text)
}

// nextLineIsTiming reports whether the next non-blank line is a cue timing range.
func nextLineIsTiming(lines []string, from int) bool {
	for _, l := range lines[from:] {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		return cueTimingRe.MatchString(l)
	}
	return false
}
