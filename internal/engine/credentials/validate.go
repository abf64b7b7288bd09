package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/cbeau79/YouTubeReports/internal/engine"
)

// Reason classifies why a bundle failed validation.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonMissingEntries Reason = "missing-entries"
	ReasonExpired        Reason = "expired-or-unauthenticated"
	ReasonNetwork        Reason = "network-error"
	ReasonUnknown        Reason = "unknown"
)

// Result is the outcome of a bundle validation.
type Result struct {
	Valid  bool
	Reason Reason
	Detail string
}

// Required session-token names. A browser export that lacks these cannot
// authenticate against the platform, so the network probe is skipped.
var requiredMarkers = []string{
	"LOGIN_INFO",          // login marker
	"VISITOR_INFO1_LIVE",  // visitor marker
	"SID",                 // session marker
	"PREF",                // preference marker
	"SSID",                // secure-session marker
}

// securePrefixes are the recognized secure-variant name prefixes: a token
// exported as e.g. __Secure-3PSID satisfies the SID requirement.
var securePrefixes = []string{"__Secure-", "__Secure-1P", "__Secure-3P"}

// alternateLoginMarkers relax the LOGIN_INFO requirement when present.
// Accounts signed in through some flows carry only the secure session pair;
// treating those exports as unusable produced false rejections, so their
// presence stands in for the login marker. Precision of this heuristic is
// unverified against all account states; kept as a named policy.
var alternateLoginMarkers = []string{"__Secure-1PSID", "__Secure-3PSID"}

// probeVideoID is a stable, always-public video used for the live probe.
const probeVideoID = "dQw4w9WgXcQ"

const oembedURL = "https://www.youtube.com/oembed"

// expiredPhrases mark responses that indicate a dead session rather than a
// transport problem: sign-in prompts, login walls, bot-challenge language.
var expiredPhrases = []string{
	"sign in", "login", "log in", "cookie", "bot", "captcha",
	"confirm you", "not a robot", "unusual traffic",
}

// hasMarker reports whether name or one of its secure variants is present.
func hasMarker(names map[string]bool, marker string) bool {
	if names[marker] {
		return true
	}
	for _, p := range securePrefixes {
		if names[p+marker] {
			return true
		}
	}
	return false
}

// CheckContents inspects a bundle for the required token names without any
// network traffic. Cheap, and catches the common stale-export failure before
// a round trip is spent on it.
func CheckContents(b Bundle) Result {
	if b.Empty() {
		return Result{Reason: ReasonMissingEntries, Detail: "no cookie records"}
	}
	names := b.Names()

	hasAlternate := false
	for _, alt := range alternateLoginMarkers {
		if names[alt] {
			hasAlternate = true
			break
		}
	}

	var missing []string
	for _, marker := range requiredMarkers {
		if hasMarker(names, marker) {
			continue
		}
		if marker == "LOGIN_INFO" && hasAlternate {
			continue
		}
		missing = append(missing, marker)
	}
	if len(missing) > 0 {
		return Result{
			Reason: ReasonMissingEntries,
			Detail: "missing required entries: " + strings.Join(missing, ", "),
		}
	}
	return Result{Valid: true}
}

// oembedResp is the structural subset checked by the live probe.
type oembedResp struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// Probe issues a minimal, side-effect-free request against a stable public
// resource with the candidate cookies attached, to catch server-side
// revocation that content inspection cannot see.
func Probe(ctx context.Context, b Bundle) Result {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return Result{Reason: ReasonUnknown, Detail: err.Error()}
	}
	site, _ := url.Parse("https://www.youtube.com/")
	jar.SetCookies(site, b.Cookies("youtube.com"))

	client := &http.Client{Jar: jar, Timeout: engine.Cfg.FetchTimeout}
	if base := engine.Cfg.HTTPClient; base != nil {
		client.Transport = base.Transport
		if client.Timeout == 0 {
			client.Timeout = base.Timeout
		}
	}

	probeURL := oembedURL + "?format=json&url=" +
		url.QueryEscape("https://www.youtube.com/watch?v="+probeVideoID)

	if err := engine.WaitPlatform(ctx); err != nil {
		return Result{Reason: ReasonNetwork, Detail: err.Error()}
	}
	engine.IncrPlatformRequests()

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept", "application/json")
		return client.Do(req)
	})
	if err != nil {
		return classifyProbeError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return Result{Reason: ReasonNetwork, Detail: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return classifyProbeError(fmt.Errorf("HTTP %d: %s", resp.StatusCode, engine.Truncate(string(body), 200)))
	}

	var oe oembedResp
	if err := json.Unmarshal(body, &oe); err != nil || oe.Title == "" || oe.AuthorName == "" {
		return Result{Reason: ReasonExpired, Detail: "probe response missing expected fields"}
	}
	return Result{Valid: true}
}

// classifyProbeError maps a probe failure onto the validation taxonomy.
func classifyProbeError(err error) Result {
	msg := strings.ToLower(err.Error())
	for _, phrase := range expiredPhrases {
		if strings.Contains(msg, phrase) {
			return Result{Reason: ReasonExpired, Detail: err.Error()}
		}
	}
	if strings.Contains(msg, "http 401") || strings.Contains(msg, "http 403") {
		return Result{Reason: ReasonExpired, Detail: err.Error()}
	}
	// Everything else, timeouts and cancellations included, is transport.
	return Result{Reason: ReasonNetwork, Detail: err.Error()}
}

// Validate runs the content check and, only if it passes, the live probe.
func Validate(ctx context.Context, h *Handle) Result {
	engine.IncrCookieValidations()

	b, err := h.Bundle()
	if err != nil {
		return Result{Reason: ReasonUnknown, Detail: err.Error()}
	}

	if res := CheckContents(b); !res.Valid {
		engine.IncrCookieRejections()
		slog.Debug("cookies: content check failed", slog.String("detail", res.Detail))
		return res
	}

	res := Probe(ctx, b)
	if !res.Valid {
		engine.IncrCookieRejections()
		slog.Warn("cookies: live probe rejected bundle",
			slog.String("reason", string(res.Reason)), slog.String("detail", res.Detail))
	}
	return res
}
