package subtitles

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/cbeau79/YouTubeReports/internal/engine"
)

// First-party transcript service strategy: asks the platform's own
// transcript endpoints before any scraping tool is spun up.
//
//	/next → engagement panel → /get_transcript  (works from datacenter IPs)
//	ANDROID /player → captionTracks → timedtext (works from non-blocked IPs)
type firstPartyStrategy struct{}

func (firstPartyStrategy) Name() string { return "first-party-service" }

func (firstPartyStrategy) Attempt(ctx context.Context, req Request) (string, error) {
	langs := expandLangs(req.Languages)

	text, panelErr := fetchViaEngagementPanel(ctx, req.VideoID)
	if panelErr == nil && text != "" {
		return text, nil
	}

	text, playerErr := fetchViaPlayer(ctx, req.VideoID, langs)
	if playerErr == nil && text != "" {
		return text, nil
	}
	if playerErr == nil {
		playerErr = ErrNoPayload
	}
	return "", fmt.Errorf("engagement panel: %v; player: %w", panelErr, playerErr)
}

// transcriptTokenRe extracts the continuation token from a raw /next JSON response.
var transcriptTokenRe = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

func extractTranscriptToken(data []byte) (string, error) {
	if m := transcriptTokenRe.FindSubmatch(data); len(m) >= 2 {
		// The params value in the /next JSON response is URL-encoded.
		// /get_transcript expects the decoded (raw base64) form.
		decoded, err := url.QueryUnescape(string(m[1]))
		if err != nil {
			return string(m[1]), nil
		}
		return decoded, nil
	}
	return "", errors.New("getTranscriptEndpoint not found in engagement panels")
}

// parseTranscriptSegments extracts plain text from a /get_transcript JSON response.
func parseTranscriptSegments(resp itGetTranscriptResp) string {
	var sb strings.Builder
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			if seg.TranscriptSegmentRenderer == nil {
				continue
			}
			for _, run := range seg.TranscriptSegmentRenderer.Snippet.Runs {
				if run.Text != "" {
					if sb.Len() > 0 {
						sb.WriteByte(' ')
					}
					sb.WriteString(run.Text)
				}
			}
		}
	}
	return sb.String()
}

// fetchViaEngagementPanel fetches a transcript via:
//  1. POST /next → engagementPanels containing the transcript continuation token
//  2. POST /get_transcript with the token → JSON segments
func fetchViaEngagementPanel(ctx context.Context, videoID string) (string, error) {
	visitorData := newVisitorData()

	nextData, err := postInnertubeWEB(ctx, itNextURL, map[string]any{
		"videoId": videoID,
		"context": itWebContext(visitorData),
	}, visitorData)
	if err != nil {
		return "", fmt.Errorf("/next: %w", err)
	}

	token, err := extractTranscriptToken(nextData)
	if err != nil {
		return "", fmt.Errorf("token: %w", err)
	}

	transcriptData, err := postInnertubeWEB(ctx, itGetTranscriptURL, map[string]any{
		"params": token,
		"context": map[string]any{
			"client": itWebClientCtx{
				ClientName:    "WEB",
				ClientVersion: itWebVersion,
				VisitorData:   visitorData,
				Hl:            "en",
				Gl:            "US",
			},
		},
	}, visitorData)
	if err != nil {
		return "", fmt.Errorf("/get_transcript: %w", err)
	}

	var transcriptResp itGetTranscriptResp
	if err := json.Unmarshal(transcriptData, &transcriptResp); err != nil {
		return "", fmt.Errorf("%w: decode transcript: %v", ErrParse, err)
	}

	text := parseTranscriptSegments(transcriptResp)
	if text == "" {
		return "", ErrNoPayload
	}
	return text, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken
// (browser-only). Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack selects the best usable caption track for the given language
// preferences: manual track in a preferred language, then auto-generated in a
// preferred language, then any English track. PoToken-locked tracks are skipped.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// fetchTimedText fetches a caption URL and flattens the timedtext XML to text.
func fetchTimedText(ctx context.Context, baseURL string) (string, error) {
	if err := engine.WaitPlatform(ctx); err != nil {
		return "", err
	}
	engine.IncrPlatformRequests()

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return "", fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return "", err
	}
	return flattenTimedText(body)
}

// flattenTimedText joins the text nodes of a timedtext XML document.
func flattenTimedText(body []byte) (string, error) {
	var doc timedTextDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}
	var sb strings.Builder
	for _, line := range doc.Lines {
		text := engine.CleanHTML(line.Text)
		if text != "" {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(text)
		}
	}
	return sb.String(), nil
}

// fetchViaPlayer uses the ANDROID Innertube /player endpoint, which serves
// caption metadata without the web client's bot checks on most addresses.
func fetchViaPlayer(ctx context.Context, videoID string, langs []string) (string, error) {
	reqBody, err := json.Marshal(itPlayerReq{
		VideoID: videoID,
		Context: itCtx{
			Client: itClient{
				ClientName:        "ANDROID",
				ClientVersion:     itAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return "", err
	}

	if err := engine.WaitPlatform(ctx); err != nil {
		return "", err
	}
	engine.IncrPlatformRequests()

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, itPlayerURL+"?prettyPrint=false", bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", itAndroidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", itAndroidVersion)
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return "", fmt.Errorf("android innertube: %w", err)
	}
	defer resp.Body.Close()

	var playerResp itPlayerResp
	if err := json.NewDecoder(resp.Body).Decode(&playerResp); err != nil {
		return "", fmt.Errorf("%w: decode player: %v", ErrParse, err)
	}
	if playerResp.Captions == nil {
		if playerResp.PlayabilityStatus != nil && playerResp.PlayabilityStatus.Reason != "" {
			return "", fmt.Errorf("captions unavailable: %s", playerResp.PlayabilityStatus.Reason)
		}
		return "", ErrNoPayload
	}
	tracks := playerResp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return "", ErrNoPayload
	}
	track, ok := pickBestTrack(tracks, langs)
	if !ok {
		return "", errors.New("all caption tracks require PoToken")
	}
	return fetchTimedText(ctx, track.BaseURL)
}
