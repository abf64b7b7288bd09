package subtitles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cbeau79/YouTubeReports/internal/engine"
)

// Watch-page scrape strategy: pulls the video page with the
// browser-fingerprint client and lifts caption track URLs out of the inline
// player response. Survives on addresses where the JSON endpoints are walled.
type watchPageStrategy struct{}

func (watchPageStrategy) Name() string { return "watch-page-scrape" }

const playerResponseMarker = "ytInitialPlayerResponse = "

func (watchPageStrategy) Attempt(ctx context.Context, req Request) (string, error) {
	bc := engine.Cfg.BrowserClient
	if bc == nil {
		return "", errors.New("browser client not configured")
	}

	if err := engine.WaitPlatform(ctx); err != nil {
		return "", err
	}
	engine.IncrPlatformRequests()

	watchURL := "https://www.youtube.com/watch?v=" + req.VideoID
	headers := engine.ChromeHeaders()
	headers["referer"] = "https://www.youtube.com/"

	body, err := engine.RetryDo(ctx, engine.DefaultRetryConfig, func() ([]byte, error) {
		data, _, status, err := bc.Do("GET", watchURL, headers, nil)
		if err != nil {
			return nil, err
		}
		if status != 200 {
			return nil, fmt.Errorf("HTTP %d", status)
		}
		return data, nil
	})
	if err != nil {
		return "", fmt.Errorf("watch page: %w", err)
	}

	jsonData := extractMarkedJSON(body, playerResponseMarker)
	if jsonData == nil {
		return "", errors.New("ytInitialPlayerResponse not found in watch page")
	}

	var playerResp itPlayerResp
	if err := json.Unmarshal(jsonData, &playerResp); err != nil {
		return "", fmt.Errorf("%w: decode player response: %v", ErrParse, err)
	}
	if playerResp.Captions == nil {
		return "", ErrNoPayload
	}
	tracks := playerResp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return "", ErrNoPayload
	}
	track, ok := pickBestTrack(tracks, expandLangs(req.Languages))
	if !ok {
		return "", errors.New("all caption tracks require PoToken")
	}
	return fetchTimedText(ctx, track.BaseURL)
}

// extractMarkedJSON finds marker in page and returns the balanced JSON
// object that follows it, or nil.
func extractMarkedJSON(page []byte, marker string) []byte {
	idx := bytes.Index(page, []byte(marker))
	if idx < 0 {
		return nil
	}
	rest := page[idx+len(marker):]
	start := bytes.IndexByte(rest, '{')
	if start < 0 {
		return nil
	}
	rest = rest[start:]

	depth := 0
	inString := false
	escaped := false
	for i, c := range rest {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return rest[:i+1]
			}
		}
	}
	return nil
}
