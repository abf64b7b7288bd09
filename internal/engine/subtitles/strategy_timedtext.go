package subtitles

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/cbeau79/YouTubeReports/internal/engine"
)

// Raw endpoint probe strategy: a direct GET against the public
// machine-readable caption endpoint, no helper library in between. Only
// serves videos with plainly published tracks, but has nothing to break.
type timedTextStrategy struct{}

func (timedTextStrategy) Name() string { return "timedtext-probe" }

const timedTextURL = "https://www.youtube.com/api/timedtext"

func (timedTextStrategy) Attempt(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for _, lang := range expandLangs(req.Languages) {
		text, err := fetchTimedTextLang(ctx, req.VideoID, lang)
		if err != nil {
			lastErr = err
			slog.Debug("subtitles: timedtext probe miss",
				slog.String("id", req.VideoID), slog.String("lang", lang), slog.Any("err", err))
			continue
		}
		if text != "" {
			return text, nil
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", ErrNoPayload
}

func fetchTimedTextLang(ctx context.Context, videoID, lang string) (string, error) {
	if err := engine.WaitPlatform(ctx); err != nil {
		return "", err
	}
	engine.IncrPlatformRequests()

	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", lang)

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, timedTextURL+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return "", fmt.Errorf("timedtext [%s]: %w", lang, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("timedtext [%s]: HTTP %d", lang, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return "", err
	}
	// The endpoint answers 200 with an empty body for unknown tracks.
	if len(body) == 0 {
		return "", nil
	}
	return flattenTimedText(body)
}
