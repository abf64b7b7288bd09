package subtitles

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/cbeau79/YouTubeReports/internal/engine"
	"github.com/cbeau79/YouTubeReports/internal/engine/credentials"
)

// Scraping-tool strategies drive yt-dlp to fetch only the subtitle artifact,
// never the video payload. The authenticated variant checks out an isolated
// copy of the shared cookie bundle first; the unauthenticated variant covers
// videos whose captions are public without session state.
type ytdlpStrategy struct {
	authenticated bool
}

func (s ytdlpStrategy) Name() string {
	if s.authenticated {
		return "ytdlp-authenticated"
	}
	return "ytdlp-anonymous"
}

func (s ytdlpStrategy) Attempt(ctx context.Context, req Request) (string, error) {
	cookieFile := ""
	if s.authenticated {
		handle, err := credentials.DefaultManager().Acquire(ctx)
		if err != nil {
			return "", fmt.Errorf("cookie isolation: %w", err)
		}
		defer handle.Release()

		if res := credentials.Validate(ctx, handle); !res.Valid {
			return "", fmt.Errorf("cookie bundle rejected (%s): %s", res.Reason, res.Detail)
		}
		cookieFile = handle.CookieFile
	}
	return runYtdlp(ctx, req, cookieFile)
}

// runYtdlp fetches subtitles for the request into a scratch dir and returns
// the raw payload of the best matching file: manual captions preferred over
// auto-generated, caller's language order preserved.
func runYtdlp(ctx context.Context, req Request, cookieFile string) (string, error) {
	langs := expandLangs(req.Languages)

	outDir, err := os.MkdirTemp(engine.Cfg.WorkDir, "ytsubs-")
	if err != nil {
		return "", fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := engine.WaitPlatform(ctx); err != nil {
		return "", err
	}
	engine.IncrPlatformRequests()

	dl := ytdlp.New().
		SkipDownload().
		WriteSubs().
		WriteAutoSubs().
		SubLangs(strings.Join(langs, ",")).
		SubFormat("vtt/ttml/srv1/best").
		NoWarnings().
		NoProgress().
		NoCacheDir().
		Output(filepath.Join(outDir, "%(id)s.%(ext)s"))
	if cookieFile != "" {
		dl = dl.Cookies(cookieFile)
	}
	if engine.Cfg.YtdlpPath != "" {
		dl = dl.SetExecutable(engine.Cfg.YtdlpPath)
	}

	watchURL := "https://www.youtube.com/watch?v=" + req.VideoID
	if _, err := dl.Run(ctx, watchURL); err != nil {
		return "", fmt.Errorf("yt-dlp: %w", err)
	}

	payload, found := readSubtitleFile(outDir, req.VideoID, langs)
	if !found {
		return "", ErrNoPayload
	}
	return payload, nil
}

// subtitleExts in preference order; srv1 is the bare timedtext XML.
var subtitleExts = []string{".vtt", ".ttml", ".srv1", ".srt"}

// readSubtitleFile locates the subtitle file yt-dlp produced, trying each
// preferred language with each known extension.
func readSubtitleFile(dir, videoID string, langs []string) (string, bool) {
	for _, lang := range langs {
		for _, ext := range subtitleExts {
			path := filepath.Join(dir, videoID+"."+lang+ext)
			data, err := os.ReadFile(path)
			if err == nil && len(data) > 0 {
				return string(data), true
			}
		}
	}

	// Language tag mismatches happen (e.g. en-orig); take whatever arrived.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), videoID+".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err == nil && len(data) > 0 {
			slog.Debug("subtitles: using fallback subtitle file", slog.String("file", e.Name()))
			return string(data), true
		}
	}
	return "", false
}
