package engine

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	CookieFile      string        // canonical path of the shared session-cookie bundle
	WorkDir         string        // parent dir for isolated cookie copies ("" = os temp)
	SubtitleLangs   []string      // default language preference order
	FetchTimeout    time.Duration // per-request timeout for platform HTTP calls
	StrategyTimeout time.Duration // per-strategy deadline inside the chain
	LockRetry       time.Duration // poll interval while waiting for the cookie lock
	LockTimeout     time.Duration // give up on the cookie lock after this long
	PlatformRPS     float64       // outbound rate limit towards the platform
	YtdlpPath       string        // yt-dlp binary ("" = $PATH lookup)
	HTTPClient      *http.Client
	BrowserClient   *BrowserClient // nil = watch-page scraping disabled

	platformLimiter *rate.Limiter
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (credentials, subtitles).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	rps := c.PlatformRPS
	if rps <= 0 {
		rps = 4
	}
	c.platformLimiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	cfg = c
	Cfg = &cfg
}

// WaitPlatform blocks until the shared outbound rate limiter allows one more
// request to the platform, or the context is done.
func WaitPlatform(ctx context.Context) error {
	if cfg.platformLimiter == nil {
		return nil
	}
	return cfg.platformLimiter.Wait(ctx)
}
