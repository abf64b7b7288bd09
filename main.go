// YouTubeReports — YouTube transcript acquisition MCP server.
//
// Exposes two MCP tools: video_transcript and credential_status.
// Runs as HTTP MCP server or stdio transport.
//
// The transcript engine layers a credential-isolation manager (safe
// concurrent reuse of one session-cookie bundle) under an ordered chain
// of retrieval strategies, so one blocked path never takes down the
// whole service.
package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cbeau79/YouTubeReports/internal/engine"
	"github.com/cbeau79/YouTubeReports/internal/reportserver"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
)

func main() {
	initEngine()

	slog.Info("starting YouTubeReports",
		slog.String("port", mcpPort),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "YouTubeReports",
		Version: version,
	}, nil)

	reportserver.RegisterTools(server)
	slog.Info("tools registered", slog.Int("count", 2))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "YouTubeReports",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() {
	c := engine.Config{
		CookieFile:      env.Str("COOKIE_FILE", ""),
		WorkDir:         env.Str("WORKDIR", ""),
		SubtitleLangs:   env.List("SUBTITLE_LANGS", "en"),
		FetchTimeout:    env.Duration("FETCH_TIMEOUT", 20*time.Second),
		StrategyTimeout: env.Duration("STRATEGY_TIMEOUT", 45*time.Second),
		LockRetry:       env.Duration("LOCK_RETRY", 100*time.Millisecond),
		LockTimeout:     env.Duration("LOCK_TIMEOUT", 10*time.Second),
		PlatformRPS:     env.Float("PLATFORM_RPS", 4),
		YtdlpPath:       env.Str("YTDLP_PATH", ""),
		HTTPClient: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	bc, err := stealth.NewClient(stealth.WithTimeout(15))
	if err != nil {
		// Watch-page scraping degrades to a soft failure without it.
		slog.Warn("stealth client init failed, watch-page strategy disabled", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
		slog.Info("stealth browser client initialized")
	}

	engine.Init(c)

	if c.CookieFile == "" {
		slog.Warn("COOKIE_FILE not set, authenticated strategies will be skipped")
	}
}
