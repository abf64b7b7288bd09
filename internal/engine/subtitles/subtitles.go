package subtitles

import (
	"context"
	"log/slog"

	"github.com/cbeau79/YouTubeReports/internal/engine"
)

// FetchTranscript is the entry point: drives the strategy chain for the
// request and returns the normalized transcript, or nil when no strategy
// could produce one. The attempt trail is always returned for the caller's
// observability pipeline. Callers never see raw timed-text.
func FetchTranscript(ctx context.Context, req Request) (*Transcript, []Attempt) {
	engine.IncrTranscriptRequests()

	raw, strategy, trail := DefaultChain().Acquire(ctx, req)
	if raw == "" {
		engine.IncrTranscriptMisses()
		slog.Info("subtitles: no transcript available",
			slog.String("id", req.VideoID),
			slog.Int("attempts", len(trail)))
		return nil, trail
	}

	text := Normalize(raw)
	if text == "" {
		// Payload was all markup and timing. Same terminal outcome.
		engine.IncrTranscriptMisses()
		return nil, trail
	}

	engine.IncrTranscriptHits()
	slog.Info("subtitles: transcript acquired",
		slog.String("id", req.VideoID),
		slog.String("strategy", strategy),
		slog.Int("chars", len(text)))
	return &Transcript{VideoID: req.VideoID, Text: text, Strategy: strategy}, trail
}
