package subtitles

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cbeau79/YouTubeReports/internal/engine"
)

// Strategy is one self-contained transcript retrieval technique. A strategy
// failing (or even panicking) never aborts the chain; the driver demotes it
// to a soft failure and moves on.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, req Request) (string, error)
}

// Chain tries strategies in order and keeps the first non-empty payload.
type Chain struct {
	Strategies []Strategy
}

// DefaultChain returns the production strategy order: the first-party
// transcript service is cheapest and least fragile, so it leads; the raw
// probe trails as the last resort. The ordering is a tunable, not a
// contract.
func DefaultChain() *Chain {
	return &Chain{Strategies: []Strategy{
		firstPartyStrategy{},
		ytdlpStrategy{authenticated: true},
		ytdlpStrategy{authenticated: false},
		watchPageStrategy{},
		timedTextStrategy{},
	}}
}

// Acquire runs the chain. It returns the first non-empty raw payload, the
// name of the strategy that produced it, and the full attempt trail. An
// exhausted chain returns an empty payload with a nil error: a video without
// a transcript is an expected terminal outcome, not a subsystem failure.
func (c *Chain) Acquire(ctx context.Context, req Request) (payload, strategy string, trail []Attempt) {
	for _, s := range c.Strategies {
		if ctx.Err() != nil {
			trail = append(trail, Attempt{Strategy: s.Name(), Outcome: OutcomeHardFailure, Error: ctx.Err().Error()})
			continue
		}

		raw, attemptErr := runStrategy(ctx, s, req)
		if attemptErr == nil && raw == "" {
			// A clean run with nothing to show is still a miss for this
			// strategy; account for it like any other soft failure.
			attemptErr = ErrNoPayload
		}
		if attemptErr != nil {
			engine.IncrStrategySoftFailures()
			trail = append(trail, Attempt{Strategy: s.Name(), Outcome: OutcomeSoftFailure, Error: attemptErr.Error()})
			slog.Warn("subtitles: strategy failed, trying next",
				slog.String("id", req.VideoID),
				slog.String("strategy", s.Name()),
				slog.Any("error", attemptErr))
			continue
		}
		trail = append(trail, Attempt{Strategy: s.Name(), Outcome: OutcomeSuccess})
		return raw, s.Name(), trail
	}
	return "", "", trail
}

// runStrategy executes one strategy under its own bounded deadline and
// converts panics into ordinary errors so a misbehaving strategy cannot
// take the chain down.
func runStrategy(ctx context.Context, s Strategy, req Request) (raw string, err error) {
	if t := engine.Cfg.StrategyTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			raw = ""
			err = fmt.Errorf("strategy %s panicked: %v", s.Name(), r)
		}
	}()

	start := time.Now()
	raw, err = s.Attempt(ctx, req)
	slog.Debug("subtitles: strategy attempt finished",
		slog.String("strategy", s.Name()),
		slog.Duration("took", time.Since(start)),
		slog.Bool("hit", err == nil && raw != ""))
	return raw, err
}
