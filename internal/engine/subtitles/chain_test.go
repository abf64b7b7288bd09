package subtitles

import (
	"context"
	"errors"
	"testing"
)

type stubStrategy struct {
	name   string
	raw    string
	err    error
	panics bool
	calls  int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Attempt(ctx context.Context, req Request) (string, error) {
	s.calls++
	if s.panics {
		panic("boom")
	}
	return s.raw, s.err
}

func TestChainFirstHitWins(t *testing.T) {
	a := &stubStrategy{name: "a", raw: "payload-a"}
	b := &stubStrategy{name: "b", raw: "payload-b"}
	c := &Chain{Strategies: []Strategy{a, b}}

	raw, strategy, trail := c.Acquire(context.Background(), Request{VideoID: "dQw4w9WgXcQ"})
	if raw != "payload-a" || strategy != "a" {
		t.Fatalf("got (%q, %q), want payload-a from a", raw, strategy)
	}
	if b.calls != 0 {
		t.Error("later strategy must not run after a hit")
	}
	if len(trail) != 1 || trail[0].Outcome != OutcomeSuccess {
		t.Errorf("trail = %+v, want single success", trail)
	}
}

func TestChainRecordsSoftFailures(t *testing.T) {
	// One strategy raises, one returns empty, the third delivers. The trail
	// must account both misses as soft failures.
	c := &Chain{Strategies: []Strategy{
		&stubStrategy{name: "raises", err: errors.New("blocked")},
		&stubStrategy{name: "empty"},
		&stubStrategy{name: "hit", raw: "the payload"},
	}}

	raw, strategy, trail := c.Acquire(context.Background(), Request{VideoID: "dQw4w9WgXcQ"})
	if raw != "the payload" || strategy != "hit" {
		t.Fatalf("got (%q, %q), want payload from hit", raw, strategy)
	}

	wantOutcomes := []AttemptOutcome{OutcomeSoftFailure, OutcomeSoftFailure, OutcomeSuccess}
	if len(trail) != len(wantOutcomes) {
		t.Fatalf("trail length = %d, want %d", len(trail), len(wantOutcomes))
	}
	soft := 0
	for i, want := range wantOutcomes {
		if trail[i].Outcome != want {
			t.Errorf("trail[%d].Outcome = %q, want %q", i, trail[i].Outcome, want)
		}
		if trail[i].Outcome == OutcomeSoftFailure {
			soft++
			if trail[i].Error == "" {
				t.Errorf("trail[%d] soft failure must carry the error text", i)
			}
		}
	}
	if soft != 2 {
		t.Errorf("soft failures = %d, want 2", soft)
	}
}

func TestChainPanicAndNoPayloadAreSoftFailures(t *testing.T) {
	c := &Chain{Strategies: []Strategy{
		&stubStrategy{name: "panics", panics: true},
		&stubStrategy{name: "no-payload", err: ErrNoPayload},
		&stubStrategy{name: "hit", raw: "the payload"},
	}}

	raw, _, trail := c.Acquire(context.Background(), Request{VideoID: "dQw4w9WgXcQ"})
	if raw != "the payload" {
		t.Fatalf("payload = %q, want the payload", raw)
	}
	wantOutcomes := []AttemptOutcome{OutcomeSoftFailure, OutcomeSoftFailure, OutcomeSuccess}
	for i, want := range wantOutcomes {
		if trail[i].Outcome != want {
			t.Errorf("trail[%d].Outcome = %q, want %q", i, trail[i].Outcome, want)
		}
	}
}

func TestChainExhausted(t *testing.T) {
	c := &Chain{Strategies: []Strategy{
		&stubStrategy{name: "a", err: errors.New("down")},
		&stubStrategy{name: "b"},
	}}

	raw, strategy, trail := c.Acquire(context.Background(), Request{VideoID: "dQw4w9WgXcQ"})
	if raw != "" || strategy != "" {
		t.Fatalf("exhausted chain must return empty, got (%q, %q)", raw, strategy)
	}
	if len(trail) != 2 {
		t.Errorf("trail length = %d, want 2", len(trail))
	}
}

func TestChainSkipsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &stubStrategy{name: "a", raw: "payload"}
	c := &Chain{Strategies: []Strategy{a}}

	raw, _, trail := c.Acquire(ctx, Request{VideoID: "dQw4w9WgXcQ"})
	if raw != "" {
		t.Fatalf("cancelled context must not produce a payload, got %q", raw)
	}
	if a.calls != 0 {
		t.Error("strategy must not run on a dead context")
	}
	if len(trail) != 1 || trail[0].Outcome != OutcomeHardFailure {
		t.Errorf("trail = %+v, want single hard failure", trail)
	}
}

func TestDefaultChainOrder(t *testing.T) {
	names := make([]string, 0, 5)
	for _, s := range DefaultChain().Strategies {
		names = append(names, s.Name())
	}
	want := []string{
		"first-party-service",
		"ytdlp-authenticated",
		"ytdlp-anonymous",
		"watch-page-scrape",
		"timedtext-probe",
	}
	if len(names) != len(want) {
		t.Fatalf("chain has %d strategies, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("strategy[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
