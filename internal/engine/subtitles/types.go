// Package subtitles retrieves the spoken-text transcript of a platform video
// through an ordered chain of independent acquisition strategies, and
// normalizes the winning timed-text payload into clean prose.
package subtitles

import "errors"

// Request describes one transcript acquisition.
type Request struct {
	VideoID   string
	Languages []string // ordered preference; empty = engine default
}

// AttemptOutcome classifies how a single strategy attempt ended.
type AttemptOutcome string

const (
	// OutcomeSuccess: the strategy produced a non-empty payload.
	OutcomeSuccess AttemptOutcome = "success"
	// OutcomeSoftFailure: the strategy errored, panicked, or came back empty;
	// the chain moves on.
	OutcomeSoftFailure AttemptOutcome = "soft-failure"
	// OutcomeHardFailure: the request deadline died before the strategy ran.
	OutcomeHardFailure AttemptOutcome = "hard-failure"
)

// Attempt is one strategy's result, kept for the observability trail only.
type Attempt struct {
	Strategy string         `json:"strategy"`
	Outcome  AttemptOutcome `json:"outcome"`
	Error    string         `json:"error,omitempty"`
}

// Transcript is a successful acquisition: normalized prose plus the name of
// the strategy that produced it.
type Transcript struct {
	VideoID  string
	Text     string
	Strategy string
}

// ErrNoPayload is returned by a strategy that completed without error but
// found no captions. The chain records it as a soft failure and moves on.
var ErrNoPayload = errors.New("no transcript payload")

// ErrParse marks a malformed timed-text payload. The producing strategy's
// output is discarded; the chain moves on.
var ErrParse = errors.New("malformed timed-text payload")
