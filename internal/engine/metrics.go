package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	TranscriptRequests   atomic.Int64
	TranscriptHits       atomic.Int64
	TranscriptMisses     atomic.Int64
	StrategySoftFailures atomic.Int64
	CookieAcquires       atomic.Int64
	CookieValidations    atomic.Int64
	CookieRejections     atomic.Int64
	PlatformRequests     atomic.Int64
}

// GetMetrics returns a snapshot of all metrics.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"transcript_requests":    metrics.TranscriptRequests.Load(),
		"transcript_hits":        metrics.TranscriptHits.Load(),
		"transcript_misses":      metrics.TranscriptMisses.Load(),
		"strategy_soft_failures": metrics.StrategySoftFailures.Load(),
		"cookie_acquires":        metrics.CookieAcquires.Load(),
		"cookie_validations":     metrics.CookieValidations.Load(),
		"cookie_rejections":      metrics.CookieRejections.Load(),
		"platform_requests":      metrics.PlatformRequests.Load(),
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"transcript_requests", "transcript_hits", "transcript_misses",
		"strategy_soft_failures",
		"cookie_acquires", "cookie_validations", "cookie_rejections",
		"platform_requests",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// IncrTranscriptRequests increments the transcript request counter.
func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }

// IncrTranscriptHits increments the successful transcript counter.
func IncrTranscriptHits() { metrics.TranscriptHits.Add(1) }

// IncrTranscriptMisses increments the transcript-unavailable counter.
func IncrTranscriptMisses() { metrics.TranscriptMisses.Add(1) }

// IncrStrategySoftFailures increments the per-strategy soft failure counter.
func IncrStrategySoftFailures() { metrics.StrategySoftFailures.Add(1) }

// IncrCookieAcquires increments the isolated cookie acquire counter.
func IncrCookieAcquires() { metrics.CookieAcquires.Add(1) }

// IncrCookieValidations increments the cookie validation counter.
func IncrCookieValidations() { metrics.CookieValidations.Add(1) }

// IncrCookieRejections increments the rejected cookie bundle counter.
func IncrCookieRejections() { metrics.CookieRejections.Add(1) }

// IncrPlatformRequests increments the outbound platform request counter.
func IncrPlatformRequests() { metrics.PlatformRequests.Add(1) }
