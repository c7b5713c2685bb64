package llm

import (
	"sync/atomic"
	"time"
)

// Stats holds the gateway counters. Every field is updated atomically so
// concurrent requests never lose increments.
type Stats struct {
	requests     atomic.Int64
	attempts     atomic.Int64
	successes    atomic.Int64
	errors       atomic.Int64
	retries      atomic.Int64
	latencyNanos atomic.Int64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Requests     int64   `json:"requests"`
	Attempts     int64   `json:"attempts"`
	Successes    int64   `json:"successCount"`
	Errors       int64   `json:"errorCount"`
	Retries      int64   `json:"retries"`
	ErrorRate    float64 `json:"errorRate"`
	AvgLatencyMs float64 `json:"avgLatencyMs"`
}

func (s *Stats) finish(ok bool, elapsed time.Duration) {
	if ok {
		s.successes.Add(1)
	} else {
		s.errors.Add(1)
	}
	s.latencyNanos.Add(int64(elapsed))
}

// Snapshot derives the error rate and average latency over finished requests.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Requests:  s.requests.Load(),
		Attempts:  s.attempts.Load(),
		Successes: s.successes.Load(),
		Errors:    s.errors.Load(),
		Retries:   s.retries.Load(),
	}
	if finished := snap.Successes + snap.Errors; finished > 0 {
		snap.ErrorRate = float64(snap.Errors) / float64(finished)
		snap.AvgLatencyMs = float64(s.latencyNanos.Load()) / float64(finished) / float64(time.Millisecond)
	}
	return snap
}
