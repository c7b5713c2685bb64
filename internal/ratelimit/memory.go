package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryWindow is a mutex-guarded sliding log for single-instance deployments.
type MemoryWindow struct {
	mu     sync.Mutex
	cap    int
	span   time.Duration
	events []time.Time
}

func NewMemoryWindow(cap int, span time.Duration) *MemoryWindow {
	return &MemoryWindow{cap: cap, span: span}
}

func (w *MemoryWindow) Reserve(_ context.Context, now time.Time) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expire(now)
	if len(w.events) >= w.cap {
		return false, nil
	}
	w.events = append(w.events, now)
	return true, nil
}

func (w *MemoryWindow) Count(_ context.Context, now time.Time) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expire(now)
	return len(w.events), nil
}

// expire drops events at or before now-span. Events are appended in order.
func (w *MemoryWindow) expire(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for i < len(w.events) && !w.events[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.events = append(w.events[:0], w.events[i:]...)
	}
}
