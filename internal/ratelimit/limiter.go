package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrHourlyCapExceeded is returned when the rolling hourly cap is used up.
// Callers must not retry it.
var ErrHourlyCapExceeded = errors.New("hourly request cap exceeded")

// ErrSpacingDeadline is returned when the caller's deadline ends before the
// next dispatch slot opens.
var ErrSpacingDeadline = errors.New("dispatch slot opens after deadline")

// Hour is the span of the rolling cap.
const Hour = time.Hour

// Window counts dispatches over a rolling span.
type Window interface {
	// Reserve records one dispatch at now unless the cap is already reached.
	Reserve(ctx context.Context, now time.Time) (bool, error)
	// Count returns dispatches recorded in the span ending at now.
	Count(ctx context.Context, now time.Time) (int, error)
}

type Config struct {
	// MinInterval is the global spacing between dispatches. Zero disables it.
	MinInterval time.Duration
	// HourlyCap bounds dispatches per rolling hour. Zero disables it.
	HourlyCap int
}

// State describes the limiter for health reporting.
type State struct {
	HourlyUsed    int   `json:"hourlyUsed"`
	HourlyCap     int   `json:"hourlyCap"`
	Remaining     int   `json:"remaining"`
	MinIntervalMs int64 `json:"minIntervalMs"`
}

// Limiter applies the hourly cap, then the minimum spacing, before each
// dispatch to the model. One Limiter is shared by all requests.
type Limiter struct {
	cfg     Config
	spacing *rate.Limiter
	window  Window
	now     func() time.Time
}

// New builds a limiter. A nil window with a positive cap gets a MemoryWindow.
func New(cfg Config, window Window) *Limiter {
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	if window == nil && cfg.HourlyCap > 0 {
		window = NewMemoryWindow(cfg.HourlyCap, Hour)
	}
	return &Limiter{
		cfg:     cfg,
		spacing: rate.NewLimiter(limit, 1),
		window:  window,
		now:     time.Now,
	}
}

// Acquire blocks until a dispatch is allowed. The hourly cap is checked first
// and fails fast with ErrHourlyCapExceeded; only then does the caller wait out
// the spacing interval. A slot reserved before a canceled wait stays counted.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.cfg.HourlyCap > 0 {
		ok, err := l.window.Reserve(ctx, l.now())
		if err != nil {
			return fmt.Errorf("rate limit window: %w", err)
		}
		if !ok {
			return ErrHourlyCapExceeded
		}
	}
	if err := l.spacing.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return ErrSpacingDeadline
	}
	return nil
}

// State reports current usage. Window errors leave HourlyUsed at zero.
func (l *Limiter) State(ctx context.Context) State {
	st := State{
		HourlyCap:     l.cfg.HourlyCap,
		MinIntervalMs: l.cfg.MinInterval.Milliseconds(),
	}
	if l.cfg.HourlyCap <= 0 {
		st.Remaining = -1
		return st
	}
	if used, err := l.window.Count(ctx, l.now()); err == nil {
		st.HourlyUsed = used
	}
	st.Remaining = max(l.cfg.HourlyCap-st.HourlyUsed, 0)
	return st
}
