package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-roaster/internal/shared/metrics"
	"resume-roaster/internal/shared/telemetry"
)

// Defaults for the request cycle.
const (
	DefaultTimeout          = 60 * time.Second
	DefaultMaxAttempts      = 3
	DefaultBackoffBase      = 500 * time.Millisecond
	DefaultBackoffMax       = 8 * time.Second
	DefaultMaxResponseBytes = 64 << 10
)

// Limiter gates each dispatch. *ratelimit.Limiter satisfies it.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// AcceptFunc inspects a raw response. A non-nil error rejects the attempt and
// consumes one unit of the retry budget.
type AcceptFunc func(raw string) error

type Config struct {
	Timeout          time.Duration
	MaxAttempts      int
	BackoffBase      time.Duration
	BackoffMax       time.Duration
	MaxResponseBytes int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = DefaultBackoffMax
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = DefaultMaxResponseBytes
	}
	return c
}

// Outcome describes how a request went.
type Outcome struct {
	Attempts int
	Retries  int
	Latency  time.Duration
}

// Gateway calls the model once per logical request, subject to rate limiting,
// a per-attempt deadline and bounded retries. It owns the shared counters.
type Gateway struct {
	client  Client
	limiter Limiter
	cfg     Config
	stats   Stats
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewGateway wires a client and limiter. limiter may be nil.
func NewGateway(client Client, limiter Limiter, cfg Config) *Gateway {
	return &Gateway{
		client:  client,
		limiter: limiter,
		cfg:     cfg.withDefaults(),
		sleep:   sleepContext,
	}
}

// Provider names the underlying client.
func (g *Gateway) Provider() string { return g.client.Name() }

// Stats returns a snapshot of the shared counters.
func (g *Gateway) Stats() Snapshot { return g.stats.Snapshot() }

// Do runs the request cycle. On success the accept hook has seen and approved
// the raw response. Errors are the limiter's, the parent context's, the last
// *UpstreamError, or the last accept error once the budget is spent.
func (g *Gateway) Do(ctx context.Context, req Request, accept AcceptFunc) (Outcome, error) {
	start := time.Now()
	g.stats.requests.Add(1)

	out, err := g.run(ctx, req, accept)
	out.Latency = time.Since(start)
	g.stats.finish(err == nil, out.Latency)
	return out, err
}

func (g *Gateway) run(ctx context.Context, req Request, accept AcceptFunc) (Outcome, error) {
	var out Outcome
	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := g.backoff(attempt - 1)
			telemetry.Warn("llm.retry", map[string]any{
				"attempt":  attempt,
				"delay_ms": delay.Milliseconds(),
				"provider": g.client.Name(),
				"error":    SanitizeError(lastErr),
			})
			if err := g.sleep(ctx, delay); err != nil {
				return out, err
			}
			out.Retries++
			g.stats.retries.Add(1)
			metrics.IncLLMRetry()
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if g.limiter != nil {
			if err := g.limiter.Acquire(ctx); err != nil {
				return out, err
			}
		}

		out.Attempts++
		g.stats.attempts.Add(1)
		raw, err := g.dispatch(ctx, req)
		if err == nil {
			err = g.check(raw)
		}
		if err == nil && accept != nil {
			err = accept(raw)
		}
		if err == nil {
			metrics.ObserveLLMAttempt("success")
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		metrics.ObserveLLMAttempt(attemptResult(err))
		lastErr = err
		if !retryable(err) {
			return out, err
		}
	}
	return out, lastErr
}

// dispatch races one call against the per-attempt deadline. The result
// channel is buffered so a late reply is dropped without blocking the sender.
func (g *Gateway) dispatch(ctx context.Context, req Request) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	type result struct {
		raw string
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := g.client.Generate(attemptCtx, req)
		done <- result{raw: raw, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", AsUpstream(res.err)
		}
		return res.raw, nil
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &UpstreamError{Kind: KindTimeout, Err: fmt.Errorf("no response within %s", g.cfg.Timeout)}
	}
}

func (g *Gateway) check(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &UpstreamError{Kind: KindEmptyResponse, Err: errors.New("empty response")}
	}
	if len(raw) > g.cfg.MaxResponseBytes {
		return &UpstreamError{Kind: KindOversizedResponse, Err: fmt.Errorf("response of %d bytes exceeds %d", len(raw), g.cfg.MaxResponseBytes)}
	}
	return nil
}

// backoff returns the delay before retry n (1-based): base, 2*base, 4*base...
// capped at BackoffMax.
func (g *Gateway) backoff(n int) time.Duration {
	d := g.cfg.BackoffBase
	for i := 1; i < n; i++ {
		d *= 2
		if d >= g.cfg.BackoffMax {
			return g.cfg.BackoffMax
		}
	}
	return min(d, g.cfg.BackoffMax)
}

// retryable: upstream errors follow their kind; anything else came from the
// accept hook and counts toward the budget.
func retryable(err error) bool {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Retryable()
	}
	return true
}

func attemptResult(err error) string {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return string(upstream.Kind)
	}
	return "rejected"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
