package analyses

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"resume-roaster/internal/analyses/payload"
	"resume-roaster/internal/heuristic"
	"resume-roaster/internal/llm"
	"resume-roaster/internal/prompt"
	"resume-roaster/internal/ratelimit"
	"resume-roaster/internal/security"
	"resume-roaster/internal/settings"
	"resume-roaster/internal/shared/metrics"
	"resume-roaster/internal/shared/telemetry"
	"resume-roaster/internal/text"
)

// Input bounds, in characters of normalized text.
const (
	MinTextLength = 50
	MaxTextLength = 50000
)

const DefaultPersistTimeout = 10 * time.Second

// Request is one analysis as submitted by a caller.
type Request struct {
	Text      string
	Config    settings.Raw
	File      FileMeta
	RequestID string
}

// Result is what callers get back. Exactly one of Record or ErrorCode is set.
type Result struct {
	Success     bool    `json:"success"`
	Record      *Record `json:"record,omitempty"`
	ErrorCode   string  `json:"errorCode,omitempty"`
	UserMessage string  `json:"userMessage,omitempty"`
	Status      int     `json:"-"`
}

// Health reports the gateway counters and the rate limiter state.
type Health struct {
	llm.Snapshot
	Provider  string          `json:"provider"`
	RateLimit ratelimit.State `json:"rateLimit"`
}

// Service runs the analysis pipeline: normalize, check length, resolve
// settings, screen, extract, prompt, call the model, parse, validate,
// sanitize and assemble. Completed records are stored in the background.
type Service struct {
	Gateway   *llm.Gateway
	Limiter   *ratelimit.Limiter
	Prompts   *prompt.Builder
	Screener  *security.Screener
	Extractor *heuristic.Extractor
	Assembler *Assembler
	Recorder  Recorder

	Model          string
	Temperature    float64
	MaxTokens      int
	PersistTimeout time.Duration

	pending sync.WaitGroup
}

// Analyze never returns an error; failures are encoded in the Result.
func (s *Service) Analyze(ctx context.Context, req Request) Result {
	start := time.Now()
	requestID := req.RequestID
	if requestID == "" {
		requestID = requestIDFromContext(ctx)
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = WithRequestID(ctx, requestID)

	rec, err := s.run(ctx, req, requestID, start.UTC())
	metrics.ObserveAnalysisDuration(time.Since(start))
	if err != nil {
		return s.fail(ctx, err, time.Since(start))
	}

	metrics.IncAnalysis("success")
	telemetry.Info("analysis.completed", map[string]any{
		"request_id":       requestID,
		"resume_id":        rec.ResumeID,
		"score":            rec.Score,
		"attempts":         rec.Attempts,
		"heuristic_fields": rec.HeuristicFields,
		"security_score":   rec.Security.Score,
		"duration_ms":      float64(time.Since(start).Microseconds()) / 1000.0,
	})
	s.persist(ctx, rec)
	return Result{Success: true, Record: &rec, Status: http.StatusOK}
}

func (s *Service) run(ctx context.Context, req Request, requestID string, received time.Time) (Record, error) {
	if s.Gateway == nil || s.Prompts == nil || s.Extractor == nil {
		return Record{}, errors.New("analysis service is missing dependencies")
	}

	normalized := text.Normalize(req.Text)
	switch n := text.Length(normalized); {
	case n < MinTextLength:
		return Record{}, fmt.Errorf("%w: %d characters", ErrInputTooShort, n)
	case n > MaxTextLength:
		return Record{}, fmt.Errorf("%w: %d characters", ErrInputTooLong, n)
	}

	cfg, coercions := settings.Resolve(req.Config)
	for _, c := range coercions {
		telemetry.Warn("settings.coerced", map[string]any{
			"request_id": requestID,
			"field":      c.Field,
			"given":      c.Given,
			"used":       c.Used,
		})
	}

	screener := s.Screener
	if screener == nil {
		screener = security.NewScreener(security.Thresholds{})
	}
	assessment := screener.Assess(normalized, req.Config)
	if assessment.Decision != security.Allow {
		metrics.IncSecurityFlag(string(assessment.Decision))
		telemetry.Warn("security.flagged", map[string]any{
			"request_id": requestID,
			"score":      assessment.Score,
			"flags":      assessment.Flags,
			"decision":   assessment.Decision,
		})
	}
	if assessment.Decision == security.Block {
		return Record{}, fmt.Errorf("%w: score %d", ErrSecurityRejected, assessment.Score)
	}

	extraction := s.Extractor.Extract(normalized)
	p := s.Prompts.Build(normalized, cfg)

	var validated payload.Validated
	outcome, err := s.Gateway.Do(ctx, llm.Request{
		Prompt:      p.Text,
		Model:       s.Model,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
	}, func(raw string) error {
		parsed, err := payload.Parse(raw)
		if err != nil {
			return err
		}
		v, err := payload.Validate(parsed)
		if err != nil {
			return err
		}
		validated = v
		return nil
	})
	if err != nil {
		return Record{}, err
	}

	assembler := s.Assembler
	if assembler == nil {
		assembler = NewAssembler(DefaultRetentionDays)
	}
	rec, err := assembler.Assemble(AssembleInput{
		RequestID:  requestID,
		Text:       normalized,
		Config:     cfg,
		Coercions:  coercions,
		File:       req.File,
		Payload:    payload.Sanitize(validated.Tree),
		Heuristic:  extraction,
		Security:   assessment,
		Prompt:     p,
		Provider:   s.Gateway.Provider(),
		Model:      s.Model,
		Attempts:   outcome.Attempts,
		ReceivedAt: received,
	})
	if err != nil {
		metrics.IncAssemblyInvariantViolation()
		return Record{}, err
	}
	return rec, nil
}

func (s *Service) fail(ctx context.Context, err error, elapsed time.Duration) Result {
	f := classifyFailure(err)
	metrics.IncAnalysis(f.code)
	fields := map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"error_code":  f.code,
		"status":      f.status,
		"error":       llm.SanitizeError(err),
		"duration_ms": float64(elapsed.Microseconds()) / 1000.0,
	}
	if f.status >= http.StatusInternalServerError && f.status != http.StatusServiceUnavailable {
		telemetry.Error("analysis.failed", fields)
	} else {
		telemetry.Warn("analysis.failed", fields)
	}
	return Result{ErrorCode: f.code, UserMessage: f.message, Status: f.status}
}

// persist stores the record after the result has been decided. Failures are
// logged and counted; they never change the outcome.
func (s *Service) persist(ctx context.Context, rec Record) {
	if s.Recorder == nil {
		return
	}
	timeout := s.PersistTimeout
	if timeout <= 0 {
		timeout = DefaultPersistTimeout
	}
	bg := context.WithoutCancel(ctx)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				s.persistFailed(rec, fmt.Errorf("panic: %v", r))
			}
		}()
		pctx, cancel := context.WithTimeout(bg, timeout)
		defer cancel()
		if _, err := s.Recorder.Insert(pctx, rec); err != nil {
			s.persistFailed(rec, err)
		}
	}()
}

func (s *Service) persistFailed(rec Record, err error) {
	metrics.IncPersistFailure()
	telemetry.Error("record.persist_failed", map[string]any{
		"request_id": rec.RequestID,
		"resume_id":  rec.ResumeID,
		"error":      llm.SanitizeError(err),
	})
}

// Flush waits for background persistence to finish.
func (s *Service) Flush() {
	s.pending.Wait()
}

// Health snapshots the gateway counters and the rate limiter.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{RateLimit: ratelimit.State{Remaining: -1}}
	if s.Gateway != nil {
		h.Snapshot = s.Gateway.Stats()
		h.Provider = s.Gateway.Provider()
	}
	if s.Limiter != nil {
		h.RateLimit = s.Limiter.State(ctx)
	}
	return h
}

// PurgeExpired deletes stored records past their retention date.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	if s.Recorder == nil {
		return 0, nil
	}
	n, err := s.Recorder.PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired records: %w", err)
	}
	if n > 0 {
		telemetry.Info("record.purged", map[string]any{"count": n})
	}
	return n, nil
}
