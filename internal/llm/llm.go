package llm

import (
	"context"
)

// Client abstracts LLM providers. Generate sends one prompt and returns the
// model's raw text; it does not retry.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// Request captures the inputs for one generation.
type Request struct {
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (string, error)

func (f ClientFunc) Generate(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

func (ClientFunc) Name() string { return "func" }
