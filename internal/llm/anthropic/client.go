package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"resume-roaster/internal/llm"
	"resume-roaster/internal/shared/telemetry"
)

const (
	defaultMaxTokens = 4096
	systemPrompt     = "You are a résumé analysis engine. Respond with a single JSON object only. No markdown. Never omit required keys."
)

// Options configures a Client.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Client implements llm.Client with the Anthropic Messages API. SDK retries
// are disabled; llm.Gateway owns the retry policy.
type Client struct {
	model string
	api   sdk.Client
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Anthropic")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(opts.APIKey)),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	return &Client{model: opts.Model, api: sdk.NewClient(reqOpts...)}, nil
}

func (c *Client) Name() string { return "anthropic" }

// Generate sends the prompt once and concatenates the text blocks of the reply.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	model := req.Model
	if strings.TrimSpace(model) == "" {
		model = c.model
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := sdk.MessageNewParams{
		Model:       sdk.Model(model),
		MaxTokens:   maxTokens,
		System:      []sdk.TextBlockParam{{Text: systemPrompt}},
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt))},
		Temperature: sdk.Float(req.Temperature),
	}

	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return "", llm.NewStatusError(apiErr.StatusCode, fmt.Errorf("anthropic: %w", err))
		}
		return "", llm.AsUpstream(fmt.Errorf("anthropic request: %w", err))
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	telemetry.Debug("llm.response", map[string]any{
		"provider":      "anthropic",
		"model":         string(msg.Model),
		"input_tokens":  msg.Usage.InputTokens,
		"output_tokens": msg.Usage.OutputTokens,
		"stop_reason":   string(msg.StopReason),
	})
	if b.Len() == 0 {
		return "", &llm.UpstreamError{Kind: llm.KindEmptyResponse, Err: errors.New("anthropic response has no text content")}
	}
	return b.String(), nil
}

var _ llm.Client = (*Client)(nil)
