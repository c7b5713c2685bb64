package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"resume-roaster/internal/llm"
	"resume-roaster/internal/shared/telemetry"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	maxBodyBytes   = 4 << 20

	systemPrompt = "You are a résumé analysis engine. Respond with a single JSON object only. No markdown. Never omit required keys."
)

// Options configures a Client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// NoTemperatureModels lists models that reject an explicit temperature.
	NoTemperatureModels []string
	// HTTPClient is the base client the bearer transport wraps; tests inject one.
	HTTPClient *http.Client
}

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	baseURL    string
	model      string
	noTemp     map[string]bool
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client. The API key is attached by an
// oauth2 static token source.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: opts.Timeout}
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: strings.TrimSpace(opts.APIKey),
		TokenType:   "Bearer",
	}))

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	noTemp := make(map[string]bool, len(opts.NoTemperatureModels))
	for _, m := range opts.NoTemperatureModels {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			noTemp[m] = true
		}
	}
	return &Client{
		baseURL:    baseURL,
		model:      opts.Model,
		noTemp:     noTemp,
		httpClient: httpClient,
	}, nil
}

func (c *Client) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float64       `json:"temperature,omitempty"`
	MaxTokens      int            `json:"max_completion_tokens,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Generate sends the prompt once. When the model rejects the temperature
// parameter the request is repeated a single time without it.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	model := req.Model
	if strings.TrimSpace(model) == "" {
		model = c.model
	}
	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:      req.MaxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	if c.supportsTemperature(model) {
		temp := req.Temperature
		body.Temperature = &temp
	}

	content, err := c.complete(ctx, body)
	if err != nil && body.Temperature != nil && isTemperatureUnsupported(err) {
		telemetry.Warn("llm.temperature_unsupported", map[string]any{"model": model})
		body.Temperature = nil
		content, err = c.complete(ctx, body)
	}
	return content, err
}

func (c *Client) complete(ctx context.Context, body chatRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", &llm.UpstreamError{Kind: llm.KindBadRequest, Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", &llm.UpstreamError{Kind: llm.KindBadRequest, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", llm.AsUpstream(fmt.Errorf("openai request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", llm.AsUpstream(fmt.Errorf("openai read: %w", err))
	}

	var parsed chatResponse
	decodeErr := json.Unmarshal(raw, &parsed)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", llm.NewStatusError(resp.StatusCode, fmt.Errorf("openai: %s", msg))
	}
	if decodeErr != nil {
		return "", &llm.UpstreamError{Kind: llm.KindUnavailable, StatusCode: resp.StatusCode, Err: fmt.Errorf("openai response parse: %w", decodeErr)}
	}
	if parsed.Error != nil {
		return "", &llm.UpstreamError{Kind: llm.KindBadRequest, StatusCode: resp.StatusCode, Err: fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)}
	}
	if len(parsed.Choices) == 0 {
		return "", &llm.UpstreamError{Kind: llm.KindEmptyResponse, StatusCode: resp.StatusCode, Err: errors.New("openai response missing choices")}
	}
	logUsage(parsed)
	return parsed.Choices[0].Message.Content, nil
}

func (c *Client) supportsTemperature(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	return !c.noTemp[m] && !isGPT5(m)
}

func isTemperatureUnsupported(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "temperature") && (strings.Contains(msg, "unsupported") || strings.Contains(msg, "does not support"))
}

func logUsage(resp chatResponse) {
	fields := map[string]any{"provider": "openai", "model": resp.Model}
	if resp.Usage != nil {
		fields["prompt_tokens"] = resp.Usage.PromptTokens
		fields["completion_tokens"] = resp.Usage.CompletionTokens
		fields["total_tokens"] = resp.Usage.TotalTokens
	}
	telemetry.Debug("llm.response", fields)
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Client = (*Client)(nil)
