package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"resume-roaster/internal/llm"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient(Options{APIKey: "k"}); err == nil {
		t.Fatalf("expected error without model")
	}
	if _, err := NewClient(Options{Model: "gpt-4o-mini"}); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestGenerateSendsBearerAndPrompt(t *testing.T) {
	var gotAuth, gotPath string
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"{\"score\":70}"}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer server.Close()

	client, err := NewClient(Options{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := client.Generate(context.Background(), llm.Request{Prompt: "roast me", Temperature: 0.7, MaxTokens: 900})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != `{"score":70}` {
		t.Fatalf("unexpected content %q", out)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected Authorization header %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if body["temperature"] != 0.7 {
		t.Fatalf("expected temperature 0.7, got %v", body["temperature"])
	}
	if body["max_completion_tokens"] != float64(900) {
		t.Fatalf("expected max tokens, got %v", body["max_completion_tokens"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(msgs))
	}
}

func TestGenerateOmitsTemperatureForDenylist(t *testing.T) {
	var mu sync.Mutex
	var lastBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		mu.Lock()
		lastBody = payload
		mu.Unlock()
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Options{APIKey: "k", Model: "o3-mini", BaseURL: server.URL, NoTemperatureModels: []string{"O3-mini"}})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Generate(context.Background(), llm.Request{Prompt: "p"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, ok := lastBody["temperature"]; ok {
		t.Fatalf("expected temperature to be omitted for denylisted model")
	}
}

func TestGenerateRetriesWithoutTemperatureOnce(t *testing.T) {
	var mu sync.Mutex
	var bodies []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		mu.Lock()
		bodies = append(bodies, payload)
		mu.Unlock()
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Unsupported value: 'temperature' does not support 0 with this model.","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client, err := NewClient(Options{APIKey: "k", Model: "gpt-4o-mini", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Generate(context.Background(), llm.Request{Prompt: "p"})
	if err == nil {
		t.Fatalf("expected error on repeated temperature rejection")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Fatalf("expected 2 requests (one retry), got %d", len(bodies))
	}
	if _, ok := bodies[0]["temperature"]; !ok {
		t.Fatalf("expected first request to include temperature")
	}
	if _, ok := bodies[1]["temperature"]; ok {
		t.Fatalf("expected retry request to omit temperature")
	}
}

func TestGenerateClassifiesStatus(t *testing.T) {
	tests := []struct {
		status int
		want   llm.ErrorKind
	}{
		{status: http.StatusUnauthorized, want: llm.KindAuth},
		{status: http.StatusTooManyRequests, want: llm.KindRateLimited},
		{status: http.StatusBadGateway, want: llm.KindUnavailable},
		{status: http.StatusBadRequest, want: llm.KindBadRequest},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"x"}}`))
		}))
		client, err := NewClient(Options{APIKey: "k", Model: "gpt-4o-mini", BaseURL: server.URL})
		if err != nil {
			t.Fatalf("NewClient: %v", err)
		}
		_, err = client.Generate(context.Background(), llm.Request{Prompt: "p"})
		server.Close()

		var upstream *llm.UpstreamError
		if !errors.As(err, &upstream) {
			t.Fatalf("status %d: expected UpstreamError, got %v", tt.status, err)
		}
		if upstream.Kind != tt.want || upstream.StatusCode != tt.status {
			t.Fatalf("status %d: got kind=%s status=%d", tt.status, upstream.Kind, upstream.StatusCode)
		}
	}
}

func TestGenerateMissingChoicesIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, _ := NewClient(Options{APIKey: "k", Model: "gpt-4o-mini", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), llm.Request{Prompt: "p"})
	if llm.Classify(err) != llm.KindEmptyResponse {
		t.Fatalf("expected empty response kind, got %v", err)
	}
}
