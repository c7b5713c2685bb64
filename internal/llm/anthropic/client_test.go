package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"resume-roaster/internal/llm"
)

func newServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGenerateReturnsText(t *testing.T) {
	var req map[string]any
	server := newServer(t, http.StatusOK, `{
		"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
		"content":[{"type":"text","text":"{\"score\":"},{"type":"text","text":"55}"}],
		"stop_reason":"end_turn","usage":{"input_tokens":12,"output_tokens":4}
	}`, &req)

	client, err := NewClient(Options{APIKey: "test-key", Model: "claude-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := client.Generate(context.Background(), llm.Request{Prompt: "roast", Temperature: 0.4, MaxTokens: 500})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != `{"score":55}` {
		t.Fatalf("unexpected text %q", out)
	}
	if req["model"] != "claude-test" || req["max_tokens"] != float64(500) {
		t.Fatalf("unexpected request %v", req)
	}
}

func TestGenerateMapsStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   llm.ErrorKind
	}{
		{status: http.StatusUnauthorized, want: llm.KindAuth},
		{status: http.StatusTooManyRequests, want: llm.KindRateLimited},
		{status: 529, want: llm.KindUnavailable},
	}
	for _, tt := range tests {
		server := newServer(t, tt.status, `{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`, nil)
		client, err := NewClient(Options{APIKey: "test-key", Model: "claude-test", BaseURL: server.URL})
		if err != nil {
			t.Fatalf("NewClient: %v", err)
		}
		_, err = client.Generate(context.Background(), llm.Request{Prompt: "p"})
		var upstream *llm.UpstreamError
		if !errors.As(err, &upstream) {
			t.Fatalf("status %d: expected UpstreamError, got %v", tt.status, err)
		}
		if upstream.Kind != tt.want {
			t.Fatalf("status %d: got kind %s, want %s", tt.status, upstream.Kind, tt.want)
		}
	}
}

func TestGenerateWithoutTextIsEmpty(t *testing.T) {
	server := newServer(t, http.StatusOK, `{"id":"m","type":"message","role":"assistant","model":"claude-test","content":[],"usage":{"input_tokens":1,"output_tokens":0}}`, nil)
	client, _ := NewClient(Options{APIKey: "test-key", Model: "claude-test", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), llm.Request{Prompt: "p"})
	if llm.Classify(err) != llm.KindEmptyResponse {
		t.Fatalf("expected empty response, got %v", err)
	}
}
