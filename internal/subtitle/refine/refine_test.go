package refine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const rawSRT = "1\n00:00:00,000 --> 00:00:01,000\nHello, world.\n\n"

func claudeReply(w http.ResponseWriter, text string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":        "message",
		"stop_reason": "end_turn",
		"content":     []map[string]string{{"type": "text", "text": text}},
	})
}

func TestClaudeCompleteRequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Fatalf("missing api key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Fatalf("missing anthropic-version header")
		}
		var body messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Model != "demo-model" || body.MaxTokens != 2048 {
			t.Fatalf("unexpected model/max_tokens: %+v", body)
		}
		if len(body.Messages) != 1 || body.Messages[0].Role != "user" {
			t.Fatalf("expected a single user message, got %+v", body.Messages)
		}
		if !strings.HasSuffix(body.Messages[0].Content, rawSRT) || !strings.Contains(body.Messages[0].Content, "42 characters") {
			t.Fatalf("prompt missing instructions or subtitles: %q", body.Messages[0].Content)
		}
		claudeReply(w, "improved")
	}))
	defer server.Close()

	client := NewClaudeClient(Config{APIKey: "test-key", BaseURL: server.URL, Model: "demo-model", MaxTokens: 2048})
	got, err := client.Complete(context.Background(), BuildPrompt(rawSRT))
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "improved" {
		t.Fatalf("Complete = %q", got)
	}
}

func TestClaudeCompleteRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		claudeReply(w, "second time")
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClaudeClient(Config{APIKey: "k", BaseURL: server.URL},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }))
	got, err := client.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "second time" || calls.Load() != 2 {
		t.Fatalf("got %q after %d calls", got, calls.Load())
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected one 1s retry sleep, got %v", slept)
	}
}

func TestClaudeCompleteDoesNotRetryAuthFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClaudeClient(Config{APIKey: "bad", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	if _, err := client.Complete(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

type stubCompleter struct {
	text string
	err  error
}

func (s stubCompleter) Complete(context.Context, string) (string, error) { return s.text, s.err }
func (s stubCompleter) Name() string                                     { return "stub" }

func TestRefinerFallsBackToRaw(t *testing.T) {
	r := NewRefiner(stubCompleter{err: errors.New("boom")}, nil)
	result := r.Refine(context.Background(), rawSRT)
	if result.Text != rawSRT {
		t.Fatalf("fallback text = %q, want raw input", result.Text)
	}
	if result.Refined || result.Err == nil {
		t.Fatalf("expected unrefined result with error, got %+v", result)
	}
}

func TestRefinerFallsBackOnHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClaudeClient(Config{APIKey: "k", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	result := NewRefiner(client, nil).Refine(context.Background(), rawSRT)
	if result.Text != rawSRT || result.Refined {
		t.Fatalf("expected identity fallback, got %+v", result)
	}
}

func TestRefinerReturnsResponseVerbatim(t *testing.T) {
	reply := "not even srt, returned as is\n"
	result := NewRefiner(stubCompleter{text: reply}, nil).Refine(context.Background(), rawSRT)
	if !result.Refined || result.Text != reply {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRefinerDisabled(t *testing.T) {
	result := NewRefiner(nil, nil).Refine(context.Background(), rawSRT)
	if result.Text != rawSRT || result.Refined || !errors.Is(result.Err, ErrDisabled) {
		t.Fatalf("unexpected result %+v", result)
	}
}
