package llm

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

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
}

func writeCompletion(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "demo-model",
		"choices": []any{
			map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestOpenAITransport_Chat(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeCompletion(t, w, "hello back")
	}))
	defer server.Close()

	transport := NewOpenAITransport("sk-test", server.URL)
	defer func() { _ = transport.Close() }()

	temperature := 0.3
	maxTokens := 64
	resp, err := transport.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hello"},
	}, CallOptions{Model: "demo-model", Temperature: &temperature, MaxTokens: &maxTokens, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp != "hello back" {
		t.Errorf("Chat() = %q, want %q", resp, "hello back")
	}

	if got.Model != "demo-model" {
		t.Errorf("model = %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if got.Messages[0].Content != "be brief" || got.Messages[1].Content != "hello" {
		t.Errorf("unexpected message contents: %+v", got.Messages)
	}
	if got.Temperature == nil || *got.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", got.Temperature)
	}
	if got.MaxTokens == nil || *got.MaxTokens != 64 {
		t.Errorf("max_tokens = %v, want 64", got.MaxTokens)
	}
}

func TestOpenAITransport_OmitsUnsetParameters(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeCompletion(t, w, "ok")
	}))
	defer server.Close()

	transport := NewOpenAITransport("sk-test", server.URL)
	if _, err := transport.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, CallOptions{Model: "demo-model"}); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if _, ok := raw["temperature"]; ok {
		t.Error("temperature should be omitted when unset")
	}
	if _, ok := raw["max_tokens"]; ok {
		t.Error("max_tokens should be omitted when unset")
	}
}

func TestOpenAITransport_NoSDKRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "upstream down"}}`))
	}))
	defer server.Close()

	transport := NewOpenAITransport("sk-test", server.URL)
	_, err := transport.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, CallOptions{Model: "demo-model"})
	if err == nil {
		t.Fatal("expected error for server failure")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server calls = %d, want 1", n)
	}
}

func TestOpenAITransport_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "chatcmpl-1", "object": "chat.completion", "choices": []}`))
	}))
	defer server.Close()

	transport := NewOpenAITransport("sk-test", server.URL)
	if _, err := transport.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, CallOptions{Model: "demo-model"}); err == nil {
		t.Fatal("expected error when no choices are returned")
	}
}

func TestClient_OpenAIRetriesEndToEnd(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error": {"message": "busy"}}`))
			return
		}
		writeCompletion(t, w, "ok")
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Provider = ProviderOpenAI
	cfg.BaseURL = server.URL

	var sleeps []time.Duration
	client, err := New(&cfg, WithSleeper(func(d time.Duration) { sleeps = append(sleeps, d) }))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = client.Close() }()

	resp, err := client.Prompt(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Prompt() error = %v", err)
	}
	if resp != "ok" {
		t.Errorf("Prompt() = %q, want ok", resp)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("server calls = %d, want 3", n)
	}
	if len(sleeps) != 2 || sleeps[0] != time.Second || sleeps[1] != 2*time.Second {
		t.Errorf("sleeps = %v, want [1s 2s]", sleeps)
	}
}

func TestClient_OpenAIExhaustion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error": {"message": "boom"}}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Provider = ProviderOpenAI
	cfg.BaseURL = server.URL

	client, err := New(&cfg, WithSleeper(func(time.Duration) {}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = client.Close() }()

	_, err = client.Prompt(context.Background(), "hello")
	var failed *PromptFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected *PromptFailedError, got %v", err)
	}
	if failed.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", failed.Attempts)
	}
}
