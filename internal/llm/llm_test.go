package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient points a Client at a mock Ollama server.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{Host: srv.URL, Model: "llama3.2"}, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNewNilLogger(t *testing.T) {
	_, err := New(Config{}, nil)
	if err == nil {
		t.Fatal("New() should reject nil logger")
	}
}

func TestNewInvalidHost(t *testing.T) {
	_, err := New(Config{Host: "://nope"}, testLogger())
	if err == nil {
		t.Fatal("New() should reject malformed host URL")
	}
}

func TestNewDefaultModel(t *testing.T) {
	client, err := New(Config{Host: "http://localhost:11434"}, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := client.Model(); got != "llama3.2" {
		t.Errorf("Model() = %q, want %q", got, "llama3.2")
	}
}

func TestChat(t *testing.T) {
	var gotReq api.ChatRequest

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("request path = %q, want %q", r.URL.Path, "/api/chat")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]interface{}{
			"model":             "llama3.2",
			"created_at":        time.Now().UTC().Format(time.RFC3339),
			"message":           map[string]string{"role": "assistant", "content": "hello there"},
			"done":              true,
			"prompt_eval_count": 12,
			"eval_count":        8,
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))

	messages := []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}
	resp, err := client.Chat(context.Background(), messages, nil)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if resp.Content != "hello there" {
		t.Errorf("Content = %q, want %q", resp.Content, "hello there")
	}
	if resp.TokensPrompt != 12 {
		t.Errorf("TokensPrompt = %d, want 12", resp.TokensPrompt)
	}
	if resp.TokensTotal != 20 {
		t.Errorf("TokensTotal = %d, want 20", resp.TokensTotal)
	}

	if gotReq.Model != "llama3.2" {
		t.Errorf("request model = %q, want %q", gotReq.Model, "llama3.2")
	}
	if gotReq.Stream == nil || *gotReq.Stream {
		t.Error("request should disable streaming")
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("request messages = %+v", gotReq.Messages)
	}
}

func TestChatAppliesConfigDefaults(t *testing.T) {
	var gotOptions map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotOptions = req.Options

		fmt.Fprintln(w, `{"model":"llama3.2","message":{"role":"assistant","content":"ok"},"done":true}`)
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{
		Host:        srv.URL,
		Model:       "llama3.2",
		Temperature: 0.3,
		MaxTokens:   64,
	}, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if temp, ok := gotOptions["temperature"].(float64); !ok || temp != 0.3 {
		t.Errorf("options temperature = %v, want 0.3", gotOptions["temperature"])
	}
	if n, ok := gotOptions["num_predict"].(float64); !ok || n != 64 {
		t.Errorf("options num_predict = %v, want 64", gotOptions["num_predict"])
	}
}

func TestChatOptionsOverrideConfig(t *testing.T) {
	var gotReq api.ChatRequest

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprintln(w, `{"model":"mistral","message":{"role":"assistant","content":"ok"},"done":true}`)
	}))

	opts := &ChatOptions{Model: "mistral", Temperature: 0.9}
	if _, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, opts); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if gotReq.Model != "mistral" {
		t.Errorf("request model = %q, want %q", gotReq.Model, "mistral")
	}
}

func TestChatEmptyMessages(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called")
	}))

	if _, err := client.Chat(context.Background(), nil, nil); err == nil {
		t.Fatal("Chat() should reject empty messages")
	}
}

func TestChatServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(w, `{"error":"model failed to load"}`)
	}))

	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Chat() error = %v, want ErrUnavailable", err)
	}
}

func TestChatStream(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("response writer does not support flushing")
		}
		w.Header().Set("Content-Type", "application/x-ndjson")

		chunks := []string{
			`{"model":"llama3.2","message":{"role":"assistant","content":"Hel"},"done":false}`,
			`{"model":"llama3.2","message":{"role":"assistant","content":"lo"},"done":false}`,
			`{"model":"llama3.2","message":{"role":"assistant","content":"!"},"done":true,"prompt_eval_count":3,"eval_count":5}`,
		}
		for _, chunk := range chunks {
			fmt.Fprintln(w, chunk)
			flusher.Flush()
		}
	}))

	stream, err := client.ChatStream(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}

	var content strings.Builder
	var sawDone bool
	for event := range stream {
		if event.Error != nil {
			t.Fatalf("stream event error = %v", event.Error)
		}
		content.WriteString(event.Content)
		if event.Done {
			sawDone = true
		}
	}

	if got := content.String(); got != "Hello!" {
		t.Errorf("streamed content = %q, want %q", got, "Hello!")
	}
	if !sawDone {
		t.Error("stream never reported done")
	}
}

func TestChatStreamCancel(t *testing.T) {
	firstChunk := make(chan struct{})

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "application/x-ndjson")

		fmt.Fprintln(w, `{"model":"llama3.2","message":{"role":"assistant","content":"partial"},"done":false}`)
		flusher.Flush()
		close(firstChunk)

		// Hold the stream open until the client hangs up.
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := client.ChatStream(ctx, []Message{{Role: "user", Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}

	<-firstChunk
	cancel()

	// The stream must terminate after cancellation. Any error event it
	// emits on the way out must be the cancellation, not a server fault.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-stream:
			if !ok {
				return
			}
			if event.Error != nil && !errors.Is(event.Error, ErrCanceled) {
				t.Fatalf("stream event error = %v, want ErrCanceled", event.Error)
			}
		case <-deadline:
			t.Fatal("stream did not close after cancellation")
		}
	}
}

func TestHeartbeat(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.Heartbeat(context.Background()); err != nil {
		t.Fatalf("Heartbeat() error = %v", err)
	}
}

func TestHeartbeatUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	host := srv.URL
	srv.Close()

	client, err := New(Config{Host: host}, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := client.Heartbeat(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Heartbeat() error = %v, want ErrUnavailable", err)
	}
}

func TestModelAvailable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("request path = %q, want %q", r.URL.Path, "/api/tags")
		}
		fmt.Fprintln(w, `{"models":[{"name":"llama3.2:latest","model":"llama3.2:latest"},{"name":"qwen2.5:7b","model":"qwen2.5:7b"}]}`)
	}))

	tests := []struct {
		model string
		want  bool
	}{
		{"llama3.2:latest", true},
		{"qwen2.5:7b", true},
		{"mistral", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, err := client.ModelAvailable(context.Background(), tt.model)
			if err != nil {
				t.Fatalf("ModelAvailable() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ModelAvailable(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}
