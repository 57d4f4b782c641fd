package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowbit-labs/intake-agent/internal/core/domain"
	"github.com/flowbit-labs/intake-agent/internal/infrastructure/resilience"
)

func TestGenerateSendsPromptAndTrimsResponse(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "  generated text\n"})
	}))
	defer server.Close()

	client := New(server.URL, "llama3.1:8b")
	out, err := client.Generate(context.Background(), "classify this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out != "generated text" {
		t.Fatalf("expected trimmed response, got %q", out)
	}
	if gotPath != "/api/generate" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody["model"] != "llama3.1:8b" || gotBody["prompt"] != "classify this" {
		t.Fatalf("unexpected request body %v", gotBody)
	}
	if gotBody["stream"] != false {
		t.Fatalf("expected stream disabled, got %v", gotBody["stream"])
	}
}

func TestGenerateServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "m")
	_, err := client.Generate(context.Background(), "p")
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestGenerateClientErrorIsNotTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad model", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "m")
	_, err := client.Generate(context.Background(), "p")
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("4xx must not be temporary: %v", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestGenerateRetriesThroughExecutor(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "not yet", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "ok"})
	}))
	defer server.Close()

	cfg := resilience.DefaultConfig()
	cfg.RetryInitialBackoff = 1
	cfg.RetryMaxBackoff = 1
	client := NewWithExecutor(server.URL, "m", resilience.NewExecutor(cfg))

	out, err := client.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected output %q", out)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestClassifyOllamaError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{"canceled", context.Canceled, false, false},
		{"retryable status", &HTTPStatusError{StatusCode: http.StatusBadGateway}, true, true},
		{"client status", &HTTPStatusError{StatusCode: http.StatusBadRequest}, false, true},
		{"unknown", errors.New("boom"), false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			class := classifyOllamaError(tc.err)
			if class.Retryable != tc.retryable {
				t.Fatalf("retryable = %v, want %v", class.Retryable, tc.retryable)
			}
			if class.RecordFailure != tc.record {
				t.Fatalf("record = %v, want %v", class.RecordFailure, tc.record)
			}
		})
	}
}
