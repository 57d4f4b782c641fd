// Package ollama is the text-generation boundary: prompt in, text out.
// Callers treat the response as untrusted and parse defensively.
package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/flowbit-labs/intake-agent/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string) *Client {
	return NewWithExecutor(baseURL, model, nil)
}

// NewWithExecutor wraps every generation call in the given resilience
// executor (retry + circuit breaker).
func NewWithExecutor(baseURL, model string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// Generate produces completion text for the prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
	}

	var out string
	call := func(callCtx context.Context) error {
		var response struct {
			Response string `json:"response"`
		}
		if err := c.postJSON(callCtx, "/api/generate", reqBody, &response, "generate"); err != nil {
			return err
		}
		out = strings.TrimSpace(response.Response)
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.generate", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("generate", err)
	}
	return out, nil
}
