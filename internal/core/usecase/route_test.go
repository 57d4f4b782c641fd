package usecase

import (
	"context"
	"testing"

	"github.com/flowbit-labs/intake-agent/internal/core/domain"
)

func newTestRouter() (*AgentRouter, *fakeAgent, *fakeAgent, *fakeAgent) {
	jsonAgent := &fakeAgent{name: "json_agent"}
	emailAgent := &fakeAgent{name: "email_parser_agent"}
	pdfAgent := &fakeAgent{name: "pdf_agent"}
	return NewAgentRouter(jsonAgent, emailAgent, pdfAgent), jsonAgent, emailAgent, pdfAgent
}

func TestRouteUnsupportedFormat(t *testing.T) {
	router, jsonAgent, emailAgent, pdfAgent := newTestRouter()

	_, err := router.Route(context.Background(), domain.ClassificationResult{Format: "csv"}, "a,b,c", "s1")
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	for _, agent := range []*fakeAgent{jsonAgent, emailAgent, pdfAgent} {
		if agent.lastID != "" {
			t.Fatalf("agent %s must not run for unsupported format", agent.name)
		}
	}
}

func TestRouteFormatCaseInsensitive(t *testing.T) {
	router, _, emailAgent, _ := newTestRouter()

	_, err := router.Route(context.Background(), domain.ClassificationResult{Format: "Email"}, "hello", "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emailAgent.lastID != "s1" {
		t.Fatal("email agent should have been selected")
	}
}

func TestRouteJSONContentShapes(t *testing.T) {
	router, jsonAgent, _, _ := newTestRouter()
	classification := domain.ClassificationResult{Format: domain.FormatJSON}

	// A map passes through untouched.
	if _, err := router.Route(context.Background(), classification, map[string]any{"k": "v"}, "s1"); err != nil {
		t.Fatalf("unexpected error for map: %v", err)
	}
	if jsonAgent.lastInput.Data["k"] != "v" {
		t.Fatal("map content was not passed through")
	}

	// Valid JSON text is parsed.
	if _, err := router.Route(context.Background(), classification, `{"n": 2}`, "s2"); err != nil {
		t.Fatalf("unexpected error for json text: %v", err)
	}
	if jsonAgent.lastInput.Data["n"] != float64(2) {
		t.Fatal("json text was not parsed into a map")
	}

	// Malformed JSON is invalid input, reported before the agent runs.
	if _, err := router.Route(context.Background(), classification, "not json", "s3"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if jsonAgent.lastID == "s3" {
		t.Fatal("agent must not run on malformed input")
	}
}

func TestRoutePDFGetsRawBytes(t *testing.T) {
	router, _, _, pdfAgent := newTestRouter()

	content := []byte("%PDF-1.4")
	_, err := router.Route(context.Background(), domain.ClassificationResult{Format: domain.FormatPDF}, content, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(pdfAgent.lastInput.Raw) != "%PDF-1.4" {
		t.Fatal("pdf agent did not receive raw bytes")
	}
}
