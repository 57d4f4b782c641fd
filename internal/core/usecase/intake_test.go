package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/flowbit-labs/intake-agent/internal/core/classify"
	"github.com/flowbit-labs/intake-agent/internal/core/domain"
)

type fakeMemory struct {
	created     int
	createErr   error
	lastSource  string
	lastFormat  domain.Format
	lastIntent  domain.Intent
	steps       []string
	mergedKeys  []string
	lastSession string
}

func (m *fakeMemory) CreateSession(_ context.Context, source string, inputType domain.Format, intent domain.Intent, _ time.Time) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.created++
	m.lastSource = source
	m.lastFormat = inputType
	m.lastIntent = intent
	m.lastSession = "session-1"
	return m.lastSession, nil
}

func (m *fakeMemory) GetSession(context.Context, string) (*domain.Session, error) {
	return nil, domain.ErrSessionNotFound
}

func (m *fakeMemory) UpdateSession(context.Context, string, map[string]any) error { return nil }

func (m *fakeMemory) AppendProcessingStep(_ context.Context, _, agent string, _ map[string]any) error {
	m.steps = append(m.steps, agent)
	return nil
}

func (m *fakeMemory) MergeExtractedData(_ context.Context, _, key string, _ any) error {
	m.mergedKeys = append(m.mergedKeys, key)
	return nil
}

func (m *fakeMemory) ListSessions(context.Context) ([]*domain.Session, error) { return nil, nil }
func (m *fakeMemory) DeleteSession(context.Context, string) error             { return nil }
func (m *fakeMemory) CleanupExpired(context.Context) (int, error)             { return 0, nil }

type fakeAgent struct {
	name      string
	lastInput domain.AgentInput
	lastID    string
	result    map[string]any
	err       error
}

func (a *fakeAgent) Name() string { return a.name }

func (a *fakeAgent) Process(_ context.Context, input domain.AgentInput, sessionID string) (map[string]any, error) {
	a.lastInput = input
	a.lastID = sessionID
	if a.err != nil {
		return nil, a.err
	}
	if a.result != nil {
		return a.result, nil
	}
	return map[string]any{"status": "success", "agent": a.name}, nil
}

type fakeStorage struct {
	keys []string
	data [][]byte
	err  error
}

func (s *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	if s.err != nil {
		return s.err
	}
	content, _ := io.ReadAll(data)
	s.keys = append(s.keys, key)
	s.data = append(s.data, content)
	return nil
}

func (s *fakeStorage) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type fakePublisher struct {
	published []string
	err       error
}

func (p *fakePublisher) PublishSessionProcessed(_ context.Context, sessionID string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, sessionID)
	return nil
}

func newTestIntake(memory *fakeMemory, storage *fakeStorage, events *fakePublisher) (*IntakeUseCase, *fakeAgent, *fakeAgent, *fakeAgent) {
	jsonAgent := &fakeAgent{name: "json_agent"}
	emailAgent := &fakeAgent{name: "email_parser_agent"}
	pdfAgent := &fakeAgent{name: "pdf_agent"}
	router := NewAgentRouter(jsonAgent, emailAgent, pdfAgent)
	uc := NewIntakeUseCase(classify.New(), router, memory, storage, events, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return uc, jsonAgent, emailAgent, pdfAgent
}

func TestProcessFileStoresUploadAndRoutes(t *testing.T) {
	memory := &fakeMemory{}
	storage := &fakeStorage{}
	events := &fakePublisher{}
	uc, _, _, pdfAgent := newTestIntake(memory, storage, events)

	content := []byte("%PDF-1.4 invoice payment")
	result, err := uc.ProcessFile(context.Background(), "my report.pdf", "application/pdf", content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(storage.keys) != 1 {
		t.Fatalf("expected one stored object, got %d", len(storage.keys))
	}
	if !bytes.Equal(storage.data[0], content) {
		t.Fatal("stored bytes differ from upload")
	}
	if memory.lastSource != "my report.pdf" {
		t.Fatalf("expected source to be the filename, got %q", memory.lastSource)
	}
	if memory.lastFormat != domain.FormatPDF {
		t.Fatalf("expected pdf session, got %q", memory.lastFormat)
	}
	if pdfAgent.lastID != "session-1" {
		t.Fatalf("expected pdf agent invoked with session id, got %q", pdfAgent.lastID)
	}
	if !bytes.Equal(pdfAgent.lastInput.Raw, content) {
		t.Fatal("pdf agent did not receive raw bytes")
	}
	if result.SessionID != "session-1" {
		t.Fatalf("expected session id in result, got %q", result.SessionID)
	}
	if result.Classification.Format != domain.FormatPDF {
		t.Fatalf("expected pdf classification, got %q", result.Classification.Format)
	}
	if len(events.published) != 1 || events.published[0] != "session-1" {
		t.Fatalf("expected one published event, got %v", events.published)
	}
}

func TestProcessFileStorageFailureStopsIntake(t *testing.T) {
	memory := &fakeMemory{}
	storage := &fakeStorage{err: errors.New("disk full")}
	uc, _, _, _ := newTestIntake(memory, storage, &fakePublisher{})

	_, err := uc.ProcessFile(context.Background(), "a.json", "application/json", []byte(`{"a":1}`))
	if err == nil {
		t.Fatal("expected error from storage failure")
	}
	if memory.created != 0 {
		t.Fatal("no session should be created when the upload cannot be stored")
	}
}

func TestProcessEmailPassesSubjectThrough(t *testing.T) {
	memory := &fakeMemory{}
	uc, _, emailAgent, _ := newTestIntake(memory, &fakeStorage{}, &fakePublisher{})

	result, err := uc.ProcessEmail(context.Background(), "please check my invoice", "Billing question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if memory.lastSource != "email" {
		t.Fatalf("expected source email, got %q", memory.lastSource)
	}
	if memory.lastFormat != domain.FormatEmail {
		t.Fatalf("expected email session, got %q", memory.lastFormat)
	}
	if emailAgent.lastInput.Subject != "Billing question" {
		t.Fatalf("expected subject to survive, got %q", emailAgent.lastInput.Subject)
	}
	if emailAgent.lastInput.Text != "please check my invoice" {
		t.Fatalf("expected body to reach the agent, got %q", emailAgent.lastInput.Text)
	}
	if result.Classification.Intent != domain.IntentInvoiceProcessing {
		t.Fatalf("expected invoice intent from body, got %q", result.Classification.Intent)
	}
}

func TestProcessJSONRoutesStructuredData(t *testing.T) {
	memory := &fakeMemory{}
	uc, jsonAgent, _, _ := newTestIntake(memory, &fakeStorage{}, &fakePublisher{})

	data := map[string]any{"order_id": "ORD-9"}
	result, err := uc.ProcessJSON(context.Background(), data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if memory.lastSource != "api" {
		t.Fatalf("expected source api, got %q", memory.lastSource)
	}
	if jsonAgent.lastInput.Data["order_id"] != "ORD-9" {
		t.Fatal("json agent did not receive the structured data")
	}
	if result.Classification.Format != domain.FormatJSON {
		t.Fatalf("expected json classification, got %q", result.Classification.Format)
	}
}

func TestProcessJSONSessionFailureSurfaces(t *testing.T) {
	memory := &fakeMemory{createErr: errors.New("redis down")}
	uc, jsonAgent, _, _ := newTestIntake(memory, &fakeStorage{}, &fakePublisher{})

	_, err := uc.ProcessJSON(context.Background(), map[string]any{"a": 1})
	if err == nil {
		t.Fatal("expected error when session creation fails")
	}
	if jsonAgent.lastID != "" {
		t.Fatal("agent must not run without a session")
	}
}

func TestPublishFailureDoesNotFailIntake(t *testing.T) {
	memory := &fakeMemory{}
	events := &fakePublisher{err: errors.New("nats gone")}
	uc, _, _, _ := newTestIntake(memory, &fakeStorage{}, events)

	result, err := uc.ProcessJSON(context.Background(), map[string]any{"a": 1})
	if err != nil {
		t.Fatalf("intake must not fail on publish error: %v", err)
	}
	if result.SessionID == "" {
		t.Fatal("expected a session id")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"report final.pdf", "report_final.pdf"},
		{"../../etc/passwd", "passwd"},
		{"weird$name!.txt", "weird_name_.txt"},
		{"", "document.bin"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
