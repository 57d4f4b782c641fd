package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowbit-labs/intake-agent/internal/core/classify"
	"github.com/flowbit-labs/intake-agent/internal/core/domain"
	"github.com/flowbit-labs/intake-agent/internal/core/ports"
)

// IntakeUseCase runs one intake unit of work: classify the input,
// create a session, route to the matching extraction agent and report
// the accumulated outcome. Each request is independent; nothing here is
// shared mutable state across sessions.
type IntakeUseCase struct {
	classifier *classify.Classifier
	router     *AgentRouter
	memory     ports.SessionMemory
	storage    ports.ObjectStorage
	events     ports.EventPublisher
	logger     *slog.Logger
}

func NewIntakeUseCase(
	classifier *classify.Classifier,
	router *AgentRouter,
	memory ports.SessionMemory,
	storage ports.ObjectStorage,
	events ports.EventPublisher,
	logger *slog.Logger,
) *IntakeUseCase {
	return &IntakeUseCase{
		classifier: classifier,
		router:     router,
		memory:     memory,
		storage:    storage,
		events:     events,
		logger:     logger,
	}
}

// ProcessFile handles an uploaded document: the raw bytes are kept in
// object storage for audit, then classified and routed.
func (uc *IntakeUseCase) ProcessFile(ctx context.Context, filename, contentType string, content []byte) (*domain.IntakeResult, error) {
	storageKey := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))
	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	classification := uc.classifier.Classify(classify.Input{
		Content:  content,
		FileType: contentType,
		Filename: filename,
	})

	return uc.run(ctx, filename, classification.Format, classification, content)
}

// ProcessEmail handles email content posted directly to the intake.
func (uc *IntakeUseCase) ProcessEmail(ctx context.Context, emailBody, subject string) (*domain.IntakeResult, error) {
	classification := uc.classifier.Classify(classify.Input{
		Content:  emailBody,
		FileType: "email",
		Metadata: map[string]any{"subject": subject},
	})

	sessionID, err := uc.memory.CreateSession(ctx, "email", domain.FormatEmail, classification.Intent, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	// The email agent is invoked directly so the separately posted
	// subject survives; routing by sniffed format would drop it.
	agent := uc.router.agents[domain.FormatEmail]
	result, err := agent.Process(ctx, domain.AgentInput{Text: emailBody, Subject: subject}, sessionID)
	if err != nil {
		return nil, err
	}

	uc.announce(ctx, sessionID)
	return uc.intakeResult(sessionID, classification, result), nil
}

// ProcessJSON handles structured data posted directly to the intake.
func (uc *IntakeUseCase) ProcessJSON(ctx context.Context, data map[string]any) (*domain.IntakeResult, error) {
	classification := uc.classifier.Classify(classify.Input{
		Content:  data,
		FileType: "json",
	})

	sessionID, err := uc.memory.CreateSession(ctx, "api", domain.FormatJSON, classification.Intent, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	result, err := uc.router.Route(ctx, classification, data, sessionID)
	if err != nil {
		return nil, err
	}

	uc.announce(ctx, sessionID)
	return uc.intakeResult(sessionID, classification, result), nil
}

func (uc *IntakeUseCase) run(ctx context.Context, source string, inputType domain.Format, classification domain.ClassificationResult, content any) (*domain.IntakeResult, error) {
	sessionID, err := uc.memory.CreateSession(ctx, source, inputType, classification.Intent, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	result, err := uc.router.Route(ctx, classification, content, sessionID)
	if err != nil {
		return nil, err
	}

	uc.announce(ctx, sessionID)
	return uc.intakeResult(sessionID, classification, result), nil
}

// announce publishes the processed-session event best-effort; intake
// never fails because a downstream consumer is unreachable.
func (uc *IntakeUseCase) announce(ctx context.Context, sessionID string) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishSessionProcessed(ctx, sessionID); err != nil {
		uc.logger.Warn("publish session-processed event failed", "session_id", sessionID, "error", err)
	}
}

func (uc *IntakeUseCase) intakeResult(sessionID string, classification domain.ClassificationResult, result map[string]any) *domain.IntakeResult {
	return &domain.IntakeResult{
		SessionID:      sessionID,
		Classification: classification,
		Result:         result,
		Timestamp:      time.Now().UTC(),
	}
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
