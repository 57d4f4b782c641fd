// Package emailagent parses email content into sender, analysis and a
// CRM-shaped interaction record.
package emailagent

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowbit-labs/intake-agent/internal/core/domain"
	"github.com/flowbit-labs/intake-agent/internal/core/ports"
)

const agentName = "email_parser_agent"

type Agent struct {
	memory    ports.SessionMemory
	generator ports.TextGenerator
	logger    *slog.Logger
}

func New(memory ports.SessionMemory, generator ports.TextGenerator, logger *slog.Logger) *Agent {
	return &Agent{
		memory:    memory,
		generator: generator,
		logger:    logger,
	}
}

func (a *Agent) Name() string { return agentName }

// Process runs the five email sub-extractions (structure, sender,
// content analysis, CRM record, conversation id) and records the merged
// result against the session.
func (a *Agent) Process(ctx context.Context, input domain.AgentInput, sessionID string) (map[string]any, error) {
	now := time.Now().UTC()
	body := input.Text

	parsed := parseStructure(body)
	subject := input.Subject
	if subject == "" {
		subject = parsed.Subject
	}

	sender := extractSender(body, parsed)
	analysis := a.analyzeContent(ctx, body, subject)
	crmRecord := buildCRMRecord(sender, analysis, subject, body, now)
	conversationID := conversationID(sender.Email, subject)

	result := map[string]any{
		"status":          "success",
		"agent":           agentName,
		"conversation_id": conversationID,
		"sender_info":     sender,
		"analysis":        analysis,
		"crm_record":      crmRecord,
		"parsed_email":    parsed,
		"processed_at":    now,
	}

	if err := a.memory.AppendProcessingStep(ctx, sessionID, agentName, result); err != nil {
		return a.recordError(ctx, sessionID, err), nil
	}
	if err := a.memory.MergeExtractedData(ctx, sessionID, "email_data", result); err != nil {
		return a.recordError(ctx, sessionID, err), nil
	}

	return result, nil
}

// conversationID is a deterministic fingerprint of sender and subject:
// identical pairs always map to the same id.
func conversationID(senderEmail, subject string) string {
	if senderEmail == "" {
		senderEmail = "unknown"
	}
	if subject == "" {
		subject = "no_subject"
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s", senderEmail, subject)))
	return "conv_" + hex.EncodeToString(sum[:])[:12]
}

func (a *Agent) recordError(ctx context.Context, sessionID string, cause error) map[string]any {
	a.logger.Error("email agent processing failed", "session_id", sessionID, "error", cause)
	errResult := map[string]any{
		"status":    "error",
		"error":     cause.Error(),
		"data_type": "email",
	}
	if err := a.memory.AppendProcessingStep(ctx, sessionID, agentName, errResult); err != nil {
		a.logger.Error("email agent could not record error result", "session_id", sessionID, "error", err)
	}
	return errResult
}
