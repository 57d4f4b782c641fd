// Package jsonagent processes structured JSON payloads.
package jsonagent

import (
	"context"
	"log/slog"
	"sort"

	"github.com/flowbit-labs/intake-agent/internal/core/domain"
	"github.com/flowbit-labs/intake-agent/internal/core/ports"
)

const agentName = "json_agent"

type Agent struct {
	memory ports.SessionMemory
	logger *slog.Logger
}

func New(memory ports.SessionMemory, logger *slog.Logger) *Agent {
	return &Agent{
		memory: memory,
		logger: logger,
	}
}

func (a *Agent) Name() string { return agentName }

// Process records the top-level shape of the payload and echoes it back.
// A failure while recording is converted to a status=error result that
// is still appended to session history; it never aborts the session.
func (a *Agent) Process(ctx context.Context, input domain.AgentInput, sessionID string) (map[string]any, error) {
	data := input.Data

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := map[string]any{
		"status":         "success",
		"data_type":      "json",
		"keys_found":     keys,
		"total_fields":   len(data),
		"processed_data": data,
	}

	if err := a.memory.AppendProcessingStep(ctx, sessionID, agentName, result); err != nil {
		return a.recordError(ctx, sessionID, err), nil
	}
	if err := a.memory.MergeExtractedData(ctx, sessionID, "json_data", data); err != nil {
		return a.recordError(ctx, sessionID, err), nil
	}

	return result, nil
}

func (a *Agent) recordError(ctx context.Context, sessionID string, cause error) map[string]any {
	a.logger.Error("json agent processing failed", "session_id", sessionID, "error", cause)
	errResult := map[string]any{
		"status":    "error",
		"error":     cause.Error(),
		"data_type": "json",
	}
	if err := a.memory.AppendProcessingStep(ctx, sessionID, agentName, errResult); err != nil {
		a.logger.Error("json agent could not record error result", "session_id", sessionID, "error", err)
	}
	return errResult
}
