// Package pdfagent extracts text and structure from PDF documents.
package pdfagent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flowbit-labs/intake-agent/internal/core/domain"
	"github.com/flowbit-labs/intake-agent/internal/core/ports"
)

const (
	agentName         = "pdf_agent"
	surfacedTextLimit = 1000
)

type Agent struct {
	memory    ports.SessionMemory
	extractor ports.PDFTextExtractor
	generator ports.TextGenerator
	logger    *slog.Logger
}

func New(memory ports.SessionMemory, extractor ports.PDFTextExtractor, generator ports.TextGenerator, logger *slog.Logger) *Agent {
	return &Agent{
		memory:    memory,
		extractor: extractor,
		generator: generator,
		logger:    logger,
	}
}

func (a *Agent) Name() string { return agentName }

// Process extracts text page by page, analyzes document structure,
// asks the model for key fields and a document type (each with its own
// fallback), and records everything against the session. Unreadable
// input yields page-level error markers, never a failed result.
func (a *Agent) Process(ctx context.Context, input domain.AgentInput, sessionID string) (map[string]any, error) {
	now := time.Now().UTC()

	text := a.extractText(ctx, input.Raw)
	analysis := analyzeDocument(text)
	extracted := a.extractKeyInformation(ctx, text, analysis)
	classification := a.classifyDocumentType(ctx, text)

	result := map[string]any{
		"status":                  "success",
		"agent":                   agentName,
		"document_classification": classification,
		"extracted_text":          truncate(text, surfacedTextLimit),
		"document_analysis":       analysis,
		"extracted_data":          extracted,
		"processed_at":            now,
	}

	if err := a.memory.AppendProcessingStep(ctx, sessionID, agentName, result); err != nil {
		return a.recordError(ctx, sessionID, err), nil
	}
	// Full text is kept separately; the surfaced record carries only the
	// truncated form.
	if err := a.memory.MergeExtractedData(ctx, sessionID, "pdf_text", text); err != nil {
		return a.recordError(ctx, sessionID, err), nil
	}
	if err := a.memory.MergeExtractedData(ctx, sessionID, "pdf_fields", extracted); err != nil {
		return a.recordError(ctx, sessionID, err), nil
	}

	return result, nil
}

// extractText stitches per-page output into one text blob. A failed
// page contributes a placeholder marker for its page number; a document
// that cannot be opened at all yields a single error marker string.
func (a *Agent) extractText(ctx context.Context, raw []byte) string {
	pages, err := a.extractor.ExtractPages(ctx, raw)
	if err != nil {
		a.logger.Warn("pdf text extraction failed", "error", err)
		return fmt.Sprintf("Error extracting PDF text: %v", err)
	}

	var builder strings.Builder
	for _, page := range pages {
		if page.Err != "" {
			builder.WriteString(fmt.Sprintf("\n--- Page %d (Error extracting text) ---\n", page.Number))
			continue
		}
		builder.WriteString(fmt.Sprintf("\n--- Page %d ---\n%s", page.Number, page.Text))
	}
	return strings.TrimSpace(builder.String())
}

func (a *Agent) recordError(ctx context.Context, sessionID string, cause error) map[string]any {
	a.logger.Error("pdf agent processing failed", "session_id", sessionID, "error", cause)
	errResult := map[string]any{
		"status":    "error",
		"error":     cause.Error(),
		"data_type": "pdf",
	}
	if err := a.memory.AppendProcessingStep(ctx, sessionID, agentName, errResult); err != nil {
		a.logger.Error("pdf agent could not record error result", "session_id", sessionID, "error", err)
	}
	return errResult
}
