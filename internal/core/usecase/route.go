package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flowbit-labs/intake-agent/internal/core/domain"
	"github.com/flowbit-labs/intake-agent/internal/core/ports"
)

// AgentRouter dispatches a classification to the matching extraction
// agent. It performs no work of its own beyond adapting the content
// representation the target agent expects.
type AgentRouter struct {
	agents map[domain.Format]ports.ExtractionAgent
}

func NewAgentRouter(jsonAgent, emailAgent, pdfAgent ports.ExtractionAgent) *AgentRouter {
	return &AgentRouter{
		agents: map[domain.Format]ports.ExtractionAgent{
			domain.FormatJSON:  jsonAgent,
			domain.FormatEmail: emailAgent,
			domain.FormatPDF:   pdfAgent,
		},
	}
}

// Route selects the agent for the classified format (case-insensitive)
// and delegates. Formats without an agent fail with
// ErrUnsupportedFormat before any session mutation happens.
func (r *AgentRouter) Route(ctx context.Context, classification domain.ClassificationResult, content any, sessionID string) (map[string]any, error) {
	format := domain.Format(strings.ToLower(string(classification.Format)))

	agent, ok := r.agents[format]
	if !ok {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "route", fmt.Errorf("format %q", classification.Format))
	}

	input, err := buildAgentInput(format, content)
	if err != nil {
		return nil, err
	}
	return agent.Process(ctx, input, sessionID)
}

func buildAgentInput(format domain.Format, content any) (domain.AgentInput, error) {
	switch format {
	case domain.FormatJSON:
		data, err := contentAsMap(content)
		if err != nil {
			return domain.AgentInput{}, domain.WrapError(domain.ErrInvalidInput, "adapt json content", err)
		}
		return domain.AgentInput{Data: data}, nil
	case domain.FormatEmail:
		return domain.AgentInput{Text: contentAsText(content)}, nil
	case domain.FormatPDF:
		return domain.AgentInput{Raw: contentAsBytes(content)}, nil
	default:
		return domain.AgentInput{}, domain.WrapError(domain.ErrUnsupportedFormat, "adapt content", fmt.Errorf("format %q", format))
	}
}

func contentAsMap(content any) (map[string]any, error) {
	switch v := content.(type) {
	case map[string]any:
		return v, nil
	case string:
		return unmarshalMap([]byte(v))
	case []byte:
		return unmarshalMap(v)
	default:
		return nil, fmt.Errorf("cannot interpret %T as json object", content)
	}
}

func unmarshalMap(raw []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse json content: %w", err)
	}
	return data, nil
}

func contentAsText(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func contentAsBytes(content any) []byte {
	switch v := content.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}
