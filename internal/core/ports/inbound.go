package ports

import (
	"context"

	"github.com/flowbit-labs/intake-agent/internal/core/domain"
)

// IntakeService is the inbound contract for one intake unit of work:
// classify, create a session, route to an extraction agent, record.
type IntakeService interface {
	ProcessFile(ctx context.Context, filename, contentType string, content []byte) (*domain.IntakeResult, error)
	ProcessEmail(ctx context.Context, emailBody, subject string) (*domain.IntakeResult, error)
	ProcessJSON(ctx context.Context, data map[string]any) (*domain.IntakeResult, error)
}

// SessionReader is the inbound read model for accumulated session state.
type SessionReader interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	ListSessions(ctx context.Context) ([]*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// ExtractionAgent is a format-specific extraction strategy. Process
// returns the strategy result that was appended to session memory;
// strategy-local failures surface as a status=error result, not as an
// error return.
type ExtractionAgent interface {
	Name() string
	Process(ctx context.Context, input domain.AgentInput, sessionID string) (map[string]any, error)
}
