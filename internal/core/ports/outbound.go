package ports

import (
	"context"
	"io"
	"time"

	"github.com/flowbit-labs/intake-agent/internal/core/domain"
)

// SessionMemory persists per-session processing state in the external
// store. Structured fields (history, extracted data) are serialized to a
// text encoding on write and decoded on read; expiry is enforced by the
// store's native TTL, never by in-process timers.
type SessionMemory interface {
	CreateSession(ctx context.Context, source string, inputType domain.Format, intent domain.Intent, timestamp time.Time) (string, error)
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	UpdateSession(ctx context.Context, id string, updates map[string]any) error
	AppendProcessingStep(ctx context.Context, id, agent string, result map[string]any) error
	MergeExtractedData(ctx context.Context, id, key string, value any) error
	ListSessions(ctx context.Context) ([]*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
	CleanupExpired(ctx context.Context) (int, error)
}

// TextGenerator is the opaque text-generation boundary: prompt in, text
// out. Callers must parse the response defensively and fall back on any
// error, including malformed output.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PDFTextExtractor turns raw PDF bytes into per-page text. A page whose
// extraction fails is reported with its Err field set rather than
// failing the document.
type PDFTextExtractor interface {
	ExtractPages(ctx context.Context, raw []byte) ([]domain.PDFPage, error)
}

// ObjectStorage keeps the raw upload bytes before processing.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// EventPublisher announces sessions whose intake pipeline completed.
type EventPublisher interface {
	PublishSessionProcessed(ctx context.Context, sessionID string) error
}
