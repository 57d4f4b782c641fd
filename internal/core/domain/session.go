package domain

import "time"

type SessionStatus string

const (
	SessionActive SessionStatus = "active"
)

// ProcessingStep is one agent invocation recorded against a session.
// Immutable once appended; insertion order is chronological order.
type ProcessingStep struct {
	Agent     string         `json:"agent"`
	Timestamp time.Time      `json:"timestamp"`
	Result    map[string]any `json:"result"`
}

// Session is the accumulating record of one document's processing
// lifecycle. Source, InputType and Intent are fixed at creation; only
// ProcessingHistory (append), ExtractedData (merge), Status and
// UpdatedAt change afterwards. Lifetime is bounded by the store's TTL,
// not by in-process timers.
type Session struct {
	ID                string           `json:"session_id"`
	Source            string           `json:"source"`
	InputType         Format           `json:"input_type"`
	Intent            Intent           `json:"intent"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	Status            SessionStatus    `json:"status"`
	ProcessingHistory []ProcessingStep `json:"processing_history"`
	ExtractedData     map[string]any   `json:"extracted_data"`
	Metadata          map[string]any   `json:"metadata"`
}

// IntakeResult is what one intake request returns to the caller.
type IntakeResult struct {
	SessionID      string               `json:"session_id"`
	Classification ClassificationResult `json:"classification"`
	Result         map[string]any       `json:"result"`
	Timestamp      time.Time            `json:"timestamp"`
}

// AgentInput carries the content representation an extraction agent
// consumes. The router fills exactly the fields the target format needs.
type AgentInput struct {
	// Raw holds the original bytes (PDF agent).
	Raw []byte
	// Text holds string content (email agent body).
	Text string
	// Data holds structured content (JSON agent).
	Data map[string]any
	// Subject is the optional email subject supplied at intake.
	Subject string
}

// PDFPage is one page's extraction outcome. A failed page carries Err
// instead of Text and never aborts the whole document.
type PDFPage struct {
	Number int
	Text   string
	Err    string
}
