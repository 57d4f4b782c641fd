package domain

// Format is the detected shape of an incoming payload.
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatJSON    Format = "json"
	FormatEmail   Format = "email"
	FormatText    Format = "text"
	FormatHTML    Format = "html"
	FormatUnknown Format = "unknown"
)

// Intent is an open tag set, not a closed enum: intent detection is
// keyword-driven and new tags must round-trip through stored sessions
// without breaking older readers.
type Intent string

const (
	IntentInvoiceProcessing  Intent = "invoice_processing"
	IntentResumeParsing      Intent = "resume_parsing"
	IntentOrderProcessing    Intent = "order_processing"
	IntentSupportTicket      Intent = "support_ticket"
	IntentFormProcessing     Intent = "form_processing"
	IntentEmailProcessing    Intent = "email_processing"
	IntentDocumentProcessing Intent = "document_processing"
	IntentGeneralProcessing  Intent = "general_processing"
)

// ClassificationMetadata records the hints that were available during
// classification. Informational only, never re-parsed downstream.
type ClassificationMetadata struct {
	FileType      string `json:"file_type,omitempty"`
	Filename      string `json:"filename,omitempty"`
	ContentLength int    `json:"content_length"`
}

// ClassificationResult is the classifier's immutable verdict.
// Confidence stays within [0.7, 1.0]: the base 0.7 plus 0.2 for a strong
// format signal and 0.1 for a non-general intent, clamped at 1.0.
type ClassificationResult struct {
	Format     Format                 `json:"format"`
	Intent     Intent                 `json:"intent"`
	Confidence float64                `json:"confidence"`
	Metadata   ClassificationMetadata `json:"metadata"`
}
