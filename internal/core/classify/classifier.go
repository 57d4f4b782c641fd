// Package classify determines the format and business intent of raw
// intake content. It is deliberately heuristic: classification never
// fails, and total ambiguity resolves to unknown/general_processing.
package classify

import (
	"encoding/json"
	"strings"

	"github.com/flowbit-labs/intake-agent/internal/core/domain"
)

// Input bundles the raw content with the hints available at intake.
// Content may be a string, []byte, or a structured map.
type Input struct {
	Content  any
	FileType string
	Filename string
	Metadata map[string]any
}

// fileTypeFormats maps exact content-type hints to formats. Checked
// before filename extensions and content sniffing.
var fileTypeFormats = map[string]domain.Format{
	"application/pdf":  domain.FormatPDF,
	"application/json": domain.FormatJSON,
	"text/json":        domain.FormatJSON,
	"message/rfc822":   domain.FormatEmail,
	"text/plain":       domain.FormatText,
	"text/html":        domain.FormatHTML,
}

var extensionFormats = map[string]domain.Format{
	"pdf":   domain.FormatPDF,
	"json":  domain.FormatJSON,
	"jsonl": domain.FormatJSON,
	"eml":   domain.FormatEmail,
	"msg":   domain.FormatEmail,
	"txt":   domain.FormatText,
	"text":  domain.FormatText,
	"html":  domain.FormatHTML,
	"htm":   domain.FormatHTML,
}

var emailMarkers = []string{"from:", "to:", "subject:", "date:", "@"}

// intentKeywords is an ordered trigger table; the first group with a
// match wins.
var intentKeywords = []struct {
	intent domain.Intent
	words  []string
}{
	{domain.IntentInvoiceProcessing, []string{"invoice", "bill", "payment", "charge"}},
	{domain.IntentResumeParsing, []string{"resume", "cv", "experience", "education"}},
	{domain.IntentOrderProcessing, []string{"order", "purchase", "buy", "cart"}},
	{domain.IntentSupportTicket, []string{"support", "help", "issue", "problem"}},
	{domain.IntentFormProcessing, []string{"application", "apply", "form"}},
}

const baseConfidence = 0.7

type Classifier struct{}

func New() *Classifier {
	return &Classifier{}
}

// Classify determines format, intent and a confidence score for the
// given input. It never returns an error.
func (c *Classifier) Classify(in Input) domain.ClassificationResult {
	contentStr, isString := contentAsString(in.Content)

	format := determineFormat(in, contentStr, isString)
	intent := determineIntent(contentStr, format)
	confidence := calculateConfidence(format, intent)

	return domain.ClassificationResult{
		Format:     format,
		Intent:     intent,
		Confidence: confidence,
		Metadata: domain.ClassificationMetadata{
			FileType:      in.FileType,
			Filename:      in.Filename,
			ContentLength: len(contentStr),
		},
	}
}

// determineFormat applies the strict precedence order: content-type
// hint, filename extension, structural sniffing.
func determineFormat(in Input, contentStr string, isString bool) domain.Format {
	if format, ok := fileTypeFormats[in.FileType]; ok {
		return format
	}

	if in.Filename != "" {
		ext := in.Filename
		if idx := strings.LastIndex(ext, "."); idx >= 0 {
			ext = ext[idx+1:]
		}
		if format, ok := extensionFormats[strings.ToLower(ext)]; ok {
			return format
		}
	}

	if _, ok := in.Content.(map[string]any); ok {
		return domain.FormatJSON
	}
	if isString {
		return sniffString(contentStr)
	}
	return domain.FormatUnknown
}

func sniffString(content string) domain.Format {
	trimmed := strings.TrimSpace(content)
	lower := strings.ToLower(content)
	switch {
	case trimmed != "" && json.Valid([]byte(trimmed)):
		return domain.FormatJSON
	case strings.HasPrefix(trimmed, "%PDF"):
		return domain.FormatPDF
	case containsAny(lower, emailMarkers):
		return domain.FormatEmail
	case strings.HasPrefix(strings.ToLower(trimmed), "<html"):
		return domain.FormatHTML
	default:
		return domain.FormatText
	}
}

// determineIntent scans the lower-cased content for keyword triggers,
// then falls back to a format-derived intent.
func determineIntent(contentStr string, format domain.Format) domain.Intent {
	lower := strings.ToLower(contentStr)
	for _, group := range intentKeywords {
		if containsAny(lower, group.words) {
			return group.intent
		}
	}
	switch format {
	case domain.FormatEmail:
		return domain.IntentEmailProcessing
	case domain.FormatPDF:
		return domain.IntentDocumentProcessing
	default:
		return domain.IntentGeneralProcessing
	}
}

func calculateConfidence(format domain.Format, intent domain.Intent) float64 {
	confidence := baseConfidence
	switch format {
	case domain.FormatPDF, domain.FormatJSON, domain.FormatEmail:
		confidence += 0.2
	}
	if intent != domain.IntentGeneralProcessing {
		confidence += 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// contentAsString yields the string form used for sniffing and intent
// scanning. Structured maps are rendered as JSON so their keys and
// values still participate in keyword matching.
func contentAsString(content any) (string, bool) {
	switch v := content.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	case map[string]any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(encoded), false
	default:
		return "", false
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
