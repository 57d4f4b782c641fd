package pdfagent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	keyInfoTextLimit  = 2000
	classifyTextLimit = 1000
)

// DocumentClassification is the model's verdict about the document
// kind.
type DocumentClassification struct {
	DocumentType     string   `json:"document_type"`
	Confidence       string   `json:"confidence"`
	KeyIndicators    []string `json:"key_indicators"`
	BusinessCategory string   `json:"business_category"`
}

func defaultClassification() DocumentClassification {
	return DocumentClassification{
		DocumentType:     "Unknown",
		Confidence:       "low",
		KeyIndicators:    []string{},
		BusinessCategory: "General",
	}
}

func buildKeyInfoPrompt(text string, analysis DocumentAnalysis) string {
	return fmt.Sprintf(`Extract key information from this document. Focus on:
- Document title/header
- Key dates
- Names and contact information
- Monetary amounts
- Important numbers (invoice numbers, account numbers, etc.)
- Addresses
- Main content summary

Document Analysis Context:
- Has tables: %t
- Has amounts: %t
- Has dates: %t
- Has addresses: %t

Document Text (first %d chars):
%s

Return the extracted information as a strict JSON object with clear field names. No markdown.`,
		analysis.StructureElements.HasTables,
		analysis.StructureElements.HasAmounts,
		analysis.StructureElements.HasDates,
		analysis.StructureElements.HasAddresses,
		keyInfoTextLimit,
		truncate(text, keyInfoTextLimit),
	)
}

func buildClassificationPrompt(text string) string {
	return fmt.Sprintf(`Classify this document type based on its content.

Common document types:
- Invoice
- Receipt
- Contract
- Report
- Letter
- Form
- Certificate
- Manual
- Brochure

Document content (first %d chars):
%s

Respond with a strict JSON object:
{"document_type": "...", "confidence": "high/medium/low", "key_indicators": ["...", "..."], "business_category": "..."}
No markdown, no extra keys.`, classifyTextLimit, truncate(text, classifyTextLimit))
}

// extractKeyInformation asks the model for structured fields and falls
// back to direct pattern extraction on any failure.
func (a *Agent) extractKeyInformation(ctx context.Context, text string, analysis DocumentAnalysis) map[string]any {
	raw, err := a.generator.Generate(ctx, buildKeyInfoPrompt(text, analysis))
	if err != nil {
		a.logger.Warn("pdf key-field generation failed, using pattern fallback", "error", err)
		return basicExtraction(text)
	}

	var extracted map[string]any
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &extracted); err != nil {
		a.logger.Warn("pdf key-field response malformed, using pattern fallback", "error", err)
		return basicExtraction(text)
	}
	return extracted
}

// basicExtraction pulls emails, phone numbers, dollar amounts and dates
// straight out of the text.
func basicExtraction(text string) map[string]any {
	extracted := map[string]any{}

	if emails := dedupe(emailPattern.FindAllString(text, -1)); len(emails) > 0 {
		extracted["emails"] = emails
	}
	if phones := dedupe(phonePatterns[0].FindAllString(text, -1)); len(phones) > 0 {
		extracted["phone_numbers"] = phones
	}
	if amounts := dedupe(amountPatterns[0].FindAllString(text, -1)); len(amounts) > 0 {
		extracted["amounts"] = amounts
	}
	if dates := dedupe(datePatterns[0].FindAllString(text, -1)); len(dates) > 0 {
		extracted["dates"] = dates
	}

	return extracted
}

func (a *Agent) classifyDocumentType(ctx context.Context, text string) DocumentClassification {
	raw, err := a.generator.Generate(ctx, buildClassificationPrompt(text))
	if err != nil {
		a.logger.Warn("pdf classification generation failed, using defaults", "error", err)
		return defaultClassification()
	}

	var classification DocumentClassification
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &classification); err != nil {
		a.logger.Warn("pdf classification response malformed, using defaults", "error", err)
		return defaultClassification()
	}
	if classification.KeyIndicators == nil {
		classification.KeyIndicators = []string{}
	}
	return classification
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
