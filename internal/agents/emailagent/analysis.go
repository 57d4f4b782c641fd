package emailagent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const analysisBodyLimit = 1500

// ContentAnalysis is the model's structured read of an email.
type ContentAnalysis struct {
	Intent         string   `json:"intent"`
	Urgency        string   `json:"urgency"`
	Topics         []string `json:"topics"`
	RequiredAction string   `json:"required_action"`
	Sentiment      string   `json:"sentiment"`
	Confidence     string   `json:"confidence"`
}

// defaultAnalysis is the fixed fallback used whenever the generation
// call fails or returns text that does not parse as strict JSON.
func defaultAnalysis() ContentAnalysis {
	return ContentAnalysis{
		Intent:         "General Inquiry",
		Urgency:        "Medium",
		Topics:         []string{"general"},
		RequiredAction: "Review and respond",
		Sentiment:      "Neutral",
		Confidence:     "Low",
	}
}

func buildAnalysisPrompt(body, subject string) string {
	if subject == "" {
		subject = "No subject"
	}
	return fmt.Sprintf(`Analyze this email and provide:
1. Intent/Purpose (RFQ, Support Request, Complaint, General Inquiry, etc.)
2. Urgency Level (Low, Medium, High, Critical)
3. Key Topics/Tags (up to 5 relevant keywords)
4. Required Action (if any)
5. Sentiment (Positive, Neutral, Negative)

Subject: %s

Email Content:
%s

Respond with a strict JSON object:
{"intent": "...", "urgency": "...", "topics": [...], "required_action": "...", "sentiment": "...", "confidence": "..."}
No markdown, no extra keys.`, subject, truncate(body, analysisBodyLimit))
}

// parseAnalysis parses the generated text defensively; any failure
// yields the fixed default. The raw text is never evaluated, only
// unmarshalled.
func parseAnalysis(raw string) (ContentAnalysis, error) {
	var analysis ContentAnalysis
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &analysis); err != nil {
		return ContentAnalysis{}, fmt.Errorf("parse analysis json: %w", err)
	}
	if analysis.Topics == nil {
		analysis.Topics = []string{}
	}
	return analysis, nil
}

func (a *Agent) analyzeContent(ctx context.Context, body, subject string) ContentAnalysis {
	raw, err := a.generator.Generate(ctx, buildAnalysisPrompt(body, subject))
	if err != nil {
		a.logger.Warn("email analysis generation failed, using defaults", "error", err)
		return defaultAnalysis()
	}
	analysis, err := parseAnalysis(raw)
	if err != nil {
		a.logger.Warn("email analysis response malformed, using defaults", "error", err)
		return defaultAnalysis()
	}
	return analysis
}

// Contact, Interaction and RecordMetadata form the CRM-shaped record.
type Contact struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
}

type Interaction struct {
	Type           string    `json:"type"`
	Subject        string    `json:"subject"`
	Intent         string    `json:"intent"`
	Urgency        string    `json:"urgency"`
	Sentiment      string    `json:"sentiment"`
	Topics         []string  `json:"topics"`
	RequiredAction string    `json:"required_action"`
	ContentPreview string    `json:"content_preview"`
	Timestamp      time.Time `json:"timestamp"`
	Status         string    `json:"status"`
}

type RecordMetadata struct {
	ContentLength  int    `json:"content_length"`
	HasAttachments bool   `json:"has_attachments"`
	Source         string `json:"source"`
}

type CRMRecord struct {
	Contact     Contact        `json:"contact"`
	Interaction Interaction    `json:"interaction"`
	Metadata    RecordMetadata `json:"metadata"`
}

const previewLimit = 200

func buildCRMRecord(sender SenderInfo, analysis ContentAnalysis, subject, body string, now time.Time) CRMRecord {
	if subject == "" {
		subject = "No Subject"
	}
	preview := body
	if len(preview) > previewLimit {
		preview = preview[:previewLimit] + "..."
	}

	return CRMRecord{
		Contact: Contact{
			Name:    sender.Name,
			Email:   sender.Email,
			Company: sender.Company,
		},
		Interaction: Interaction{
			Type:           "email",
			Subject:        subject,
			Intent:         orDefault(analysis.Intent, "General"),
			Urgency:        orDefault(analysis.Urgency, "Medium"),
			Sentiment:      orDefault(analysis.Sentiment, "Neutral"),
			Topics:         analysis.Topics,
			RequiredAction: orDefault(analysis.RequiredAction, "Review"),
			ContentPreview: preview,
			Timestamp:      now,
			Status:         "new",
		},
		Metadata: RecordMetadata{
			ContentLength:  len(body),
			HasAttachments: strings.Contains(strings.ToLower(body), "attachment"),
			Source:         agentName,
		},
	}
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

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
