package pdfagent

import (
	"regexp"
	"strings"
)

// DocumentStatistics are the raw size measures of the extracted text.
type DocumentStatistics struct {
	TotalLines      int     `json:"total_lines"`
	TotalWords      int     `json:"total_words"`
	TotalCharacters int     `json:"total_characters"`
	AvgWordsPerLine float64 `json:"avg_words_per_line"`
}

// StructureElements flags layout features that hint at the document
// kind before any model is consulted.
type StructureElements struct {
	HasTables       bool `json:"has_tables"`
	HasHeaders      bool `json:"has_headers"`
	HasAddresses    bool `json:"has_addresses"`
	HasDates        bool `json:"has_dates"`
	HasAmounts      bool `json:"has_amounts"`
	HasPhoneNumbers bool `json:"has_phone_numbers"`
	HasEmails       bool `json:"has_emails"`
}

type DocumentAnalysis struct {
	Statistics        DocumentStatistics `json:"statistics"`
	StructureElements StructureElements  `json:"structure_elements"`
	DocumentSections  []string           `json:"document_sections"`
}

var (
	tablePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\|.*\|.*\|`),
		regexp.MustCompile("\t.*\t.*\t"),
		regexp.MustCompile(`(?m)^\s*\w+\s+\$?[\d,]+\.?\d*\s*$`),
	}
	addressPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\d+\s+\w+\s+(Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd)`),
		regexp.MustCompile(`\b\d{5}(-\d{4})?\b`),
		regexp.MustCompile(`\b[A-Z]{2}\s+\d{5}\b`),
	}
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`),
		regexp.MustCompile(`\d{1,2}-\d{1,2}-\d{2,4}`),
		regexp.MustCompile(`(?i)\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\w*\s+\d{1,2},?\s+\d{2,4}`),
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
	}
	amountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$[\d,]+\.?\d*`),
		regexp.MustCompile(`(?i)USD\s*[\d,]+\.?\d*`),
		regexp.MustCompile(`(?i)Total:?\s*\$?[\d,]+\.?\d*`),
	}
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
		regexp.MustCompile(`\(\d{3}\)\s*\d{3}[-.]?\d{4}`),
		regexp.MustCompile(`\b\d{3} \d{3} \d{4}\b`),
	}
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

const maxSections = 5

// analyzeDocument computes statistics, layout flags and the leading
// blank-line-delimited sections of the extracted text.
func analyzeDocument(text string) DocumentAnalysis {
	lines := strings.Split(text, "\n")
	words := strings.Fields(text)

	avgWords := 0.0
	if len(lines) > 0 {
		avgWords = float64(len(words)) / float64(len(lines))
	}

	return DocumentAnalysis{
		Statistics: DocumentStatistics{
			TotalLines:      len(lines),
			TotalWords:      len(words),
			TotalCharacters: len(text),
			AvgWordsPerLine: avgWords,
		},
		StructureElements: StructureElements{
			HasTables:       matchesAny(text, tablePatterns),
			HasHeaders:      detectHeaders(lines),
			HasAddresses:    matchesAny(text, addressPatterns),
			HasDates:        matchesAny(text, datePatterns),
			HasAmounts:      matchesAny(text, amountPatterns),
			HasPhoneNumbers: matchesAny(text, phonePatterns),
			HasEmails:       emailPattern.MatchString(text),
		},
		DocumentSections: identifySections(lines),
	}
}

// detectHeaders looks for header-like lines (short or all-caps) among
// the first 10 lines.
func detectHeaders(lines []string) bool {
	limit := len(lines)
	if limit > 10 {
		limit = 10
	}
	for _, line := range lines[:limit] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isAllUpper(trimmed) || len(strings.Fields(trimmed)) <= 5 {
			return true
		}
	}
	return false
}

func isAllUpper(s string) bool {
	return s == strings.ToUpper(s) && s != strings.ToLower(s)
}

// identifySections groups contiguous non-blank lines, returning at most
// the first five groups.
func identifySections(lines []string) []string {
	sections := []string{}
	var current []string

	flush := func() {
		if len(current) > 0 {
			sections = append(sections, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		current = append(current, trimmed)
	}
	flush()

	if len(sections) > maxSections {
		sections = sections[:maxSections]
	}
	return sections
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}
