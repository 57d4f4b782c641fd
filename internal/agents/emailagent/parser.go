package emailagent

import (
	"io"
	"net/mail"
	"regexp"
	"strings"
)

// ParsedEmail is the structural view of a message: recognized headers
// plus everything after them as body text.
type ParsedEmail struct {
	Headers map[string]string `json:"headers"`
	Subject string            `json:"subject"`
	From    string            `json:"from"`
	To      string            `json:"to"`
	Date    string            `json:"date"`
	Body    string            `json:"body"`
}

// SenderInfo is what could be learned about the message author.
type SenderInfo struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Company       string `json:"company"`
	FullFromField string `json:"full_from_field"`
}

var (
	emailAddressRe = regexp.MustCompile(`[\w.\-]+@[\w.\-]+\.\w+`)
	displayNameRe  = regexp.MustCompile(`^([^<]+)<`)
)

// canonicalHeaders are the headers the line-scanning fallback records.
var canonicalHeaders = map[string]string{
	"from":    "From",
	"to":      "To",
	"subject": "Subject",
	"date":    "Date",
	"cc":      "Cc",
	"bcc":     "Bcc",
}

var signatureMarkers = []string{"best regards,", "sincerely,", "thanks,", "regards,"}

// parseStructure first tries the standards-compliant RFC 5322 parser and
// falls back to line scanning for bodies that only look email-ish.
func parseStructure(raw string) ParsedEmail {
	msg, err := mail.ReadMessage(strings.NewReader(raw))
	if err != nil {
		return parsePlainText(raw)
	}

	headers := make(map[string]string, len(msg.Header))
	for key := range msg.Header {
		headers[key] = msg.Header.Get(key)
	}

	body, _ := io.ReadAll(msg.Body)
	return ParsedEmail{
		Headers: headers,
		Subject: msg.Header.Get("Subject"),
		From:    msg.Header.Get("From"),
		To:      msg.Header.Get("To"),
		Date:    msg.Header.Get("Date"),
		Body:    strings.TrimSpace(string(body)),
	}
}

// parsePlainText treats `key: value` lines as headers while headers are
// still expected; the first blank line or the first line that breaks the
// header shape starts the body.
func parsePlainText(raw string) ParsedEmail {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	headers := make(map[string]string)
	bodyStart := len(lines)

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			bodyStart = i + 1
			break
		}
		idx := strings.Index(line, ":")
		if idx <= 0 {
			bodyStart = i
			break
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if canonical, ok := canonicalHeaders[strings.ToLower(key)]; ok {
			headers[canonical] = value
		}
	}

	body := ""
	if bodyStart < len(lines) {
		body = strings.TrimSpace(strings.Join(lines[bodyStart:], "\n"))
	}

	return ParsedEmail{
		Headers: headers,
		Subject: headers["Subject"],
		From:    headers["From"],
		To:      headers["To"],
		Date:    headers["Date"],
		Body:    body,
	}
}

// extractSender pulls address, display name and company out of the From
// header, falling back to the address local part and finally to a
// signature scan over the body.
func extractSender(raw string, parsed ParsedEmail) SenderInfo {
	from := parsed.From
	address := emailAddressRe.FindString(from)

	var name string
	if match := displayNameRe.FindStringSubmatch(from); match != nil {
		name = strings.Trim(strings.TrimSpace(match[1]), `"`)
	} else if address != "" {
		local := address[:strings.Index(address, "@")]
		local = strings.NewReplacer(".", " ", "_", " ").Replace(local)
		name = titleCase(local)
	} else {
		name = nameFromSignature(raw)
	}

	company := ""
	if address != "" {
		domainPart := address[strings.Index(address, "@")+1:]
		if idx := strings.Index(domainPart, "."); idx > 0 {
			domainPart = domainPart[:idx]
		}
		company = titleCase(domainPart)
	}

	return SenderInfo{
		Name:          name,
		Email:         address,
		Company:       company,
		FullFromField: from,
	}
}

// nameFromSignature takes the first non-empty line after a sign-off
// marker such as "Best regards,".
func nameFromSignature(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if !isSignatureMarker(line) {
			continue
		}
		for _, candidate := range lines[i+1:] {
			if trimmed := strings.TrimSpace(candidate); trimmed != "" {
				return trimmed
			}
		}
	}
	return "Unknown Sender"
}

func isSignatureMarker(line string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	for _, marker := range signatureMarkers {
		if trimmed == marker {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
