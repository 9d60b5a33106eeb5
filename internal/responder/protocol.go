package responder

import "regexp"

// Patterns matching a ticket/protocol reference: "#1234", "protocolo 1234",
// "nr 1234", with 3 to 7 digits. Matched against the raw, non-normalized
// text so the "#" form survives.
var protocolPatterns = []*regexp.Regexp{
	regexp.MustCompile(`#\d{3,7}`),
	regexp.MustCompile(`(?i)protocolo\s*[:\-]?\s*\d{3,7}`),
	regexp.MustCompile(`(?i)\bnr\.?\s*\d{3,7}`),
}

// DetectProtocol returns the first ticket/protocol reference found in the
// text, or "" when there is none.
func DetectProtocol(text string) string {
	for _, pattern := range protocolPatterns {
		if match := pattern.FindString(text); match != "" {
			return match
		}
	}
	return ""
}
