// Package policy applies outbound-data rules for text that leaves the
// process. Conversation content is sent to an external generation service,
// so identifying details are masked first; the mask keeps enough shape for
// the model to respond naturally.
package policy

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	// Clients often volunteer their date of birth and home address in
	// session; both identify a person on their own.
	datePattern    = regexp.MustCompile(`\b\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}\b`)
	addressPattern = regexp.MustCompile(`(?i)\b\d{1,5}\s+[a-z]+(?:\s[a-z]+)?\s+(?:street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr|court|ct)\b`)
)

// RedactPII masks common high-risk PII patterns in outbound text.
func RedactPII(input string) (redacted string, changed bool) {
	out := input

	next := emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	changed = changed || next != out
	out = next

	next = addressPattern.ReplaceAllString(out, "[REDACTED_ADDRESS]")
	changed = changed || next != out
	out = next

	// Run card redaction before date and phone so card numbers are not
	// half-consumed by the looser digit patterns.
	next = cardPattern.ReplaceAllString(out, "[REDACTED_CARD]")
	changed = changed || next != out
	out = next

	// Dates before phone: a dashed birth date is a valid phone match.
	next = datePattern.ReplaceAllString(out, "[REDACTED_DATE]")
	changed = changed || next != out
	out = next

	next = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out
	out = next

	return out, changed
}
