package policy

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// RedactPII masks common high-risk PII patterns.
func RedactPII(input string) (redacted string, changed bool) {
	out := input

	next := emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	changed = changed || next != out
	out = next

	// Card before phone so long digit runs are not classified as phone numbers.
	next = cardPattern.ReplaceAllString(out, "[REDACTED_CARD]")
	changed = changed || next != out
	out = next

	next = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out
	out = next

	return out, changed
}

// Excerpt redacts input, collapses whitespace and truncates it to maxRunes.
// A non-positive maxRunes returns an empty excerpt.
func Excerpt(input string, maxRunes int) (excerpt string, redacted bool) {
	if maxRunes <= 0 {
		return "", false
	}
	out, redacted := RedactPII(input)
	out = strings.TrimSpace(spacePattern.ReplaceAllString(out, " "))
	if utf8.RuneCountInString(out) <= maxRunes {
		return out, redacted
	}
	runes := []rune(out)
	return strings.TrimSpace(string(runes[:maxRunes])) + "…", redacted
}
