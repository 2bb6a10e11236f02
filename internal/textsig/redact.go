package textsig

import (
	"regexp"
	"strings"
)

// SnippetMaxLen caps redacted snippets before they leave the engine.
const SnippetMaxLen = 220

var (
	reURL        = regexp.MustCompile(`(?i)https?://\S+`)
	reEmail      = regexp.MustCompile(`(?i)[\w.\-+]+@[\w.\-]+\.\w+`)
	reLongDigits = regexp.MustCompile(`\d{5,}`)
	rePhone      = regexp.MustCompile(`\+?\d[\d\s\-()]{7,}`)
)

// Redact replaces URLs, emails, long digit runs and phone-shaped
// sequences with placeholders and truncates to SnippetMaxLen. This runs
// on every snippet before it reaches any external sink; it is a privacy
// boundary, not best effort.
func Redact(text string) string {
	return RedactN(text, SnippetMaxLen)
}

// RedactN is Redact with an explicit length cap.
func RedactN(text string, maxLen int) string {
	s := reURL.ReplaceAllString(text, "[link]")
	s = reEmail.ReplaceAllString(s, "[email]")
	s = reLongDigits.ReplaceAllString(s, "***")
	s = rePhone.ReplaceAllString(s, "***")
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	r := []rune(s)
	if len(r) > maxLen {
		return string(r[:maxLen])
	}
	return s
}
