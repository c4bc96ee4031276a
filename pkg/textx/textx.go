// Package textx provides small text utilities used across the project.
package textx

import (
	"strings"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

var markupEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeMarkup escapes the characters that break speech-synthesis XML.
func EscapeMarkup(s string) string {
	return markupEscaper.Replace(s)
}

// SpokenMarkup wraps text in a minimal SSML document suitable for a
// speech-synthesis consumer. Every outbound message, including re-prompts
// and error notices, goes through this.
func SpokenMarkup(text string) string {
	return "<speak version=\"1.0\" xml:lang=\"en-US\">" + EscapeMarkup(text) + "</speak>"
}
