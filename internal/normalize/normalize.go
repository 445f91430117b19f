// Package normalize provides text normalization used by search matching.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks after NFD decomposition, so that
// "cérita" and "cerita" fold to the same term.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold returns s trimmed, lowercased, and with diacritics stripped.
// It is the canonical form used on both queries and indexed fields.
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		// Malformed input falls back to plain lowercasing.
		return strings.ToLower(s)
	}
	return strings.ToLower(folded)
}

// Words splits a folded string into its whitespace-separated terms.
// Empty terms are dropped.
func Words(s string) []string {
	return strings.Fields(s)
}
