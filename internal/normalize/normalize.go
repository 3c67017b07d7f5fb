// Package normalize reduces noisy invoice text to a comparable skeleton.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reSoftPunct = regexp.MustCompile(`[.\x{00B7}\x{2022}\x{2027}]+$`)
	reSpaces    = regexp.MustCompile(`\s+`)
	// "6 meses" / "6 mes" / "6 m" / "6m" -> "6m"; applied after lowercasing.
	reDuration = regexp.MustCompile(`\b(\d+)\s*(?:meses|mes|m)\b`)
)

// Normalize collapses whitespace, strips trailing soft punctuation and
// diacritics, lowercases, and canonicalizes numeric-duration variants.
// Deterministic, pure, and idempotent; empty or whitespace-only input yields
// the empty string.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = reSoftPunct.ReplaceAllString(s, "")
	s = reSpaces.ReplaceAllString(s, " ")
	s = stripDiacritics(s)
	s = strings.ToLower(s)
	s = reDuration.ReplaceAllString(s, "${1}m")
	return strings.TrimSpace(s)
}

func stripDiacritics(s string) string {
	// chain transformers are stateful, so build one per call
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
