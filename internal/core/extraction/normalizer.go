package extraction

import (
	"strings"
	"unicode"
)

// hebrewMarks covers the niqqud and cantillation combining marks
// (U+0591..U+05C7). Letters start at U+05D0 and are unaffected.
func isHebrewMark(r rune) bool {
	return r >= 0x0591 && r <= 0x05C7
}

// Normalize canonicalizes bilingual Hebrew/Latin text for matching: Hebrew
// diacritics are stripped, anything outside letters/digits/whitespace is
// dropped, whitespace runs collapse to a single space, Latin letters are
// lower-cased and the ends trimmed. It never fails, maps "" to "", and is
// idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		switch {
		case isHebrewMark(r):
			// dropped
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastSpace = false
		default:
			// punctuation and symbols dropped; they separate nothing
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// NormalizeTokens normalizes and splits into fields, for token-level matching.
func NormalizeTokens(s string) []string {
	n := Normalize(s)
	if n == "" {
		return nil
	}
	return strings.Fields(n)
}
