package reconcile

import (
	"strings"
	"unicode"
)

// Normalize upper-cases s and keeps only letters and digits, so "tyl 5-oo" and "TYL5OO"
// compare equal. Non-Latin letters (e.g. Hangul) are kept.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		r = unicode.ToUpper(r)
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
