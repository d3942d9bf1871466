package vocabulary

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds free text for matching: lower-case, accents stripped, anything that is
// not a letter or digit turned into a space, runs of spaces collapsed.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// minContainsLen is the shortest normalized text that takes part in containment matching.
const minContainsLen = 3

// contains reports whether needle occurs anywhere in haystack. Both arguments must be
// normalized; fragments shorter than minContainsLen never match.
func contains(haystack, needle string) bool {
	if utf8.RuneCountInString(haystack) < minContainsLen || utf8.RuneCountInString(needle) < minContainsLen {
		return false
	}
	return strings.Contains(haystack, needle)
}
