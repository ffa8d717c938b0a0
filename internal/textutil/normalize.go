package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// AlnumFold reduces text to its case-folded letters and digits. Diacritics are
// removed first so "Linné" and "Linne" fold to the same key; punctuation and
// whitespace are dropped entirely.
func AlnumFold(value string) string {
	if value == "" {
		return ""
	}
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), value)
	if err != nil {
		stripped = value
	}
	folded := cases.Fold().String(stripped)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EqualAlnumFold compares two strings after AlnumFold. Blank and punctuation
// only values are equal to each other.
func EqualAlnumFold(a, b string) bool {
	if a == b {
		return true
	}
	return AlnumFold(a) == AlnumFold(b)
}

// SingleLine replaces tabs and line breaks so a value fits in one column of a
// tab separated listing.
func SingleLine(value string) string {
	if !strings.ContainsAny(value, "\t\r\n") {
		return value
	}
	return strings.Join(strings.FieldsFunc(value, func(r rune) bool {
		return r == '\t' || r == '\r' || r == '\n'
	}), " ")
}
