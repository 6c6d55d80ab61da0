package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AdaptCase derives the placeholder casing from the matched source
// span: an all-caps source yields an upper-cased placeholder, a
// title-cased source yields a title-cased placeholder, anything else
// returns the placeholder unchanged. Pure and deterministic.
func AdaptCase(source, placeholder string) string {
	switch {
	case isUpper(source):
		return strings.ToUpper(placeholder)
	case isTitle(source):
		// cases.Caser carries internal state, so build one per call.
		return cases.Title(language.English).String(placeholder)
	default:
		return placeholder
	}
}

// isUpper reports whether s contains at least one letter and no
// lower-case letters.
func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}

// isTitle reports whether every word in s starts with an upper-case
// letter.
func isTitle(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		first := rune(0)
		for _, r := range w {
			if unicode.IsLetter(r) {
				first = r
				break
			}
		}
		if first == 0 || !unicode.IsUpper(first) {
			return false
		}
	}
	return true
}
