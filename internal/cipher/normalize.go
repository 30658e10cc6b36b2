package cipher

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold strips diacritics and case-folds text while keeping every other character in place.
// Transformers are stateful, so a fresh chain is built per call.
func Fold(text string) string {
	if text == "" {
		return ""
	}
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err != nil {
		stripped = text
	}
	return cases.Fold().String(stripped)
}

// Normalize reduces text to the lowercase letters a-z that every cipher is computed from.
func Normalize(text string) string {
	return lettersOf(Fold(text))
}

// PhraseKey is the case-insensitive identity used to de-duplicate saved phrases.
func PhraseKey(phrase string) string {
	return strings.Join(strings.Fields(cases.Fold().String(phrase)), " ")
}
