// Package langdetect classifies an utterance as Hindi-intent or English-intent.
//
// Any Devanagari character is decisive. Romanized input is scored against a
// small lexicon of Hindi function words and commodity terms; two distinct
// hits are required so that an English sentence with one incidental
// Hindi-looking token ("rate", "me") is not misclassified.
package langdetect

import (
	"strings"
	"unicode"

	"github.com/nadzzz/agrivoice/internal/message"
)

// minRomanHits is the number of distinct lexicon words needed for a
// romanized utterance to count as Hindi.
const minRomanHits = 2

var romanHindi = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"ka", "ki", "ke", "mein", "me", "mai", "kya", "hai", "hain", "wala", "wale", "wali",
		"aaj", "kal", "bhav", "bhaav", "daam", "kimat", "keemat", "rate",
		"badhega", "badhegi", "ghatega", "ghategi",
		"tamatar", "pyaz", "pyaaz", "aloo", "chawal", "gehu", "gehun", "makka", "sarson", "toor", "arhar", "chana",
	} {
		romanHindi[w] = struct{}{}
	}
}

// Result is the outcome of detection.
type Result struct {
	IsHindiLike bool
}

// Language maps the result to an answer language.
func (r Result) Language() message.Language {
	if r.IsHindiLike {
		return message.LanguageHindi
	}
	return message.LanguageEnglish
}

// Detect classifies text. Empty input is English.
func Detect(text string) Result {
	return Result{IsHindiLike: IsHindi(text)}
}

// IsHindi reports whether text reads as a Hindi-intent utterance.
func IsHindi(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, r := range text {
		if unicode.Is(unicode.Devanagari, r) {
			return true
		}
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, minRomanHits)
	for _, w := range words {
		if _, ok := romanHindi[w]; !ok {
			continue
		}
		seen[w] = struct{}{}
		if len(seen) >= minRomanHits {
			return true
		}
	}
	return false
}
