// Package sanitize reduces free model text to one clean sentence.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	fenceRe      = regexp.MustCompile("```[A-Za-z0-9_+-]*")
	leadLabelRe  = regexp.MustCompile(`(?i)^(intent|seed_variety|irrigation_timing|cold_risk)\b\s*[:\-]?\s*`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// isBoundary reports whether r ends a sentence, the Devanagari danda included.
func isBoundary(r rune) bool {
	return r == '।' || isTerminal(r)
}

// isTerminal reports whether r is an accepted final character.
func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?':
		return true
	}
	return false
}

// Sanitize returns exactly one terminated sentence taken from raw.
//
// Code fences and backticks are removed (fenced content is kept), leaked
// intent labels are dropped from the front, whitespace is collapsed and
// everything after the first sentence is discarded. A period is appended
// unless the sentence ends in '.', '!' or '?', so a trailing danda is
// followed by one. When nothing is left after trimming, the cleaned input
// is kept; the result is "." when raw holds no text at all. It is never
// empty.
func Sanitize(raw string) string {
	cleaned := clean(raw)
	one := cleaned
	if t := trimLeading(cleaned); t != "" {
		one = firstSentence(t)
	}
	if one == "" {
		return "."
	}
	last, _ := utf8.DecodeLastRuneInString(one)
	if !isTerminal(last) {
		one += "."
	}
	return one
}

// Blank reports whether raw holds nothing but markup, leaked labels,
// punctuation and space.
func Blank(raw string) bool {
	return trimLeading(clean(raw)) == ""
}

// clean removes fences and backticks and collapses whitespace.
func clean(raw string) string {
	t := fenceRe.ReplaceAllString(raw, " ")
	t = strings.ReplaceAll(t, "`", "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(t, " "))
}

// trimLeading strips surrounding space, then repeatedly removes leading
// labels and stray leading punctuation so the first sentence starts on a word.
func trimLeading(t string) string {
	for {
		t = strings.TrimSpace(t)
		before := t
		t = leadLabelRe.ReplaceAllString(t, "")
		t = strings.TrimLeftFunc(t, func(r rune) bool {
			return isBoundary(r) || unicode.IsSpace(r)
		})
		if t == before {
			return t
		}
	}
}

// firstSentence cuts t after the first boundary followed by whitespace.
func firstSentence(t string) string {
	runes := []rune(t)
	for i, r := range runes {
		if !isBoundary(r) {
			continue
		}
		if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			return strings.TrimSpace(string(runes[:i+1]))
		}
	}
	return strings.TrimSpace(t)
}
