package langdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nadzzz/agrivoice/internal/message"
)

func TestIsHindi(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"devanagari", "टमाटर की कीमत क्या है", true},
		{"single devanagari rune in english", "price of प्याज", true},
		{"two romanized hits", "pyaz ka bhav kya hai", true},
		{"two hits with punctuation", "Tamatar ka rate?", true},
		{"one incidental hit", "What is the rate for onions today", false},
		{"repeated single word counts once", "rate rate rate", false},
		{"plain english", "Will tomato prices go up next week", false},
		{"empty", "", false},
		{"whitespace", "   ", false},
		{"substring is not a word", "kaleidoscope making", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHindi(tt.text))
		})
	}
}

func TestDetect_Language(t *testing.T) {
	assert.Equal(t, message.LanguageHindi, Detect("aaj aloo ka daam").Language())
	assert.Equal(t, message.LanguageEnglish, Detect("irrigation advice please").Language())
}
