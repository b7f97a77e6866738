package parser

import (
	"strings"
	"unicode"
)

// abbreviations that end in a period without ending a sentence.
var abbreviations = map[string]bool{
	"z.B": true, "u.a": true, "d.h": true, "usw": true, "bzw": true,
	"ca": true, "Dr": true, "Prof": true, "Nr": true, "Str": true,
	"bzgl": true, "evtl": true, "ggf": true, "inkl": true, "Hr": true, "Fr": true,
}

// SplitSentences segments German prose on sentence-final punctuation,
// keeping common abbreviations intact. The engine itself consumes
// pre-segmented sentences; this exists for the article-ingestion path.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		switch r {
		case '!', '?':
			flush(&sentences, &current)
		case '\n':
			flush(&sentences, &current)
		case '.':
			if endsWithAbbreviation(current.String()) {
				continue
			}
			// A digit on both sides is an ordinal or date ("am 3.10.").
			if i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
				continue
			}
			// German sentences open with a capital. A lowercase
			// continuation means the period was abbreviatory.
			if j := nextNonSpace(runes, i+1); j >= 0 && unicode.IsLower(runes[j]) {
				continue
			}
			flush(&sentences, &current)
		}
	}
	flush(&sentences, &current)
	return sentences
}

func flush(sentences *[]string, current *strings.Builder) {
	s := strings.TrimSpace(current.String())
	current.Reset()
	if s != "" {
		*sentences = append(*sentences, s)
	}
}

func nextNonSpace(runes []rune, from int) int {
	for i := from; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

func endsWithAbbreviation(s string) bool {
	s = strings.TrimSuffix(s, ".")
	cut := strings.LastIndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	word := s[cut+1:]
	if abbreviations[word] {
		return true
	}
	// Single letters are initials or the head of "z.B."-style shorthands.
	r := []rune(word)
	return len(r) == 1 && unicode.IsLetter(r[0])
}
