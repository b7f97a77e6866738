package grammar

import "strings"

// tok is a compact token spec for building test sentences.
type tok struct {
	text  string
	lemma string
	pos   string
	tag   string
	dep   string
	head  int // numeric head index; -1 marks the root (self-headed)
	morph map[string]string
}

// noSpaceBefore lists punctuation that attaches to the preceding token.
func noSpaceBefore(text string) bool {
	switch text {
	case ",", ".", "!", "?", ";", ":":
		return true
	}
	return false
}

// makeSentence lays the tokens out with single spaces, computing character
// offsets and indices the way the upstream parser would.
func makeSentence(toks []tok) *Sentence {
	var b strings.Builder
	tokens := make([]Token, 0, len(toks))
	for i, tk := range toks {
		if b.Len() > 0 && !noSpaceBefore(tk.text) {
			b.WriteByte(' ')
		}
		start := b.Len()
		b.WriteString(tk.text)
		head := tk.head
		if head < 0 {
			head = i
		}
		lemma := tk.lemma
		if lemma == "" {
			lemma = strings.ToLower(tk.text)
		}
		tokens = append(tokens, Token{
			Text:      tk.text,
			Lemma:     lemma,
			POS:       tk.pos,
			Tag:       tk.tag,
			Dep:       tk.dep,
			Head:      IndexHead(head),
			Morph:     tk.morph,
			Index:     i,
			CharStart: start,
			CharEnd:   b.Len(),
		})
	}
	return &Sentence{Text: b.String(), Tokens: tokens}
}

// positionsText extracts the substring covered by each position.
func positionsText(text string, positions []Position) []string {
	out := make([]string, 0, len(positions))
	for _, p := range positions {
		out = append(out, text[p.Start:p.End])
	}
	return out
}
