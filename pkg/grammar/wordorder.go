package grammar

// WordOrderDetector recognizes the two canonical German verb placements:
// verb-second in main clauses and verb-final in subordinate clauses.
type WordOrderDetector struct{}

// NewWordOrderDetector returns the word-order detector.
func NewWordOrderDetector() *WordOrderDetector { return &WordOrderDetector{} }

// ID implements Detector.
func (d *WordOrderDetector) ID() string { return "word-order" }

// Detect implements Detector.
func (d *WordOrderDetector) Detect(s *Sentence) []DetectionResult {
	var out []DetectionResult
	if r, ok := d.verbSecond(s); ok {
		out = append(out, r)
	}
	out = append(out, d.verbFinal(s)...)
	return out
}

// verbSecond fires when a main clause opens with a single non-subject
// constituent before the finite verb, the pattern learners struggle with
// most ("Heute gehe ich ...").
func (d *WordOrderDetector) verbSecond(s *Sentence) (DetectionResult, bool) {
	if len(s.Tokens) < 3 {
		return DetectionResult{}, false
	}
	first := s.Tokens[0]
	if IsSubordConj(first) || IsFiniteVerb(first) {
		return DetectionResult{}, false
	}
	// The fronted constituent must not be a plain subject; an adverb or
	// prepositional phrase in first position makes inversion visible.
	if !(first.POS == "ADV" || IsPreposition(first)) {
		return DetectionResult{}, false
	}

	// Find the finite verb ending the first constituent: every token before
	// it must belong to that fronted phrase (no commas, no conjunctions).
	for i := 1; i < len(s.Tokens); i++ {
		t := s.Tokens[i]
		if IsClausePunct(t) || IsCoordConj(t) || IsSubordConj(t) {
			return DetectionResult{}, false
		}
		if IsFiniteVerb(t) {
			matched := []Token{first, t}
			return DetectionResult{
				GrammarPoint: "verb-second",
				Category:     CategoryWordOrder,
				Level:        LevelA1,
				Positions:    tokenPositions(matched),
				Confidence:   0.85,
				Details: map[string]interface{}{
					"fronted": first.Text,
					"verb":    t.Text,
				},
			}, true
		}
	}
	return DetectionResult{}, false
}

// verbFinal fires for each subordinating conjunction whose clause ends in a
// finite verb directly before clause punctuation or sentence end.
func (d *WordOrderDetector) verbFinal(s *Sentence) []DetectionResult {
	var out []DetectionResult
	for i := range s.Tokens {
		if !IsSubordConj(s.Tokens[i]) {
			continue
		}
		// Walk to the clause end.
		end := len(s.Tokens)
		for j := i + 1; j < len(s.Tokens); j++ {
			if IsClausePunct(s.Tokens[j]) {
				end = j
				break
			}
		}
		if end-1 <= i {
			continue
		}
		last := s.Tokens[end-1]
		if !IsFiniteVerb(last) {
			continue
		}
		matched := []Token{s.Tokens[i], last}
		out = append(out, DetectionResult{
			GrammarPoint: "verb-final",
			Category:     CategoryWordOrder,
			Level:        LevelA2,
			Positions:    tokenPositions(matched),
			Confidence:   0.90,
			Details: map[string]interface{}{
				"conjunction": s.Tokens[i].Text,
				"verb":        last.Text,
			},
		})
	}
	return out
}
