package grammar

import "strings"

// CausativeDetector finds lassen + infinitive constructions expressing
// caused or permitted action ("Ich lasse mein Auto reparieren.").
type CausativeDetector struct{}

// NewCausativeDetector returns the causative detector.
func NewCausativeDetector() *CausativeDetector { return &CausativeDetector{} }

// ID implements Detector.
func (d *CausativeDetector) ID() string { return "causative" }

// Detect implements Detector.
func (d *CausativeDetector) Detect(s *Sentence) []DetectionResult {
	var out []DetectionResult
	for i := range s.Tokens {
		lassen := s.Tokens[i]
		if !IsFiniteVerb(lassen) || strings.ToLower(lassen.Lemma) != "lassen" {
			continue
		}

		// Prefer the dependency link; a bare infinitive attached as clausal
		// object is the canonical parse.
		inf, conf := d.findInfinitive(s.Tokens, i)
		if inf < 0 {
			continue
		}

		matched := []Token{lassen, s.Tokens[inf]}
		sortByIndex(matched)
		out = append(out, DetectionResult{
			GrammarPoint: "causative-lassen",
			Category:     CategoryCausative,
			Level:        LevelB2,
			Positions:    tokenPositions(matched),
			Confidence:   conf,
			Details: map[string]interface{}{
				"lassen":     lassen.Text,
				"infinitive": s.Tokens[inf].Text,
			},
		})
	}
	return out
}

func (d *CausativeDetector) findInfinitive(tokens []Token, lassenIdx int) (int, float64) {
	for _, c := range Children(tokens, lassenIdx) {
		if IsInfinitive(c) && c.Tag != "VVIZU" {
			return c.Index, 0.88
		}
	}
	// Fallback scan: a bare infinitive later in the same clause, with no
	// intervening "zu" (that would be an infinitive clause instead).
	for j := lassenIdx + 1; j < len(tokens); j++ {
		t := tokens[j]
		if IsClausePunct(t) || IsSubordConj(t) {
			break
		}
		if t.Tag == "PTKZU" || strings.EqualFold(t.Text, "zu") {
			break
		}
		if IsInfinitive(t) && InSameClause(tokens, lassenIdx, j) {
			return j, 0.72
		}
	}
	return -1, 0
}
