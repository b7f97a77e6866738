package grammar

import "strings"

// PassiveDetector finds processual (werden + Partizip II) and statal
// (sein + Partizip II) passive constructions.
type PassiveDetector struct{}

// NewPassiveDetector returns the passive-voice detector.
func NewPassiveDetector() *PassiveDetector { return &PassiveDetector{} }

// ID implements Detector.
func (d *PassiveDetector) ID() string { return "passive" }

// Detect implements Detector.
func (d *PassiveDetector) Detect(s *Sentence) []DetectionResult {
	var out []DetectionResult
	for i := range s.Tokens {
		part := s.Tokens[i]
		if !IsParticiple(part) || strings.HasPrefix(part.Tag, "VA") {
			continue
		}

		aux, ok := d.findAux(s.Tokens, i)
		if !ok {
			continue
		}

		form := "processual"
		conf := 0.90
		if strings.ToLower(aux.Lemma) == "sein" {
			// sein + participle is ambiguous with adjectival predicates.
			form = "statal"
			conf = 0.75
		}

		matched := []Token{aux, part}
		sortByIndex(matched)
		out = append(out, DetectionResult{
			GrammarPoint: "passive-voice",
			Category:     CategoryVoice,
			Level:        LevelB1,
			Positions:    tokenPositions(matched),
			Confidence:   conf,
			Details: map[string]interface{}{
				"form":       form,
				"auxiliary":  aux.Text,
				"participle": part.Text,
			},
		})
	}
	return out
}

// findAux locates the werden/sein auxiliary governing a participle, first
// through the dependency tree, then in the same clause by position.
func (d *PassiveDetector) findAux(tokens []Token, partIdx int) (Token, bool) {
	isPassiveAux := func(t Token) bool {
		l := strings.ToLower(t.Lemma)
		return IsAuxiliary(t) && IsFiniteVerb(t) && (l == "werden" || l == "sein")
	}
	if h, ok := HeadIndex(tokens, partIdx); ok && isPassiveAux(tokens[h]) {
		return tokens[h], true
	}
	for _, c := range Children(tokens, partIdx) {
		if isPassiveAux(c) {
			return c, true
		}
	}
	for j := range tokens {
		if j == partIdx {
			continue
		}
		if isPassiveAux(tokens[j]) && InSameClause(tokens, j, partIdx) {
			return tokens[j], true
		}
	}
	return Token{}, false
}
