package grammar

import "strings"

// SubordinateClauseDetector finds subordinate clauses in three stages:
// marker detection, verb-head location, and boundary extension. Nested
// clauses are kept but flagged with reduced confidence.
type SubordinateClauseDetector struct{}

// NewSubordinateClauseDetector returns the clause detector.
func NewSubordinateClauseDetector() *SubordinateClauseDetector {
	return &SubordinateClauseDetector{}
}

// ID implements Detector.
func (d *SubordinateClauseDetector) ID() string { return "subordinate-clause" }

type markerKind int

const (
	markerSubConj markerKind = iota
	markerRelative
	markerInfinitive
)

// clauseMarker is a transient record for one detected clause opener.
type clauseMarker struct {
	index int
	kind  markerKind
	lemma string
}

// clauseVerb is the located clause verb, with its auxiliary or modal when
// the verb form is compound.
type clauseVerb struct {
	index    int
	auxIndex int // -1 when the form is simple
}

// clause is a fully resolved subordinate clause before emission.
type clause struct {
	marker     clauseMarker
	verb       clauseVerb
	start, end int // token indices, inclusive
	confidence float64
	nested     bool
}

// subordinators maps a subordinating-conjunction lemma to its semantic
// function.
var subordinators = map[string]string{
	"dass": "completive", "ob": "completive",
	"weil": "causal", "da": "causal",
	"wenn": "conditional", "falls": "conditional", "sofern": "conditional",
	"obwohl": "concessive", "obgleich": "concessive", "obschon": "concessive",
	"als": "temporal", "nachdem": "temporal", "bevor": "temporal",
	"während": "temporal", "bis": "temporal", "seit": "temporal",
	"sobald": "temporal", "sooft": "temporal",
	"damit": "purpose", "sodass": "result",
	"indem": "modal",
}

// relativeLemmas is the closed lemma set for relative pronouns; the spaCy
// tag PRELS/PRELAT is the primary signal, this set catches mistagged cases.
var relativeLemmas = map[string]bool{
	"der": true, "die": true, "das": true, "dem": true, "den": true,
	"des": true, "dessen": true, "deren": true, "denen": true,
	"welcher": true, "welche": true, "welches": true, "welchem": true, "welchen": true,
}

// infinitiveMarkers introduce infinitive clauses when a "zu" follows.
var infinitiveMarkers = map[string]bool{
	"um": true, "ohne": true, "statt": true, "anstatt": true,
}

// Detect implements Detector.
func (d *SubordinateClauseDetector) Detect(s *Sentence) []DetectionResult {
	markers := d.findMarkers(s.Tokens)
	var clauses []clause
	for _, m := range markers {
		cv, ok := d.locateVerb(s.Tokens, m)
		if !ok {
			continue
		}
		c := clause{marker: m, verb: cv}
		c.start, c.end = d.extendBoundary(s.Tokens, m, cv)
		c.confidence = d.baseConfidence(s.Tokens, m, cv)
		clauses = append(clauses, c)
	}
	d.adjustNesting(s.Tokens, clauses)
	return d.emit(s, clauses)
}

// Stage 1: left-to-right marker scan.
func (d *SubordinateClauseDetector) findMarkers(tokens []Token) []clauseMarker {
	var out []clauseMarker
	for i, t := range tokens {
		lemma := strings.ToLower(t.Lemma)
		switch {
		case IsSubordConj(t) && subordinators[lemma] != "":
			out = append(out, clauseMarker{index: i, kind: markerSubConj, lemma: lemma})
		case IsRelativePronoun(t) || (IsPronoun(t) && t.MorphIs("PronType", "Rel") && relativeLemmas[lemma]):
			out = append(out, clauseMarker{index: i, kind: markerRelative, lemma: lemma})
		case infinitiveMarkers[lemma] && d.zuFollows(tokens, i):
			out = append(out, clauseMarker{index: i, kind: markerInfinitive, lemma: lemma})
		}
	}
	return out
}

// zuFollows reports whether a "zu" token appears within the next 3 tokens.
func (d *SubordinateClauseDetector) zuFollows(tokens []Token, i int) bool {
	for j := i + 1; j <= i+3 && j < len(tokens); j++ {
		if strings.EqualFold(tokens[j].Text, "zu") || tokens[j].Tag == "PTKZU" {
			return true
		}
	}
	return false
}

// Stage 2: locate the clause verb, trying strategies in order.
func (d *SubordinateClauseDetector) locateVerb(tokens []Token, m clauseMarker) (clauseVerb, bool) {
	// (1) The marker's dependency head, when it is a verb.
	if h, ok := HeadIndex(tokens, m.index); ok {
		t := tokens[h]
		if IsFiniteVerb(t) || IsVerb(t) {
			return d.linkCompound(tokens, m, h), true
		}
	}
	// (2) Relative markers: nearest finite verb before a clause-ending comma.
	if m.kind == markerRelative {
		for j := m.index + 1; j < len(tokens); j++ {
			if tokens[j].Text == "," {
				break
			}
			if IsFiniteVerb(tokens[j]) {
				return d.linkCompound(tokens, m, j), true
			}
		}
	}
	// (3) Infinitive markers: nearest infinitive after the "zu".
	if m.kind == markerInfinitive {
		zu := -1
		for j := m.index + 1; j <= m.index+3 && j < len(tokens); j++ {
			if strings.EqualFold(tokens[j].Text, "zu") || tokens[j].Tag == "PTKZU" {
				zu = j
				break
			}
		}
		if zu >= 0 {
			for j := zu; j < len(tokens); j++ {
				if IsClausePunct(tokens[j]) && tokens[j].Text != "zu" && j > zu {
					break
				}
				if IsInfinitive(tokens[j]) {
					return clauseVerb{index: j, auxIndex: -1}, true
				}
			}
		}
	}
	// (4) First finite verb after the marker, stopping at punctuation or a
	// new subordinating conjunction.
	for j := m.index + 1; j < len(tokens); j++ {
		t := tokens[j]
		if IsClausePunct(t) || IsSubordConj(t) {
			break
		}
		if IsFiniteVerb(t) {
			return d.linkCompound(tokens, m, j), true
		}
	}
	// (5) Final fallback: any verb form after the marker.
	for j := m.index + 1; j < len(tokens); j++ {
		if IsVerb(tokens[j]) {
			return d.linkCompound(tokens, m, j), true
		}
	}
	return clauseVerb{}, false
}

// linkCompound records the auxiliary of a participle or the modal of a bare
// infinitive so the clause boundary can include it. The backward search is
// bounded by clause punctuation and conjunctions.
func (d *SubordinateClauseDetector) linkCompound(tokens []Token, m clauseMarker, verbIdx int) clauseVerb {
	cv := clauseVerb{index: verbIdx, auxIndex: -1}
	t := tokens[verbIdx]
	var wantAux func(Token) bool
	switch {
	case IsParticiple(t):
		wantAux = func(a Token) bool {
			l := strings.ToLower(a.Lemma)
			return IsAuxiliary(a) && (l == "haben" || l == "sein" || l == "werden")
		}
	case IsInfinitive(t):
		wantAux = func(a Token) bool { return strings.HasPrefix(a.Tag, "VM") }
	default:
		return cv
	}
	for j := verbIdx - 1; j > m.index; j-- {
		a := tokens[j]
		if IsClausePunct(a) || IsSubordConj(a) {
			break
		}
		if wantAux(a) {
			cv.auxIndex = j
			break
		}
	}
	// In verb-final clauses the auxiliary follows the participle.
	if cv.auxIndex < 0 {
		for j := verbIdx + 1; j < len(tokens); j++ {
			a := tokens[j]
			if IsClausePunct(a) || IsSubordConj(a) {
				break
			}
			if wantAux(a) {
				cv.auxIndex = j
				break
			}
		}
	}
	return cv
}

// Stage 3: boundary extension from the marker over the verb group.
func (d *SubordinateClauseDetector) extendBoundary(tokens []Token, m clauseMarker, cv clauseVerb) (int, int) {
	start := m.index
	end := cv.index
	if cv.auxIndex > end {
		end = cv.auxIndex
	}
	for j := end + 1; j < len(tokens); j++ {
		t := tokens[j]
		if IsClausePunct(t) || IsCoordConj(t) {
			break
		}
		if IsSubordConj(t) || IsRelativePronoun(t) {
			break // nested clause start
		}
		if m.kind == markerInfinitive && IsFiniteVerb(t) {
			break // back in the main clause
		}
		end = j
	}
	return start, end
}

func (d *SubordinateClauseDetector) baseConfidence(tokens []Token, m clauseMarker, cv clauseVerb) float64 {
	if m.kind == markerInfinitive {
		return 0.80
	}
	v := tokens[cv.index]
	if IsFiniteVerb(v) || cv.auxIndex >= 0 {
		return 0.95
	}
	if IsVerb(v) {
		return 0.85
	}
	return 0.75
}

// adjustNesting lowers confidence for clauses whose range strictly
// contains, or is strictly contained in, another clause's range. Nested
// clauses are real phenomena, just less reliable to highlight standalone.
func (d *SubordinateClauseDetector) adjustNesting(tokens []Token, clauses []clause) {
	for i := range clauses {
		for j := range clauses {
			if i == j {
				continue
			}
			a, b := clauses[i], clauses[j]
			contained := (a.start > b.start && a.end <= b.end) || (a.start >= b.start && a.end < b.end)
			contains := (a.start < b.start && a.end >= b.end) || (a.start <= b.start && a.end > b.end)
			if contained || contains {
				clauses[i].nested = true
				break
			}
		}
	}
	for i := range clauses {
		if clauses[i].nested {
			clauses[i].confidence *= 0.9
		}
	}
}

func (d *SubordinateClauseDetector) emit(s *Sentence, clauses []clause) []DetectionResult {
	var out []DetectionResult
	for _, c := range clauses {
		startTok := s.Tokens[c.start]
		endTok := s.Tokens[c.end]

		pointID, clauseType := d.classify(c.marker)
		details := map[string]interface{}{
			"marker":     s.Tokens[c.marker.index].Text,
			"clauseType": clauseType,
			"verb":       s.Tokens[c.verb.index].Text,
		}
		if fn := d.semanticFunction(c.marker); fn != "" {
			details["function"] = fn
		}
		if c.verb.auxIndex >= 0 {
			details["auxiliary"] = s.Tokens[c.verb.auxIndex].Text
		}
		if c.nested {
			details["nested"] = true
		}

		out = append(out, DetectionResult{
			GrammarPoint: pointID,
			Category:     CategoryClause,
			Level:        clauseLevel(pointID),
			Positions:    []Position{{Start: startTok.CharStart, End: endTok.CharEnd}},
			Confidence:   c.confidence,
			Details:      details,
		})
	}
	return out
}

func (d *SubordinateClauseDetector) classify(m clauseMarker) (pointID, clauseType string) {
	switch m.kind {
	case markerRelative:
		return "relative-clause", "relative"
	case markerInfinitive:
		return "infinitive-clause", "infinitive"
	}
	if m.lemma == "dass" || m.lemma == "ob" {
		return "subordinate-clause", "completive"
	}
	return "subordinate-clause", "adverbial"
}

func (d *SubordinateClauseDetector) semanticFunction(m clauseMarker) string {
	switch m.kind {
	case markerRelative:
		return "attributive"
	case markerInfinitive:
		if m.lemma == "um" {
			return "purpose"
		}
		return "modal"
	}
	return subordinators[m.lemma]
}

func clauseLevel(pointID string) Level {
	switch pointID {
	case "relative-clause", "infinitive-clause":
		return LevelB1
	}
	return LevelA2
}
