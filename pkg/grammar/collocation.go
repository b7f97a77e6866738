package grammar

import (
	"fmt"
	"strings"
)

// Matching tiers, ordered from most to least reliable. Confidence assigned
// by an earlier tier is always strictly greater than any later tier's.
const (
	TierStrict = "strict"
	TierLoose  = "loose"
	TierPath   = "path"
	TierWindow = "window"
)

const (
	confStrict     = 0.95
	confStrictVia  = 0.92 // preposition reached through an object noun
	confLoose      = 0.80
	confPathBase   = 0.78
	confPathFloor  = 0.70
	confWindow     = 0.55
	defaultDepth   = 3
	windowRadius   = 5
)

// ignorableRelations may be traversed silently by the collapsed-path
// search: they carry structure (articles, adjectives, case markers,
// compounds) but no selectional information.
var ignorableRelations = map[string]bool{
	"nk": true, "det": true, "amod": true, "case": true, "cm": true,
	"compound": true, "pnc": true, "ag": true, "nmc": true,
}

// CollocationDetector matches canonical collocation definitions against the
// dependency tree with tiered confidence.
type CollocationDetector struct {
	defs  []CollocationDefinition
	trace TraceSink
}

// NewCollocationDetector builds a detector over the given definition table.
// A nil trace sink disables tracing.
func NewCollocationDetector(defs []CollocationDefinition, trace TraceSink) *CollocationDetector {
	return &CollocationDetector{defs: defs, trace: trace}
}

// ID implements Detector.
func (d *CollocationDetector) ID() string { return "collocation" }

// companionMatch is the outcome of resolving a single collocation role.
type companionMatch struct {
	token Token
	tier  string
	conf  float64
}

// Detect matches every definition whose verb lemma fits each verb token.
// Separable definitions are evaluated for tracing but never emitted here;
// the separable-verb detector owns their emission.
func (d *CollocationDetector) Detect(s *Sentence) []DetectionResult {
	var out []DetectionResult
	seen := make(map[string]bool)

	for i := range s.Tokens {
		if !IsVerb(s.Tokens[i]) {
			continue
		}
		verbIdx := d.canonicalVerbIndex(s.Tokens, i)
		verb := s.Tokens[verbIdx]

		for _, def := range d.defs {
			verbOK := lemmaMatches(def.Verb, verb.Lemma) || lemmaMatches(def.Verb, verb.Text)
			if !verbOK && def.Kind == KindSeparable {
				// A separated verb is lemmatized without its particle.
				verbOK = lemmaMatches(strings.TrimPrefix(def.Verb, def.Particle), verb.Lemma)
			}
			if !verbOK {
				continue
			}
			key := fmt.Sprintf("%s@%d", def.Label(), verbIdx)
			if seen[key] {
				continue
			}

			res, ok := d.matchDefinition(s, verbIdx, def)
			if !ok {
				continue
			}
			seen[key] = true

			if def.Kind == KindSeparable {
				// Computed for diagnostics only; the separable-verb
				// detector is responsible for emission.
				d.emitTrace(TraceEvent{Detector: d.ID(), Label: def.Label(),
					Tier: res.Details["tier"].(string), Verb: verb.Lemma, Note: "suppressed"})
				continue
			}
			out = append(out, res)
		}
	}
	return out
}

// canonicalVerbIndex collapses auxiliary and modal tokens onto the content
// verb they support, so "kann ... erinnern" matches on "erinnern".
func (d *CollocationDetector) canonicalVerbIndex(tokens []Token, i int) int {
	cur := i
	for hops := 0; hops < 3; hops++ {
		t := tokens[cur]
		if !IsAuxiliary(t) {
			return cur
		}
		h, ok := HeadIndex(tokens, cur)
		if !ok || h == cur {
			return cur
		}
		head := tokens[h]
		if !IsVerb(head) || IsAuxiliary(head) {
			// Auxiliary heads keep walking; anything else stops here.
			if IsVerb(head) {
				cur = h
				continue
			}
			return cur
		}
		return h
	}
	return cur
}

func (d *CollocationDetector) matchDefinition(s *Sentence, verbIdx int, def CollocationDefinition) (DetectionResult, bool) {
	verb := s.Tokens[verbIdx]

	var companions []companionMatch
	switch def.Kind {
	case KindReflexivePrep:
		refl, ok := d.findCompanion(s, verbIdx, def, roleReflexive)
		if !ok {
			return DetectionResult{}, false
		}
		prep, ok := d.findCompanion(s, verbIdx, def, rolePreposition)
		if !ok {
			return DetectionResult{}, false
		}
		companions = []companionMatch{refl, prep}
	case KindVerbPrep:
		prep, ok := d.findCompanion(s, verbIdx, def, rolePreposition)
		if !ok {
			return DetectionResult{}, false
		}
		companions = []companionMatch{prep}
	case KindVerbNoun:
		noun, ok := d.findCompanion(s, verbIdx, def, roleNoun)
		if !ok {
			return DetectionResult{}, false
		}
		companions = []companionMatch{noun}
	case KindSeparable:
		part, ok := d.findCompanion(s, verbIdx, def, roleParticle)
		if !ok {
			return DetectionResult{}, false
		}
		companions = []companionMatch{part}
	default:
		return DetectionResult{}, false
	}

	// The weakest role determines the overall tier and confidence.
	tier, conf := TierStrict, 1.0
	for _, c := range companions {
		if c.conf < conf {
			conf = c.conf
			tier = c.tier
		}
	}

	matched := make([]Token, 0, len(companions)+1)
	matched = append(matched, verb)
	texts := make([]string, 0, len(companions)+1)
	for _, c := range companions {
		matched = append(matched, c.token)
	}
	sortByIndex(matched)
	for _, t := range matched {
		texts = append(texts, t.Text)
	}

	level := def.Level
	if level == "" {
		level = LevelB1
	}

	d.emitTrace(TraceEvent{Detector: d.ID(), Label: def.Label(), Tier: tier, Verb: verb.Lemma})

	return DetectionResult{
		GrammarPoint: def.GrammarPointID(),
		Category:     CategoryCollocation,
		Level:        level,
		Positions:    tokenPositions(matched),
		Confidence:   conf,
		Details: map[string]interface{}{
			"label":  def.Label(),
			"tier":   tier,
			"verb":   verb.Lemma,
			"tokens": texts,
		},
	}, true
}

// Companion roles.
type companionRole int

const (
	roleReflexive companionRole = iota
	rolePreposition
	roleNoun
	roleParticle
)

func (r companionRole) name() string {
	switch r {
	case roleReflexive:
		return RoleReflexive
	case rolePreposition:
		return RolePreposition
	case roleNoun:
		return RoleNoun
	case roleParticle:
		return RoleParticle
	}
	return ""
}

// findCompanion resolves one role through the tier cascade: strict direct
// dependency, loose bounded descendants, collapsed-path traversal, then a
// token-distance window. First success wins.
func (d *CollocationDetector) findCompanion(s *Sentence, verbIdx int, def CollocationDefinition, role companionRole) (companionMatch, bool) {
	accepts := func(t Token) bool { return d.roleAccepts(t, def, role) }
	allowed := def.Signature.Roles[role.name()]
	maxDepth := def.Signature.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultDepth
	}

	// Tier 1: direct dependent with an allowed relation.
	for _, c := range Children(s.Tokens, verbIdx) {
		if !accepts(c) {
			continue
		}
		if !relationAllowed(c.Dep, allowed) {
			continue
		}
		return companionMatch{token: c, tier: TierStrict, conf: confStrict}, true
	}
	// Prepositions may hang off an object noun under the verb.
	if role == rolePreposition {
		for _, n := range Children(s.Tokens, verbIdx) {
			if !IsNoun(n) && !IsPronoun(n) {
				continue
			}
			for _, c := range Children(s.Tokens, n.Index) {
				if accepts(c) && relationAllowed(c.Dep, allowed) {
					return companionMatch{token: c, tier: TierStrict, conf: confStrictVia}, true
				}
			}
		}
	}

	// Tier 2: anywhere within maxDepth descendants, same clause.
	for _, c := range Descendants(s.Tokens, verbIdx, maxDepth) {
		if accepts(c) && InSameClause(s.Tokens, verbIdx, c.Index) {
			return companionMatch{token: c, tier: TierLoose, conf: confLoose}, true
		}
	}

	// Collapsed-path traversal through ignorable relations.
	if tok, depth, ok := d.collapsedPath(s.Tokens, verbIdx, maxDepth+1, accepts, def.Signature); ok {
		conf := confPathBase - 0.02*float64(depth)
		if conf < confPathFloor {
			conf = confPathFloor
		}
		return companionMatch{token: tok, tier: TierPath, conf: conf}, true
	}

	// Tier 3: token-distance window, a last resort for malformed parses.
	lo, hi := verbIdx-windowRadius, verbIdx+windowRadius
	for i := range s.Tokens {
		idx := s.Tokens[i].Index
		if idx < lo || idx > hi || idx == verbIdx {
			continue
		}
		if accepts(s.Tokens[i]) && InSameClause(s.Tokens, verbIdx, idx) {
			return companionMatch{token: s.Tokens[i], tier: TierWindow, conf: confWindow}, true
		}
	}
	return companionMatch{}, false
}

// collapsedPath runs a depth-bounded DFS from the verb that may pass
// through ignorable relation labels, returning the shallowest acceptable
// token. A mustMatch list on the signature restricts the final relation;
// among candidates at the same depth, one ending on a shouldMatch label
// wins over one that does not.
func (d *CollocationDetector) collapsedPath(tokens []Token, from, maxDepth int, accepts func(Token) bool, sig DepSignature) (Token, int, bool) {
	type node struct {
		idx   int
		depth int
	}
	var best Token
	bestDepth := maxDepth + 1
	bestPreferred := false

	visited := map[int]bool{from: true}
	stack := []node{{from, 0}}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.depth >= maxDepth {
			continue
		}
		for _, c := range Children(tokens, n.idx) {
			if visited[c.Index] {
				continue
			}
			visited[c.Index] = true
			depth := n.depth + 1
			if accepts(c) && finalRelationOK(c.Dep, sig) {
				preferred := relationPreferred(c.Dep, sig)
				if depth < bestDepth || (depth == bestDepth && preferred && !bestPreferred) {
					best = c
					bestDepth = depth
					bestPreferred = preferred
					continue
				}
			}
			// Only ignorable links may be passed through.
			if ignorableRelations[c.Dep] {
				stack = append(stack, node{c.Index, depth})
			}
		}
	}
	if bestDepth > maxDepth {
		return Token{}, 0, false
	}
	return best, bestDepth, true
}

func finalRelationOK(dep string, sig DepSignature) bool {
	if len(sig.MustMatch) == 0 {
		return true
	}
	for _, r := range sig.MustMatch {
		if dep == r {
			return true
		}
	}
	return false
}

func relationPreferred(dep string, sig DepSignature) bool {
	for _, r := range sig.ShouldMatch {
		if dep == r {
			return true
		}
	}
	return false
}

func relationAllowed(dep string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if dep == r {
			return true
		}
	}
	return false
}

func (d *CollocationDetector) roleAccepts(t Token, def CollocationDefinition, role companionRole) bool {
	switch role {
	case roleReflexive:
		return IsReflexivePronoun(t)
	case rolePreposition:
		return IsPreposition(t) && PrepositionLemma(t) == strings.ToLower(def.Preposition)
	case roleNoun:
		if !IsNoun(t) {
			return false
		}
		if def.Noun == "" {
			return true
		}
		return lemmaMatches(def.Noun, t.Lemma) || lemmaMatches(def.Noun, t.Text)
	case roleParticle:
		if IsSeparablePrefix(t) {
			return strings.EqualFold(t.Text, def.Particle) || strings.EqualFold(t.Lemma, def.Particle)
		}
		// Free-standing particles are sometimes tagged PTKA or ADV.
		if t.POS == "PART" || t.POS == "ADV" {
			return strings.EqualFold(t.Text, def.Particle)
		}
	}
	return false
}

func (d *CollocationDetector) emitTrace(ev TraceEvent) {
	if d.trace != nil {
		d.trace(ev)
	}
}

// verbEndings are stripped when comparing lemmas, absorbing inflection and
// lemmatizer noise ("erinner" vs "erinnern").
var verbEndings = []string{"en", "ern", "n"}

// lemmaMatches is the lenient lemma comparison used for verbs and nouns:
// exact, prefix in either direction, or equal after stripping common verb
// endings from both sides.
func lemmaMatches(want, got string) bool {
	if want == "" || got == "" {
		return false
	}
	w := strings.ToLower(want)
	g := strings.ToLower(got)
	if w == g {
		return true
	}
	if len(g) >= 4 && strings.HasPrefix(w, g) {
		return true
	}
	if len(w) >= 4 && strings.HasPrefix(g, w) {
		return true
	}
	return stripVerbEnding(w) == stripVerbEnding(g)
}

func stripVerbEnding(s string) string {
	for _, e := range verbEndings {
		if strings.HasSuffix(s, e) && len(s) > len(e)+2 {
			return strings.TrimSuffix(s, e)
		}
	}
	return s
}
