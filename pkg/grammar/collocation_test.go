package grammar

import (
	"strings"
	"testing"
)

// freuenSentence is "Ich freue mich auf das Konzert." with a clean parse.
func freuenSentence() *Sentence {
	return makeSentence([]tok{
		{text: "Ich", pos: "PRON", tag: "PPER", dep: "sb", head: 1},
		{text: "freue", lemma: "freuen", pos: "VERB", tag: "VVFIN", dep: "ROOT", head: -1},
		{text: "mich", lemma: "sich", pos: "PRON", tag: "PRF", dep: "oa", head: 1, morph: map[string]string{"Reflex": "Yes"}},
		{text: "auf", pos: "ADP", tag: "APPR", dep: "mo", head: 1},
		{text: "das", lemma: "der", pos: "DET", tag: "ART", dep: "nk", head: 5},
		{text: "Konzert", pos: "NOUN", tag: "NN", dep: "nk", head: 3},
		{text: ".", pos: "PUNCT", tag: "$.", dep: "punct", head: 1},
	})
}

func TestCollocationStrictTier(t *testing.T) {
	d := NewCollocationDetector(DefaultDefinitions(), nil)
	s := freuenSentence()

	results := d.Detect(s)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d: %+v", len(results), results)
	}
	r := results[0]
	if r.Details["label"] != "sich freuen auf" {
		t.Errorf("expected label 'sich freuen auf', got %v", r.Details["label"])
	}
	if r.Details["tier"] != TierStrict {
		t.Errorf("expected strict tier, got %v", r.Details["tier"])
	}
	got := positionsText(s.Text, r.Positions)
	want := []string{"freue", "mich", "auf"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("expected positions over %v, got %v", want, got)
	}
}

// erinnernSentence is the second half of "Als sie durch das alte Viertel
// ging, konnte sie sich plötzlich an ihre Kindheit erinnern und begann zu
// lächeln." with "an" misattached to the adverb, which defeats the strict
// tier and exercises the loose one.
func erinnernSentence() *Sentence {
	return makeSentence([]tok{
		{text: "Als", pos: "SCONJ", tag: "KOUS", dep: "cp", head: 6},
		{text: "sie", pos: "PRON", tag: "PPER", dep: "sb", head: 6},
		{text: "durch", pos: "ADP", tag: "APPR", dep: "mo", head: 6},
		{text: "das", lemma: "der", pos: "DET", tag: "ART", dep: "nk", head: 5},
		{text: "alte", lemma: "alt", pos: "ADJ", tag: "ADJA", dep: "nk", head: 5},
		{text: "Viertel", pos: "NOUN", tag: "NN", dep: "nk", head: 2},
		{text: "ging", lemma: "gehen", pos: "VERB", tag: "VVFIN", dep: "mo", head: 8},
		{text: ",", pos: "PUNCT", tag: "$,", dep: "punct", head: 8},
		{text: "konnte", lemma: "können", pos: "AUX", tag: "VMFIN", dep: "ROOT", head: -1},
		{text: "sie", pos: "PRON", tag: "PPER", dep: "sb", head: 8},
		{text: "sich", lemma: "sich", pos: "PRON", tag: "PRF", dep: "oa", head: 15},
		{text: "plötzlich", pos: "ADV", tag: "ADJD", dep: "mo", head: 15},
		{text: "an", pos: "ADP", tag: "APPR", dep: "mo", head: 11},
		{text: "ihre", lemma: "ihr", pos: "DET", tag: "PPOSAT", dep: "nk", head: 14},
		{text: "Kindheit", pos: "NOUN", tag: "NN", dep: "nk", head: 12},
		{text: "erinnern", lemma: "erinnern", pos: "VERB", tag: "VVINF", dep: "oc", head: 8},
		{text: "und", pos: "CCONJ", tag: "KON", dep: "cd", head: 8},
		{text: "begann", lemma: "beginnen", pos: "VERB", tag: "VVFIN", dep: "cj", head: 16},
		{text: "zu", pos: "PART", tag: "PTKZU", dep: "pm", head: 19},
		{text: "lächeln", pos: "VERB", tag: "VVIZU", dep: "oc", head: 17},
		{text: ".", pos: "PUNCT", tag: "$.", dep: "punct", head: 8},
	})
}

func TestCollocationLooseTier(t *testing.T) {
	d := NewCollocationDetector(DefaultDefinitions(), nil)
	s := erinnernSentence()

	results := d.Detect(s)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d: %+v", len(results), results)
	}
	r := results[0]
	if r.Details["label"] != "sich erinnern an" {
		t.Errorf("expected label 'sich erinnern an', got %v", r.Details["label"])
	}
	if r.Details["tier"] != TierLoose {
		t.Errorf("expected loose tier, got %v", r.Details["tier"])
	}
}

func TestCanonicalVerbCollapsesModal(t *testing.T) {
	// The modal "konnte" must not produce its own match; the match hangs
	// off the content verb "erinnern".
	d := NewCollocationDetector(DefaultDefinitions(), nil)
	results := d.Detect(erinnernSentence())
	for _, r := range results {
		if r.Details["verb"] != "erinnern" {
			t.Errorf("match attributed to %v, want erinnern", r.Details["verb"])
		}
	}
}

func TestTierOrdering(t *testing.T) {
	defs := []CollocationDefinition{
		{Kind: KindVerbPrep, Verb: "warten", Preposition: "auf", Level: LevelA2, Signature: prepSignature},
	}
	d := NewCollocationDetector(defs, nil)

	strict := makeSentence([]tok{
		{text: "Ich", pos: "PRON", tag: "PPER", dep: "sb", head: 1},
		{text: "warte", lemma: "warten", pos: "VERB", tag: "VVFIN", dep: "ROOT", head: -1},
		{text: "auf", pos: "ADP", tag: "APPR", dep: "mo", head: 1},
		{text: "den", lemma: "der", pos: "DET", tag: "ART", dep: "nk", head: 4},
		{text: "Bus", pos: "NOUN", tag: "NN", dep: "nk", head: 2},
	})
	// Same shape but the preposition carries a relation outside the
	// signature's allowed set, so only the loose tier can find it.
	loose := makeSentence([]tok{
		{text: "Ich", pos: "PRON", tag: "PPER", dep: "sb", head: 1},
		{text: "warte", lemma: "warten", pos: "VERB", tag: "VVFIN", dep: "ROOT", head: -1},
		{text: "auf", pos: "ADP", tag: "APPR", dep: "re", head: 1},
		{text: "den", lemma: "der", pos: "DET", tag: "ART", dep: "nk", head: 4},
		{text: "Bus", pos: "NOUN", tag: "NN", dep: "nk", head: 2},
	})
	// The preposition's head cannot be resolved at all; only the token
	// window remains.
	window := &Sentence{}
	*window = *strict
	window.Tokens = append([]Token(nil), strict.Tokens...)
	window.Tokens[2].Head = TextHead("nirgendwo")
	window.Tokens[2].Dep = ""

	conf := func(s *Sentence, wantTier string) float64 {
		results := d.Detect(s)
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		if results[0].Details["tier"] != wantTier {
			t.Fatalf("expected tier %s, got %v", wantTier, results[0].Details["tier"])
		}
		return results[0].Confidence
	}

	cs := conf(strict, TierStrict)
	cl := conf(loose, TierLoose)
	cw := conf(window, TierWindow)
	if !(cs > cl && cl > cw) {
		t.Errorf("tier confidences must be strictly ordered: strict=%v loose=%v window=%v", cs, cl, cw)
	}
}

func TestAmbiguousHeadBlocksMatch(t *testing.T) {
	defs := []CollocationDefinition{
		{Kind: KindVerbNoun, Verb: "stellen", Noun: "Frage", Level: LevelB1, Signature: nounSignature},
	}
	d := NewCollocationDetector(defs, nil)
	// Two "eine" tokens make the noun's textual head ambiguous, so the
	// noun never resolves as a dependent of the verb; the window tier
	// still finds it since they sit close together.
	s := makeSentence([]tok{
		{text: "Eine", lemma: "eine", pos: "DET", tag: "ART", dep: "nk", head: 2},
		{text: "stellt", lemma: "stellen", pos: "VERB", tag: "VVFIN", dep: "ROOT", head: -1},
		{text: "Frage", pos: "NOUN", tag: "NN", dep: "oa", head: 1},
		{text: "eine", pos: "DET", tag: "ART", dep: "nk", head: 2},
	})
	s.Tokens[2].Head = TextHead("eine")

	results := d.Detect(s)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Details["tier"] != TierWindow {
		t.Errorf("ambiguous head must fall through to window tier, got %v", results[0].Details["tier"])
	}
}

func TestPathTierPrefersShouldMatchRelation(t *testing.T) {
	defs := []CollocationDefinition{
		{Kind: KindVerbNoun, Verb: "treffen", Level: LevelB2, Signature: DepSignature{
			Roles:       map[string][]string{RoleNoun: {"oa", "sb"}},
			MaxDepth:    1,
			ShouldMatch: []string{"oa"},
		}},
	}
	d := NewCollocationDetector(defs, nil)
	// A misattached adverb carries both nouns, so only the collapsed-path
	// traversal reaches them, and both sit at the same depth. The subject
	// comes first in token order; the signature's shouldMatch must still
	// pick the accusative object.
	s := makeSentence([]tok{
		{text: "Heute", pos: "ADV", tag: "ADV", dep: "nk", head: 1},
		{text: "trifft", lemma: "treffen", pos: "VERB", tag: "VVFIN", dep: "ROOT", head: -1},
		{text: "der", lemma: "der", pos: "DET", tag: "ART", dep: "nk", head: 3},
		{text: "Mann", pos: "NOUN", tag: "NN", dep: "sb", head: 0},
		{text: "eine", lemma: "eine", pos: "DET", tag: "ART", dep: "nk", head: 5},
		{text: "Entscheidung", pos: "NOUN", tag: "NN", dep: "oa", head: 0},
	})

	results := d.Detect(s)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d: %+v", len(results), results)
	}
	r := results[0]
	if r.Details["tier"] != TierPath {
		t.Fatalf("expected path tier, got %v", r.Details["tier"])
	}
	got := positionsText(s.Text, r.Positions)
	want := []string{"trifft", "Entscheidung"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("expected positions over %v, got %v", want, got)
	}
}

func TestSeparableEmissionSuppressed(t *testing.T) {
	var traced []TraceEvent
	d := NewCollocationDetector(DefaultDefinitions(), func(ev TraceEvent) { traced = append(traced, ev) })
	s := makeSentence([]tok{
		{text: "Der", lemma: "der", pos: "DET", tag: "ART", dep: "nk", head: 1},
		{text: "Zug", pos: "NOUN", tag: "NN", dep: "sb", head: 2},
		{text: "fährt", lemma: "fahren", pos: "VERB", tag: "VVFIN", dep: "ROOT", head: -1},
		{text: "ab", pos: "PART", tag: "PTKVZ", dep: "svp", head: 2},
		{text: ".", pos: "PUNCT", tag: "$.", dep: "punct", head: 2},
	})

	if results := d.Detect(s); len(results) != 0 {
		t.Fatalf("separable patterns must not be emitted by the collocation detector, got %+v", results)
	}
	found := false
	for _, ev := range traced {
		if ev.Note == "suppressed" && ev.Label == "abfahren" {
			found = true
		}
	}
	if !found {
		t.Error("suppressed separable match should still be traced")
	}
}

func TestLemmaMatching(t *testing.T) {
	cases := []struct {
		want, got string
		match     bool
	}{
		{"freuen", "freuen", true},
		{"freuen", "freue", true},   // prefix
		{"erinnern", "erinner", true},
		{"wandern", "wandern", true},
		{"warten", "wartet", false}, // different stem shape, no prefix
		{"denken", "danken", false},
		{"freuen", "", false},
	}
	for _, c := range cases {
		if got := lemmaMatches(c.want, c.got); got != c.match {
			t.Errorf("lemmaMatches(%q, %q) = %v, want %v", c.want, c.got, got, c.match)
		}
	}
}

func TestContractedPreposition(t *testing.T) {
	defs := []CollocationDefinition{
		{Kind: KindVerbPrep, Verb: "gehören", Preposition: "zu", Level: LevelB1, Signature: prepSignature},
	}
	d := NewCollocationDetector(defs, nil)
	s := makeSentence([]tok{
		{text: "Das", lemma: "der", pos: "PRON", tag: "PDS", dep: "sb", head: 1},
		{text: "gehört", lemma: "gehören", pos: "VERB", tag: "VVFIN", dep: "ROOT", head: -1},
		{text: "zur", lemma: "zur", pos: "ADP", tag: "APPRART", dep: "mo", head: 1},
		{text: "Familie", pos: "NOUN", tag: "NN", dep: "nk", head: 2},
	})
	results := d.Detect(s)
	if len(results) != 1 {
		t.Fatalf("contracted 'zur' must match base lemma 'zu', got %d results", len(results))
	}
	if results[0].Details["tier"] != TierStrict {
		t.Errorf("expected strict tier, got %v", results[0].Details["tier"])
	}
}
