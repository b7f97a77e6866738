package grammar

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type panicDetector struct{}

func (panicDetector) ID() string                         { return "panic" }
func (panicDetector) Detect(s *Sentence) []DetectionResult { panic("boom") }

type stubDetector struct {
	id      string
	results []DetectionResult
}

func (d stubDetector) ID() string                         { return d.id }
func (d stubDetector) Detect(s *Sentence) []DetectionResult { return d.results }

type stubAnnotator struct {
	results []DetectionResult
	err     error
	calls   int
}

func (a *stubAnnotator) Annotate(ctx context.Context, s *Sentence) ([]DetectionResult, error) {
	a.calls++
	return a.results, a.err
}

func TestEngineIsolatesDetectorPanic(t *testing.T) {
	good := stubDetector{id: "good", results: []DetectionResult{{
		GrammarPoint: "verb-second", Category: CategoryWordOrder, Level: LevelA1,
		Positions: []Position{{Start: 0, End: 5}}, Confidence: 0.8,
	}}}
	e := NewEngine([]Detector{panicDetector{}, good})

	rep := e.Analyze(context.Background(), freuenSentence())
	if rep.Summary.TotalPoints != 1 {
		t.Fatalf("panicking detector must not suppress others, got %d points", rep.Summary.TotalPoints)
	}
}

func TestEngineDropsMalformedResults(t *testing.T) {
	bad := stubDetector{id: "bad", results: []DetectionResult{
		{GrammarPoint: "", Positions: []Position{{0, 3}}, Confidence: 0.5},
		{GrammarPoint: "x", Positions: nil, Confidence: 0.5},
		{GrammarPoint: "x", Positions: []Position{{5, 2}}, Confidence: 0.5},
		{GrammarPoint: "x", Positions: []Position{{0, 3}}, Confidence: 1.5},
	}}
	e := NewEngine([]Detector{bad})
	rep := e.Analyze(context.Background(), freuenSentence())
	if rep.Summary.TotalPoints != 0 {
		t.Fatalf("malformed results must be dropped, got %d", rep.Summary.TotalPoints)
	}
}

func TestEngineIdempotent(t *testing.T) {
	e := NewEngine(DefaultDetectors(nil, nil))
	s := erinnernSentence()
	first := e.Analyze(context.Background(), s)
	second := e.Analyze(context.Background(), s)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("two runs over the same sentence must produce identical reports")
	}
}

func TestEngineAggregation(t *testing.T) {
	e := NewEngine(DefaultDetectors(nil, nil))
	rep := e.Analyze(context.Background(), freuenSentence())

	if rep.Summary.TotalPoints != len(rep.GrammarPoints) {
		t.Errorf("summary total %d != %d results", rep.Summary.TotalPoints, len(rep.GrammarPoints))
	}
	var regrouped int
	for lvl, rs := range rep.ByLevel {
		regrouped += len(rs)
		if rep.Summary.Levels[lvl] != len(rs) {
			t.Errorf("level %s count mismatch", lvl)
		}
	}
	if regrouped != len(rep.GrammarPoints) {
		t.Errorf("level grouping lost results: %d vs %d", regrouped, len(rep.GrammarPoints))
	}
	for cat, rs := range rep.ByCategory {
		if rep.Summary.Categories[cat] != len(rs) {
			t.Errorf("category %s count mismatch", cat)
		}
	}
}

func TestFallbackOnlyWhenEmpty(t *testing.T) {
	fb := &stubAnnotator{results: []DetectionResult{{
		GrammarPoint: "verb-second", Category: CategoryWordOrder, Level: LevelA1,
		Positions: []Position{{Start: 0, End: 3}}, Confidence: 0.6,
	}}}

	// Rules find something: fallback must not be consulted.
	e := NewEngine(DefaultDetectors(nil, nil))
	e.Fallback = fb
	e.Analyze(context.Background(), freuenSentence())
	if fb.calls != 0 {
		t.Fatalf("fallback consulted despite rule coverage (%d calls)", fb.calls)
	}

	// Nothing detectable: fallback supplies the results.
	empty := makeSentence([]tok{
		{text: "Hallo", pos: "INTJ", tag: "ITJ", dep: "ROOT", head: -1},
	})
	rep := e.Analyze(context.Background(), empty)
	if fb.calls != 1 {
		t.Fatalf("fallback should run exactly once, ran %d times", fb.calls)
	}
	if rep.Summary.TotalPoints != 1 {
		t.Fatalf("fallback results should be reported, got %d", rep.Summary.TotalPoints)
	}
}

func TestFallbackFailureDegradesSilently(t *testing.T) {
	e := NewEngine(nil)
	e.Fallback = &stubAnnotator{err: errors.New("upstream down")}
	e.FallbackTimeout = 50 * time.Millisecond

	rep := e.Analyze(context.Background(), freuenSentence())
	if rep.Summary.TotalPoints != 0 {
		t.Fatalf("failed fallback must yield a valid empty report, got %d points", rep.Summary.TotalPoints)
	}
	if rep.GrammarPoints != nil && len(rep.GrammarPoints) != 0 {
		t.Fatal("expected empty result list")
	}
}

func TestDetectorRegistry(t *testing.T) {
	e := NewEngine(DefaultDetectors(nil, nil))
	if _, ok := e.Detector("collocation"); !ok {
		t.Error("collocation detector should be registered by id")
	}
	if _, ok := e.Detector("does-not-exist"); ok {
		t.Error("unknown id should not resolve")
	}
}

// TestPositionCorrectness checks that every emitted position maps back onto
// the exact surface text of the matched tokens.
func TestPositionCorrectness(t *testing.T) {
	e := NewEngine(DefaultDetectors(nil, nil))
	for _, s := range []*Sentence{freuenSentence(), erinnernSentence(), zugSentence(), nestedClauseSentence()} {
		rep := e.Analyze(context.Background(), s)
		for _, r := range rep.GrammarPoints {
			for _, p := range r.Positions {
				if p.Start < 0 || p.End > len(s.Text) || p.End <= p.Start {
					t.Errorf("%s: invalid position %+v for %q", r.GrammarPoint, p, s.Text)
				}
			}
		}
	}
}
