package grammar

import (
	"context"
	"log"
	"sort"
	"time"
)

// Annotator is the optional AI-assisted fallback consulted only when the
// rule-based detectors find nothing. Implementations carry their own
// network handling; the engine enforces the timeout.
type Annotator interface {
	Annotate(ctx context.Context, s *Sentence) ([]DetectionResult, error)
}

// Engine runs the full detector set against sentences and aggregates the
// results. Each detector call is isolated: a panic or malformed result in
// one detector never prevents the others from running.
type Engine struct {
	detectors []Detector
	byID      map[string]Detector

	// Fallback, when set, is invoked for sentences with zero rule-based
	// results. Its failure or absence still yields a valid empty report.
	Fallback        Annotator
	FallbackTimeout time.Duration

	// Logger receives detector fault notices. nil means no logging.
	Logger *log.Logger
}

// NewEngine builds an engine over an explicit detector list. Detectors are
// registered by their stable string ID.
func NewEngine(detectors []Detector) *Engine {
	e := &Engine{
		detectors:       detectors,
		byID:            make(map[string]Detector, len(detectors)),
		FallbackTimeout: 10 * time.Second,
	}
	for _, d := range detectors {
		e.byID[d.ID()] = d
	}
	return e
}

// DefaultDetectors returns the standard detector set over the builtin
// collocation table. trace may be nil.
func DefaultDetectors(defs []CollocationDefinition, trace TraceSink) []Detector {
	if defs == nil {
		defs = DefaultDefinitions()
	}
	return []Detector{
		NewCollocationDetector(defs, trace),
		NewSubordinateClauseDetector(),
		NewSeparableVerbDetector(),
		NewAgreementDetector(),
		NewWordOrderDetector(),
		NewPassiveDetector(),
		NewCausativeDetector(),
	}
}

// Detector returns the registered detector for id.
func (e *Engine) Detector(id string) (Detector, bool) {
	d, ok := e.byID[id]
	return d, ok
}

// Analyze runs every detector over the sentence and merges the results
// into a report. ctx is consulted only by the AI fallback.
func (e *Engine) Analyze(ctx context.Context, s *Sentence) Report {
	var results []DetectionResult
	for _, d := range e.detectors {
		results = append(results, e.runDetector(d, s)...)
	}

	if len(results) == 0 && e.Fallback != nil {
		results = e.runFallback(ctx, s)
	}

	// Deterministic ordering: by first position, then grammar point id.
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		as, bs := firstStart(a), firstStart(b)
		if as != bs {
			return as < bs
		}
		return a.GrammarPoint < b.GrammarPoint
	})

	return buildReport(results)
}

// runDetector isolates a single detector call. A panicking detector
// contributes nothing for this sentence and processing continues.
func (e *Engine) runDetector(d Detector, s *Sentence) (results []DetectionResult) {
	defer func() {
		if r := recover(); r != nil {
			if e.Logger != nil {
				e.Logger.Printf("detector %s failed on %q: %v", d.ID(), s.Text, r)
			}
			results = nil
		}
	}()
	for _, res := range d.Detect(s) {
		if !validResult(res) {
			if e.Logger != nil {
				e.Logger.Printf("detector %s produced malformed result, dropped", d.ID())
			}
			continue
		}
		results = append(results, res)
	}
	return results
}

// runFallback consults the AI annotator with a hard timeout. Any error
// degrades to the empty rule-based result.
func (e *Engine) runFallback(ctx context.Context, s *Sentence) []DetectionResult {
	ctx, cancel := context.WithTimeout(ctx, e.FallbackTimeout)
	defer cancel()

	results, err := e.Fallback.Annotate(ctx, s)
	if err != nil {
		if e.Logger != nil {
			e.Logger.Printf("fallback annotator failed: %v", err)
		}
		return nil
	}
	var out []DetectionResult
	for _, r := range results {
		if validResult(r) {
			out = append(out, r)
		}
	}
	return out
}

func validResult(r DetectionResult) bool {
	if r.GrammarPoint == "" || len(r.Positions) == 0 {
		return false
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return false
	}
	for _, p := range r.Positions {
		if p.End <= p.Start || p.Start < 0 {
			return false
		}
	}
	return true
}

func firstStart(r DetectionResult) int {
	if len(r.Positions) == 0 {
		return 0
	}
	return r.Positions[0].Start
}

func buildReport(results []DetectionResult) Report {
	rep := Report{
		GrammarPoints: results,
		ByLevel:       make(map[Level][]DetectionResult),
		ByCategory:    make(map[Category][]DetectionResult),
		Summary: Summary{
			TotalPoints: len(results),
			Levels:      make(map[Level]int),
			Categories:  make(map[Category]int),
		},
	}
	for _, r := range results {
		rep.ByLevel[r.Level] = append(rep.ByLevel[r.Level], r)
		rep.ByCategory[r.Category] = append(rep.ByCategory[r.Category], r)
		rep.Summary.Levels[r.Level]++
		rep.Summary.Categories[r.Category]++
	}
	return rep
}
