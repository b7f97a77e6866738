package db

import (
	"database/sql"
	"encoding/json"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ritazcx/DeutschLernenApp02-sub000/pkg/grammar"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Ensure single connection to avoid separate in-memory DBs per connection.
	db.SetMaxOpenConns(1)
	if err := InitDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func sampleResult(point string, conf float64) grammar.DetectionResult {
	return grammar.DetectionResult{
		GrammarPoint: point,
		Category:     grammar.CategoryCollocation,
		Level:        grammar.LevelB1,
		Positions:    []grammar.Position{{Start: 4, End: 9}},
		Confidence:   conf,
		Details:      map[string]interface{}{"verb": "warten"},
	}
}

func TestCreateOrGetSource(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	id1, err := CreateOrGetSource(db, "website_article", "Titel", "example.de", "https://example.de/a", "")
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	id2, err := CreateOrGetSource(db, "website_article", "Titel", "example.de", "https://example.de/a", "")
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same source id, got %d and %d", id1, id2)
	}
}

func TestSaveSentenceIdempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	sID, err := CreateOrGetSource(db, "text", "", "", "", "")
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	id1, err := SaveSentence(db, sID, 0, "Ich warte auf dich.")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	id2, err := SaveSentence(db, sID, 0, "Ich warte auf dich.")
	if err != nil {
		t.Fatalf("re-save: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same sentence id, got %d and %d", id1, id2)
	}
}

func TestSaveAndQueryDetections(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	srcID, err := CreateOrGetSource(db, "text", "", "", "", "")
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	sentID, err := SaveSentence(db, srcID, 0, "Ich warte auf dich.")
	if err != nil {
		t.Fatalf("save sentence: %v", err)
	}

	results := []grammar.DetectionResult{sampleResult("verb-prep-collocation", 0.95)}
	if err := SaveDetections(db, sentID, results); err != nil {
		t.Fatalf("save detections: %v", err)
	}

	got, err := GetDetectionsBySource(db, srcID)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(got))
	}
	d := got[0]
	if d.GrammarPoint != "verb-prep-collocation" || d.Confidence != 0.95 {
		t.Fatalf("unexpected detection: %+v", d)
	}

	// Positions round-trip through JSON.
	var positions []grammar.Position
	if err := json.Unmarshal([]byte(d.Positions), &positions); err != nil {
		t.Fatalf("decode positions: %v", err)
	}
	if len(positions) != 1 || positions[0].Start != 4 || positions[0].End != 9 {
		t.Fatalf("positions = %+v", positions)
	}
}

func TestSaveDetectionsReplaces(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	srcID, _ := CreateOrGetSource(db, "text", "", "", "", "")
	sentID, _ := SaveSentence(db, srcID, 0, "Satz.")

	first := []grammar.DetectionResult{
		sampleResult("verb-prep-collocation", 0.95),
		sampleResult("passive-voice", 0.90),
	}
	if err := SaveDetections(db, sentID, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := []grammar.DetectionResult{sampleResult("verb-prep-collocation", 0.80)}
	if err := SaveDetections(db, sentID, second); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	got, err := GetDetectionsBySource(db, srcID)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].Confidence != 0.80 {
		t.Fatalf("re-save must replace, got %+v", got)
	}
}

func TestGrammarPointStats(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	srcID, _ := CreateOrGetSource(db, "text", "", "", "", "")

	for i, conf := range []float64{0.9, 0.7} {
		sentID, err := SaveSentence(db, srcID, i, "Satz.")
		if err != nil {
			t.Fatalf("save sentence %d: %v", i, err)
		}
		if err := SaveDetections(db, sentID, []grammar.DetectionResult{sampleResult("verb-prep-collocation", conf)}); err != nil {
			t.Fatalf("save detections %d: %v", i, err)
		}
	}

	stats, err := GetGrammarPointStats(db, srcID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 stat row, got %d", len(stats))
	}
	st := stats[0]
	if st.GrammarPoint != "verb-prep-collocation" || st.Count != 2 {
		t.Fatalf("unexpected stat: %+v", st)
	}
	if st.AvgConfidence < 0.79 || st.AvgConfidence > 0.81 {
		t.Fatalf("avg confidence = %f", st.AvgConfidence)
	}
}

func TestSourceProgress(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	srcID, _ := CreateOrGetSource(db, "text", "", "", "", "")

	idx, err := GetSourceProgress(db, srcID)
	if err != nil {
		t.Fatalf("initial progress: %v", err)
	}
	if idx != -1 {
		t.Fatalf("expected -1 for fresh source, got %d", idx)
	}
	if err := UpdateSourceProgress(db, srcID, 17); err != nil {
		t.Fatalf("update: %v", err)
	}
	idx, err = GetSourceProgress(db, srcID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if idx != 17 {
		t.Fatalf("expected 17, got %d", idx)
	}
}

func TestCreateOrGetSourceConcurrency(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	const n = 8
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		go func() {
			id, err := CreateOrGetSource(db, "website_article", "Titel", "example.de", "https://example.de/c", "")
			if err != nil {
				t.Errorf("create or get source: %v", err)
				ids <- 0
				return
			}
			ids <- id
		}()
	}
	var first int64
	for i := 0; i < n; i++ {
		id := <-ids
		if id == 0 {
			t.Fatalf("error in goroutine")
		}
		if i == 0 {
			first = id
		}
		if id != first {
			t.Fatalf("expected same id, got %d and %d", first, id)
		}
	}
	var cnt int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sources WHERE url = ?`, "https://example.de/c").Scan(&cnt); err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("expected 1 source row, got %d", cnt)
	}
}
