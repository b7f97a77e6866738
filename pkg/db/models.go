package db

import "time"

// Source is a provenance record for an analyzed document.
type Source struct {
	ID         int64
	SourceType string
	Title      string
	Website    string
	URL        string
	Meta       string
	AddedAt    time.Time
}

// SentenceRow is one stored sentence of a source, in document order.
type SentenceRow struct {
	ID       int64
	SourceID int64
	Position int
	Text     string
}

// Detection is a persisted grammar-point hit. Positions and Details hold
// the JSON-encoded spans and detector payload.
type Detection struct {
	ID           int64
	SentenceID   int64
	GrammarPoint string
	Category     string
	Level        string
	Confidence   float64
	Positions    string
	Details      string
}

// GrammarPointStat aggregates detections of one grammar point in a source.
type GrammarPointStat struct {
	GrammarPoint  string
	Level         string
	Count         int
	AvgConfidence float64
}
