package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ritazcx/DeutschLernenApp02-sub000/pkg/grammar"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// CreateOrGetSource returns the existing source id or inserts a new source
// and returns its id.
func CreateOrGetSource(db DBExecutor, sourceType, title, website, url, meta string) (int64, error) {
	trimmedSourceType := strings.TrimSpace(sourceType)
	if trimmedSourceType == "" {
		return 0, fmt.Errorf("sourceType must be non-empty")
	}

	const maxRetries = 3

	var id int64
	for attempt := 0; attempt < maxRetries; attempt++ {
		// First, try to find an existing source.
		err := db.QueryRow(
			`SELECT id FROM sources WHERE IFNULL(url, '') = ? AND IFNULL(title, '') = ?`,
			url, title,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, err
		}

		// No existing row; try to insert one.
		res, err := db.Exec(
			`INSERT INTO sources (source_type, title, website, url, meta) VALUES (?, ?, ?, ?, ?)`,
			trimmedSourceType, title, website, url, meta,
		)
		if err != nil {
			// If another concurrent transaction inserted the same source, retry the SELECT.
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, err
		}
		return res.LastInsertId()
	}

	return 0, fmt.Errorf("could not create or get source after %d retries", maxRetries)
}

// SaveSentence stores a sentence at its document position and returns its
// id. Re-saving the same position replaces the text, so re-running an
// analysis stays idempotent.
func SaveSentence(db DBExecutor, sourceID int64, position int, text string) (int64, error) {
	if sourceID <= 0 {
		return 0, fmt.Errorf("sourceID must be positive")
	}
	if position < 0 {
		return 0, fmt.Errorf("position must not be negative")
	}
	var id int64
	err := db.QueryRow(`INSERT INTO sentences (source_id, position, text)
		VALUES (?, ?, ?)
		ON CONFLICT(source_id, position) DO UPDATE SET text = excluded.text
		RETURNING id`, sourceID, position, text).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert sentence: %w", err)
	}
	return id, nil
}

// SaveDetections replaces the stored detections of a sentence with the
// given results.
func SaveDetections(db DBExecutor, sentenceID int64, results []grammar.DetectionResult) error {
	if sentenceID <= 0 {
		return fmt.Errorf("sentenceID must be positive")
	}
	if _, err := db.Exec(`DELETE FROM detections WHERE sentence_id = ?`, sentenceID); err != nil {
		return fmt.Errorf("clear detections: %w", err)
	}
	for _, r := range results {
		positions, err := json.Marshal(r.Positions)
		if err != nil {
			return fmt.Errorf("encode positions: %w", err)
		}
		details, err := json.Marshal(r.Details)
		if err != nil {
			return fmt.Errorf("encode details: %w", err)
		}
		_, err = db.Exec(`INSERT INTO detections
			(sentence_id, grammar_point, category, level, confidence, positions, details)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sentenceID, r.GrammarPoint, string(r.Category), string(r.Level),
			r.Confidence, string(positions), string(details))
		if err != nil {
			return fmt.Errorf("insert detection: %w", err)
		}
	}
	return nil
}

// GetDetectionsBySource returns all stored detections of a source in
// document order.
func GetDetectionsBySource(db DBExecutor, sourceID int64) ([]Detection, error) {
	rows, err := db.Query(`SELECT d.id, d.sentence_id, d.grammar_point, d.category,
			d.level, d.confidence, d.positions, d.details
		FROM detections d
		JOIN sentences s ON s.id = d.sentence_id
		WHERE s.source_id = ?
		ORDER BY s.position, d.id`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Detection
	for rows.Next() {
		var d Detection
		var details sql.NullString
		if err := rows.Scan(&d.ID, &d.SentenceID, &d.GrammarPoint, &d.Category,
			&d.Level, &d.Confidence, &d.Positions, &details); err != nil {
			return nil, err
		}
		if details.Valid {
			d.Details = details.String
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSentencesBySource returns the stored sentences of a source in
// document order.
func GetSentencesBySource(db DBExecutor, sourceID int64) ([]SentenceRow, error) {
	rows, err := db.Query(`SELECT id, source_id, position, text FROM sentences
		WHERE source_id = ? ORDER BY position`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SentenceRow
	for rows.Next() {
		var s SentenceRow
		if err := rows.Scan(&s.ID, &s.SourceID, &s.Position, &s.Text); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetGrammarPointStats aggregates how often each grammar point occurs in a
// source, with its mean confidence.
func GetGrammarPointStats(db DBExecutor, sourceID int64) ([]GrammarPointStat, error) {
	rows, err := db.Query(`SELECT d.grammar_point, d.level, COUNT(*), AVG(d.confidence)
		FROM detections d
		JOIN sentences s ON s.id = d.sentence_id
		WHERE s.source_id = ?
		GROUP BY d.grammar_point, d.level
		ORDER BY COUNT(*) DESC, d.grammar_point`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GrammarPointStat
	for rows.Next() {
		var st GrammarPointStat
		if err := rows.Scan(&st.GrammarPoint, &st.Level, &st.Count, &st.AvgConfidence); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSourceProgress returns the last processed sentence index for a source.
// A fresh source reports -1.
func GetSourceProgress(db DBExecutor, sourceID int64) (int, error) {
	var index int
	err := db.QueryRow("SELECT last_processed_sentence FROM sources WHERE id = ?", sourceID).Scan(&index)
	if err != nil {
		return 0, err
	}
	return index, nil
}

// UpdateSourceProgress updates the last processed sentence index.
func UpdateSourceProgress(db DBExecutor, sourceID int64, index int) error {
	_, err := db.Exec("UPDATE sources SET last_processed_sentence = ? WHERE id = ?", index, sourceID)
	return err
}
