package db

// migrationsSQL is the embedded schema. Statements are idempotent so InitDB
// can run on every start.
const migrationsSQL = `
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_type TEXT NOT NULL,
    title TEXT,
    website TEXT,
    url TEXT,
    meta TEXT,
    last_processed_sentence INTEGER NOT NULL DEFAULT -1,
    added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sources_identity
    ON sources (IFNULL(url, ''), IFNULL(title, ''));

CREATE TABLE IF NOT EXISTS sentences (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_id INTEGER NOT NULL REFERENCES sources(id),
    position INTEGER NOT NULL,
    text TEXT NOT NULL,
    added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (source_id, position)
);

CREATE TABLE IF NOT EXISTS detections (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    sentence_id INTEGER NOT NULL REFERENCES sentences(id),
    grammar_point TEXT NOT NULL,
    category TEXT NOT NULL,
    level TEXT NOT NULL,
    confidence REAL NOT NULL,
    positions TEXT NOT NULL,
    details TEXT,
    detected_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_detections_sentence ON detections (sentence_id);
CREATE INDEX IF NOT EXISTS idx_detections_point ON detections (grammar_point);
`
