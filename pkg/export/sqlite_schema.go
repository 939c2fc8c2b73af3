package export

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is recorded in the meta table.
const SchemaVersion = 1

// CreateSchema creates all tables and indexes in the database.
func CreateSchema(db *sql.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"slides", `
			CREATE TABLE IF NOT EXISTS slides (
				idx INTEGER PRIMARY KEY,
				headline TEXT NOT NULL,
				body TEXT,
				body_text TEXT,
				media_url TEXT,
				media_kind TEXT NOT NULL,
				located INTEGER NOT NULL,
				lat REAL,
				lon REAL,
				zoom REAL,
				icon TEXT,
				line INTEGER NOT NULL,
				background_color TEXT,
				background_url TEXT
			)`},
		{"lines", `
			CREATE TABLE IF NOT EXISTS lines (
				id TEXT PRIMARY KEY,
				source_id TEXT NOT NULL,
				from_slide INTEGER NOT NULL,
				to_slide INTEGER NOT NULL,
				color TEXT NOT NULL,
				width REAL NOT NULL,
				dash TEXT,
				FOREIGN KEY (from_slide) REFERENCES slides(idx),
				FOREIGN KEY (to_slide) REFERENCES slides(idx)
			)`},
		{"markers", `
			CREATE TABLE IF NOT EXISTS markers (
				slide INTEGER PRIMARY KEY,
				lat REAL NOT NULL,
				lon REAL NOT NULL,
				icon TEXT NOT NULL,
				FOREIGN KEY (slide) REFERENCES slides(idx)
			)`},
		{"meta", `
			CREATE TABLE IF NOT EXISTS export_meta (
				key TEXT PRIMARY KEY,
				value TEXT
			)`},
		{"slides index", `CREATE INDEX IF NOT EXISTS idx_slides_located ON slides(located)`},
		{"lines index", `CREATE INDEX IF NOT EXISTS idx_lines_to ON lines(to_slide)`},
	}
	for _, s := range stmts {
		if _, err := db.Exec(s.sql); err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}

// CreateFTSIndex creates a full-text index over headlines and body text.
func CreateFTSIndex(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS slides_fts USING fts5(
			headline, body_text,
			content='slides', content_rowid='idx'
		)`); err != nil {
		return fmt.Errorf("create FTS5 table: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO slides_fts(slides_fts) VALUES('rebuild')`); err != nil {
		return fmt.Errorf("populate FTS index: %w", err)
	}
	return nil
}

// InsertMetaValue upserts a meta key.
func InsertMetaValue(db *sql.DB, key, value string) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO export_meta (key, value) VALUES (?, ?)`, key, value)
	return err
}

// OptimizeDatabase compacts the file for distribution.
func OptimizeDatabase(db *sql.DB) error {
	for _, pragma := range []string{`PRAGMA journal_mode=DELETE`, `ANALYZE`, `PRAGMA optimize`} {
		// Some pragmas fail depending on state.
		_, _ = db.Exec(pragma)
	}
	_, _ = db.Exec(`INSERT INTO slides_fts(slides_fts) VALUES('optimize')`)
	if _, err := db.Exec(`VACUUM`); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}
