package export

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/distilkit/distil/internal/pipeline"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	recipe TEXT NOT NULL,
	started TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	passes INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS samples (
	run_id TEXT NOT NULL REFERENCES runs(id),
	pos INTEGER NOT NULL,
	stage TEXT NOT NULL,
	call INTEGER NOT NULL,
	kind TEXT NOT NULL,
	key TEXT NOT NULL,
	block INTEGER,
	value TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS samples_run_idx ON samples(run_id);
`

// WriteSQLite appends the run and its flattened samples to a SQLite
// database, creating the schema on first use. Repeated exports into one
// file accumulate run history.
func WriteSQLite(path string, res *pipeline.Result) error {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, recipe, started, duration_ms, passes) VALUES (?, ?, ?, ?, ?)`,
		res.ID.String(), res.Recipe, res.Started.UTC().Format(time.RFC3339Nano),
		res.Duration.Milliseconds(), res.Passes,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO samples (run_id, pos, stage, call, kind, key, block, value) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range Flatten(res) {
		var block any
		if row.Block >= 0 {
			block = row.Block
		}
		if _, err := stmt.Exec(res.ID.String(), row.Pos, row.Stage, row.Call, row.Kind, row.Key, block, row.Value); err != nil {
			return fmt.Errorf("insert sample: %w", err)
		}
	}

	return tx.Commit()
}
