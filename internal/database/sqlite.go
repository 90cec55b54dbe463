// Package database stores the export run history in SQLite.
package database

import (
	"database/sql"
	"fmt"

	"mex-go/internal/database/migrations"
	"mex-go/internal/mex"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements mex.RunStore on a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path and brings its
// schema up to date. path can be ":memory:" for an in-memory store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection. Exported for
// tests that want a raw connection with the same settings.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite ships with foreign keys off for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// RecordRun inserts the run and fills in its database ID.
func (s *SQLiteStore) RecordRun(run *mex.ExportRun) (int64, error) {
	var finished sql.NullTime
	if run.FinishedAt != nil {
		finished = sql.NullTime{Time: *run.FinishedAt, Valid: true}
	}

	res, err := s.db.Exec(`
		INSERT INTO export_runs (run_id, side, status, marker, progress, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Side, run.Status, run.Marker, run.Progress, run.Error, run.StartedAt, finished)
	if err != nil {
		return 0, fmt.Errorf("inserting export run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading insert id: %w", err)
	}
	run.ID = id
	return id, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// falls back to a sane page size.
func (s *SQLiteStore) ListRuns(limit int) ([]*mex.ExportRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, run_id, side, status, marker, progress, error, started_at, finished_at
		FROM export_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying export runs: %w", err)
	}
	defer rows.Close()

	var runs []*mex.ExportRun
	for rows.Next() {
		var run mex.ExportRun
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.RunID, &run.Side, &run.Status, &run.Marker,
			&run.Progress, &run.Error, &run.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scanning export run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading export runs: %w", err)
	}

	return runs, nil
}

// Close closes the underlying connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Compile-time check that SQLiteStore implements mex.RunStore
var _ mex.RunStore = (*SQLiteStore)(nil)
