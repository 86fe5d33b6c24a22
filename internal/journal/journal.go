// SPDX-License-Identifier: MIT

// Package journal keeps a local record of the changes applied to Paperless.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/log"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/persistence/sqlite"
)

const schemaVersion = 1

// DefaultLimit is used by List when Filter.Limit is not positive.
const DefaultLimit = 50

// Change is one applied modification.
type Change struct {
	ID         int64
	RunID      string
	At         time.Time
	Task       string
	ObjectType string
	ObjectID   int
	Summary    string
}

// Filter selects changes for List.
type Filter struct {
	Limit      int
	ObjectType string
	ObjectID   int
	RunID      string
}

// Journal is a sqlite-backed change log. A nil *Journal discards records,
// which is how a disabled journal behaves.
type Journal struct {
	db *sql.DB
}

// Open opens (and creates when missing) the journal at path. An empty path
// returns a nil journal.
func Open(ctx context.Context, path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("journal: create directory: %w", err)
		}
	}

	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	j := &Journal{db: db}
	if err := j.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migration failed: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate(ctx context.Context) error {
	var current int
	if err := j.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		at TEXT NOT NULL,
		task TEXT NOT NULL,
		object_type TEXT NOT NULL,
		object_id INTEGER NOT NULL,
		summary TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_changes_object ON changes(object_type, object_id);
	CREATE INDEX IF NOT EXISTS idx_changes_run ON changes(run_id);
	`
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Record appends c. Missing run id and task are taken from ctx, a zero time
// becomes now.
func (j *Journal) Record(ctx context.Context, c Change) error {
	if j == nil {
		return nil
	}
	if c.RunID == "" {
		c.RunID = log.RunIDFromContext(ctx)
	}
	if c.Task == "" {
		c.Task = log.TaskFromContext(ctx)
	}
	if c.At.IsZero() {
		c.At = time.Now()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO changes (run_id, at, task, object_type, object_id, summary) VALUES (?, ?, ?, ?, ?, ?)`,
		c.RunID, c.At.UTC().Format(time.RFC3339Nano), c.Task, c.ObjectType, c.ObjectID, c.Summary,
	)
	if err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

// List returns matching changes, newest first.
func (j *Journal) List(ctx context.Context, f Filter) ([]Change, error) {
	if j == nil {
		return nil, nil
	}

	var (
		where []string
		args  []any
	)
	if f.ObjectType != "" {
		where = append(where, "object_type = ?")
		args = append(args, f.ObjectType)
	}
	if f.ObjectID > 0 {
		where = append(where, "object_id = ?")
		args = append(args, f.ObjectID)
	}
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, run_id, at, task, object_type, object_id, summary FROM changes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Change
	for rows.Next() {
		var (
			c  Change
			at string
		)
		if err := rows.Scan(&c.ID, &c.RunID, &at, &c.Task, &c.ObjectType, &c.ObjectID, &c.Summary); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		c.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: rows: %w", err)
	}
	return out, nil
}

// Check runs a quick integrity check.
func (j *Journal) Check(ctx context.Context) error {
	if j == nil {
		return nil
	}
	problems, err := sqlite.Check(ctx, j.db, sqlite.QuickCheck)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		return fmt.Errorf("journal: integrity check failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}
