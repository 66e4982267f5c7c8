// Package history keeps a local sqlite ledger of pipeline and workflow runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL,
    book_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    stage TEXT NOT NULL,
    skipped INTEGER NOT NULL DEFAULT 0,
    success INTEGER NOT NULL,
    error TEXT,
    duration_seconds REAL NOT NULL DEFAULT 0,
    cost_usd REAL NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_book ON runs(book_id);
CREATE INDEX IF NOT EXISTS idx_runs_run ON runs(run_id);
`

// Run kinds.
const (
	KindPipeline = "pipeline"
	KindWorkflow = "workflow"
)

// Entry is one stage outcome within a run.
type Entry struct {
	ID              int64     `json:"id" yaml:"id"`
	RunID           string    `json:"run_id" yaml:"run_id"`
	BookID          string    `json:"book_id" yaml:"book_id"`
	Kind            string    `json:"kind" yaml:"kind"`
	Stage           string    `json:"stage" yaml:"stage"`
	Skipped         bool      `json:"skipped" yaml:"skipped"`
	Success         bool      `json:"success" yaml:"success"`
	Error           string    `json:"error,omitempty" yaml:"error,omitempty"`
	DurationSeconds float64   `json:"duration_seconds" yaml:"duration_seconds"`
	CostUSD         float64   `json:"cost_usd" yaml:"cost_usd"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
}

// Filter specifies query filters. Zero fields match everything.
type Filter struct {
	RunID   string
	BookID  string
	Kind    string
	Stage   string
	Success *bool // nil = any, true = success only, false = errors only
}

// Store is a sqlite-backed run ledger.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends an entry. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, book_id, kind, stage, skipped, success, error, duration_seconds, cost_usd, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.BookID, e.Kind, e.Stage, e.Skipped, e.Success, e.Error,
		e.DurationSeconds, e.CostUSD, e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// List returns entries matching f, newest first. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, f Filter, limit int) ([]Entry, error) {
	where, args := buildWhere(f)
	query := `SELECT id, run_id, book_id, kind, stage, skipped, success, COALESCE(error, ''),
		duration_seconds, cost_usd, created_at FROM runs` + where + ` ORDER BY id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.BookID, &e.Kind, &e.Stage, &e.Skipped, &e.Success,
			&e.Error, &e.DurationSeconds, &e.CostUSD, &created); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func buildWhere(f Filter) (string, []any) {
	var (
		parts []string
		args  []any
	)
	add := func(col string, v any) {
		parts = append(parts, col+" = ?")
		args = append(args, v)
	}
	if f.RunID != "" {
		add("run_id", f.RunID)
	}
	if f.BookID != "" {
		add("book_id", f.BookID)
	}
	if f.Kind != "" {
		add("kind", f.Kind)
	}
	if f.Stage != "" {
		add("stage", f.Stage)
	}
	if f.Success != nil {
		add("success", *f.Success)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// Summary aggregates entries matching a filter.
type Summary struct {
	Count        int     `json:"count" yaml:"count"`
	Runs         int     `json:"runs" yaml:"runs"`
	SuccessCount int     `json:"success_count" yaml:"success_count"`
	ErrorCount   int     `json:"error_count" yaml:"error_count"`
	SkippedCount int     `json:"skipped_count" yaml:"skipped_count"`
	TotalSeconds float64 `json:"total_seconds" yaml:"total_seconds"`
	TotalCostUSD float64 `json:"total_cost_usd" yaml:"total_cost_usd"`
}

// GetSummary summarizes entries matching f.
func (s *Store) GetSummary(ctx context.Context, f Filter) (*Summary, error) {
	entries, err := s.List(ctx, f, 0)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Count: len(entries)}
	runs := make(map[string]struct{})
	for _, e := range entries {
		runs[e.RunID] = struct{}{}
		if e.Success {
			sum.SuccessCount++
		} else {
			sum.ErrorCount++
		}
		if e.Skipped {
			sum.SkippedCount++
		}
		sum.TotalSeconds += e.DurationSeconds
		sum.TotalCostUSD += e.CostUSD
	}
	sum.Runs = len(runs)
	return sum, nil
}
