package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"ipocheck/internal/check"
)

// Store keeps finished runs in a local sqlite database. Only results are
// recorded; the identifier list itself is not managed here.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	company     TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	summary     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	boid         TEXT NOT NULL,
	label        TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	share_qty    INTEGER NOT NULL DEFAULT 0,
	error_detail TEXT NOT NULL DEFAULT '',
	completed_at INTEGER NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// OpenStore opens (creating if needed) the history database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun records a finished run and returns its generated ID.
func (s *Store) SaveRun(ctx context.Context, rep *check.Report) (string, error) {
	id := uuid.NewString()

	summary, err := json.Marshal(rep.Summary)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, company, started_at, finished_at, summary) VALUES (?, ?, ?, ?, ?)`,
		id, rep.CompanyName, rep.StartedAt.UnixMilli(), rep.FinishedAt.UnixMilli(), string(summary),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for i, r := range rep.Results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO results (run_id, position, boid, label, status, share_qty, error_detail, completed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, r.BOID, r.Label, string(r.Status), r.ShareQty, r.ErrorDetail, r.CompletedAt.UnixMilli(),
		); err != nil {
			return "", fmt.Errorf("insert result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// RunMeta summarizes one stored run.
type RunMeta struct {
	ID         string
	Company    string
	StartedAt  time.Time
	FinishedAt time.Time
	Summary    check.Summary
}

// ListRuns returns up to limit most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunMeta, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company, started_at, finished_at, summary FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunMeta
	for rows.Next() {
		var (
			m          RunMeta
			started    int64
			finished   int64
			summaryRaw string
		)
		if err := rows.Scan(&m.ID, &m.Company, &started, &finished, &summaryRaw); err != nil {
			return nil, err
		}
		m.StartedAt = time.UnixMilli(started)
		m.FinishedAt = time.UnixMilli(finished)
		if err := json.Unmarshal([]byte(summaryRaw), &m.Summary); err != nil {
			return nil, fmt.Errorf("decode summary for %s: %w", m.ID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Results returns the stored results of one run in target order.
func (s *Store) Results(ctx context.Context, runID string) ([]check.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT boid, label, status, share_qty, error_detail, completed_at
		 FROM results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []check.Result
	for rows.Next() {
		var (
			r         check.Result
			status    string
			completed int64
		)
		if err := rows.Scan(&r.BOID, &r.Label, &status, &r.ShareQty, &r.ErrorDetail, &completed); err != nil {
			return nil, err
		}
		r.Status = check.Status(status)
		r.CompletedAt = time.UnixMilli(completed)
		out = append(out, r)
	}
	return out, rows.Err()
}
