// internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/api/schemas"
)

// DBPool abstracts pgxpool.Pool so the journal can be tested with a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
    id          UUID PRIMARY KEY,
    goal        TEXT NOT NULL,
    mode        TEXT NOT NULL,
    start_url   TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'running',
    steps       INTEGER NOT NULL DEFAULT 0,
    history     TEXT NOT NULL DEFAULT '',
    started_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS run_steps (
    id          BIGSERIAL PRIMARY KEY,
    run_id      UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    cycle       INTEGER NOT NULL,
    action      TEXT NOT NULL,
    element_id  INTEGER,
    label       TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL,
    error_code  TEXT NOT NULL DEFAULT '',
    history     TEXT NOT NULL DEFAULT '',
    recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS run_steps_run_id_idx ON run_steps (run_id, cycle);
`

const (
	sqlInsertRun = `
        INSERT INTO runs (id, goal, mode, start_url, started_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $5)
        ON CONFLICT (id) DO NOTHING;
    `
	sqlInsertStep = `
        INSERT INTO run_steps (run_id, cycle, action, element_id, label, status, error_code, history, recorded_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
    `
	sqlTouchRun = `
        UPDATE runs SET updated_at = $2 WHERE id = $1;
    `
	sqlFinishRun = `
        UPDATE runs SET status = $2, steps = $3, history = $4, updated_at = $5, finished_at = $5
        WHERE id = $1;
    `
	sqlRecentRuns = `
        SELECT id, goal, status, steps, history, COALESCE(finished_at, updated_at)
        FROM runs
        ORDER BY started_at DESC
        LIMIT $1;
    `
)

// ErrRunNotFound is returned when finishing a run that was never started.
var ErrRunNotFound = errors.New("run not found")

// Store is the PostgreSQL run journal.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the journal tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

// StartRun records the beginning of a run.
func (s *Store) StartRun(ctx context.Context, run schemas.RunRecord) error {
	if _, err := s.pool.Exec(ctx, sqlInsertRun, run.ID, run.Goal, run.Mode, run.StartURL, run.StartedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// RecordStep appends a step and bumps the run's last-activity time in one
// transaction.
func (s *Store) RecordStep(ctx context.Context, step schemas.StepRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	at := step.At.UTC()
	if _, err := tx.Exec(ctx, sqlInsertStep,
		step.RunID, step.Cycle, step.Action, step.ElementID,
		step.Label, step.Status, step.ErrorCode, step.History, at,
	); err != nil {
		return fmt.Errorf("failed to insert step: %w", err)
	}
	if _, err := tx.Exec(ctx, sqlTouchRun, step.RunID, at); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FinishRun stores the final status and history of a run.
func (s *Store) FinishRun(ctx context.Context, summary schemas.RunSummary) error {
	tag, err := s.pool.Exec(ctx, sqlFinishRun,
		summary.RunID, summary.Status, summary.Steps, summary.History, summary.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", summary.RunID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, summary.RunID)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]schemas.RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, sqlRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []schemas.RunSummary
	for rows.Next() {
		var r schemas.RunSummary
		var finished time.Time
		if err := rows.Scan(&r.RunID, &r.Goal, &r.Status, &r.Steps, &r.History, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.FinishedAt = finished
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return runs, nil
}
