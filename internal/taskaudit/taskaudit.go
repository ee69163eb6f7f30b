// Package taskaudit is an optional durable log of task lifecycle
// transitions, backed by Postgres via pgx/pgxpool. It exists purely for
// post-mortem debugging of task_debug_info history. The core task state
// machine in internal/task runs identically with auditing disabled; with
// it enabled, each transition waits for its insert (bounded at 2 seconds),
// and a failed insert is logged, not returned.
package taskaudit

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hemlang/hemlock/internal/logging"
	"github.com/hemlang/hemlock/internal/task"
)

// Store appends task lifecycle transitions to a Postgres table,
// connecting with a retry/backoff policy and creating its schema on
// first use, mirroring the teacher's connection-setup idiom.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pooled connection to dsn, retrying with exponential
// backoff, and ensures the audit table exists.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	var pool *pgxpool.Pool
	operation := func() (*pgxpool.Pool, error) {
		p, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, err
		}
		return p, nil
	}

	pool, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(5),
	)
	if err != nil {
		return nil, err
	}

	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS task_transitions (
			id BIGSERIAL PRIMARY KEY,
			task_id UUID NOT NULL,
			state TEXT NOT NULL,
			observed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

// RecordTransition implements task.AuditSink. Failures are logged but
// never returned to the caller: the audit trail is a side channel, not
// part of the task lifecycle's correctness contract.
func (s *Store) RecordTransition(taskID uuid.UUID, state task.State) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `INSERT INTO task_transitions (task_id, state) VALUES ($1, $2)`, taskID, state.String())
	if err != nil {
		logging.Op().Warn("task audit insert failed", "task_id", taskID.String(), "state", state.String(), "error", err)
	}
}

// History returns the most recent transitions for a task, most recent
// first, used to serve task_debug_info's historical view.
func (s *Store) History(ctx context.Context, taskID uuid.UUID, limit int) ([]Transition, error) {
	rows, err := s.pool.Query(ctx, `SELECT state, observed_at FROM task_transitions WHERE task_id = $1 ORDER BY observed_at DESC LIMIT $2`, taskID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		if err := rows.Scan(&t.State, &t.ObservedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Transition is one historical task state observation.
type Transition struct {
	State      string
	ObservedAt time.Time
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
