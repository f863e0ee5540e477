// internal/recorder/postgres.go
package recorder

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

// PgxPool is the slice of pgxpool.Pool the recorder uses, split out so tests
// can substitute pgxmock.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresRecorder persists step records and results into two tables. Step
// rows are inserted as they happen; the screenshot bytes go in the step row
// so one database holds the complete trace.
type PostgresRecorder struct {
	pool   PgxPool
	logger *zap.Logger
}

var _ schemas.Recorder = (*PostgresRecorder)(nil)

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS task_steps (
	task_id     TEXT        NOT NULL,
	step        INT         NOT NULL,
	subgoal_id  TEXT        NOT NULL DEFAULT '',
	action      JSONB       NOT NULL,
	ui_state    JSONB       NOT NULL,
	observation TEXT        NOT NULL DEFAULT '',
	transition  JSONB       NOT NULL,
	screenshot  BYTEA,
	recorded_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (task_id, step)
);
CREATE TABLE IF NOT EXISTS task_results (
	task_id      TEXT        NOT NULL PRIMARY KEY,
	status       TEXT        NOT NULL,
	reason       TEXT        NOT NULL DEFAULT '',
	step_count   INT         NOT NULL,
	finalized_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const insertStepSQL = `
INSERT INTO task_steps (task_id, step, subgoal_id, action, ui_state, observation, transition, screenshot, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (task_id, step) DO NOTHING`

const insertResultSQL = `
INSERT INTO task_results (task_id, status, reason, step_count)
VALUES ($1, $2, $3, $4)
ON CONFLICT (task_id) DO UPDATE SET status = $2, reason = $3, step_count = $4, finalized_at = now()`

// NewPostgresRecorder connects to the given database and ensures the schema.
func NewPostgresRecorder(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresRecorder, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	r := NewPostgresRecorderWithPool(pool, logger)
	if err := r.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// NewPostgresRecorderWithPool wraps an existing pool without touching the
// schema. Tests use this with pgxmock.
func NewPostgresRecorderWithPool(pool PgxPool, logger *zap.Logger) *PostgresRecorder {
	return &PostgresRecorder{
		pool:   pool,
		logger: logger.Named("recorder.postgres"),
	}
}

func (r *PostgresRecorder) ensureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("failed to ensure recorder schema: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) RecordStep(ctx context.Context, taskID string, rec schemas.StepRecord) error {
	action, err := json.Marshal(rec.Action)
	if err != nil {
		return fmt.Errorf("failed to marshal action: %w", err)
	}
	state, err := json.Marshal(rec.State)
	if err != nil {
		return fmt.Errorf("failed to marshal ui state: %w", err)
	}
	transition, err := json.Marshal(rec.Transition)
	if err != nil {
		return fmt.Errorf("failed to marshal transition: %w", err)
	}

	_, err = r.pool.Exec(ctx, insertStepSQL,
		taskID, rec.Step, rec.SubGoalID, action, state, rec.Observation, transition, rec.Screenshot, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert step record: %w", err)
	}

	r.logger.Debug("Step recorded", zap.String("task_id", taskID), zap.Int("step", rec.Step))
	return nil
}

func (r *PostgresRecorder) Finalize(ctx context.Context, result schemas.TaskResult) error {
	_, err := r.pool.Exec(ctx, insertResultSQL,
		result.TaskID, string(result.Status), result.Reason, len(result.Steps))
	if err != nil {
		return fmt.Errorf("failed to upsert task result: %w", err)
	}

	r.logger.Info("Task trace finalized",
		zap.String("task_id", result.TaskID),
		zap.String("status", string(result.Status)))
	return nil
}

// Close releases the underlying pool.
func (r *PostgresRecorder) Close() {
	r.pool.Close()
}
