// internal/runner/runner.go

// Package runner executes a batch of tasks with bounded concurrency. Every
// task gets its own isolated browser-bound executor; shared collaborators
// (the decision provider, the recorder) carry their own synchronization.
package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solenoidlabs/webpilot/api/schemas"
	"github.com/solenoidlabs/webpilot/internal/config"
)

// Executor drives a single task to a terminal result.
type Executor interface {
	Execute(ctx context.Context, t schemas.Task) schemas.TaskResult
}

// Factory builds a task-scoped executor and its cleanup. A factory failure
// (browser refused to launch, navigation to the start page failed) aborts
// only that task.
type Factory func(ctx context.Context, t schemas.Task) (Executor, func(), error)

// Runner fans a task batch out over a bounded worker pool.
type Runner struct {
	factory Factory
	cfg     config.RunnerConfig
	logger  *zap.Logger
}

func New(factory Factory, cfg config.RunnerConfig, logger *zap.Logger) *Runner {
	return &Runner{
		factory: factory,
		cfg:     cfg,
		logger:  logger.Named("runner"),
	}
}

// RunAll executes every task and returns results in input order. Individual
// task failures never cancel the batch; only parent context cancellation
// stops scheduling.
func (r *Runner) RunAll(ctx context.Context, tasks []schemas.Task) []schemas.TaskResult {
	results := make([]schemas.TaskResult, len(tasks))

	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)

	for i, t := range tasks {
		g.Go(func() error {
			results[i] = r.runOne(ctx, t)
			return nil
		})
	}
	g.Wait()

	return results
}

func (r *Runner) runOne(ctx context.Context, t schemas.Task) schemas.TaskResult {
	logger := r.logger.With(zap.String("task_id", t.ID))

	if err := ctx.Err(); err != nil {
		return schemas.TaskResult{
			TaskID: t.ID,
			Status: schemas.TaskAborted,
			Reason: "batch cancelled before the task started",
		}
	}

	exec, cleanup, err := r.factory(ctx, t)
	if err != nil {
		logger.Error("Failed to prepare task executor", zap.Error(err))
		return schemas.TaskResult{
			TaskID: t.ID,
			Status: schemas.TaskAborted,
			Reason: fmt.Sprintf("executor setup failed: %v", err),
		}
	}
	defer cleanup()

	return exec.Execute(ctx, t)
}
