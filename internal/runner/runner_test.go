// internal/runner/runner_test.go
package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/solenoidlabs/webpilot/api/schemas"
	"github.com/solenoidlabs/webpilot/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type funcExecutor func(ctx context.Context, t schemas.Task) schemas.TaskResult

func (f funcExecutor) Execute(ctx context.Context, t schemas.Task) schemas.TaskResult {
	return f(ctx, t)
}

func makeTasks(n int) []schemas.Task {
	tasks := make([]schemas.Task, n)
	for i := range tasks {
		tasks[i] = schemas.Task{ID: string(rune('a' + i)), Objective: "noop"}
	}
	return tasks
}

func TestRunAllPreservesInputOrder(t *testing.T) {
	factory := func(ctx context.Context, task schemas.Task) (Executor, func(), error) {
		return funcExecutor(func(ctx context.Context, task schemas.Task) schemas.TaskResult {
			return schemas.TaskResult{TaskID: task.ID, Status: schemas.TaskSuccess}
		}), func() {}, nil
	}

	r := New(factory, config.RunnerConfig{Concurrency: 3}, zaptest.NewLogger(t))
	tasks := makeTasks(5)
	results := r.RunAll(context.Background(), tasks)

	require.Len(t, results, 5)
	for i, res := range results {
		assert.Equal(t, tasks[i].ID, res.TaskID)
		assert.Equal(t, schemas.TaskSuccess, res.Status)
	}
}

func TestRunAllBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32

	factory := func(ctx context.Context, task schemas.Task) (Executor, func(), error) {
		return funcExecutor(func(ctx context.Context, task schemas.Task) schemas.TaskResult {
			cur := inFlight.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
			return schemas.TaskResult{TaskID: task.ID, Status: schemas.TaskSuccess}
		}), func() {}, nil
	}

	r := New(factory, config.RunnerConfig{Concurrency: 2}, zaptest.NewLogger(t))
	r.RunAll(context.Background(), makeTasks(6))

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunAllFactoryFailureAbortsOnlyThatTask(t *testing.T) {
	factory := func(ctx context.Context, task schemas.Task) (Executor, func(), error) {
		if task.ID == "b" {
			return nil, nil, errors.New("browser refused to launch")
		}
		return funcExecutor(func(ctx context.Context, task schemas.Task) schemas.TaskResult {
			return schemas.TaskResult{TaskID: task.ID, Status: schemas.TaskSuccess}
		}), func() {}, nil
	}

	r := New(factory, config.RunnerConfig{Concurrency: 1}, zaptest.NewLogger(t))
	results := r.RunAll(context.Background(), makeTasks(3))

	require.Len(t, results, 3)
	assert.Equal(t, schemas.TaskSuccess, results[0].Status)
	assert.Equal(t, schemas.TaskAborted, results[1].Status)
	assert.Contains(t, results[1].Reason, "executor setup failed")
	assert.Equal(t, schemas.TaskSuccess, results[2].Status)
}

func TestRunAllCleanupAlwaysRuns(t *testing.T) {
	var mu sync.Mutex
	cleaned := map[string]bool{}

	factory := func(ctx context.Context, task schemas.Task) (Executor, func(), error) {
		return funcExecutor(func(ctx context.Context, task schemas.Task) schemas.TaskResult {
			return schemas.TaskResult{TaskID: task.ID, Status: schemas.TaskFailed}
		}), func() {
			mu.Lock()
			cleaned[task.ID] = true
			mu.Unlock()
		}, nil
	}

	r := New(factory, config.RunnerConfig{Concurrency: 2}, zaptest.NewLogger(t))
	tasks := makeTasks(4)
	r.RunAll(context.Background(), tasks)

	for _, task := range tasks {
		assert.True(t, cleaned[task.ID], "cleanup must run for task %s", task.ID)
	}
}

func TestRunAllCancelledContextSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var built atomic.Int32
	factory := func(ctx context.Context, task schemas.Task) (Executor, func(), error) {
		built.Add(1)
		return funcExecutor(func(ctx context.Context, task schemas.Task) schemas.TaskResult {
			return schemas.TaskResult{TaskID: task.ID, Status: schemas.TaskSuccess}
		}), func() {}, nil
	}

	r := New(factory, config.RunnerConfig{Concurrency: 2}, zaptest.NewLogger(t))
	results := r.RunAll(ctx, makeTasks(3))

	assert.Equal(t, int32(0), built.Load())
	for _, res := range results {
		assert.Equal(t, schemas.TaskAborted, res.Status)
		assert.Contains(t, res.Reason, "cancelled")
	}
}
