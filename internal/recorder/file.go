// internal/recorder/file.go

// Package recorder persists the step trace of a run. Two backends exist: a
// per-task dataset directory of JSON artifacts plus screenshots, and a
// Postgres table pair for fleet-scale collection.
package recorder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FileRecorder writes one dataset directory per task: step_NN.json and
// step_NN.png per executed step, plus metadata.json with the final result
// and the full step list.
type FileRecorder struct {
	root   string
	logger *zap.Logger

	mu    sync.Mutex
	steps map[string][]schemas.StepRecord
}

var _ schemas.Recorder = (*FileRecorder)(nil)

// NewFileRecorder creates the output root if needed.
func NewFileRecorder(root string, logger *zap.Logger) (*FileRecorder, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileRecorder{
		root:   root,
		logger: logger.Named("recorder.file"),
		steps:  make(map[string][]schemas.StepRecord),
	}, nil
}

func (r *FileRecorder) taskDir(taskID string) string {
	return filepath.Join(r.root, taskID)
}

// RecordStep writes the step artifact and its screenshot immediately, so a
// crashed or cancelled run still leaves a usable partial dataset.
func (r *FileRecorder) RecordStep(ctx context.Context, taskID string, rec schemas.StepRecord) error {
	dir := r.taskDir(taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create task directory: %w", err)
	}

	if len(rec.Screenshot) > 0 {
		name := fmt.Sprintf("step_%02d.png", rec.Step)
		if err := os.WriteFile(filepath.Join(dir, name), rec.Screenshot, 0o644); err != nil {
			return fmt.Errorf("failed to write screenshot: %w", err)
		}
		rec.ScreenshotRef = name
	}

	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal step record: %w", err)
	}
	name := fmt.Sprintf("step_%02d.json", rec.Step)
	if err := os.WriteFile(filepath.Join(dir, name), payload, 0o644); err != nil {
		return fmt.Errorf("failed to write step record: %w", err)
	}

	r.mu.Lock()
	r.steps[taskID] = append(r.steps[taskID], rec)
	r.mu.Unlock()

	r.logger.Debug("Step recorded", zap.String("task_id", taskID), zap.Int("step", rec.Step))
	return nil
}

// Finalize writes metadata.json summarising the whole run.
func (r *FileRecorder) Finalize(ctx context.Context, result schemas.TaskResult) error {
	dir := r.taskDir(result.TaskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create task directory: %w", err)
	}

	r.mu.Lock()
	if len(result.Steps) == 0 {
		result.Steps = r.steps[result.TaskID]
	}
	delete(r.steps, result.TaskID)
	r.mu.Unlock()

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal task result: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), payload, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	r.logger.Info("Task trace finalized",
		zap.String("task_id", result.TaskID),
		zap.String("status", string(result.Status)),
		zap.Int("steps", len(result.Steps)))
	return nil
}
