// internal/engine/engine.go
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/solenoidlabs/webpilot/api/schemas"
	"github.com/solenoidlabs/webpilot/internal/annotate"
	"github.com/solenoidlabs/webpilot/internal/config"
	"github.com/solenoidlabs/webpilot/internal/provider"
	"github.com/solenoidlabs/webpilot/internal/state"
	"github.com/solenoidlabs/webpilot/internal/subgoal"
	"github.com/solenoidlabs/webpilot/internal/task"
)

const annotateRetryDelay = 500 * time.Millisecond

// StateCapturer assembles a UIState snapshot of the current page.
type StateCapturer interface {
	Capture(ctx context.Context) (schemas.UIState, error)
}

// Deps are the collaborators one engine run is wired to. Each task run owns
// its own browser-bound collaborators; only the decision provider may be
// shared, and then it carries its own rate discipline.
type Deps struct {
	Detector  StateCapturer
	Annotator schemas.Annotator
	Actuator  schemas.Actuator
	Provider  schemas.DecisionProvider
	Recorder  schemas.Recorder
}

// Engine executes one task as a sequential step loop.
type Engine struct {
	cfg    config.EngineConfig
	deps   Deps
	logger *zap.Logger

	// mark paints element numbers onto a screenshot. Swappable in tests.
	mark func([]byte, []schemas.BBoxElement) ([]byte, error)
}

// New builds an engine for one or more sequential runs with the same wiring.
func New(cfg config.EngineConfig, deps Deps, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		deps:   deps,
		logger: logger.Named("engine"),
		mark:   annotate.DrawMarks,
	}
}

// Run drives the task to a terminal result. All step-local failures are
// absorbed; the returned result is the only way a run ends. The recorder is
// finalized even when the context is cancelled mid-run.
func (e *Engine) Run(ctx context.Context, t schemas.Task) schemas.TaskResult {
	logger := e.logger.With(zap.String("task_id", t.ID))

	goals := task.BuildGoals(t)
	mgr := subgoal.NewManager(goals, e.cfg.GoalAttemptBudget, logger)
	logger.Info("Task started",
		zap.String("objective", t.Objective),
		zap.Int("goals", len(goals)))

	result := schemas.TaskResult{TaskID: t.ID}
	defer func() {
		// Flush must survive cancellation of the run context.
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := e.deps.Recorder.Finalize(flushCtx, result); err != nil {
			logger.Error("Failed to finalize task trace", zap.Error(err))
		}
		logger.Info("Task finished",
			zap.String("status", string(result.Status)),
			zap.String("reason", result.Reason),
			zap.Int("steps", len(result.Steps)))
	}()

	prev, err := e.deps.Detector.Capture(ctx)
	if err != nil {
		result.Status = schemas.TaskAborted
		result.Reason = fmt.Sprintf("initial state capture failed: %v", err)
		return result
	}

	var history []schemas.HistoryEntry
	stall := 0
	nextHint := ""

	for step := 1; step <= e.cfg.MaxSteps; step++ {
		if ctx.Err() != nil {
			result.Status = schemas.TaskAborted
			result.Reason = "cancelled between steps"
			return result
		}

		elements := e.annotateWithRetry(ctx, logger)
		screenshot, err := e.screenshot(ctx, elements, logger)
		if err != nil {
			result.Status = schemas.TaskAborted
			result.Reason = fmt.Sprintf("browser session failed: %v", err)
			return result
		}

		hint := mgr.Guidance(prev)
		if nextHint != "" {
			hint = hint + " " + nextHint
			nextHint = ""
		}
		req := schemas.DecisionRequest{
			Objective:  t.Objective,
			URL:        prev.URL,
			Screenshot: screenshot,
			Elements:   elements,
			Parameters: t.Parameters,
			Hint:       hint,
			History:    history,
		}

		action, ok, err := e.decide(ctx, req)
		if err != nil {
			result.Status = schemas.TaskAborted
			result.Reason = fmt.Sprintf("decision provider exhausted its retries: %v", err)
			return result
		}
		if !ok {
			result.Status = schemas.TaskAborted
			result.Reason = "provider reply unusable after corrective re-prompt"
			return result
		}

		activeGoal, _ := mgr.Active()

		var outcome schemas.ActionOutcome
		if action.Type == schemas.ActionFinish {
			if reason := mgr.BlockFinishReason(prev); reason != "" {
				outcome = schemas.ActionOutcome{
					Success:     false,
					Observation: "Finish rejected: " + reason,
				}
				nextHint = "Do not finish yet: " + reason + "."
				logger.Debug("Finish blocked", zap.String("reason", reason))
			} else {
				rec := e.record(ctx, t.ID, step, action, prev, screenshot, activeGoal.ID,
					"Finished: "+action.Summary, schemas.Transition{}, logger)
				result.Steps = append(result.Steps, rec)
				result.Status = schemas.TaskSuccess
				return result
			}
		} else {
			outcome, err = e.deps.Actuator.Execute(ctx, action, elements)
			if err != nil {
				result.Status = schemas.TaskAborted
				result.Reason = fmt.Sprintf("browser session failed: %v", err)
				return result
			}
		}

		e.settle(ctx)

		cur, err := e.deps.Detector.Capture(ctx)
		if err != nil {
			result.Status = schemas.TaskAborted
			result.Reason = fmt.Sprintf("state capture failed: %v", err)
			return result
		}

		delta := state.Diff(prev, cur)
		transition := schemas.Transition{
			URLChanged: prev.URL != cur.URL,
			DOMChanged: prev.PageHash != cur.PageHash,
		}

		advance := mgr.Advance(prev, cur)

		rec := e.record(ctx, t.ID, step, action, cur, screenshot, activeGoal.ID,
			outcome.Observation, transition, logger)
		result.Steps = append(result.Steps, rec)

		history = append(history, schemas.HistoryEntry{
			Step:        step,
			Action:      action.Type,
			Observation: outcome.Observation,
		})
		if len(history) > e.cfg.HistoryWindow {
			history = history[len(history)-e.cfg.HistoryWindow:]
		}

		switch advance {
		case subgoal.TaskComplete:
			result.Status = schemas.TaskSuccess
			return result
		case subgoal.GoalFailed:
			failed, _ := mgr.FailedGoal()
			result.Status = schemas.TaskFailed
			result.Reason = fmt.Sprintf("sub-goal %q exhausted its attempt budget", failed.Description)
			return result
		}

		if delta.Empty() {
			stall++
		} else {
			stall = 0
		}
		if stall >= e.cfg.StallThreshold {
			result.Status = schemas.TaskFailed
			result.Reason = fmt.Sprintf("stalled: no UI change across %d consecutive steps", stall)
			return result
		}

		prev = cur
	}

	result.Status = schemas.TaskAborted
	result.Reason = fmt.Sprintf("step ceiling of %d reached", e.cfg.MaxSteps)
	return result
}

// annotateWithRetry runs the annotation pass, retrying once after a short
// wait on failure or an empty element list, then degrades to an empty list.
func (e *Engine) annotateWithRetry(ctx context.Context, logger *zap.Logger) []schemas.BBoxElement {
	var elements []schemas.BBoxElement
	err := Retry(ctx, 2, annotateRetryDelay, nil, func() error {
		passCtx := ctx
		if e.cfg.AnnotateTimeout > 0 {
			var cancel context.CancelFunc
			passCtx, cancel = context.WithTimeout(ctx, e.cfg.AnnotateTimeout)
			defer cancel()
		}
		var opErr error
		elements, opErr = e.deps.Annotator.Annotate(passCtx)
		if opErr != nil {
			return opErr
		}
		if len(elements) == 0 {
			return fmt.Errorf("annotation returned no elements")
		}
		return nil
	})
	if err != nil {
		logger.Warn("Annotation degraded to an empty element list", zap.Error(err))
		return nil
	}
	return elements
}

// screenshot captures the viewport and paints the element marks on a copy.
func (e *Engine) screenshot(ctx context.Context, elements []schemas.BBoxElement, logger *zap.Logger) ([]byte, error) {
	shot, err := e.deps.Actuator.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	marked, err := e.mark(shot, elements)
	if err != nil {
		logger.Warn("Mark drawing failed, sending the clean screenshot", zap.Error(err))
		return shot, nil
	}
	return marked, nil
}

// decide asks the provider for an action and validates it against the element
// list. An unrecognized or out-of-range reply gets exactly one corrective
// re-prompt; ok=false means both replies were unusable.
func (e *Engine) decide(ctx context.Context, req schemas.DecisionRequest) (schemas.Action, bool, error) {
	raw, err := e.deps.Provider.Decide(ctx, req)
	if err != nil {
		return schemas.Action{}, false, err
	}
	action := provider.ParseAction(raw)
	if validAction(action, req.Elements) {
		return action, true, nil
	}

	e.logger.Debug("Provider reply rejected, re-prompting",
		zap.String("action_type", string(action.Type)),
		zap.Int("index", action.Index),
		zap.String("raw", action.Raw))

	req.Corrective = true
	raw, err = e.deps.Provider.Decide(ctx, req)
	if err != nil {
		return schemas.Action{}, false, err
	}
	action = provider.ParseAction(raw)
	if !validAction(action, req.Elements) {
		return schemas.Action{}, false, nil
	}
	return action, true, nil
}

// validAction rejects unrecognized replies and indexed actions whose target
// is not on the current element list. Invalid actions are never dispatched.
func validAction(action schemas.Action, elements []schemas.BBoxElement) bool {
	switch action.Type {
	case schemas.ActionUnrecognized:
		return false
	case schemas.ActionClick, schemas.ActionTypeText, schemas.ActionSelectOption:
		return action.Index >= 0 && action.Index < len(elements)
	default:
		return true
	}
}

// settle waits for asynchronous UI updates to render before observing.
func (e *Engine) settle(ctx context.Context) {
	if e.cfg.SettleDelay <= 0 {
		return
	}
	select {
	case <-time.After(e.cfg.SettleDelay):
	case <-ctx.Done():
	}
}

func (e *Engine) record(ctx context.Context, taskID string, step int, action schemas.Action,
	st schemas.UIState, screenshot []byte, goalID, observation string,
	transition schemas.Transition, logger *zap.Logger) schemas.StepRecord {

	rec := schemas.StepRecord{
		Step:        step,
		Action:      action,
		State:       st,
		Screenshot:  screenshot,
		Timestamp:   time.Now().UTC(),
		SubGoalID:   goalID,
		Observation: observation,
		Transition:  transition,
	}
	if err := e.deps.Recorder.RecordStep(ctx, taskID, rec); err != nil {
		logger.Error("Failed to record step", zap.Int("step", step), zap.Error(err))
	}
	return rec
}
