// internal/subgoal/manager.go
package subgoal

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

// Outcome classifies a single evaluation pass over the active goal.
type Outcome int

const (
	// StillActive means the active goal's predicate did not fire.
	StillActive Outcome = iota
	// GoalCompleted means the active goal completed and a successor was
	// activated.
	GoalCompleted
	// TaskComplete means the final goal completed and no goals remain.
	TaskComplete
	// GoalFailed means the active goal exhausted its attempt budget.
	GoalFailed
)

// Manager owns the ordered goal list and drives it strictly forward. At most
// one goal is active at any time; completed goals never reopen.
type Manager struct {
	goals  []schemas.SubGoal
	preds  []Predicate
	active int
	logger *zap.Logger
}

// NewManager binds predicates to each goal and activates the first one. Goals
// with a zero MaxAttempts inherit attemptBudget.
func NewManager(goals []schemas.SubGoal, attemptBudget int, logger *zap.Logger) *Manager {
	m := &Manager{
		goals:  make([]schemas.SubGoal, len(goals)),
		preds:  make([]Predicate, len(goals)),
		active: -1,
		logger: logger.Named("subgoal_manager"),
	}
	copy(m.goals, goals)
	for i := range m.goals {
		g := &m.goals[i]
		if g.MaxAttempts <= 0 {
			g.MaxAttempts = attemptBudget
		}
		g.Status = schemas.SubGoalPending
		if g.Predicate == schemas.PredSubmitComplete {
			m.preds[i] = m.submitComplete(i)
		} else {
			m.preds[i] = BuildPredicate(g.Predicate, g.Field, g.Value)
		}
	}
	if len(m.goals) > 0 {
		m.active = 0
		m.goals[0].Status = schemas.SubGoalActive
	}
	return m
}

// submitComplete succeeds when every preceding goal has completed and no
// dialog remains open. Requiring the siblings keeps a premature cancel (which
// also closes the dialog) from counting as success, while tasks that never
// open a dialog still land it once their other goals settle.
func (m *Manager) submitComplete(idx int) Predicate {
	return func(prev, cur schemas.UIState) bool {
		if cur.HasModal() {
			return false
		}
		for i := 0; i < idx; i++ {
			if m.goals[i].Status != schemas.SubGoalCompleted {
				return false
			}
		}
		return true
	}
}

// Active returns a copy of the in-flight goal, or false when all goals are
// settled.
func (m *Manager) Active() (schemas.SubGoal, bool) {
	if m.active < 0 || m.active >= len(m.goals) {
		return schemas.SubGoal{}, false
	}
	return m.goals[m.active], true
}

// Goals returns a snapshot of the full goal list with current statuses.
func (m *Manager) Goals() []schemas.SubGoal {
	out := make([]schemas.SubGoal, len(m.goals))
	copy(out, m.goals)
	return out
}

// Done reports whether every goal reached a terminal status.
func (m *Manager) Done() bool {
	return m.active < 0 || m.active >= len(m.goals)
}

// Advance evaluates the active goal against the latest snapshot pair. The
// evaluation is idempotent with respect to completed goals: once a goal is
// marked Completed it is never re-evaluated, so a later regression on the page
// cannot walk progress backwards.
func (m *Manager) Advance(prev, cur schemas.UIState) Outcome {
	if m.Done() {
		return TaskComplete
	}
	g := &m.goals[m.active]
	if m.preds[m.active](prev, cur) {
		g.Status = schemas.SubGoalCompleted
		m.logger.Info("Sub-goal completed",
			zap.String("goal_id", g.ID),
			zap.String("description", g.Description),
			zap.Int("attempts", g.Attempts))
		m.active++
		if m.active >= len(m.goals) {
			m.active = -1
			return TaskComplete
		}
		m.goals[m.active].Status = schemas.SubGoalActive
		return GoalCompleted
	}
	g.Attempts++
	if g.Attempts >= g.MaxAttempts {
		g.Status = schemas.SubGoalFailed
		m.logger.Warn("Sub-goal exhausted its attempt budget",
			zap.String("goal_id", g.ID),
			zap.String("description", g.Description),
			zap.Int("attempts", g.Attempts))
		return GoalFailed
	}
	return StillActive
}

// Guidance produces the per-goal steering text appended to the decision
// prompt. It names the active goal and, for field goals still unsatisfied in
// the current snapshot, tells the model the value it should be entering.
func (m *Manager) Guidance(cur schemas.UIState) string {
	g, ok := m.Active()
	if !ok {
		return "All required steps are satisfied. Verify the page reflects the result, then finish with a one-line summary."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Current step: %s.", g.Description)
	switch g.Predicate {
	case schemas.PredModalAppeared:
		b.WriteString(" Open the creation dialog; do not finish before it is visible.")
	case schemas.PredFieldFilled, schemas.PredFieldMatches:
		if g.Value != "" {
			fmt.Fprintf(&b, " Enter exactly %q into the %s field.", g.Value, g.Field)
		} else {
			fmt.Fprintf(&b, " Fill in the %s field.", g.Field)
		}
		if f, ok := cur.FieldByName(g.Field); ok && f.Filled {
			fmt.Fprintf(&b, " The field currently shows %q.", f.Value)
		}
	case schemas.PredTextVisible, schemas.PredDateVisible:
		fmt.Fprintf(&b, " Select or set it so that %q is shown on the page.", g.Value)
	case schemas.PredAddressContains:
		fmt.Fprintf(&b, " Navigate until the address contains %q.", g.Value)
	case schemas.PredSubmitComplete:
		b.WriteString(" Every field is set; press the confirm button that creates the item. Do not press cancel or close.")
	case schemas.PredModalDisappeared:
		b.WriteString(" Close the open dialog.")
	}
	if g.Hint != "" {
		b.WriteString(" ")
		b.WriteString(g.Hint)
	}
	if g.Attempts > 0 {
		fmt.Fprintf(&b, " This step has not completed after %d attempt(s); try a different element or approach.", g.Attempts)
	}
	return b.String()
}

// BlockFinishReason returns a non-empty reason when a finish decision must be
// rejected and fed back to the provider as a corrective. Finishing is blocked
// while a dialog is open, while any goal is unsettled, and while the page
// still reports loading activity.
func (m *Manager) BlockFinishReason(cur schemas.UIState) string {
	if cur.HasModal() {
		return "a dialog is still open; complete or close it before finishing"
	}
	if g, ok := m.Active(); ok {
		return fmt.Sprintf("the step %q is not complete yet", g.Description)
	}
	if cur.Loading {
		return "the page is still loading; wait for it to settle before finishing"
	}
	return ""
}

// FailedGoal returns the goal that ended the task, if any.
func (m *Manager) FailedGoal() (schemas.SubGoal, bool) {
	for _, g := range m.goals {
		if g.Status == schemas.SubGoalFailed {
			return g, true
		}
	}
	return schemas.SubGoal{}, false
}

// ProgressSummary renders a compact checklist for logs and prompts.
func (m *Manager) ProgressSummary() string {
	parts := make([]string, 0, len(m.goals))
	for _, g := range m.goals {
		mark := " "
		switch g.Status {
		case schemas.SubGoalCompleted:
			mark = "x"
		case schemas.SubGoalActive:
			mark = ">"
		case schemas.SubGoalFailed:
			mark = "!"
		}
		parts = append(parts, fmt.Sprintf("[%s] %s", mark, g.Description))
	}
	return strings.Join(parts, " | ")
}
