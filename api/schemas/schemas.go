// api/schemas/schemas.go
package schemas

import (
	"time"
)

// TaskStatus is the terminal outcome of a task run.
type TaskStatus string

const (
	TaskSuccess TaskStatus = "SUCCESS" // Every sub-goal completed.
	TaskFailed  TaskStatus = "FAILED"  // A bounded budget was exhausted (stall, attempts).
	TaskAborted TaskStatus = "ABORTED" // An unrecoverable adapter failure (provider outage, parse ceiling, step ceiling).
)

// Task defines the objective and parameters for one automation run. It is
// created once from an externally parsed query and is immutable afterwards.
type Task struct {
	ID         string            `json:"id"`         // Unique identifier for this run.
	Objective  string            `json:"objective"`  // Natural-language goal handed to the decision provider.
	App        string            `json:"app"`        // Target application name (linear, notion, ...).
	StartURL   string            `json:"start_url"`  // Address the browser session opens first.
	Parameters map[string]string `json:"parameters"` // Structured values extracted from the query (project_name, status, ...).
}

// SubGoalStatus tracks the lifecycle of one sub-goal. Transitions only move
// forward: Pending -> Active -> Completed or Failed.
type SubGoalStatus string

const (
	SubGoalPending   SubGoalStatus = "PENDING"
	SubGoalActive    SubGoalStatus = "ACTIVE"
	SubGoalCompleted SubGoalStatus = "COMPLETED"
	SubGoalFailed    SubGoalStatus = "FAILED"
)

// PredicateKind names one of the closed set of completion heuristics. Each kind
// is a pure check over a pair of UI states.
type PredicateKind string

const (
	PredModalAppeared    PredicateKind = "modal_appeared"
	PredModalDisappeared PredicateKind = "modal_disappeared"
	PredFieldFilled      PredicateKind = "field_filled"
	PredFieldMatches     PredicateKind = "field_matches"
	PredAddressChanged   PredicateKind = "address_changed"
	PredAddressContains  PredicateKind = "address_contains"
	PredTextVisible      PredicateKind = "text_visible"
	PredDateVisible      PredicateKind = "date_visible"
	// PredSubmitComplete holds until every earlier goal is done and no
	// dialog remains open. It anchors the end of form tasks.
	PredSubmitComplete PredicateKind = "submit_complete"
)

// SubGoal is one checkable milestone within a task. It is owned and mutated
// exclusively by the sub-goal manager.
type SubGoal struct {
	ID          string        `json:"id"`
	Description string        `json:"description"`           // Human-readable milestone text.
	Predicate   PredicateKind `json:"predicate"`             // Completion heuristic kind.
	Field       string        `json:"field,omitempty"`       // Field name for field_* predicates.
	Value       string        `json:"value,omitempty"`       // Target value or substring, predicate dependent.
	Hint        string        `json:"hint,omitempty"`        // Action guidance appended to the decision prompt.
	Attempts    int           `json:"attempts"`              // Steps spent while this goal was active.
	MaxAttempts int           `json:"max_attempts"`          // Attempt budget before the goal fails.
	Status      SubGoalStatus `json:"status"`
}

// BBoxElement describes one interactive element found during an annotation
// pass. Indices are dense, zero-based and reassigned on every pass; they must
// never be carried across steps.
type BBoxElement struct {
	Index     int     `json:"index"`
	CenterX   float64 `json:"center_x"`
	CenterY   float64 `json:"center_y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Text      string  `json:"text"`       // Visible text, truncated.
	Role      string  `json:"role"`       // ARIA role when present.
	AriaLabel string  `json:"aria_label"`
	Kind      string  `json:"kind"` // Element kind: button, link, input, textarea, select, ...
}

// ModalInfo describes a visible dialog or overlay.
type ModalInfo struct {
	Role  string `json:"role"`  // dialog, modal or overlay.
	Title string `json:"title"` // Heading text, truncated, may be empty.
}

// FormField describes one visible input-like control and its fill state.
type FormField struct {
	Name      string `json:"name"`       // name attribute, may be empty.
	Label     string `json:"label"`      // Associated label or aria-label.
	Kind      string `json:"kind"`       // input, textarea or select.
	InputType string `json:"input_type"` // type attribute for inputs.
	Filled    bool   `json:"filled"`
	Value     string `json:"value"` // Current value, truncated; empty when unsafe to read.
}

// DropdownInfo describes an open dropdown or expanded menu.
type DropdownInfo struct {
	Role  string `json:"role"` // listbox, menu or expanded.
	Label string `json:"label"`
}

// UIState is a structured snapshot of the page after an action. It is a value
// type; two snapshots are compared structurally to detect "no visible change",
// which is what makes stall detection possible on apps that never change the
// address bar.
type UIState struct {
	URL       string         `json:"url"`
	Title     string         `json:"title"`
	Modals    []ModalInfo    `json:"modals"`
	Forms     []FormField    `json:"forms"`
	Dropdowns []DropdownInfo `json:"dropdowns"`
	Loading   bool           `json:"loading"`
	PageHash  string         `json:"page_hash"` // Hash of the visible text, for cheap change detection.
}

// ActionType enumerates the primitive actions the decision provider may pick.
type ActionType string

const (
	ActionClick        ActionType = "click"
	ActionTypeText     ActionType = "type"
	ActionScroll       ActionType = "scroll"
	ActionWait         ActionType = "wait"
	ActionSelectOption ActionType = "select"
	ActionFinish       ActionType = "finish"
	ActionUnrecognized ActionType = "unrecognized"
)

// ScrollDirection for scroll actions.
type ScrollDirection string

const (
	ScrollUp   ScrollDirection = "up"
	ScrollDown ScrollDirection = "down"
)

// Action is the parsed form of the decision provider's reply. Which fields are
// meaningful depends on Type; Raw always carries the unparsed reply text.
type Action struct {
	Type      ActionType      `json:"type"`
	Index     int             `json:"index,omitempty"`     // Element index for click/type/select.
	Text      string          `json:"text,omitempty"`      // Text payload for type actions.
	Option    string          `json:"option,omitempty"`    // Option value for select actions.
	Direction ScrollDirection `json:"direction,omitempty"` // Scroll direction.
	Amount    int             `json:"amount,omitempty"`    // Scroll amount in pixels.
	Duration  time.Duration   `json:"duration,omitempty"`  // Wait duration.
	Summary   string          `json:"summary,omitempty"`   // Completion summary for finish actions.
	Reasoning string          `json:"reasoning,omitempty"` // Free-text rationale preceding the action line.
	Raw       string          `json:"raw,omitempty"`       // Original reply text.
}

// Structured failure codes carried in ActionOutcome and TaskResult reasons.
const (
	ErrCodeElementOutOfRange = "ELEMENT_OUT_OF_RANGE"
	ErrCodeClickFailed       = "CLICK_FAILED"
	ErrCodeTypeFailed        = "TYPE_FAILED"
	ErrCodeScrollFailed      = "SCROLL_FAILED"
	ErrCodeSelectFailed      = "SELECT_FAILED"
	ErrCodeUnsupportedAction = "UNSUPPORTED_ACTION"
)

// ActionOutcome reports whether the actuator managed to perform an action.
type ActionOutcome struct {
	Success     bool   `json:"success"`
	Observation string `json:"observation"`          // Human-readable description of what happened.
	ErrorCode   string `json:"error_code,omitempty"` // Structured failure code.
	ErrorDetail string `json:"error_detail,omitempty"`
}

// Transition captures what changed between two consecutive steps.
type Transition struct {
	URLChanged bool `json:"url_changed"`
	DOMChanged bool `json:"dom_changed"`
}

// StepRecord is the immutable record of one executed step. Records are
// appended by the execution loop and consumed by the recorder adapter.
type StepRecord struct {
	Step          int        `json:"step"` // 1-based step number.
	Action        Action     `json:"action"`
	State         UIState    `json:"ui_state"`
	Screenshot    []byte     `json:"-"`          // Annotated PNG bytes, persisted by the recorder backend.
	ScreenshotRef string     `json:"screenshot"` // File name or key assigned by the recorder backend.
	Timestamp     time.Time  `json:"timestamp"`
	SubGoalID     string     `json:"subgoal_id"` // Goal that was active when the step ran.
	Observation   string     `json:"observation"`
	Transition    Transition `json:"transition"`
}

// TaskResult is the terminal outcome of a run together with its full step
// trace. Reason is human readable and empty only on success.
type TaskResult struct {
	TaskID string       `json:"task_id"`
	Status TaskStatus   `json:"status"`
	Steps  []StepRecord `json:"steps"`
	Reason string       `json:"reason,omitempty"`
}
