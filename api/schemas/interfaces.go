// api/schemas/interfaces.go
package schemas

import "context"

// Annotator discovers the interactive elements on the current page and assigns
// them fresh numeric marks. It must not mutate the page's visual presentation
// in a way that affects subsequent layout measurement, and the returned
// indices are only valid until the next annotation pass.
type Annotator interface {
	Annotate(ctx context.Context) ([]BBoxElement, error)
}

// Actuator executes primitive browser actions and exposes the raw page
// observation primitives the engine needs between actions.
type Actuator interface {
	// Screenshot returns the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
	// CurrentURL returns the address shown in the location bar.
	CurrentURL(ctx context.Context) (string, error)
	// Execute performs the given action. Actuation failures are reported in
	// the outcome, not as an error; errors are reserved for transport-level
	// breakage of the browser session itself.
	Execute(ctx context.Context, action Action, elements []BBoxElement) (ActionOutcome, error)
}

// DecisionRequest is the composed, bounded-size request sent to the vision
// decision provider for one step.
type DecisionRequest struct {
	Objective  string            // The task's natural-language goal.
	URL        string            // Current address, for context only.
	Screenshot []byte            // Annotated PNG handed to the vision model.
	Elements   []BBoxElement     // Element list matching the screenshot marks.
	Parameters map[string]string // Exact values the task must use.
	Hint       string            // Guidance from the sub-goal manager, may be empty.
	History    []HistoryEntry    // Recent actions, newest last, already bounded.
	Corrective bool              // True when re-prompting after an unparseable reply.
}

// HistoryEntry is one line of recent-action context in a decision request.
type HistoryEntry struct {
	Step        int
	Action      ActionType
	Observation string
}

// DecisionProvider is the vision model behind the loop. Decide returns the raw
// text reply; parsing into an Action is the engine's concern. Implementations
// must classify failures so the retry layer can distinguish transient errors
// (timeouts, rate limits) from permanent ones.
type DecisionProvider interface {
	Decide(ctx context.Context, req DecisionRequest) (string, error)
}

// Recorder persists the step trace. The engine calls RecordStep after every
// executed step and Finalize exactly once, including on cancellation, so that
// partial traces survive.
type Recorder interface {
	RecordStep(ctx context.Context, taskID string, rec StepRecord) error
	Finalize(ctx context.Context, result TaskResult) error
}

// Inspector exposes the DOM query primitives the state detector is built on.
// The queries are owned by the browser adapter; the detector only assembles
// their results into a UIState value.
type Inspector interface {
	QueryModals(ctx context.Context) ([]ModalInfo, error)
	QueryForms(ctx context.Context) ([]FormField, error)
	QueryDropdowns(ctx context.Context) ([]DropdownInfo, error)
	QueryLoading(ctx context.Context) (bool, error)
	PageInfo(ctx context.Context) (url, title, textHash string, err error)
}
