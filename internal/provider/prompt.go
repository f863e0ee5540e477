// internal/provider/prompt.go

// Package provider implements the vision decision provider behind the
// execution loop: prompt composition, the Gemini transport, reply parsing
// into actions, and the shared rate-limited wrapper used by concurrent runs.
package provider

import (
	"fmt"
	"sort"
	"strings"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

const (
	maxElementsForContext = 40
	maxTextLength         = 50
	maxAriaLength         = 40
	maxObservationLength  = 60
)

const promptTemplate = `You are a web automation agent. Your goal: %s

Current URL: %s

This screenshot has RED NUMBERED BOXES in the TOP-LEFT corner of interactive elements.

Available interactive elements:
%s

Previous actions:
%s%s%s
CRITICAL RULES TO PREVENT LOOPS:
1. DON'T REPEAT YOURSELF
   - If history shows you already typed a value, do NOT type it again.
   - If a field already displays text, move on.
2. NEVER CLICK CANCEL (unless the task explicitly asks).
3. COMPLETE FORMS PROPERLY
   - In a dialog, fill required fields, then immediately click Create/Submit/Save.
   - Optional controls (icons, colors) are secondary.
4. DIALOG AWARENESS
   - Once a dialog is open, stay inside it until you submit it.
   - Do NOT reopen the same dialog unless it closed unexpectedly.
5. DETERMINE COMPLETION
   - If the dialog closes after submission and the list updates, call finish with a short summary.

AVAILABLE ACTIONS:
1. click [number] - Click the element with that number
2. type [number]; [text] - Type text (use the exact parameter values)
3. select [number]; [option] - Choose an option from the element's menu
4. scroll down/up - Scroll the page
5. wait - Wait 3 seconds
6. finish; [summary] - Task is complete

DECISION PROCESS (follow carefully):
1. Review RECENT ACTIONS to see what you just did.
2. Inspect the screenshot to confirm what changed.
3. If required fields are filled and there is a submit button, click it.
4. If a required field is empty, fill it once.
5. If the goal is met, respond with finish; <summary>.
6. Otherwise choose the best next step without repeating work.

Output format (single line):
ACTION: <action>

Examples:
- ACTION: click [56]
- ACTION: type [12]; second task
- ACTION: finish; Created project and updated status`

const correctivePreamble = `Your previous reply could not be executed. Reply with exactly one valid action line in the documented format, referencing only listed element numbers.

`

func truncateAt(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Compose renders the full user prompt for one decision request. The element
// list and history are already bounded by the caller; the hard caps here are
// a second line of defence against prompt blowup.
func Compose(req schemas.DecisionRequest) string {
	prompt := fmt.Sprintf(promptTemplate,
		req.Objective,
		req.URL,
		formatElements(req.Elements),
		formatHistory(req.History),
		formatParameters(req.Parameters),
		formatHint(req.Hint),
	)
	if req.Corrective {
		return correctivePreamble + prompt
	}
	return prompt
}

func formatElements(elements []schemas.BBoxElement) string {
	if len(elements) == 0 {
		return "No interactive elements detected."
	}
	if len(elements) > maxElementsForContext {
		elements = elements[:maxElementsForContext]
	}
	var b strings.Builder
	for i, el := range elements {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%d] %s: %q", el.Index, el.Kind, truncateAt(strings.TrimSpace(el.Text), maxTextLength))
		if aria := strings.TrimSpace(el.AriaLabel); aria != "" {
			fmt.Fprintf(&b, " (aria: %s)", truncateAt(aria, maxAriaLength))
		}
		if el.Role != "" {
			fmt.Fprintf(&b, " (role: %s)", el.Role)
		}
	}
	return b.String()
}

func formatHistory(history []schemas.HistoryEntry) string {
	if len(history) == 0 {
		return "RECENT ACTIONS: None (first step)\n"
	}
	lines := []string{"RECENT ACTIONS (what you just did):"}
	for _, entry := range history {
		if obs := truncateAt(entry.Observation, maxObservationLength); obs != "" {
			lines = append(lines, fmt.Sprintf("  Step %d: %s - %s", entry.Step, entry.Action, obs))
		} else {
			lines = append(lines, fmt.Sprintf("  Step %d: %s", entry.Step, entry.Action))
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

func formatParameters(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nTASK PARAMETERS (use these exact values):\n")
	for _, key := range sortedKeys(params) {
		if params[key] == "" {
			continue
		}
		fmt.Fprintf(&b, "  - %s: %s\n", key, params[key])
	}
	return b.String()
}

func formatHint(hint string) string {
	if hint == "" {
		return ""
	}
	return fmt.Sprintf("\nCONTEXT HINT:\n  - %s\n", hint)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
