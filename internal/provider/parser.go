// internal/provider/parser.go
package provider

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

var bracketID = regexp.MustCompile(`\[(\d+)\]`)
var bareID = regexp.MustCompile(`(\d+)`)

// ParseAction turns the provider's raw text reply into a structured action.
// The grammar is one line, "ACTION: <verb> [args]", but replies are parsed
// tolerantly: markdown fences, leading reasoning and verb synonyms are
// accepted. A reply that cannot be mapped to any verb comes back as
// Unrecognized so the loop can re-prompt once instead of guessing.
func ParseAction(raw string) schemas.Action {
	action := schemas.Action{Type: schemas.ActionUnrecognized, Raw: raw}

	line := raw
	if idx := strings.LastIndex(raw, "ACTION:"); idx >= 0 {
		action.Reasoning = strings.TrimSpace(raw[:idx])
		line = raw[idx+len("ACTION:"):]
	}
	line = strings.TrimSpace(strings.ReplaceAll(line, "`", ""))
	if line == "" {
		return action
	}

	main, rest, hasRest := strings.Cut(line, ";")
	main = strings.TrimSpace(main)
	rest = strings.TrimSpace(rest)

	fields := strings.Fields(main)
	if len(fields) == 0 {
		return action
	}
	verb := strings.ToLower(fields[0])
	switch verb {
	case "click":
		parseIndexed(&action, schemas.ActionClick, main)
	case "type":
		parseIndexed(&action, schemas.ActionTypeText, main)
		action.Text = rest
	case "select":
		parseIndexed(&action, schemas.ActionSelectOption, main)
		action.Option = rest
	case "scroll":
		action.Type = schemas.ActionScroll
		if strings.Contains(strings.ToLower(line), "down") {
			action.Direction = schemas.ScrollDown
		} else {
			action.Direction = schemas.ScrollUp
		}
	case "wait":
		action.Type = schemas.ActionWait
	case "finish":
		action.Type = schemas.ActionFinish
		action.Summary = rest
		if action.Summary == "" {
			action.Summary = "Task completed"
		}
	default:
		// Shorthand replies such as "Answer: finish" or JSON-ish
		// fragments still carry a usable verb somewhere in the line.
		parseLoose(&action, main, rest, hasRest)
	}
	return action
}

func parseIndexed(action *schemas.Action, t schemas.ActionType, main string) {
	idx, ok := extractElementID(main)
	if !ok {
		return
	}
	action.Type = t
	action.Index = idx
}

// parseLoose recovers a verb embedded in an otherwise malformed line.
func parseLoose(action *schemas.Action, main, rest string, hasRest bool) {
	lowered := strings.ToLower(main)
	switch {
	case strings.Contains(lowered, "finish"):
		action.Type = schemas.ActionFinish
		action.Summary = rest
		if action.Summary == "" {
			action.Summary = "Task completed"
		}
	case strings.Contains(lowered, "click"):
		parseIndexed(action, schemas.ActionClick, main)
	case strings.Contains(lowered, "type"):
		parseIndexed(action, schemas.ActionTypeText, main)
		if hasRest {
			action.Text = rest
		}
	case strings.Contains(lowered, "scroll"):
		action.Type = schemas.ActionScroll
		if strings.Contains(lowered, "down") {
			action.Direction = schemas.ScrollDown
		} else {
			action.Direction = schemas.ScrollUp
		}
	case strings.Contains(lowered, "wait"):
		action.Type = schemas.ActionWait
	}
}

// extractElementID pulls the numeric mark out of an action line, preferring
// the bracketed form over any bare number.
func extractElementID(text string) (int, bool) {
	m := bracketID.FindStringSubmatch(text)
	if m == nil {
		m = bareID.FindStringSubmatch(text)
	}
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
