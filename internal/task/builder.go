// internal/task/builder.go

// Package task decomposes an automation task into the ordered sub-goal list
// the execution loop drives. Decomposition is pure string work over the task
// objective and its extracted parameters; nothing here touches the browser.
package task

import (
	"fmt"
	"strings"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

// statusKeywords are workflow states recognised inside an objective when no
// explicit filter parameter was extracted.
var statusKeywords = []string{
	"backlog",
	"in progress",
	"in-progress",
	"todo",
	"to do",
	"completed",
	"done",
	"cancelled",
	"canceled",
	"blocked",
}

var createModifyWords = []string{"create", "add", "update", "change", "set", "modify"}

// firstParam returns the first non-blank parameter among the given aliases.
func firstParam(params map[string]string, aliases ...string) string {
	for _, key := range aliases {
		if v := strings.TrimSpace(params[key]); v != "" {
			return v
		}
	}
	return ""
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// BuildGoals derives the ordered sub-goal list for a task. The order is
// fixed: navigate, name, status, priority, target date, filter, description,
// submit. Only goals whose parameter is present are emitted, and the submit
// anchor is appended whenever any other goal exists.
func BuildGoals(t schemas.Task) []schemas.SubGoal {
	params := t.Parameters
	if params == nil {
		params = map[string]string{}
	}
	objective := strings.ToLower(t.Objective)

	isProject := strings.Contains(objective, "project")
	isIssue := strings.Contains(objective, "issue")
	isCreateModify := containsAny(objective, createModifyWords)

	var goals []schemas.SubGoal

	if isProject {
		goals = append(goals, schemas.SubGoal{
			ID:          "open_projects",
			Description: "Open the Projects view",
			Predicate:   schemas.PredAddressContains,
			Value:       "/project",
			Hint:        "Navigate to the Projects view from the sidebar.",
		})
	}

	if isCreateModify && (isProject || isIssue) {
		goals = append(goals, schemas.SubGoal{
			ID:          "open_dialog",
			Description: "Open the creation dialog",
			Predicate:   schemas.PredModalAppeared,
			Hint:        "Look for a button that opens the creation dialog.",
		})
	}

	nameValue := firstParam(params, "project_name", "issue_name", "issue_title", "name", "title")
	statusValue := firstParam(params, "status", "backlog_status", "backlog_progress", "progress", "workflow_state")
	priorityValue := firstParam(params, "priority", "importance", "urgency")
	targetValue := firstParam(params, "target_date", "due_date", "deadline")
	filterValue := firstParam(params, "filter", "filter_status")
	if filterValue == "" && !isCreateModify {
		filterValue = statusValue
	}
	descriptionValue := firstParam(params, "description", "project_description", "issue_description", "notes")

	if descriptionValue == "" && (isProject || isIssue) {
		if containsAny(objective, []string{"generate description", "add description", "create description", "with description"}) {
			obj := nameValue
			if obj == "" {
				obj = "project"
				if isIssue {
					obj = "issue"
				}
			}
			descriptionValue = fmt.Sprintf("Automated description for %s.", obj)
		}
	}

	// Filter tasks reuse the status parameter, or fall back to a keyword
	// named directly in the objective. Creation tasks keep status as a
	// field to set instead.
	if !isCreateModify && filterValue == "" {
		for _, keyword := range statusKeywords {
			if strings.Contains(objective, keyword) {
				filterValue = keyword
				break
			}
		}
	}

	if nameValue != "" {
		kind := "project"
		if isIssue {
			kind = "issue"
		}
		goals = append(goals, schemas.SubGoal{
			ID:          kind + "_name",
			Description: fmt.Sprintf("Set the %s name to %q", kind, nameValue),
			Predicate:   schemas.PredFieldMatches,
			Field:       "name",
			Value:       nameValue,
			Hint:        fmt.Sprintf("Type the %s name field with exactly %q before saving.", kind, nameValue),
		})
	}
	if statusValue != "" && isCreateModify {
		goals = append(goals, schemas.SubGoal{
			ID:          "status",
			Description: fmt.Sprintf("Set the status to %q", statusValue),
			Predicate:   schemas.PredTextVisible,
			Value:       statusValue,
			Hint:        "Click the status chip (e.g. \"Backlog\") to open its menu, then select the requested status.",
		})
	}
	if priorityValue != "" {
		goals = append(goals, schemas.SubGoal{
			ID:          "priority",
			Description: fmt.Sprintf("Set the priority to %q", priorityValue),
			Predicate:   schemas.PredTextVisible,
			Value:       priorityValue,
			Hint:        "Click the priority chip (e.g. \"No priority\") to open its menu, then select the requested priority.",
		})
	}
	if targetValue != "" {
		goals = append(goals, schemas.SubGoal{
			ID:          "target_date",
			Description: fmt.Sprintf("Set the target date to %q", targetValue),
			Predicate:   schemas.PredDateVisible,
			Value:       targetValue,
			Hint:        "Click the date control in the dialog and set it with the picker.",
		})
	}
	if filterValue != "" {
		goals = append(goals, schemas.SubGoal{
			ID:          "filter",
			Description: fmt.Sprintf("Apply the %q filter", filterValue),
			Predicate:   schemas.PredTextVisible,
			Value:       filterValue,
			Hint:        "Open the filter panel and apply the requested value.",
		})
	}
	if descriptionValue != "" {
		goals = append(goals, schemas.SubGoal{
			ID:          "description",
			Description: "Fill in the description",
			Predicate:   schemas.PredFieldFilled,
			Field:       "description",
			Value:       descriptionValue,
			Hint:        fmt.Sprintf("Type the description %q.", descriptionValue),
		})
	}

	if len(goals) > 0 {
		goals = append(goals, schemas.SubGoal{
			ID:          "submit",
			Description: "Submit and close the dialog",
			Predicate:   schemas.PredSubmitComplete,
			Hint:        "All required fields are satisfied. Click the primary submit or create button.",
		})
	}
	return goals
}
