// internal/provider/prompt_test.go
package provider

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

func TestComposeIncludesElementsAndHint(t *testing.T) {
	prompt := Compose(schemas.DecisionRequest{
		Objective: "Create project 'Atlas'",
		URL:       "https://app.example.com/projects",
		Elements: []schemas.BBoxElement{
			{Index: 0, Kind: "button", Text: "Add project", AriaLabel: "Create new project", Role: "button"},
			{Index: 1, Kind: "input", Text: ""},
		},
		Parameters: map[string]string{"project_name": "Atlas"},
		Hint:       "Look for a button that opens the creation dialog.",
	})

	assert.Contains(t, prompt, "Your goal: Create project 'Atlas'")
	assert.Contains(t, prompt, "Current URL: https://app.example.com/projects")
	assert.Contains(t, prompt, `[0] button: "Add project" (aria: Create new project) (role: button)`)
	assert.Contains(t, prompt, "- project_name: Atlas")
	assert.Contains(t, prompt, "Look for a button that opens the creation dialog.")
	assert.Contains(t, prompt, "RECENT ACTIONS: None (first step)")
	assert.NotContains(t, prompt, "could not be executed")
}

func TestComposeCorrectivePreamble(t *testing.T) {
	prompt := Compose(schemas.DecisionRequest{Objective: "x", Corrective: true})
	assert.True(t, strings.HasPrefix(prompt, "Your previous reply could not be executed"))
}

func TestComposeCapsElementList(t *testing.T) {
	elements := make([]schemas.BBoxElement, 60)
	for i := range elements {
		elements[i] = schemas.BBoxElement{Index: i, Kind: "link", Text: fmt.Sprintf("item %d", i)}
	}
	prompt := Compose(schemas.DecisionRequest{Objective: "x", Elements: elements})

	assert.Contains(t, prompt, "[39] link")
	assert.NotContains(t, prompt, "[40] link")
}

func TestComposeHistoryFormatting(t *testing.T) {
	prompt := Compose(schemas.DecisionRequest{
		Objective: "x",
		History: []schemas.HistoryEntry{
			{Step: 1, Action: schemas.ActionClick, Observation: "Clicked element 3: Add project"},
			{Step: 2, Action: schemas.ActionWait},
		},
	})

	assert.Contains(t, prompt, "Step 1: click - Clicked element 3: Add project")
	assert.Contains(t, prompt, "Step 2: wait")
}

func TestComposeTruncatesLongText(t *testing.T) {
	prompt := Compose(schemas.DecisionRequest{
		Objective: "x",
		Elements: []schemas.BBoxElement{
			{Index: 0, Kind: "button", Text: strings.Repeat("a", 200)},
		},
	})
	assert.NotContains(t, prompt, strings.Repeat("a", 60))
}
