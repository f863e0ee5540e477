// internal/provider/parser_test.go
package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

func TestParseActionClick(t *testing.T) {
	a := ParseAction("The name field is empty, I should click it first.\nACTION: click [56]")
	assert.Equal(t, schemas.ActionClick, a.Type)
	assert.Equal(t, 56, a.Index)
	assert.Equal(t, "The name field is empty, I should click it first.", a.Reasoning)
}

func TestParseActionType(t *testing.T) {
	a := ParseAction("ACTION: type [12]; Q3 Roadmap; phase one")
	assert.Equal(t, schemas.ActionTypeText, a.Type)
	assert.Equal(t, 12, a.Index)
	// Only the first semicolon separates the verb from its payload.
	assert.Equal(t, "Q3 Roadmap; phase one", a.Text)
}

func TestParseActionSelect(t *testing.T) {
	a := ParseAction("ACTION: select [7]; In Progress")
	assert.Equal(t, schemas.ActionSelectOption, a.Type)
	assert.Equal(t, 7, a.Index)
	assert.Equal(t, "In Progress", a.Option)
}

func TestParseActionScroll(t *testing.T) {
	down := ParseAction("ACTION: scroll down")
	assert.Equal(t, schemas.ActionScroll, down.Type)
	assert.Equal(t, schemas.ScrollDown, down.Direction)

	up := ParseAction("ACTION: scroll up")
	assert.Equal(t, schemas.ScrollUp, up.Direction)
}

func TestParseActionFinish(t *testing.T) {
	a := ParseAction("ACTION: finish; Created project and set status")
	assert.Equal(t, schemas.ActionFinish, a.Type)
	assert.Equal(t, "Created project and set status", a.Summary)

	bare := ParseAction("ACTION: finish")
	assert.Equal(t, "Task completed", bare.Summary)
}

func TestParseActionMarkdownFences(t *testing.T) {
	a := ParseAction("ACTION: `click [3]`")
	assert.Equal(t, schemas.ActionClick, a.Type)
	assert.Equal(t, 3, a.Index)
}

func TestParseActionBareNumberFallback(t *testing.T) {
	a := ParseAction("ACTION: click 14")
	assert.Equal(t, schemas.ActionClick, a.Type)
	assert.Equal(t, 14, a.Index)
}

func TestParseActionLooseVerbRecovery(t *testing.T) {
	a := ParseAction("Answer: finish; all done")
	assert.Equal(t, schemas.ActionFinish, a.Type)
	assert.Equal(t, "all done", a.Summary)

	w := ParseAction("I think we should wait here")
	assert.Equal(t, schemas.ActionWait, w.Type)
}

func TestParseActionUnrecognized(t *testing.T) {
	cases := []string{
		"",
		"ACTION:",
		"ACTION: click",
		"{\"next\": \"unknown\"}",
	}
	for _, raw := range cases {
		a := ParseAction(raw)
		assert.Equal(t, schemas.ActionUnrecognized, a.Type, "input %q", raw)
		assert.Equal(t, raw, a.Raw)
	}
}
