// internal/subgoal/predicates_test.go
package subgoal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

func stateWithModal(title string) schemas.UIState {
	return schemas.UIState{
		URL:    "https://app.example.com/projects",
		Modals: []schemas.ModalInfo{{Role: "dialog", Title: title}},
	}
}

func plainState(url string) schemas.UIState {
	return schemas.UIState{URL: url}
}

func TestModalAppearedAndDisappeared(t *testing.T) {
	before := plainState("https://app.example.com/projects")
	after := stateWithModal("Create Project")

	appeared := BuildPredicate(schemas.PredModalAppeared, "", "")
	gone := BuildPredicate(schemas.PredModalDisappeared, "", "")

	assert.True(t, appeared(before, after))
	assert.False(t, appeared(after, after), "already-open modal is not an appearance")
	assert.True(t, gone(after, before))
	assert.False(t, gone(before, before))
}

func TestFieldFilledMatchesNameOrLabel(t *testing.T) {
	pred := BuildPredicate(schemas.PredFieldFilled, "description", "")

	cur := schemas.UIState{Forms: []schemas.FormField{
		{Name: "desc-1", Label: "Project Description", Filled: true, Value: "launch plan"},
	}}
	assert.True(t, pred(schemas.UIState{}, cur), "label substring should match")

	cur.Forms[0].Filled = false
	assert.False(t, pred(schemas.UIState{}, cur))
}

func TestFieldMatchesIgnoresFieldName(t *testing.T) {
	// Creation dialogs often render unnamed inputs; a value match anywhere
	// on the form counts.
	pred := BuildPredicate(schemas.PredFieldMatches, "name", "Q3 Roadmap")

	cur := schemas.UIState{Forms: []schemas.FormField{
		{Name: "", Label: "", Filled: true, Value: "Q3 Roadmap"},
	}}
	assert.True(t, pred(schemas.UIState{}, cur))

	cur.Forms[0].Value = "Q3 Roadmap draft"
	assert.False(t, pred(schemas.UIState{}, cur), "value match is exact")
}

func TestAddressPredicates(t *testing.T) {
	a := plainState("https://app.example.com/projects")
	b := plainState("https://app.example.com/projects/42")

	changed := BuildPredicate(schemas.PredAddressChanged, "", "")
	assert.True(t, changed(a, b))
	assert.False(t, changed(a, a))
	assert.False(t, changed(plainState(""), b), "no baseline address, no change")

	contains := BuildPredicate(schemas.PredAddressContains, "", "/projects/42")
	assert.True(t, contains(a, b))
	assert.False(t, contains(a, a))
}

func TestTextVisibleNormalizes(t *testing.T) {
	pred := BuildPredicate(schemas.PredTextVisible, "", "In Progress")

	cur := schemas.UIState{Dropdowns: []schemas.DropdownInfo{{Role: "combobox", Label: "in-progress"}}}
	assert.True(t, pred(schemas.UIState{}, cur))

	cur = schemas.UIState{Title: "Backlog"}
	assert.False(t, pred(schemas.UIState{}, cur))
}

func TestDateVisibleSynonyms(t *testing.T) {
	cases := []struct {
		name    string
		target  string
		visible string
		want    bool
	}{
		{"abbreviated month", "December 12, 2025", "Dec 12, 2025", true},
		{"full month", "Dec 12 2025", "December 12, 2025", true},
		{"leading zero day", "Dec 05 2025", "Dec 5 2025", true},
		{"wrong day", "December 12, 2025", "Dec 13, 2025", false},
		{"tokens split across fragments", "December 12, 2025", "December", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pred := BuildPredicate(schemas.PredDateVisible, "", tc.target)
			cur := schemas.UIState{Forms: []schemas.FormField{
				{Label: "Target date", Value: tc.visible, Filled: true},
			}}
			assert.Equal(t, tc.want, pred(schemas.UIState{}, cur))
		})
	}
}

func TestUnknownKindNeverFires(t *testing.T) {
	pred := BuildPredicate(schemas.PredicateKind("no-such-kind"), "", "")
	require.NotNil(t, pred)
	assert.False(t, pred(plainState("a"), stateWithModal("b")))
}
