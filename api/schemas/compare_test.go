// api/schemas/compare_test.go
package schemas

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() UIState {
	return UIState{
		URL:      "https://tracker.test/projects",
		Title:    "Projects",
		PageHash: "abc",
		Modals:   []ModalInfo{{Role: "dialog", Title: "New project"}},
		Forms: []FormField{
			{Name: "name", Label: "Name", Kind: "input", Filled: true, Value: "Apollo"},
			{Name: "description", Label: "Description", Kind: "textarea"},
		},
		Dropdowns: []DropdownInfo{{Role: "listbox", Label: "Status"}},
	}
}

func TestUIStateEqual(t *testing.T) {
	a := sampleState()
	b := sampleState()
	assert.True(t, a.Equal(b))
	assert.Empty(t, cmp.Diff(a, b), "Equal must agree with structural comparison")
}

func TestUIStateEqualDetectsEveryField(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*UIState)
	}{
		{"url", func(s *UIState) { s.URL = "https://tracker.test/issues" }},
		{"title", func(s *UIState) { s.Title = "Issues" }},
		{"hash", func(s *UIState) { s.PageHash = "other" }},
		{"loading", func(s *UIState) { s.Loading = true }},
		{"modal title", func(s *UIState) { s.Modals[0].Title = "Edit project" }},
		{"modal count", func(s *UIState) { s.Modals = nil }},
		{"field value", func(s *UIState) { s.Forms[0].Value = "Artemis" }},
		{"field fill state", func(s *UIState) { s.Forms[1].Filled = true }},
		{"dropdown", func(s *UIState) { s.Dropdowns[0].Label = "Priority" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := sampleState()
			b := sampleState()
			tc.mutate(&b)
			assert.False(t, a.Equal(b))
			assert.NotEmpty(t, cmp.Diff(a, b))
		})
	}
}

func TestFieldByNamePrefersExactName(t *testing.T) {
	s := UIState{Forms: []FormField{
		{Name: "title", Label: "name"},
		{Name: "name", Label: "Project name", Value: "Apollo"},
	}}

	f, ok := s.FieldByName("name")
	require.True(t, ok)
	assert.Equal(t, "Apollo", f.Value, "name attribute beats label match")

	f, ok = s.FieldByName("Project name")
	require.True(t, ok)
	assert.Equal(t, "name", f.Name)

	_, ok = s.FieldByName("missing")
	assert.False(t, ok)
}

func TestHasModal(t *testing.T) {
	assert.False(t, UIState{}.HasModal())
	assert.True(t, UIState{Modals: []ModalInfo{{Role: "dialog"}}}.HasModal())
}
