// internal/state/detector_test.go
package state

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

// fakeInspector returns canned query results, with per-query error injection.
type fakeInspector struct {
	modals    []schemas.ModalInfo
	forms     []schemas.FormField
	dropdowns []schemas.DropdownInfo
	loading   bool

	url, title, hash string

	modalsErr, formsErr, dropdownsErr, loadingErr, pageErr error
}

func (f *fakeInspector) QueryModals(_ context.Context) ([]schemas.ModalInfo, error) {
	return f.modals, f.modalsErr
}

func (f *fakeInspector) QueryForms(_ context.Context) ([]schemas.FormField, error) {
	return f.forms, f.formsErr
}

func (f *fakeInspector) QueryDropdowns(_ context.Context) ([]schemas.DropdownInfo, error) {
	return f.dropdowns, f.dropdownsErr
}

func (f *fakeInspector) QueryLoading(_ context.Context) (bool, error) {
	return f.loading, f.loadingErr
}

func (f *fakeInspector) PageInfo(_ context.Context) (string, string, string, error) {
	return f.url, f.title, f.hash, f.pageErr
}

func TestCaptureBuildsFullSnapshot(t *testing.T) {
	inspector := &fakeInspector{
		url:    "https://tracker.test/projects",
		title:  "Projects",
		hash:   "abc123",
		modals: []schemas.ModalInfo{{Role: "dialog", Title: "New project"}},
		forms: []schemas.FormField{
			{Name: "name", Kind: "input", Filled: true, Value: "Apollo"},
			{Name: "description", Kind: "textarea"},
		},
		dropdowns: []schemas.DropdownInfo{{Role: "listbox", Label: "Status"}},
		loading:   true,
	}
	d := NewDetector(inspector, zaptest.NewLogger(t))

	s, err := d.Capture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "https://tracker.test/projects", s.URL)
	assert.Equal(t, "abc123", s.PageHash)
	assert.Len(t, s.Modals, 1)
	assert.Len(t, s.Forms, 2)
	assert.Len(t, s.Dropdowns, 1)
	assert.True(t, s.Loading)
}

func TestCaptureIsDeterministicForUnchangedPage(t *testing.T) {
	inspector := &fakeInspector{
		url:  "https://tracker.test/issues",
		hash: "stable",
		forms: []schemas.FormField{
			{Name: "z_field", Kind: "input"},
			{Name: "a_field", Kind: "input", Filled: true, Value: "x"},
		},
		modals: []schemas.ModalInfo{
			{Role: "dialog", Title: "Settings"},
			{Role: "dialog", Title: "Settings"}, // Duplicate from overlapping selectors.
		},
	}
	d := NewDetector(inspector, zaptest.NewLogger(t))

	first, err := d.Capture(context.Background())
	require.NoError(t, err)
	second, err := d.Capture(context.Background())
	require.NoError(t, err)

	assert.True(t, first.Equal(second), "identical pages must produce identical snapshots")
	assert.Len(t, first.Modals, 1, "duplicate modal descriptors are collapsed")
	assert.Equal(t, "a_field", first.Forms[0].Name, "fields are sorted into a stable order")
}

func TestCaptureDegradesPartialFailures(t *testing.T) {
	inspector := &fakeInspector{
		url:       "https://tracker.test/home",
		hash:      "h",
		modalsErr: errors.New("script blew up"),
		formsErr:  errors.New("script blew up"),
	}
	d := NewDetector(inspector, zaptest.NewLogger(t))

	s, err := d.Capture(context.Background())
	require.NoError(t, err)
	assert.Empty(t, s.Modals)
	assert.Empty(t, s.Forms)
	assert.Equal(t, "https://tracker.test/home", s.URL)
}

func TestCaptureFailsWithoutPageInfo(t *testing.T) {
	inspector := &fakeInspector{pageErr: errors.New("target crashed")}
	d := NewDetector(inspector, zaptest.NewLogger(t))

	_, err := d.Capture(context.Background())
	assert.ErrorContains(t, err, "page info")
}

func TestDescribe(t *testing.T) {
	s := schemas.UIState{
		URL:    "https://tracker.test/projects",
		Modals: []schemas.ModalInfo{{Role: "dialog", Title: "New project"}},
		Forms: []schemas.FormField{
			{Name: "name", Filled: true, Value: "Apollo"},
			{Name: "description"},
		},
		Loading: true,
	}

	out := Describe(s)
	assert.Contains(t, out, "https://tracker.test/projects")
	assert.Contains(t, out, `"New project"`)
	assert.Contains(t, out, "1 form field(s) filled")
	assert.Contains(t, out, "1 empty form field(s) visible")
	assert.Contains(t, out, "loading")
}
