// internal/state/diff.go
package state

import (
	"strings"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

// Delta describes what changed between two consecutive snapshots. An empty
// delta is the unit of stall detection: enough of them in a row and the task
// is going nowhere.
type Delta struct {
	AddedModals   []schemas.ModalInfo
	RemovedModals []schemas.ModalInfo
	FilledFields  []string // Names/labels of fields that went empty -> filled.
	URLChanged    bool
	HashChanged   bool
}

// Empty reports whether the delta carries no observable change.
func (d Delta) Empty() bool {
	return len(d.AddedModals) == 0 &&
		len(d.RemovedModals) == 0 &&
		len(d.FilledFields) == 0 &&
		!d.URLChanged &&
		!d.HashChanged
}

// Summary renders the delta for logs and step records.
func (d Delta) Summary() string {
	if d.Empty() {
		return "no change"
	}
	var parts []string
	for _, m := range d.AddedModals {
		parts = append(parts, "modal opened: "+m.Title)
	}
	for _, m := range d.RemovedModals {
		parts = append(parts, "modal closed: "+m.Title)
	}
	for _, f := range d.FilledFields {
		parts = append(parts, "field filled: "+f)
	}
	if d.URLChanged {
		parts = append(parts, "address changed")
	}
	if d.HashChanged {
		parts = append(parts, "content changed")
	}
	return strings.Join(parts, ", ")
}

// Diff computes the delta from snapshot a to snapshot b.
func Diff(a, b schemas.UIState) Delta {
	delta := Delta{
		URLChanged:  a.URL != b.URL,
		HashChanged: a.PageHash != b.PageHash,
	}

	prevModals := make(map[schemas.ModalInfo]struct{}, len(a.Modals))
	for _, m := range a.Modals {
		prevModals[m] = struct{}{}
	}
	curModals := make(map[schemas.ModalInfo]struct{}, len(b.Modals))
	for _, m := range b.Modals {
		curModals[m] = struct{}{}
		if _, ok := prevModals[m]; !ok {
			delta.AddedModals = append(delta.AddedModals, m)
		}
	}
	for _, m := range a.Modals {
		if _, ok := curModals[m]; !ok {
			delta.RemovedModals = append(delta.RemovedModals, m)
		}
	}

	// Track empty -> filled transitions by field identity (name, falling
	// back to label). Fields that disappear or appear filled from nowhere
	// are content changes, already covered by the hash.
	prevFilled := make(map[string]bool, len(a.Forms))
	for _, f := range a.Forms {
		prevFilled[fieldKey(f)] = f.Filled
	}
	for _, f := range b.Forms {
		key := fieldKey(f)
		if f.Filled {
			if wasFilled, known := prevFilled[key]; known && !wasFilled {
				delta.FilledFields = append(delta.FilledFields, key)
			}
		}
	}

	return delta
}

func fieldKey(f schemas.FormField) string {
	if f.Name != "" {
		return f.Name
	}
	return f.Label
}
