// api/schemas/compare.go
package schemas

// Equal reports structural equality of two snapshots. It is the basis of
// stall detection, so it must be deterministic: two captures of an unchanged
// page compare equal.
func (s UIState) Equal(o UIState) bool {
	if s.URL != o.URL || s.Title != o.Title || s.Loading != o.Loading || s.PageHash != o.PageHash {
		return false
	}
	if len(s.Modals) != len(o.Modals) || len(s.Forms) != len(o.Forms) || len(s.Dropdowns) != len(o.Dropdowns) {
		return false
	}
	for i := range s.Modals {
		if s.Modals[i] != o.Modals[i] {
			return false
		}
	}
	for i := range s.Forms {
		if s.Forms[i] != o.Forms[i] {
			return false
		}
	}
	for i := range s.Dropdowns {
		if s.Dropdowns[i] != o.Dropdowns[i] {
			return false
		}
	}
	return true
}

// FieldByName returns the first form field whose name, label or aria text
// matches the given name (case-insensitive, see normalization in
// internal/subgoal). Exact name matches are preferred.
func (s UIState) FieldByName(name string) (FormField, bool) {
	for _, f := range s.Forms {
		if f.Name == name {
			return f, true
		}
	}
	for _, f := range s.Forms {
		if f.Label == name {
			return f, true
		}
	}
	return FormField{}, false
}

// HasModal reports whether any modal is currently visible.
func (s UIState) HasModal() bool { return len(s.Modals) > 0 }
