// internal/state/detector.go
package state

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

// Detector assembles structured UI snapshots from the browser adapter's raw
// inspection primitives. It owns no DOM access of its own; everything it
// reports comes from the Inspector. Captures are deterministic for an
// unchanged page, which stall detection depends on.
type Detector struct {
	inspector schemas.Inspector
	logger    *zap.Logger
}

// NewDetector creates a detector over the given inspector.
func NewDetector(inspector schemas.Inspector, logger *zap.Logger) *Detector {
	return &Detector{
		inspector: inspector,
		logger:    logger.Named("state_detector"),
	}
}

// Capture builds a UIState snapshot of the current page. Individual query
// failures degrade that portion of the snapshot to empty rather than failing
// the capture; only a failure to read the address is terminal, since every
// downstream consumer keys off it.
func (d *Detector) Capture(ctx context.Context) (schemas.UIState, error) {
	url, title, hash, err := d.inspector.PageInfo(ctx)
	if err != nil {
		return schemas.UIState{}, fmt.Errorf("failed to read page info: %w", err)
	}

	state := schemas.UIState{URL: url, Title: title, PageHash: hash}

	modals, err := d.inspector.QueryModals(ctx)
	if err != nil {
		d.logger.Warn("Modal detection failed, assuming none", zap.Error(err))
	} else {
		state.Modals = normalizeModals(modals)
	}

	forms, err := d.inspector.QueryForms(ctx)
	if err != nil {
		d.logger.Warn("Form detection failed, assuming none", zap.Error(err))
	} else {
		state.Forms = normalizeForms(forms)
	}

	dropdowns, err := d.inspector.QueryDropdowns(ctx)
	if err != nil {
		d.logger.Warn("Dropdown detection failed, assuming none", zap.Error(err))
	} else {
		state.Dropdowns = dropdowns
	}

	loading, err := d.inspector.QueryLoading(ctx)
	if err != nil {
		d.logger.Warn("Loading probe failed, assuming idle", zap.Error(err))
	} else {
		state.Loading = loading
	}

	return state, nil
}

// normalizeModals deduplicates and truncates modal descriptors so repeated
// captures of the same page produce identical slices.
func normalizeModals(modals []schemas.ModalInfo) []schemas.ModalInfo {
	seen := make(map[schemas.ModalInfo]struct{}, len(modals))
	out := make([]schemas.ModalInfo, 0, len(modals))
	for _, m := range modals {
		m.Title = truncate(strings.TrimSpace(m.Title), 100)
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// normalizeForms truncates values and sorts fields into a stable order. The
// inspector returns fields in document order, which is already stable for an
// unchanged page, but sorting defends against enumeration-order jitter in
// dynamically rendered apps.
func normalizeForms(forms []schemas.FormField) []schemas.FormField {
	out := make([]schemas.FormField, len(forms))
	for i, f := range forms {
		f.Value = truncate(f.Value, 200)
		f.Label = truncate(strings.TrimSpace(f.Label), 100)
		out[i] = f
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// Describe renders a short human-readable summary of a snapshot, used in logs
// and persisted step records.
func Describe(s schemas.UIState) string {
	parts := []string{fmt.Sprintf("Page: %s", s.URL)}

	switch n := len(s.Modals); {
	case n == 1:
		if title := s.Modals[0].Title; title != "" {
			parts = append(parts, fmt.Sprintf("%s opened: %q", s.Modals[0].Role, title))
		} else {
			parts = append(parts, fmt.Sprintf("%s is open", s.Modals[0].Role))
		}
	case n > 1:
		parts = append(parts, fmt.Sprintf("%d modals open", n))
	}

	var filled, empty int
	for _, f := range s.Forms {
		if f.Filled {
			filled++
		} else {
			empty++
		}
	}
	if filled > 0 {
		parts = append(parts, fmt.Sprintf("%d form field(s) filled", filled))
	}
	if empty > 0 {
		parts = append(parts, fmt.Sprintf("%d empty form field(s) visible", empty))
	}
	if n := len(s.Dropdowns); n > 0 {
		parts = append(parts, fmt.Sprintf("%d dropdown(s) open", n))
	}
	if s.Loading {
		parts = append(parts, "page is loading")
	}

	return strings.Join(parts, " | ")
}
