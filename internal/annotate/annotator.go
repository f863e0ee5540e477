// internal/annotate/annotator.go

// Package annotate discovers the interactive elements on the current page and
// draws their numbered marks onto screenshots. Discovery is a read-only
// JavaScript pass; marks are painted on the image copy, never on the DOM, so
// annotation cannot disturb the page the next step observes.
package annotate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

// Evaluator runs a JavaScript expression in the live page. The browser
// session satisfies this.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, out any) error
}

// Annotator implements schemas.Annotator over an Evaluator.
type Annotator struct {
	page        Evaluator
	maxElements int
	logger      *zap.Logger
}

var _ schemas.Annotator = (*Annotator)(nil)

// New builds an annotator that returns at most maxElements elements per pass.
func New(page Evaluator, maxElements int, logger *zap.Logger) *Annotator {
	return &Annotator{
		page:        page,
		maxElements: maxElements,
		logger:      logger.Named("annotator"),
	}
}

// discoverJS collects the visible interactive elements with their geometry.
// Only elements with positive size whose center sits inside the viewport are
// returned; indices are assigned by the caller so they stay dense after
// truncation.
const discoverJS = `(function() {
	const selectors = 'a, button, input, textarea, select, [role="button"], [role="link"], [role="menuitem"], [role="option"], [role="combobox"], [role="checkbox"], [role="radio"], [role="tab"], [contenteditable="true"], [onclick], [tabindex]:not([tabindex="-1"])';
	const seen = new Set();
	const out = [];
	for (const el of document.querySelectorAll(selectors)) {
		if (seen.has(el)) continue;
		seen.add(el);
		const rect = el.getBoundingClientRect();
		if (rect.width === 0 || rect.height === 0) continue;
		const cx = rect.x + rect.width / 2;
		const cy = rect.y + rect.height / 2;
		if (cx < 0 || cy < 0 || cx > window.innerWidth || cy > window.innerHeight) continue;
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden' || style.pointerEvents === 'none') continue;
		let kind = el.tagName.toLowerCase();
		if (kind === 'input') kind = 'input';
		else if (kind === 'a') kind = 'link';
		else if (!['button', 'textarea', 'select'].includes(kind)) {
			kind = el.getAttribute('role') || 'clickable';
		}
		out.push({
			center_x: cx,
			center_y: cy,
			width: rect.width,
			height: rect.height,
			text: (el.innerText || el.value || '').trim().slice(0, 120),
			role: el.getAttribute('role') || '',
			aria_label: el.getAttribute('aria-label') || '',
			kind: kind,
		});
	}
	return out;
})()`

// Annotate runs one discovery pass. The returned indices are dense and only
// valid until the next pass.
func (a *Annotator) Annotate(ctx context.Context) ([]schemas.BBoxElement, error) {
	var elements []schemas.BBoxElement
	if err := a.page.Evaluate(ctx, discoverJS, &elements); err != nil {
		return nil, fmt.Errorf("element discovery failed: %w", err)
	}

	if a.maxElements > 0 && len(elements) > a.maxElements {
		elements = elements[:a.maxElements]
	}
	for i := range elements {
		elements[i].Index = i
	}

	a.logger.Debug("Annotation pass complete", zap.Int("elements", len(elements)))
	return elements, nil
}
