// internal/browser/actuator.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

const (
	defaultScrollAmount = 600
	defaultWaitDuration = 3 * time.Second
	focusSettle         = 150 * time.Millisecond
)

// Actuator dispatches parsed actions as raw CDP input events at element
// coordinates. It never queries the DOM by selector; the element list from
// the last annotation pass is the only addressing it understands.
type Actuator struct {
	session *Session
	logger  *zap.Logger
}

var _ schemas.Actuator = (*Actuator)(nil)

// Screenshot returns the current viewport as PNG bytes.
func (a *Actuator) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := a.session.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}
	return buf, nil
}

// CurrentURL returns the address shown in the location bar.
func (a *Actuator) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := a.session.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("location query failed: %w", err)
	}
	return url, nil
}

// Execute performs the given action against the current page. Failures of the
// action itself come back in the outcome; an error return means the browser
// session is broken.
func (a *Actuator) Execute(ctx context.Context, action schemas.Action, elements []schemas.BBoxElement) (schemas.ActionOutcome, error) {
	actCtx, cancel := context.WithTimeout(ctx, a.session.cfg.ActionTimeout)
	defer cancel()

	switch action.Type {
	case schemas.ActionClick:
		return a.click(actCtx, action, elements)
	case schemas.ActionTypeText:
		return a.typeText(actCtx, action, elements)
	case schemas.ActionSelectOption:
		return a.selectOption(actCtx, action, elements)
	case schemas.ActionScroll:
		return a.scroll(actCtx, action)
	case schemas.ActionWait:
		return a.wait(actCtx, action)
	default:
		return schemas.ActionOutcome{
			Success:     false,
			Observation: fmt.Sprintf("Unsupported action %q", action.Type),
			ErrorCode:   schemas.ErrCodeUnsupportedAction,
		}, nil
	}
}

func (a *Actuator) element(action schemas.Action, elements []schemas.BBoxElement) (schemas.BBoxElement, bool) {
	for _, el := range elements {
		if el.Index == action.Index {
			return el, true
		}
	}
	return schemas.BBoxElement{}, false
}

func (a *Actuator) click(ctx context.Context, action schemas.Action, elements []schemas.BBoxElement) (schemas.ActionOutcome, error) {
	el, ok := a.element(action, elements)
	if !ok {
		return outOfRange(action.Index), nil
	}

	a.logger.Debug("Clicking element",
		zap.Int("index", el.Index),
		zap.String("text", el.Text),
		zap.Float64("x", el.CenterX),
		zap.Float64("y", el.CenterY))

	if err := a.session.run(ctx, chromedp.MouseClickXY(el.CenterX, el.CenterY)); err != nil {
		if ctx.Err() != nil && a.session.ctx.Err() != nil {
			return schemas.ActionOutcome{}, err
		}
		return schemas.ActionOutcome{
			Success:     false,
			Observation: fmt.Sprintf("Click on element %d failed", el.Index),
			ErrorCode:   schemas.ErrCodeClickFailed,
			ErrorDetail: err.Error(),
		}, nil
	}
	return schemas.ActionOutcome{
		Success:     true,
		Observation: fmt.Sprintf("Clicked element %d: %s", el.Index, describeElement(el)),
	}, nil
}

// typeText focuses the element by clicking its center, clears any existing
// content with select-all plus delete, then inserts the text in one event.
// InsertText mirrors a paste, which keeps frameworks' input handlers firing
// once instead of per keystroke.
func (a *Actuator) typeText(ctx context.Context, action schemas.Action, elements []schemas.BBoxElement) (schemas.ActionOutcome, error) {
	el, ok := a.element(action, elements)
	if !ok {
		return outOfRange(action.Index), nil
	}

	a.logger.Debug("Typing into element",
		zap.Int("index", el.Index),
		zap.String("text", action.Text))

	err := a.session.run(ctx,
		chromedp.MouseClickXY(el.CenterX, el.CenterY),
		chromedp.Sleep(focusSettle),
		chromedp.KeyEvent("a", chromedp.KeyModifiers(input.ModifierCtrl)),
		chromedp.KeyEvent(kb.Delete),
		chromedp.ActionFunc(func(c context.Context) error {
			return input.InsertText(action.Text).Do(c)
		}),
	)
	if err != nil {
		if ctx.Err() != nil && a.session.ctx.Err() != nil {
			return schemas.ActionOutcome{}, err
		}
		return schemas.ActionOutcome{
			Success:     false,
			Observation: fmt.Sprintf("Typing into element %d failed", el.Index),
			ErrorCode:   schemas.ErrCodeTypeFailed,
			ErrorDetail: err.Error(),
		}, nil
	}
	return schemas.ActionOutcome{
		Success:     true,
		Observation: fmt.Sprintf("Typed '%s' into element %d", action.Text, el.Index),
	}, nil
}

// selectOption opens the element's menu with a click and then clicks the
// entry whose text matches the requested option.
func (a *Actuator) selectOption(ctx context.Context, action schemas.Action, elements []schemas.BBoxElement) (schemas.ActionOutcome, error) {
	el, ok := a.element(action, elements)
	if !ok {
		return outOfRange(action.Index), nil
	}

	openErr := a.session.run(ctx,
		chromedp.MouseClickXY(el.CenterX, el.CenterY),
		chromedp.Sleep(focusSettle),
	)
	if openErr == nil {
		var clicked bool
		openErr = a.session.run(ctx,
			chromedp.Evaluate(clickMenuOptionJS(action.Option), &clicked),
		)
		if openErr == nil && !clicked {
			openErr = fmt.Errorf("no open menu entry matches %q", action.Option)
		}
	}
	if openErr != nil {
		if ctx.Err() != nil && a.session.ctx.Err() != nil {
			return schemas.ActionOutcome{}, openErr
		}
		return schemas.ActionOutcome{
			Success:     false,
			Observation: fmt.Sprintf("Selecting '%s' on element %d failed", action.Option, el.Index),
			ErrorCode:   schemas.ErrCodeSelectFailed,
			ErrorDetail: openErr.Error(),
		}, nil
	}
	return schemas.ActionOutcome{
		Success:     true,
		Observation: fmt.Sprintf("Selected '%s' on element %d", action.Option, el.Index),
	}, nil
}

func (a *Actuator) scroll(ctx context.Context, action schemas.Action) (schemas.ActionOutcome, error) {
	amount := float64(action.Amount)
	if amount == 0 {
		amount = defaultScrollAmount
	}
	if action.Direction == schemas.ScrollUp {
		amount = -amount
	}

	w := float64(a.session.cfg.ViewportWidth) / 2
	h := float64(a.session.cfg.ViewportHeight) / 2
	err := a.session.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		return input.DispatchMouseEvent(input.MouseWheel, w, h).
			WithDeltaX(0).
			WithDeltaY(amount).
			Do(c)
	}))
	if err != nil {
		if ctx.Err() != nil && a.session.ctx.Err() != nil {
			return schemas.ActionOutcome{}, err
		}
		return schemas.ActionOutcome{
			Success:     false,
			Observation: "Scroll failed",
			ErrorCode:   schemas.ErrCodeScrollFailed,
			ErrorDetail: err.Error(),
		}, nil
	}
	return schemas.ActionOutcome{
		Success:     true,
		Observation: fmt.Sprintf("Scrolled %s", action.Direction),
	}, nil
}

func (a *Actuator) wait(ctx context.Context, action schemas.Action) (schemas.ActionOutcome, error) {
	d := action.Duration
	if d <= 0 {
		d = defaultWaitDuration
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
		return schemas.ActionOutcome{}, ctx.Err()
	}
	return schemas.ActionOutcome{
		Success:     true,
		Observation: fmt.Sprintf("Waited %s", d),
	}, nil
}

func outOfRange(index int) schemas.ActionOutcome {
	return schemas.ActionOutcome{
		Success:     false,
		Observation: fmt.Sprintf("Element %d is not on the page", index),
		ErrorCode:   schemas.ErrCodeElementOutOfRange,
	}
}

func describeElement(el schemas.BBoxElement) string {
	text := strings.TrimSpace(el.Text)
	if text == "" {
		text = strings.TrimSpace(el.AriaLabel)
	}
	if len(text) > 50 {
		text = text[:50]
	}
	if text == "" {
		return el.Kind
	}
	return text
}

// clickMenuOptionJS clicks the first visible entry of an open menu or listbox
// whose text contains the requested option, case-insensitively.
func clickMenuOptionJS(option string) string {
	return fmt.Sprintf(`(function() {
		const want = %q.toLowerCase();
		const entries = document.querySelectorAll(
			'[role="option"], [role="menuitem"], [role="menuitemradio"], [role="menuitemcheckbox"], [role="listbox"] *, [role="menu"] *');
		for (const entry of entries) {
			const rect = entry.getBoundingClientRect();
			if (rect.width === 0 || rect.height === 0) continue;
			const text = (entry.innerText || '').trim().toLowerCase();
			if (text && text.includes(want)) {
				entry.click();
				return true;
			}
		}
		return false;
	})()`, option)
}
