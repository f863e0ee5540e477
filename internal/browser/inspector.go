// internal/browser/inspector.go
package browser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

// Inspector implements schemas.Inspector with in-page JavaScript queries.
// Each query is independent so the state detector can degrade gracefully when
// a single probe fails.
type Inspector struct {
	session *Session
}

var _ schemas.Inspector = (*Inspector)(nil)

// queryModalsJS finds visible dialogs by ARIA role, common modal class
// patterns and bare backdrops. Elements smaller than 10x10 px are artifacts
// and skipped.
const queryModalsJS = `(function() {
	const out = [];
	const visible = (el) => {
		const rect = el.getBoundingClientRect();
		if (rect.width < 10 || rect.height < 10) return false;
		const style = window.getComputedStyle(el);
		return style.display !== 'none' && style.visibility !== 'hidden';
	};
	const titleOf = (el) => {
		const h = el.querySelector('h1, h2, h3, [class*="title"], [class*="heading"]');
		return h ? (h.innerText || '').trim().slice(0, 100) : '';
	};
	for (const dialog of document.querySelectorAll('[role="dialog"]')) {
		if (visible(dialog)) out.push({role: 'dialog', title: titleOf(dialog)});
	}
	if (out.length === 0) {
		const modalSelectors = '[class*="modal"][class*="open"], [class*="Modal"][class*="visible"], [data-state="open"], [aria-modal="true"]';
		for (const el of document.querySelectorAll(modalSelectors)) {
			if (visible(el)) { out.push({role: 'modal', title: titleOf(el)}); break; }
		}
	}
	if (out.length === 0) {
		const overlay = document.querySelector('[class*="overlay"], [class*="backdrop"]');
		if (overlay && visible(overlay)) out.push({role: 'overlay', title: ''});
	}
	return out;
})()`

// queryFormsJS lists visible input-like controls with their fill state.
// Password values are never read out.
const queryFormsJS = `(function() {
	const out = [];
	for (const el of document.querySelectorAll('input, textarea, select, [contenteditable="true"]')) {
		const rect = el.getBoundingClientRect();
		if (rect.width === 0 || rect.height === 0) continue;
		const tag = el.tagName.toLowerCase();
		const type = (el.getAttribute('type') || '').toLowerCase();
		if (type === 'hidden') continue;
		let label = el.getAttribute('aria-label') || el.getAttribute('placeholder') || '';
		if (!label && el.id) {
			const forLabel = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
			if (forLabel) label = (forLabel.innerText || '').trim();
		}
		let value = '';
		if (tag === 'input' || tag === 'textarea' || tag === 'select') {
			value = el.value || '';
		} else {
			value = (el.innerText || '').trim();
		}
		if (type === 'password') value = '';
		out.push({
			name: el.getAttribute('name') || '',
			label: label.slice(0, 100),
			kind: tag === 'input' || tag === 'textarea' || tag === 'select' ? tag : 'editable',
			input_type: type,
			filled: value.trim().length > 0,
			value: value.slice(0, 200),
		});
	}
	return out;
})()`

// queryDropdownsJS reports expanded controls and open listboxes or menus.
const queryDropdownsJS = `(function() {
	const out = [];
	const visible = (el) => {
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	};
	for (const el of document.querySelectorAll('[aria-expanded="true"]')) {
		if (visible(el)) out.push({role: 'expanded', label: el.getAttribute('aria-label') || (el.innerText || '').trim().slice(0, 100)});
	}
	for (const el of document.querySelectorAll('[role="listbox"], [role="menu"]')) {
		if (visible(el)) out.push({role: el.getAttribute('role'), label: el.getAttribute('aria-label') || ''});
	}
	return out;
})()`

// queryLoadingJS checks the common loading indicator patterns.
const queryLoadingJS = `(function() {
	const selectors = ['[class*="loading"]', '[class*="spinner"]', '[aria-busy="true"]', '[class*="skeleton"]', '[data-loading="true"]'];
	for (const selector of selectors) {
		for (const el of document.querySelectorAll(selector)) {
			const rect = el.getBoundingClientRect();
			if (rect.width > 0 && rect.height > 0) return true;
		}
	}
	return false;
})()`

func (i *Inspector) QueryModals(ctx context.Context) ([]schemas.ModalInfo, error) {
	var modals []schemas.ModalInfo
	if err := i.session.run(ctx, chromedp.Evaluate(queryModalsJS, &modals)); err != nil {
		return nil, fmt.Errorf("modal query failed: %w", err)
	}
	return modals, nil
}

func (i *Inspector) QueryForms(ctx context.Context) ([]schemas.FormField, error) {
	var forms []schemas.FormField
	if err := i.session.run(ctx, chromedp.Evaluate(queryFormsJS, &forms)); err != nil {
		return nil, fmt.Errorf("form query failed: %w", err)
	}
	return forms, nil
}

func (i *Inspector) QueryDropdowns(ctx context.Context) ([]schemas.DropdownInfo, error) {
	var dropdowns []schemas.DropdownInfo
	if err := i.session.run(ctx, chromedp.Evaluate(queryDropdownsJS, &dropdowns)); err != nil {
		return nil, fmt.Errorf("dropdown query failed: %w", err)
	}
	return dropdowns, nil
}

func (i *Inspector) QueryLoading(ctx context.Context) (bool, error) {
	var loading bool
	if err := i.session.run(ctx, chromedp.Evaluate(queryLoadingJS, &loading)); err != nil {
		return false, fmt.Errorf("loading query failed: %w", err)
	}
	return loading, nil
}

// PageInfo returns the address, title and a digest of the page's visible text.
// The digest is what makes DOM change detection cheap between steps.
func (i *Inspector) PageInfo(ctx context.Context) (string, string, string, error) {
	var url, title, text string
	err := i.session.run(ctx,
		chromedp.Location(&url),
		chromedp.Title(&title),
		chromedp.Evaluate(`document.body ? (document.body.innerText || '') : ''`, &text),
	)
	if err != nil {
		return "", "", "", fmt.Errorf("page info query failed: %w", err)
	}
	sum := sha256.Sum256([]byte(text))
	return url, title, hex.EncodeToString(sum[:]), nil
}
