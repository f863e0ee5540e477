// internal/subgoal/predicates.go
package subgoal

import (
	"strings"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

// Predicate is a pure completion check over a pair of consecutive snapshots.
// Pure means exactly that: no clocks, no randomness, no retained state, which
// is what lets every kind be unit tested in isolation.
type Predicate func(prev, cur schemas.UIState) bool

// BuildPredicate resolves a predicate kind and its arguments to a concrete
// check. Unknown kinds resolve to a never-true predicate so a misconfigured
// goal fails its attempt budget instead of silently passing.
func BuildPredicate(kind schemas.PredicateKind, field, value string) Predicate {
	switch kind {
	case schemas.PredModalAppeared:
		return modalAppeared
	case schemas.PredModalDisappeared:
		return modalDisappeared
	case schemas.PredFieldFilled:
		return fieldFilled(field)
	case schemas.PredFieldMatches:
		return fieldMatches(field, value)
	case schemas.PredAddressChanged:
		return addressChanged
	case schemas.PredAddressContains:
		return addressContains(value)
	case schemas.PredTextVisible:
		return textVisible(value)
	case schemas.PredDateVisible:
		return DateVisible(value)
	case schemas.PredSubmitComplete:
		// The submit predicate needs knowledge of sibling goals; the
		// manager substitutes its own closure. Standalone resolution
		// degrades to "modal closed".
		return modalDisappeared
	default:
		return func(prev, cur schemas.UIState) bool { return false }
	}
}

// modalAppeared is true when a modal absent before is now present.
func modalAppeared(prev, cur schemas.UIState) bool {
	return !prev.HasModal() && cur.HasModal()
}

// modalDisappeared is true when the page had a modal and no longer does.
func modalDisappeared(prev, cur schemas.UIState) bool {
	return prev.HasModal() && !cur.HasModal()
}

// fieldFilled is true when the named field currently holds a non-empty value.
// Matching is tolerant: exact name, then label/aria substring.
func fieldFilled(name string) Predicate {
	target := normalize(name)
	return func(prev, cur schemas.UIState) bool {
		for _, f := range cur.Forms {
			if !f.Filled {
				continue
			}
			if normalize(f.Name) == target || strings.Contains(normalize(f.Label), target) {
				return true
			}
		}
		return false
	}
}

// fieldMatches is true when any visible field holds exactly the target value.
// The field name is advisory only; creation dialogs frequently render inputs
// without stable names, so a value match anywhere counts.
func fieldMatches(name, value string) Predicate {
	target := normalize(value)
	return func(prev, cur schemas.UIState) bool {
		if target == "" {
			return false
		}
		for _, f := range cur.Forms {
			if normalize(f.Value) == target {
				return true
			}
		}
		return false
	}
}

// addressChanged is true when the location bar differs between snapshots.
func addressChanged(prev, cur schemas.UIState) bool {
	return prev.URL != "" && prev.URL != cur.URL
}

// addressContains is true when the current address contains the fragment.
func addressContains(fragment string) Predicate {
	frag := strings.ToLower(fragment)
	return func(prev, cur schemas.UIState) bool {
		return frag != "" && strings.Contains(strings.ToLower(cur.URL), frag)
	}
}

// textVisible is true when the target, after aggressive normalization, occurs
// in any visible text fragment of the current snapshot.
func textVisible(value string) Predicate {
	target := normalizeForSearch(value)
	return func(prev, cur schemas.UIState) bool {
		if target == "" {
			return false
		}
		for _, text := range collectText(cur) {
			if strings.Contains(normalizeForSearch(text), target) {
				return true
			}
		}
		return false
	}
}

// DateVisible is the completion check used for target-date goals: every token
// of the date must appear in one fragment, with month-name synonyms accepted.
func DateVisible(value string) Predicate {
	return func(prev, cur schemas.UIState) bool {
		return dateVisible(value, collectText(cur))
	}
}
