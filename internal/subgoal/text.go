// internal/subgoal/text.go
package subgoal

import (
	"regexp"
	"strings"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

// monthSynonyms maps every month to the spellings that may appear in a date
// picker chip ("Dec 12" vs "December 12").
var monthSynonyms = [][]string{
	{"jan", "january"},
	{"feb", "february"},
	{"mar", "march"},
	{"apr", "april"},
	{"may"},
	{"jun", "june"},
	{"jul", "july"},
	{"aug", "august"},
	{"sep", "sept", "september"},
	{"oct", "october"},
	{"nov", "november"},
	{"dec", "december"},
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)
var dateSplit = regexp.MustCompile(`[\s,/-]+`)

// normalize trims and lowercases.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeForSearch strips everything but letters and digits, so "In
// Progress", "in-progress" and "InProgress" all collapse to the same token.
func normalizeForSearch(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

// collectText flattens a snapshot into the searchable text fragments the
// text-visibility predicates scan: modal titles, field labels and values,
// dropdown labels and the page title.
func collectText(s schemas.UIState) []string {
	texts := make([]string, 0, len(s.Modals)+len(s.Forms)+len(s.Dropdowns)+1)
	if s.Title != "" {
		texts = append(texts, s.Title)
	}
	for _, m := range s.Modals {
		if m.Title != "" {
			texts = append(texts, m.Title)
		}
	}
	for _, f := range s.Forms {
		var parts []string
		if f.Label != "" {
			parts = append(parts, f.Label)
		}
		if f.Value != "" {
			parts = append(parts, f.Value)
		}
		if len(parts) > 0 {
			texts = append(texts, strings.Join(parts, " "))
		}
	}
	for _, d := range s.Dropdowns {
		if d.Label != "" {
			texts = append(texts, d.Label)
		}
	}
	return texts
}

// dateTokenSets expands a date string into per-token alternatives: numeric
// tokens match with and without leading zeros, month tokens match any
// synonym spelling.
func dateTokenSets(value string) [][]string {
	raw := dateSplit.Split(strings.ToLower(value), -1)
	var sets [][]string
	for _, token := range raw {
		if token == "" {
			continue
		}
		if isDigits(token) {
			trimmed := strings.TrimLeft(token, "0")
			if trimmed == "" {
				trimmed = "0"
			}
			sets = append(sets, []string{trimmed, token})
			continue
		}
		matched := false
		for _, variants := range monthSynonyms {
			for _, v := range variants {
				if token == v {
					sets = append(sets, variants)
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
		if !matched {
			sets = append(sets, []string{token})
		}
	}
	return sets
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// dateVisible reports whether every token of the target date appears, in any
// synonym spelling, inside a single text fragment.
func dateVisible(value string, texts []string) bool {
	sets := dateTokenSets(value)
	if len(sets) == 0 {
		return false
	}
	for _, text := range texts {
		lower := strings.ToLower(text)
		all := true
		for _, options := range sets {
			found := false
			for _, opt := range options {
				if strings.Contains(lower, opt) {
					found = true
					break
				}
			}
			if !found {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}
