package filter

import (
	"strings"

	"github.com/gdg-paro/eventsync/model"
)

// Criteria is the transient set of user-selected constraints narrowing the
// displayed event list. An empty field does not constrain.
type Criteria struct {
	// SearchTerm matches as a case-insensitive substring of the event title,
	// club, or any tag.
	SearchTerm string

	// Department must equal the event department.
	Department string

	// Date must equal the event date exactly (no range semantics).
	Date string

	// Types matches when any selected type equals any event tag.
	Types []string
}

// Apply narrows events to those matching every non-empty criterion. It is
// pure and order-preserving: the result is a subsequence of the input.
func Apply(events []*model.Event, c Criteria) []*model.Event {
	matched := make([]*model.Event, 0, len(events))
	for _, event := range events {
		if matches(event, c) {
			matched = append(matched, event)
		}
	}
	return matched
}

func matches(e *model.Event, c Criteria) bool {
	if search := strings.ToLower(strings.TrimSpace(c.SearchTerm)); search != "" {
		if !matchesSearch(e, search) {
			return false
		}
	}

	if c.Department != "" && !strings.EqualFold(e.Department, c.Department) {
		return false
	}

	if c.Date != "" && e.Date != c.Date {
		return false
	}

	if len(c.Types) > 0 && !matchesAnyType(e, c.Types) {
		return false
	}

	return true
}

func matchesSearch(e *model.Event, search string) bool {
	if strings.Contains(strings.ToLower(e.Title), search) {
		return true
	}
	if strings.Contains(strings.ToLower(e.Club), search) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}

func matchesAnyType(e *model.Event, types []string) bool {
	for _, t := range types {
		for _, tag := range e.Tags {
			if strings.EqualFold(tag, t) {
				return true
			}
		}
	}
	return false
}
