// Package listing holds the in-memory logic behind the event directory:
// resolving category ids to names and filtering events by search text,
// category and start time.
package listing

import (
	"slices"
	"strings"
	"time"

	"github.com/keyxmakerx/eventboard/internal/eventsapi"
	"github.com/keyxmakerx/eventboard/internal/timefmt"
)

// FilterState is the directory's filter input. SelectedCategories holds
// category names, never ids.
type FilterState struct {
	SearchTerm         string
	SelectedCategories []string
	FutureOnly         bool
}

// DefaultFilterState is what the directory starts with.
func DefaultFilterState() FilterState {
	return FilterState{FutureOnly: true}
}

// Clone returns a copy that shares no memory with s.
func (s FilterState) Clone() FilterState {
	s.SelectedCategories = slices.Clone(s.SelectedCategories)
	return s
}

// ResolveNames maps category ids to names in input order, dropping ids that
// have no matching category.
func ResolveNames(categoryIDs []int64, categories []eventsapi.Category) []string {
	names := make([]string, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		for _, cat := range categories {
			if cat.ID == id {
				names = append(names, cat.Name)
				break
			}
		}
	}
	return names
}

// Filter returns the events matching state at instant now, in their
// original order.
func Filter(events []eventsapi.Event, categories []eventsapi.Category, state FilterState, now time.Time) []eventsapi.Event {
	out := make([]eventsapi.Event, 0, len(events))
	for _, evt := range events {
		if Matches(evt, categories, state, now) {
			out = append(out, evt)
		}
	}
	return out
}

// Matches reports whether a single event passes all three predicates.
func Matches(evt eventsapi.Event, categories []eventsapi.Category, state FilterState, now time.Time) bool {
	return matchesText(evt, state.SearchTerm) &&
		matchesCategory(evt, categories, state.SelectedCategories) &&
		matchesFuture(evt, state.FutureOnly, now)
}

func matchesText(evt eventsapi.Event, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(evt.Title), term) ||
		strings.Contains(strings.ToLower(evt.Description), term)
}

func matchesCategory(evt eventsapi.Event, categories []eventsapi.Category, selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	names := ResolveNames(evt.CategoryIDs, categories)
	for _, want := range selected {
		if slices.Contains(evt.Categories, want) || slices.Contains(names, want) {
			return true
		}
	}
	return false
}

func matchesFuture(evt eventsapi.Event, futureOnly bool, now time.Time) bool {
	if !futureOnly {
		return true
	}
	start, err := timefmt.Parse(evt.StartTime)
	if err != nil {
		return false
	}
	return start.After(now)
}
