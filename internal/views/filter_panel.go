package views

import (
	"slices"

	"github.com/keyxmakerx/eventboard/internal/eventsapi"
	"github.com/keyxmakerx/eventboard/internal/listing"
)

// FilterPanel is the search box, category checkboxes and future-only
// switch. Every change emits the complete filter state to onChange right
// away; there is no apply step.
type FilterPanel struct {
	search     string
	selected   []string
	futureOnly bool
	options    []string
	onChange   func(listing.FilterState)
}

// NewFilterPanel returns a panel offering the given categories, seeded with
// initial. Selections that name no known category are dropped.
func NewFilterPanel(categories []eventsapi.Category, initial listing.FilterState, onChange func(listing.FilterState)) *FilterPanel {
	p := &FilterPanel{
		search:     initial.SearchTerm,
		futureOnly: initial.FutureOnly,
		onChange:   onChange,
	}
	for _, c := range categories {
		if !slices.Contains(p.options, c.Name) {
			p.options = append(p.options, c.Name)
		}
	}
	p.selected = p.known(initial.SelectedCategories)
	return p
}

// Options returns the category names offered as checkboxes.
func (p *FilterPanel) Options() []string {
	return slices.Clone(p.options)
}

// State returns the panel's current filter state.
func (p *FilterPanel) State() listing.FilterState {
	return listing.FilterState{
		SearchTerm:         p.search,
		SelectedCategories: slices.Clone(p.selected),
		FutureOnly:         p.futureOnly,
	}
}

// SetSearch updates the search text.
func (p *FilterPanel) SetSearch(term string) {
	p.search = term
	p.emit()
}

// ToggleCategory checks or unchecks a category by name.
func (p *FilterPanel) ToggleCategory(name string, on bool) {
	if !slices.Contains(p.options, name) {
		return
	}
	idx := slices.Index(p.selected, name)
	switch {
	case on && idx < 0:
		p.selected = append(p.selected, name)
	case !on && idx >= 0:
		p.selected = slices.Delete(p.selected, idx, idx+1)
	default:
		return
	}
	p.emit()
}

// SetCategories replaces the whole selection.
func (p *FilterPanel) SetCategories(names []string) {
	p.selected = p.known(names)
	p.emit()
}

// SetFutureOnly flips the future-only switch.
func (p *FilterPanel) SetFutureOnly(on bool) {
	p.futureOnly = on
	p.emit()
}

func (p *FilterPanel) emit() {
	if p.onChange != nil {
		p.onChange(p.State())
	}
}

// known keeps the names that match an option, without duplicates.
func (p *FilterPanel) known(names []string) []string {
	out := []string{}
	for _, n := range names {
		if slices.Contains(p.options, n) && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
