package views

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/keyxmakerx/eventboard/internal/eventsapi"
	"github.com/keyxmakerx/eventboard/internal/listing"
	"github.com/keyxmakerx/eventboard/internal/timefmt"
)

// EmptyMessage is shown when no event passes the filter.
const EmptyMessage = "Er zijn op dit moment geen evenementen die aan je wensen voldoen."

// loadFailedMessage is shown when the directory document cannot be loaded.
const loadFailedMessage = "De evenementen konden niet worden geladen. Probeer het later opnieuw."

// Card is one entry in the directory list.
type Card struct {
	ID            int64
	Title         string
	Summary       string
	Image         string
	CategoryNames []string
	When          string
	Link          string
}

// DirectorySnapshot is an immutable view of the directory for rendering.
type DirectorySnapshot struct {
	Loading      bool
	Failed       bool
	ErrorMessage string
	Filter       listing.FilterState
	Categories   []eventsapi.Category
	Cards        []Card
	Empty        bool
	EmptyMessage string
}

// DirectoryView owns the loaded events, categories and filter state of the
// directory screen.
type DirectoryView struct {
	api    eventsapi.API
	format timefmt.Formatter

	loading    bool
	err        error
	events     []eventsapi.Event
	categories []eventsapi.Category
	filter     listing.FilterState
}

// NewDirectoryView returns a directory in its loading state with the
// default filter.
func NewDirectoryView(api eventsapi.API, format timefmt.Formatter) *DirectoryView {
	return &DirectoryView{
		api:     api,
		format:  format,
		loading: true,
		filter:  listing.DefaultFilterState(),
	}
}

// Load fetches the directory document once.
func (v *DirectoryView) Load(ctx context.Context) error {
	v.loading = true
	doc, err := v.api.Directory(ctx)
	v.loading = false
	if err != nil {
		slog.Error("loading event directory",
			slog.String("kind", string(eventsapi.KindOf(err))),
			slog.Any("error", err),
		)
		v.err = err
		v.events, v.categories = nil, nil
		return err
	}
	v.err = nil
	v.events = doc.Events
	v.categories = doc.Categories
	return nil
}

// SetFilter replaces the filter state. It is the FilterPanel callback.
func (v *DirectoryView) SetFilter(state listing.FilterState) {
	v.filter = state.Clone()
}

// Filter returns the current filter state.
func (v *DirectoryView) Filter() listing.FilterState {
	return v.filter.Clone()
}

// Panel returns a filter panel wired to this view.
func (v *DirectoryView) Panel() *FilterPanel {
	return NewFilterPanel(v.categories, v.filter, v.SetFilter)
}

// Snapshot evaluates the filter at now and returns what to render.
func (v *DirectoryView) Snapshot(now time.Time) DirectorySnapshot {
	snap := DirectorySnapshot{
		Loading:    v.loading,
		Filter:     v.filter.Clone(),
		Categories: slices.Clone(v.categories),
	}
	if v.loading {
		return snap
	}
	if v.err != nil {
		snap.Failed = true
		snap.ErrorMessage = loadFailedMessage
		return snap
	}

	visible := listing.Filter(v.events, v.categories, v.filter, now)
	snap.Cards = make([]Card, 0, len(visible))
	for _, evt := range visible {
		snap.Cards = append(snap.Cards, v.card(evt))
	}
	if len(snap.Cards) == 0 {
		snap.Empty = true
		snap.EmptyMessage = EmptyMessage
	}
	return snap
}

func (v *DirectoryView) card(evt eventsapi.Event) Card {
	f := v.format
	return Card{
		ID:            evt.ID,
		Title:         evt.Title,
		Summary:       truncate(evt.Description, summaryLength),
		Image:         imageOrPlaceholder(evt.Image),
		CategoryNames: listing.ResolveNames(evt.CategoryIDs, v.categories),
		When: f.FormatDate(evt.StartTime) + "; " + f.FormatTime(evt.StartTime) +
			" – " + f.FormatDate(evt.EndTime) + "; " + f.FormatTime(evt.EndTime),
		Link: EventPath(evt.ID),
	}
}
