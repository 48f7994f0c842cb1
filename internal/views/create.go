package views

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/keyxmakerx/eventboard/internal/eventsapi"
	"github.com/keyxmakerx/eventboard/internal/timefmt"
)

// fallbackCategories are offered when the category list cannot be loaded.
var fallbackCategories = []eventsapi.Category{
	{ID: 1, Name: "sports"},
	{ID: 2, Name: "games"},
	{ID: 3, Name: "relaxation"},
}

// CreateForm holds the fields of a new event. Times use the datetime-local
// shape; CategoryIDs is a set kept in insertion order.
type CreateForm struct {
	Title       string
	Description string
	Image       string
	Location    string
	StartTime   string
	EndTime     string
	CategoryIDs []int64
}

// missing returns the labels of empty required fields.
func (f CreateForm) missing() []string {
	var out []string
	for _, field := range []struct{ label, value string }{
		{"titel", f.Title},
		{"beschrijving", f.Description},
		{"locatie", f.Location},
		{"starttijd", f.StartTime},
		{"eindtijd", f.EndTime},
	} {
		if strings.TrimSpace(field.value) == "" {
			out = append(out, field.label)
		}
	}
	return out
}

// CreateSnapshot is an immutable view of the creation form for rendering.
type CreateSnapshot struct {
	Form       CreateForm
	Categories []eventsapi.Category
}

// CreateView collects a new event and posts it.
type CreateView struct {
	api    eventsapi.API
	format timefmt.Formatter

	form       CreateForm
	categories []eventsapi.Category
	notifier
}

// NewCreateView returns an empty creation form.
func NewCreateView(api eventsapi.API, format timefmt.Formatter) *CreateView {
	return &CreateView{
		api:        api,
		format:     format,
		categories: slices.Clone(fallbackCategories),
	}
}

// LoadCategories fetches the categories to offer. On failure the fixed
// fallback list stays in place.
func (v *CreateView) LoadCategories(ctx context.Context) {
	cats, err := v.api.Categories(ctx)
	if err != nil {
		slog.Warn("category list unavailable, using fallback", slog.Any("error", err))
		return
	}
	v.categories = cats
}

// SetForm replaces the form. Category ids are de-duplicated.
func (v *CreateView) SetForm(form CreateForm) {
	ids := form.CategoryIDs
	form.CategoryIDs = nil
	v.form = form
	for _, id := range ids {
		v.ToggleCategory(id, true)
	}
}

// ToggleCategory adds or removes a category id from the set.
func (v *CreateView) ToggleCategory(id int64, on bool) {
	idx := slices.Index(v.form.CategoryIDs, id)
	switch {
	case on && idx < 0:
		v.form.CategoryIDs = append(v.form.CategoryIDs, id)
	case !on && idx >= 0:
		v.form.CategoryIDs = slices.Delete(v.form.CategoryIDs, idx, idx+1)
	}
}

// Submit posts the form. On success it returns a navigation to the
// directory; on failure the form is kept and a notification is queued.
func (v *CreateView) Submit(ctx context.Context) (*Navigation, error) {
	if missing := v.form.missing(); len(missing) > 0 {
		v.notify(LevelError, "Fout bij toevoegen", "Vul de verplichte velden in: "+strings.Join(missing, ", ")+".")
		return nil, ErrMissingFields
	}

	start, err := v.format.ToISO(v.form.StartTime)
	if err != nil {
		v.notify(LevelError, "Fout bij toevoegen", "Ongeldige starttijd.")
		return nil, err
	}
	end, err := v.format.ToISO(v.form.EndTime)
	if err != nil {
		v.notify(LevelError, "Fout bij toevoegen", "Ongeldige eindtijd.")
		return nil, err
	}

	created, err := v.api.CreateEvent(ctx, eventsapi.NewEvent{
		Title:       v.form.Title,
		Description: v.form.Description,
		Image:       v.form.Image,
		Location:    v.form.Location,
		StartTime:   start,
		EndTime:     end,
		CategoryIDs: slices.Clone(v.form.CategoryIDs),
	})
	if err != nil {
		slog.Error("creating event", slog.Any("error", err))
		v.notify(LevelError, "Fout bij toevoegen", "Mislukt om event toe te voegen")
		return nil, err
	}

	slog.Info("event created", slog.Int64("event_id", created.ID))
	return &Navigation{To: DirectoryPath}, nil
}

// Notifications drains the pending notifications.
func (v *CreateView) Notifications() []Notification {
	return v.drain()
}

// Snapshot returns what to render.
func (v *CreateView) Snapshot() CreateSnapshot {
	form := v.form
	form.CategoryIDs = slices.Clone(form.CategoryIDs)
	return CreateSnapshot{Form: form, Categories: slices.Clone(v.categories)}
}
