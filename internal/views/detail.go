package views

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/keyxmakerx/eventboard/internal/eventsapi"
	"github.com/keyxmakerx/eventboard/internal/timefmt"
)

// DetailState is the state of the detail screen.
type DetailState int

const (
	StateLoading DetailState = iota
	StateNotFound
	StateViewing
	StateEditing
)

// String returns the state name used in logs.
func (s DetailState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateNotFound:
		return "not_found"
	case StateViewing:
		return "viewing"
	case StateEditing:
		return "editing"
	default:
		return "unknown"
	}
}

// UnknownCreator stands in for a creator that is missing or failed to load.
var UnknownCreator = eventsapi.User{Name: "Onbekend"}

// EventPath returns the detail route of an event.
func EventPath(id int64) string {
	return fmt.Sprintf("/events/%d", id)
}

// EventDetail is the display model: the event with its creator and
// categories resolved once at load time.
type EventDetail struct {
	Event      eventsapi.Event
	Creator    eventsapi.User
	Categories []eventsapi.Category
}

// EditForm holds the editable fields. Times use the datetime-local shape.
type EditForm struct {
	Title       string
	Description string
	StartTime   string
	EndTime     string
}

// DetailSnapshot is an immutable view of the detail screen for rendering.
type DetailSnapshot struct {
	ID         int64
	State      DetailState
	Detail     *EventDetail
	Form       EditForm
	DeleteOpen bool
	Start      string
	End        string
	Image      string
}

// DetailView drives the detail screen of one event:
// Loading → NotFound | Viewing ⇄ Editing, plus the delete dialog.
type DetailView struct {
	api    eventsapi.API
	format timefmt.Formatter
	id     int64

	mu         sync.Mutex
	closed     bool
	state      DetailState
	detail     *EventDetail
	form       EditForm
	deleteOpen bool
	notifier
}

// NewDetailView returns a detail view for event id in the Loading state.
func NewDetailView(api eventsapi.API, format timefmt.Formatter, id int64) *DetailView {
	return &DetailView{api: api, format: format, id: id, state: StateLoading}
}

// Close marks the view dead. Responses that arrive afterwards are dropped.
func (v *DetailView) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

// Load fetches the event, then its creator and categories concurrently.
// A failed event lookup is terminal.
func (v *DetailView) Load(ctx context.Context) error {
	evt, err := v.api.Event(ctx, v.id)
	if err != nil {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.closed {
			return nil
		}
		v.state = StateNotFound
		v.notify(LevelError, "Fout bij laden", loadMessage(err))
		return err
	}

	detail := &EventDetail{Event: *evt, Creator: UnknownCreator}
	failedCategories := v.resolve(ctx, detail)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.detail = detail
	v.state = StateViewing
	if failedCategories > 0 {
		v.notify(LevelWarning, "Categorieën onvolledig",
			fmt.Sprintf("%d categorie(ën) konden niet worden geladen.", failedCategories))
	}
	return nil
}

// resolve fills in the creator and categories, returning how many category
// lookups failed. Failed lookups are dropped individually.
func (v *DetailView) resolve(ctx context.Context, detail *EventDetail) int {
	var wg sync.WaitGroup

	if detail.Event.CreatedBy != nil {
		userID := *detail.Event.CreatedBy
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := v.api.User(ctx, userID)
			if err != nil {
				slog.Warn("creator lookup failed",
					slog.Int64("event_id", v.id),
					slog.Int64("user_id", userID),
					slog.Any("error", err),
				)
				return
			}
			detail.Creator = *u
		}()
	}

	ids := detail.Event.CategoryIDs
	results := make([]*eventsapi.Category, len(ids))
	for i, catID := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cat, err := v.api.Category(ctx, catID)
			if err != nil {
				slog.Warn("category lookup failed",
					slog.Int64("event_id", v.id),
					slog.Int64("category_id", catID),
					slog.Any("error", err),
				)
				return
			}
			results[i] = cat
		}()
	}
	wg.Wait()

	failed := 0
	detail.Categories = make([]eventsapi.Category, 0, len(ids))
	for _, cat := range results {
		if cat == nil {
			failed++
			continue
		}
		detail.Categories = append(detail.Categories, *cat)
	}
	return failed
}

// StartEdit seeds the form from the loaded event and enters Editing.
func (v *DetailView) StartEdit() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateViewing {
		return ErrInvalidTransition
	}
	evt := v.detail.Event
	v.form = EditForm{
		Title:       evt.Title,
		Description: evt.Description,
		StartTime:   v.format.InputValue(evt.StartTime),
		EndTime:     v.format.InputValue(evt.EndTime),
	}
	v.deleteOpen = false
	v.state = StateEditing
	return nil
}

// UpdateForm replaces the form contents while editing.
func (v *DetailView) UpdateForm(form EditForm) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateEditing {
		return ErrInvalidTransition
	}
	v.form = form
	return nil
}

// CancelEdit discards the form and returns to Viewing.
func (v *DetailView) CancelEdit() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateEditing {
		v.form = EditForm{}
		v.state = StateViewing
	}
}

// Save sends the edited event as a full-object replace. On failure the view
// stays in Editing with the form untouched.
func (v *DetailView) Save(ctx context.Context) error {
	v.mu.Lock()
	if v.state != StateEditing {
		v.mu.Unlock()
		return ErrInvalidTransition
	}
	form := v.form
	updated := v.detail.Event
	updated.CategoryIDs = slices.Clone(updated.CategoryIDs)
	v.mu.Unlock()

	start, err := v.format.ToISO(form.StartTime)
	if err == nil {
		updated.EndTime, err = v.format.ToISO(form.EndTime)
	}
	if err != nil {
		v.mu.Lock()
		v.notify(LevelError, "Fout bij opslaan", "Ongeldige start- of eindtijd.")
		v.mu.Unlock()
		return err
	}
	updated.StartTime = start
	updated.Title = form.Title
	updated.Description = form.Description

	saved, err := v.api.UpdateEvent(ctx, updated)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	if err != nil {
		v.notify(LevelError, "Fout bij opslaan", saveMessage(err))
		return err
	}
	v.detail.Event = *saved
	v.form = EditForm{}
	v.state = StateViewing
	v.notify(LevelSuccess, "Event bijgewerkt", "")
	return nil
}

// OpenDelete opens the confirmation dialog.
func (v *DetailView) OpenDelete() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateViewing {
		return ErrInvalidTransition
	}
	v.deleteOpen = true
	return nil
}

// CancelDelete closes the dialog without sending anything.
func (v *DetailView) CancelDelete() {
	v.mu.Lock()
	v.deleteOpen = false
	v.mu.Unlock()
}

// ConfirmDelete deletes the event. It requires the dialog to be open and
// returns a navigation to the directory on success.
func (v *DetailView) ConfirmDelete(ctx context.Context) (*Navigation, error) {
	v.mu.Lock()
	if v.state != StateViewing || !v.deleteOpen {
		v.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	v.mu.Unlock()

	err := v.api.DeleteEvent(ctx, v.id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil, nil
	}
	if err != nil {
		v.notify(LevelError, "Fout bij verwijderen", deleteMessage(err))
		return nil, err
	}
	v.deleteOpen = false
	v.notify(LevelSuccess, "Event verwijderd", "")
	return &Navigation{To: DirectoryPath}, nil
}

// State returns the current state.
func (v *DetailView) State() DetailState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Notifications drains the pending notifications.
func (v *DetailView) Notifications() []Notification {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.drain()
}

// Snapshot returns what to render.
func (v *DetailView) Snapshot() DetailSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	snap := DetailSnapshot{
		ID:         v.id,
		State:      v.state,
		Form:       v.form,
		DeleteOpen: v.deleteOpen,
	}
	if v.detail != nil {
		d := *v.detail
		d.Categories = slices.Clone(d.Categories)
		d.Event.CategoryIDs = slices.Clone(d.Event.CategoryIDs)
		snap.Detail = &d
		f := v.format
		snap.Start = f.FormatDate(d.Event.StartTime) + " - " + f.FormatTime(d.Event.StartTime)
		snap.End = f.FormatDate(d.Event.EndTime) + " - " + f.FormatTime(d.Event.EndTime)
		snap.Image = imageOrPlaceholder(d.Event.Image)
	}
	return snap
}

func loadMessage(err error) string {
	if eventsapi.IsNotFound(err) {
		return "Event niet gevonden"
	}
	return "Het event kon niet worden geladen."
}

func saveMessage(err error) string {
	if eventsapi.IsNotFound(err) {
		return "Het event bestaat niet meer."
	}
	return "Opslaan mislukt"
}

func deleteMessage(err error) string {
	if eventsapi.IsNotFound(err) {
		return "Het event bestaat niet meer."
	}
	return "Verwijderen mislukt"
}
