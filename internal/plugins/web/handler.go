// Package web serves the browser pages of the event board. Each request
// builds fresh view containers from internal/views on top of the shared
// API client and renders their snapshots.
package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/eventboard/internal/apperror"
	"github.com/keyxmakerx/eventboard/internal/eventsapi"
	"github.com/keyxmakerx/eventboard/internal/middleware"
	"github.com/keyxmakerx/eventboard/internal/timefmt"
	"github.com/keyxmakerx/eventboard/internal/views"
)

// Handler handles the browser routes.
type Handler struct {
	api    eventsapi.API
	format timefmt.Formatter
	now    func() time.Time
}

// NewHandler creates a new web Handler.
func NewHandler(api eventsapi.API, format timefmt.Formatter) *Handler {
	return &Handler{api: api, format: format, now: time.Now}
}

func (h *Handler) page(c echo.Context, title string, notes []views.Notification) Page {
	return Page{
		Title:         title,
		CSRFToken:     middleware.GetCSRFToken(c),
		Notifications: append(takeFlash(c), notes...),
	}
}

func parseEventID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequest("invalid event id")
	}
	return id, nil
}

// failureStatus maps a view failure to the status of the re-rendered page.
func failureStatus(err error) int {
	switch {
	case errors.Is(err, views.ErrMissingFields), errors.Is(err, timefmt.ErrInvalidTimestamp):
		return http.StatusUnprocessableEntity
	case errors.Is(err, views.ErrInvalidTransition):
		return http.StatusConflict
	}

	var apiErr *eventsapi.Error
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	switch {
	case apiErr.Kind == eventsapi.KindNotFound:
		return http.StatusNotFound
	case apiErr.Kind == eventsapi.KindServer && apiErr.Status >= 400 && apiErr.Status < 500:
		return apiErr.Status
	default:
		return http.StatusBadGateway
	}
}

// Directory renders the event list.
// GET /?q=...&category=...&future=0|1
func (h *Handler) Directory(c echo.Context) error {
	v := views.NewDirectoryView(h.api, h.format)
	status := http.StatusOK
	if err := v.Load(c.Request().Context()); err != nil {
		status = failureStatus(err)
	}

	panel := v.Panel()
	applyFilterQuery(panel, c.QueryParams())

	snap := v.Snapshot(h.now())
	return middleware.Render(c, status, DirectoryPage(h.page(c, "Evenementen", nil), snap, panel.Options()))
}

// applyFilterQuery replays the query string onto the panel. Parameters that
// are absent keep the panel's defaults.
func applyFilterQuery(p *views.FilterPanel, q url.Values) {
	if term := q.Get("q"); term != "" {
		p.SetSearch(term)
	}
	if names := q["category"]; len(names) > 0 {
		p.SetCategories(names)
	}
	if future := q["future"]; len(future) > 0 {
		p.SetFutureOnly(future[len(future)-1] == "1")
	}
}

// Detail renders one event. ?edit=1 opens the form, ?delete=1 the
// confirmation dialog.
// GET /events/:id
func (h *Handler) Detail(c echo.Context) error {
	id, err := parseEventID(c)
	if err != nil {
		return err
	}
	v, status := h.loadDetail(c, id)
	defer v.Close()

	if status == http.StatusOK {
		switch {
		case c.QueryParam("edit") == "1":
			_ = v.StartEdit()
		case c.QueryParam("delete") == "1":
			_ = v.OpenDelete()
		}
	}
	return h.renderDetail(c, status, v)
}

// Save submits the edit form.
// POST /events/:id
func (h *Handler) Save(c echo.Context) error {
	id, err := parseEventID(c)
	if err != nil {
		return err
	}
	v, status := h.loadDetail(c, id)
	defer v.Close()
	if status != http.StatusOK {
		return h.renderDetail(c, status, v)
	}

	if err := v.StartEdit(); err != nil {
		return err
	}
	if err := v.UpdateForm(views.EditForm{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		StartTime:   c.FormValue("startTime"),
		EndTime:     c.FormValue("endTime"),
	}); err != nil {
		return err
	}
	if err := v.Save(c.Request().Context()); err != nil {
		return h.renderDetail(c, failureStatus(err), v)
	}

	setFlash(c, v.Notifications())
	return c.Redirect(http.StatusSeeOther, views.EventPath(id))
}

// Delete confirms the delete dialog.
// POST /events/:id/delete
func (h *Handler) Delete(c echo.Context) error {
	id, err := parseEventID(c)
	if err != nil {
		return err
	}
	v, status := h.loadDetail(c, id)
	defer v.Close()
	if status != http.StatusOK {
		return h.renderDetail(c, status, v)
	}

	if err := v.OpenDelete(); err != nil {
		return err
	}
	nav, err := v.ConfirmDelete(c.Request().Context())
	if err != nil {
		return h.renderDetail(c, failureStatus(err), v)
	}

	setFlash(c, v.Notifications())
	return c.Redirect(http.StatusSeeOther, nav.To)
}

func (h *Handler) loadDetail(c echo.Context, id int64) (*views.DetailView, int) {
	v := views.NewDetailView(h.api, h.format, id)
	if err := v.Load(c.Request().Context()); err != nil {
		return v, failureStatus(err)
	}
	return v, http.StatusOK
}

func (h *Handler) renderDetail(c echo.Context, status int, v *views.DetailView) error {
	snap := v.Snapshot()
	title := "Event niet gevonden"
	if snap.Detail != nil {
		title = snap.Detail.Event.Title
	}
	return middleware.Render(c, status, DetailPage(h.page(c, title, v.Notifications()), snap))
}

// NewForm renders an empty creation form.
// GET /new
func (h *Handler) NewForm(c echo.Context) error {
	v := views.NewCreateView(h.api, h.format)
	v.LoadCategories(c.Request().Context())
	return h.renderCreate(c, http.StatusOK, v)
}

// Create submits the creation form.
// POST /new
func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	form, err := c.FormParams()
	if err != nil {
		return apperror.NewBadRequest("invalid form data")
	}

	v := views.NewCreateView(h.api, h.format)
	v.LoadCategories(ctx)
	v.SetForm(views.CreateForm{
		Title:       form.Get("title"),
		Description: form.Get("description"),
		Image:       form.Get("image"),
		Location:    form.Get("location"),
		StartTime:   form.Get("startTime"),
		EndTime:     form.Get("endTime"),
		CategoryIDs: parseIDs(form["category"]),
	})

	nav, err := v.Submit(ctx)
	if err != nil {
		return h.renderCreate(c, failureStatus(err), v)
	}
	setFlash(c, v.Notifications())
	return c.Redirect(http.StatusSeeOther, nav.To)
}

func (h *Handler) renderCreate(c echo.Context, status int, v *views.CreateView) error {
	snap := v.Snapshot()
	return middleware.Render(c, status, CreatePage(h.page(c, "Nieuw event", v.Notifications()), snap))
}

// parseIDs keeps the values that are positive integers.
func parseIDs(values []string) []int64 {
	ids := make([]int64, 0, len(values))
	for _, s := range values {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
