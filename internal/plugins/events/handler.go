package events

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/eventboard/internal/apperror"
)

// Handler processes JSON requests for the events backend.
type Handler struct {
	svc EventService
	now func() time.Time
}

// NewHandler creates a new events Handler.
func NewHandler(svc EventService) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name, what string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequest("invalid " + what + " id")
	}
	return id, nil
}

// ListEvents returns all events.
// GET /api/events
func (h *Handler) ListEvents(c echo.Context) error {
	events, err := h.svc.ListEvents(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		out = append(out, events[i].Response())
	}
	return c.JSON(http.StatusOK, out)
}

// GetEvent returns one event.
// GET /api/events/:id
func (h *Handler) GetEvent(c echo.Context) error {
	id, err := parseID(c, "id", "event")
	if err != nil {
		return err
	}
	evt, err := h.svc.GetEvent(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, evt.Response())
}

// CreateEvent stores a new event.
// POST /api/events
func (h *Handler) CreateEvent(c echo.Context) error {
	var req EventInput
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	evt, err := h.svc.CreateEvent(c.Request().Context(), req)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderLocation, "/api/events/"+strconv.FormatInt(evt.ID, 10))
	return c.JSON(http.StatusCreated, evt.Response())
}

// UpdateEvent replaces an event.
// PUT /api/events/:id
func (h *Handler) UpdateEvent(c echo.Context) error {
	id, err := parseID(c, "id", "event")
	if err != nil {
		return err
	}
	var req EventInput
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	evt, err := h.svc.UpdateEvent(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, evt.Response())
}

// DeleteEvent removes an event and answers with an empty object.
// DELETE /api/events/:id
func (h *Handler) DeleteEvent(c echo.Context) error {
	id, err := parseID(c, "id", "event")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteEvent(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, struct{}{})
}

// ListCategories returns all categories.
// GET /api/categories
func (h *Handler) ListCategories(c echo.Context) error {
	cats, err := h.svc.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cats)
}

// GetCategory returns one category.
// GET /api/categories/:id
func (h *Handler) GetCategory(c echo.Context) error {
	id, err := parseID(c, "id", "category")
	if err != nil {
		return err
	}
	cat, err := h.svc.GetCategory(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cat)
}

// ListUsers returns all users.
// GET /api/users
func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser returns one user.
// GET /api/users/:id
func (h *Handler) GetUser(c echo.Context) error {
	id, err := parseID(c, "id", "user")
	if err != nil {
		return err
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// Directory returns the combined events and categories document.
// GET /api/data/events.json
func (h *Handler) Directory(c echo.Context) error {
	d, err := h.svc.Directory(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// ExportICS returns every event as an iCalendar file.
// GET /api/events.ics
func (h *Handler) ExportICS(c echo.Context) error {
	ctx := c.Request().Context()
	events, err := h.svc.ListEvents(ctx)
	if err != nil {
		return err
	}
	cats, err := h.svc.ListCategories(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := WriteICS(&buf, BuildICS(events, cats, c.Request().Host, h.now())); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="events.ics"`)
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}
