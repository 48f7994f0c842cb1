package events

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the JSON API on g (the /api group). Writes pass
// through the given middleware, typically a rate limiter.
func RegisterRoutes(g *echo.Group, h *Handler, writeMW ...echo.MiddlewareFunc) {
	// Static paths are registered alongside :id; Echo prefers static matches.
	g.GET("/events", h.ListEvents)
	g.GET("/events.ics", h.ExportICS)
	g.GET("/events/:id", h.GetEvent)
	g.POST("/events", h.CreateEvent, writeMW...)
	g.PUT("/events/:id", h.UpdateEvent, writeMW...)
	g.DELETE("/events/:id", h.DeleteEvent, writeMW...)

	g.GET("/categories", h.ListCategories)
	g.GET("/categories/:id", h.GetCategory)

	g.GET("/users", h.ListUsers)
	g.GET("/users/:id", h.GetUser)

	g.GET("/data/events.json", h.Directory)
}
