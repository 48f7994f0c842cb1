package web

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the browser pages. Form posts pass through the
// given middleware, typically a rate limiter.
func RegisterRoutes(e *echo.Echo, h *Handler, writeMW ...echo.MiddlewareFunc) {
	e.GET("/", h.Directory)

	e.GET("/new", h.NewForm)
	e.POST("/new", h.Create, writeMW...)

	e.GET("/events/:id", h.Detail)
	e.POST("/events/:id", h.Save, writeMW...)
	e.POST("/events/:id/delete", h.Delete, writeMW...)
}
