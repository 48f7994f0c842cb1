package middleware

import (
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes a Templ component to the response with the given status code.
// The request id is copied into the render context so pages can print it
// on error screens.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	ctx := WithRequestID(c.Request().Context(), GetRequestID(c))

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(statusCode)
	return component.Render(ctx, c.Response().Writer)
}

// WantsJSON reports whether an error for this request should be answered
// with JSON instead of an HTML page: the API and the health check.
func WantsJSON(c echo.Context) bool {
	path := c.Request().URL.Path
	return path == "/api" || path == "/healthz" || strings.HasPrefix(path, "/api/")
}
