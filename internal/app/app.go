// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (DB pool, Redis client,
// Echo instance) and wires the events API and the browser pages together.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/eventboard/internal/apperror"
	"github.com/keyxmakerx/eventboard/internal/config"
	"github.com/keyxmakerx/eventboard/internal/middleware"
	"github.com/keyxmakerx/eventboard/internal/plugins/events"
	"github.com/keyxmakerx/eventboard/internal/plugins/web"
)

const (
	// writeLimit is how many API writes one client may make per writeWindow.
	writeLimit  = 60
	writeWindow = time.Minute

	// healthTimeout bounds each dependency ping in /healthz.
	healthTimeout = 2 * time.Second
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool. Nil when serving from memory.
	DB *sql.DB

	// Redis backs the directory cache. Nil disables caching.
	Redis *redis.Client

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	// EventRepo stores events. New sets the MariaDB repository when a DB is
	// given; callers may replace it before RegisterRoutes.
	EventRepo events.EventRepository

	// Events is the events service, available after RegisterRoutes.
	Events events.EventService

	// Limiter throttles API writes per client IP.
	Limiter *middleware.RateLimiter
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// Configure trusted reverse proxy IPs so c.RealIP() returns the actual
	// client IP instead of the proxy's IP. Loopback is included because the
	// pages call the API over it and forward the browser's address.
	middleware.TrustedProxies(e, []string{
		"127.0.0.0/8",    // Localhost
		"::1/128",        // IPv6 localhost
		"10.0.0.0/8",     // Docker default bridge
		"172.16.0.0/12",  // Docker bridge (alternate range)
		"192.168.0.0/16", // Common LAN
		"fd00::/8",       // IPv6 private
	})

	app := &App{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Echo:    e,
		Limiter: middleware.NewRateLimiter(writeLimit, writeWindow),
	}
	if db != nil {
		app.EventRepo = events.NewEventRepository(db)
	}

	// Register global middleware in order of execution.
	app.setupMiddleware()

	// Register the custom error handler that maps AppErrors to HTTP responses.
	e.HTTPErrorHandler = app.errorHandler

	// Serve static files (CSS, JS, images).
	e.Static("/static", "static")

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// The request id comes first so every log line and error page carries it.
func (a *App) setupMiddleware() {
	a.Echo.Use(middleware.RequestID())
	a.Echo.Use(middleware.ClientIP())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	// Panic recovery -- inside the logger so recovered panics are logged as 500s.
	a.Echo.Use(middleware.Recovery())

	// Security headers -- CSP, X-Frame-Options, X-Content-Type-Options, etc.
	a.Echo.Use(middleware.SecurityHeaders())

	// CORS -- for front ends hosted elsewhere that call /api directly.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: []string{a.Config.BaseURL},
	}))

	// CSRF -- double-submit cookie pattern on the page forms.
	a.Echo.Use(middleware.CSRF())
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to HTTP responses: JSON for the API and the health check, a
// rendered error page for browser routes.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	errType := "internal_error"
	message := "An unexpected error occurred"

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		errType = appErr.Type
		message = appErr.Message

		// Log internal errors with the underlying cause.
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
				slog.String("request_id", middleware.GetRequestID(c)),
			)
		}
	case errors.As(err, &echoErr):
		// Echo's built-in HTTP errors (e.g., 404 from router, 403 from CSRF).
		code = echoErr.Code
		errType = "http_error"
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(code)
		}
	default:
		// Truly unexpected error -- log it.
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
			slog.String("request_id", middleware.GetRequestID(c)),
		)
	}

	if middleware.WantsJSON(c) {
		_ = c.JSON(code, map[string]string{
			"type":    errType,
			"message": message,
		})
		return
	}

	if err := middleware.Render(c, code, web.ErrorPage(code, pageErrorMessage(code))); err != nil {
		slog.Error("rendering error page", slog.Any("error", err))
	}
}

// pageErrorMessage returns the message shown on HTML error pages.
func pageErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "Het verzoek is ongeldig."
	case http.StatusForbidden:
		return "Deze actie is niet toegestaan. Vernieuw de pagina en probeer het opnieuw."
	case http.StatusNotFound:
		return "De pagina bestaat niet of is verplaatst."
	case http.StatusMethodNotAllowed:
		return "Deze actie is niet toegestaan."
	case http.StatusTooManyRequests:
		return "Te veel verzoeken. Probeer het zo opnieuw."
	case http.StatusServiceUnavailable:
		return "De dienst is tijdelijk niet beschikbaar."
	default:
		return "Er ging iets mis. Probeer het later opnieuw."
	}
}

// healthz pings every configured dependency.
// GET /healthz
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	if a.DB != nil {
		if err := a.DB.PingContext(ctx); err != nil {
			return apperror.NewUnavailable("database unreachable", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return apperror.NewUnavailable("redis unreachable", err)
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting eventboard server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
		slog.String("api", a.Config.API.BaseURL),
	)
	return a.Echo.Start(addr)
}
