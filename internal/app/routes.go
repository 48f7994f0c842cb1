package app

import (
	"errors"
	"net/http"

	"github.com/keyxmakerx/eventboard/internal/eventsapi"
	"github.com/keyxmakerx/eventboard/internal/middleware"
	"github.com/keyxmakerx/eventboard/internal/plugins/events"
	"github.com/keyxmakerx/eventboard/internal/plugins/web"
	"github.com/keyxmakerx/eventboard/internal/timefmt"
)

// RegisterRoutes builds the events service and mounts the JSON API under
// /api and the browser pages at the root. The pages reach the API through
// the HTTP client at Config.API.BaseURL, like any other client would.
func (a *App) RegisterRoutes() error {
	if a.EventRepo == nil {
		return errors.New("no event repository configured")
	}
	loc, err := a.Config.Location()
	if err != nil {
		return err
	}

	var cache events.DirectoryCache
	if a.Redis != nil {
		cache = events.NewDirectoryCache(a.Redis, a.Config.Cache.TTL)
	}
	a.Events = events.NewEventService(a.EventRepo, cache, loc)

	e := a.Echo
	e.GET("/healthz", a.healthz)

	api := e.Group("/api")
	events.RegisterRoutes(api, events.NewHandler(a.Events), a.Limiter.Middleware())

	client := eventsapi.NewClient(a.Config.API.BaseURL, a.Config.API.Timeout)
	client.SetRequestEditor(forwardRequestContext)
	web.RegisterRoutes(e, web.NewHandler(client, timefmt.New(loc)))
	return nil
}

// forwardRequestContext copies the page request's id and client address
// onto the API call it triggers.
func forwardRequestContext(req *http.Request) {
	ctx := req.Context()
	if id := middleware.RequestIDFrom(ctx); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}
	if ip := middleware.ClientIPFrom(ctx); ip != "" {
		req.Header.Set("X-Real-IP", ip)
	}
}
