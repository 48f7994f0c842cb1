package events

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/keyxmakerx/eventboard/internal/apperror"
	"github.com/keyxmakerx/eventboard/internal/sanitize"
	"github.com/keyxmakerx/eventboard/internal/timefmt"
)

// EventService defines business logic for the events backend.
type EventService interface {
	// Directory returns the combined events and categories document,
	// served from the cache when possible.
	Directory(ctx context.Context) (*Directory, error)

	// Events.
	ListEvents(ctx context.Context) ([]Event, error)
	GetEvent(ctx context.Context, id int64) (*Event, error)
	CreateEvent(ctx context.Context, input EventInput) (*Event, error)
	UpdateEvent(ctx context.Context, id int64, input EventInput) (*Event, error)
	DeleteEvent(ctx context.Context, id int64) error

	// Categories and users are read-only over the API.
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (*User, error)

	// Import upserts a seed document. ImportIfEmpty does so only when no
	// events exist yet and reports whether it imported.
	Import(ctx context.Context, seed *Seed) error
	ImportIfEmpty(ctx context.Context, seed *Seed) (bool, error)

	// WarmCache rebuilds the cached directory document.
	WarmCache(ctx context.Context) error
}

// eventService is the default EventService implementation.
type eventService struct {
	repo   EventRepository
	cache  DirectoryCache
	format timefmt.Formatter
}

// NewEventService creates an EventService backed by the given repository
// and cache. A nil cache disables caching. Zone-less input times are read
// in loc.
func NewEventService(repo EventRepository, cache DirectoryCache, loc *time.Location) EventService {
	if cache == nil {
		cache = noCache{}
	}
	return &eventService{repo: repo, cache: cache, format: timefmt.New(loc)}
}

// Directory returns the cached document or builds and caches a fresh one.
// Cache failures degrade to a database read.
func (s *eventService) Directory(ctx context.Context) (*Directory, error) {
	d, err := s.cache.Get(ctx)
	if err != nil {
		slog.Warn("directory cache read failed", slog.Any("error", err))
	}
	if d != nil {
		return d, nil
	}
	return s.buildDirectory(ctx)
}

func (s *eventService) buildDirectory(ctx context.Context) (*Directory, error) {
	gen, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		slog.Warn("directory cache generation read failed", slog.Any("error", genErr))
	}

	events, err := s.repo.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	d := NewDirectory(events, cats)
	if genErr != nil {
		return d, nil
	}
	if err := s.cache.Set(ctx, d, gen); err != nil {
		slog.Warn("directory cache write failed", slog.Any("error", err))
	}
	return d, nil
}

// WarmCache rebuilds the cached directory from the database.
func (s *eventService) WarmCache(ctx context.Context) error {
	_, err := s.buildDirectory(ctx)
	return err
}

// invalidate drops the cached directory after a write so the next load sees
// the change.
func (s *eventService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		slog.Error("directory cache invalidation failed", slog.Any("error", err))
	}
}

// ListEvents returns all events ordered by start time.
func (s *eventService) ListEvents(ctx context.Context) ([]Event, error) {
	events, err := s.repo.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// GetEvent returns a single event or a not-found error.
func (s *eventService) GetEvent(ctx context.Context, id int64) (*Event, error) {
	evt, err := s.repo.FindEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return evt, nil
}

// CreateEvent validates input and stores a new event.
func (s *eventService) CreateEvent(ctx context.Context, input EventInput) (*Event, error) {
	evt, err := s.buildEvent(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateEvent(ctx, evt); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.invalidate(ctx)

	slog.Info("event created", slog.Int64("event_id", evt.ID), slog.String("title", evt.Title))
	return s.GetEvent(ctx, evt.ID)
}

// UpdateEvent replaces the event with id by input. Last write wins.
func (s *eventService) UpdateEvent(ctx context.Context, id int64, input EventInput) (*Event, error) {
	evt, err := s.buildEvent(ctx, input)
	if err != nil {
		return nil, err
	}
	evt.ID = id
	if err := s.repo.UpdateEvent(ctx, evt); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	s.invalidate(ctx)

	slog.Info("event updated", slog.Int64("event_id", id))
	return s.GetEvent(ctx, id)
}

// DeleteEvent removes the event with id.
func (s *eventService) DeleteEvent(ctx context.Context, id int64) error {
	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	s.invalidate(ctx)

	slog.Info("event deleted", slog.Int64("event_id", id))
	return nil
}

// buildEvent sanitises and validates input.
func (s *eventService) buildEvent(ctx context.Context, input EventInput) (*Event, error) {
	evt := &Event{
		Title:       sanitize.Text(input.Title),
		Description: sanitize.Text(input.Description),
		Location:    sanitize.Text(input.Location),
		Image:       sanitize.URL(input.Image),
		CategoryIDs: dedupeIDs(input.CategoryIDs),
		CreatedBy:   input.CreatedBy,
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"title", evt.Title},
		{"description", evt.Description},
		{"location", evt.Location},
		{"startTime", strings.TrimSpace(input.StartTime)},
		{"endTime", strings.TrimSpace(input.EndTime)},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, apperror.NewValidation("missing required fields: " + strings.Join(missing, ", "))
	}

	if strings.TrimSpace(input.Image) != "" && evt.Image == "" {
		return nil, apperror.NewValidation("image must be an http(s) URL or a site path")
	}

	start, err := s.format.Parse(input.StartTime)
	if err != nil {
		return nil, apperror.NewValidation("startTime is not a valid timestamp")
	}
	end, err := s.format.Parse(input.EndTime)
	if err != nil {
		return nil, apperror.NewValidation("endTime is not a valid timestamp")
	}
	if end.Before(start) {
		return nil, apperror.NewValidation("endTime must not be before startTime")
	}
	evt.StartTime = start.UTC()
	evt.EndTime = end.UTC()

	if err := s.checkCategories(ctx, evt.CategoryIDs); err != nil {
		return nil, err
	}
	if err := s.checkCreator(ctx, evt.CreatedBy); err != nil {
		return nil, err
	}
	return evt, nil
}

func (s *eventService) checkCategories(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}

	var unknown []string
	for _, id := range ids {
		if !slices.ContainsFunc(cats, func(c Category) bool { return c.ID == id }) {
			unknown = append(unknown, fmt.Sprint(id))
		}
	}
	if len(unknown) > 0 {
		return apperror.NewValidation("unknown category ids: " + strings.Join(unknown, ", "))
	}
	return nil
}

func (s *eventService) checkCreator(ctx context.Context, userID *int64) error {
	if userID == nil {
		return nil
	}
	if _, err := s.repo.FindUser(ctx, *userID); err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewValidation(fmt.Sprintf("unknown user id: %d", *userID))
		}
		return fmt.Errorf("find user: %w", err)
	}
	return nil
}

// ListCategories returns all categories.
func (s *eventService) ListCategories(ctx context.Context) ([]Category, error) {
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// GetCategory returns a category or a not-found error.
func (s *eventService) GetCategory(ctx context.Context, id int64) (*Category, error) {
	c, err := s.repo.FindCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// ListUsers returns all users.
func (s *eventService) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetUser returns a user or a not-found error.
func (s *eventService) GetUser(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.FindUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Import sanitises and upserts a seed document.
func (s *eventService) Import(ctx context.Context, seed *Seed) error {
	clean := &Seed{Categories: seed.Categories, Users: seed.Users}
	for _, evt := range seed.Events {
		evt.Title = sanitize.Text(evt.Title)
		evt.Description = sanitize.Text(evt.Description)
		evt.Location = sanitize.Text(evt.Location)
		evt.Image = sanitize.URL(evt.Image)
		clean.Events = append(clean.Events, evt)
	}

	if err := s.repo.Import(ctx, clean); err != nil {
		return fmt.Errorf("import seed: %w", err)
	}
	s.invalidate(ctx)

	slog.Info("seed imported",
		slog.Int("events", len(clean.Events)),
		slog.Int("categories", len(clean.Categories)),
		slog.Int("users", len(clean.Users)),
	)
	return nil
}

// ImportIfEmpty imports seed only into an empty events table.
func (s *eventService) ImportIfEmpty(ctx context.Context, seed *Seed) (bool, error) {
	n, err := s.repo.CountEvents(ctx)
	if err != nil {
		return false, fmt.Errorf("count events: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if err := s.Import(ctx, seed); err != nil {
		return false, err
	}
	return true, nil
}
