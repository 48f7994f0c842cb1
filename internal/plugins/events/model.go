// Package events is the REST backend of the event board: events, their
// categories and creators stored in MariaDB, the combined directory document
// cached in Redis, iCalendar export and seed import.
package events

import (
	"slices"
	"time"

	"github.com/keyxmakerx/eventboard/internal/timefmt"
)

// Event is a stored event. Times are kept in UTC.
type Event struct {
	ID          int64
	Title       string
	Description string
	Image       string
	Location    string
	StartTime   time.Time
	EndTime     time.Time

	// CategoryIDs is ordered as the client sent it.
	CategoryIDs []int64

	// CreatedBy is the creating user, nil when unknown.
	CreatedBy *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category is a named event category.
type Category struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// User is a person who can create events.
type User struct {
	ID    int64  `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Image string `json:"image" yaml:"image"`
}

// EventInput is the request body for create and replace. Times may be in
// any shape timefmt.Parse accepts.
type EventInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Location    string  `json:"location"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
	CategoryIDs []int64 `json:"categoryIds"`
	CreatedBy   *int64  `json:"createdBy"`
}

// EventResponse is the wire shape of an event.
type EventResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       string  `json:"image,omitempty"`
	Location    string  `json:"location"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
	CategoryIDs []int64 `json:"categoryIds"`
	CreatedBy   *int64  `json:"createdBy,omitempty"`
}

// Response converts e to its wire shape with ISO UTC timestamps.
func (e *Event) Response() EventResponse {
	ids := slices.Clone(e.CategoryIDs)
	if ids == nil {
		ids = []int64{}
	}
	return EventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Image:       e.Image,
		Location:    e.Location,
		StartTime:   timefmt.ISO(e.StartTime),
		EndTime:     timefmt.ISO(e.EndTime),
		CategoryIDs: ids,
		CreatedBy:   e.CreatedBy,
	}
}

// Directory is the combined document served at /data/events.json.
type Directory struct {
	Events     []EventResponse `json:"events"`
	Categories []Category      `json:"categories"`
}

// NewDirectory builds the document. Both lists are non-nil.
func NewDirectory(events []Event, categories []Category) *Directory {
	d := &Directory{
		Events:     make([]EventResponse, 0, len(events)),
		Categories: slices.Clone(categories),
	}
	if d.Categories == nil {
		d.Categories = []Category{}
	}
	for i := range events {
		d.Events = append(d.Events, events[i].Response())
	}
	return d
}
