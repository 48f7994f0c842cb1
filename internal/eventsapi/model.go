// Package eventsapi is the typed client for the events REST backend. Every
// browser view goes through it, so payloads are checked against explicit
// schemas on receipt and every failure is classified the same way.
package eventsapi

import "strings"

// Event is the wire representation of an event.
type Event struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       string  `json:"image,omitempty"`
	Location    string  `json:"location"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
	CategoryIDs []int64 `json:"categoryIds"`
	CreatedBy   *int64  `json:"createdBy,omitempty"`

	// Categories is a legacy list of category names found on older records.
	Categories []string `json:"categories,omitempty"`
}

// NewEvent is the payload for creating an event. The server assigns the id.
type NewEvent struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Location    string  `json:"location"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
	CategoryIDs []int64 `json:"categoryIds"`
	CreatedBy   *int64  `json:"createdBy,omitempty"`
}

// Category is a named tag referenced by events.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is the creator of an event.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Directory is the combined document the directory view loads in one call.
type Directory struct {
	Events     []Event    `json:"events"`
	Categories []Category `json:"categories"`
}

// validate reports the first schema violation, or "" when the event is usable.
func (e *Event) validate() string {
	switch {
	case e.ID <= 0:
		return "event id missing"
	case strings.TrimSpace(e.Title) == "":
		return "event title missing"
	}
	if e.CategoryIDs == nil {
		e.CategoryIDs = []int64{}
	}
	return ""
}

func (c *Category) validate() string {
	switch {
	case c.ID <= 0:
		return "category id missing"
	case c.Name == "":
		return "category name missing"
	}
	return ""
}

func (u *User) validate() string {
	if u.Name == "" {
		return "user name missing"
	}
	return ""
}

func (d *Directory) validate() string {
	if d.Events == nil || d.Categories == nil {
		return "directory document must contain events and categories"
	}
	for i := range d.Events {
		if msg := d.Events[i].validate(); msg != "" {
			return msg
		}
	}
	for i := range d.Categories {
		if msg := d.Categories[i].validate(); msg != "" {
			return msg
		}
	}
	return ""
}
