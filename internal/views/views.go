// Package views holds the per-screen state containers of the event board.
// Each view owns its state, talks to the backend only through
// eventsapi.API, and hands out immutable snapshots for rendering. Failures
// never leave a view: they become state or notifications.
package views

import (
	"errors"
	"unicode/utf8"
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a transient message shown to the user (a toast).
type Notification struct {
	Level   Level
	Title   string
	Message string
}

// Navigation asks the caller to perform a full page navigation.
type Navigation struct {
	To string
}

// DirectoryPath is where the directory view lives.
const DirectoryPath = "/"

// PlaceholderImage is shown for events without an image.
const PlaceholderImage = "/static/images/no-image.png"

// summaryLength is how many characters of a description a card shows.
const summaryLength = 120

// ErrInvalidTransition is returned when an action is not allowed in the
// view's current state.
var ErrInvalidTransition = errors.New("action not allowed in current state")

// ErrMissingFields is returned when a required form field is empty.
var ErrMissingFields = errors.New("required fields missing")

// notifier collects notifications until they are drained.
type notifier struct {
	notes []Notification
}

func (n *notifier) notify(level Level, title, message string) {
	n.notes = append(n.notes, Notification{Level: level, Title: title, Message: message})
}

// drain returns and clears the pending notifications.
func (n *notifier) drain() []Notification {
	out := n.notes
	n.notes = nil
	return out
}

// truncate shortens s to max runes, appending "..." when cut.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

func imageOrPlaceholder(image string) string {
	if image == "" {
		return PlaceholderImage
	}
	return image
}
