package eventsapi

import (
	"errors"
	"fmt"
)

// Kind classifies a failed API call.
type Kind string

const (
	// KindNetwork means the request never produced an HTTP response.
	KindNetwork Kind = "network"

	// KindNotFound means the backend answered 404.
	KindNotFound Kind = "not_found"

	// KindServer covers every other non-2xx answer.
	KindServer Kind = "server"

	// KindParse means the body did not match the expected schema.
	KindParse Kind = "parse"
)

// Error is returned by every Client method that fails.
type Error struct {
	Kind Kind

	// Op names the call, e.g. "GET /events/3".
	Op string

	// Status is the HTTP status for KindNotFound and KindServer.
	Status int

	// Message is the server's message or the schema violation.
	Message string

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying transport or decode error.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsNotFound reports whether err is a KindNotFound error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsNetwork reports whether err is a KindNetwork error.
func IsNetwork(err error) bool {
	return KindOf(err) == KindNetwork
}
