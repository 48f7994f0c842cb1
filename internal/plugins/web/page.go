package web

import (
	"github.com/keyxmakerx/eventboard/internal/eventsapi"
	"github.com/keyxmakerx/eventboard/internal/views"
)

// Page carries what every page needs besides its own snapshot.
type Page struct {
	Title         string
	CSRFToken     string
	Notifications []views.Notification
}

func categoryNames(cats []eventsapi.Category) []string {
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names
}
