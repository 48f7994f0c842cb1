package web

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/eventboard/internal/eventsapi"
	"github.com/keyxmakerx/eventboard/internal/middleware"
	"github.com/keyxmakerx/eventboard/internal/views"
)

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return sb.String()
}

func TestLayout_Notifications(t *testing.T) {
	p := Page{Title: "Evenementen", Notifications: []views.Notification{
		{Level: views.LevelSuccess, Title: "Event bijgewerkt"},
		{Level: views.LevelError, Title: "Fout", Message: "<b>kapot</b>"},
	}}
	body := render(t, context.Background(), DirectoryPage(p, views.DirectorySnapshot{Empty: true, EmptyMessage: "Leeg"}, nil))

	assertContains(t, body,
		"<!DOCTYPE html>",
		"<title>Evenementen | Eventboard</title>",
		`<div class="toast" data-level="success" role="status"><strong>Event bijgewerkt</strong></div>`,
		`data-level="error"`,
		"<p>&lt;b&gt;kapot&lt;/b&gt;</p>",
		`<p class="empty">Leeg</p>`,
	)
	assertNotContains(t, body, `<fieldset>`)
}

func TestLayout_NoNotifications(t *testing.T) {
	body := render(t, context.Background(), CreatePage(Page{Title: "Nieuw event", CSRFToken: "abc"}, views.CreateSnapshot{
		Categories: []eventsapi.Category{{ID: 1, Name: "sports"}},
	}))
	assertNotContains(t, body, `class="toasts"`)
	assertContains(t, body,
		`<input type="hidden" name="csrf_token" value="abc">`,
		`<input type="text" id="title" name="title" value="" required>`,
		`<input type="text" id="image" name="image" value="">`,
		`<label><input type="checkbox" name="category" value="1"> sports</label>`,
	)
}

func TestErrorPage_RequestID(t *testing.T) {
	ctx := middleware.WithRequestID(context.Background(), "req-42")
	body := render(t, ctx, ErrorPage(404, "Pagina niet gevonden"))
	assertContains(t, body, "<title>404 | Eventboard</title>", "<h1>404</h1>", "Referentie: <code>req-42</code>")

	body = render(t, context.Background(), ErrorPage(500, "Oeps"))
	assertNotContains(t, body, "Referentie")
}

func TestDetailPage_UnsafeImageURL(t *testing.T) {
	snap := views.DetailSnapshot{
		ID:     1,
		State:  views.StateViewing,
		Detail: &views.EventDetail{Event: eventsapi.Event{Title: "X"}},
		Image:  "javascript:alert(1)",
	}
	body := render(t, context.Background(), DetailPage(Page{Title: "X"}, snap))
	assertNotContains(t, body, "javascript:")
	assertContains(t, body, `href="/events/1?edit=1"`)
}
