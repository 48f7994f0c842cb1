package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/eventboard/internal/apperror"
	"github.com/keyxmakerx/eventboard/internal/eventsapi"
	"github.com/keyxmakerx/eventboard/internal/timefmt"
)

// --- Fake API ---

// fakeAPI is a small stateful eventsapi.API backed by maps.
type fakeAPI struct {
	mu         sync.Mutex
	events     map[int64]eventsapi.Event
	categories []eventsapi.Category
	users      map[int64]eventsapi.User
	nextID     int64

	directoryErr error
	updateErr    error
	deleteErr    error
	created      []eventsapi.NewEvent
}

func newFakeAPI() *fakeAPI {
	alice := int64(1)
	return &fakeAPI{
		events: map[int64]eventsapi.Event{
			1: {ID: 1, Title: "Beach Party", Description: "Sun and sea", Location: "Beach",
				StartTime: "2030-07-01T14:00:00.000Z", EndTime: "2030-07-01T20:00:00.000Z",
				CategoryIDs: []int64{1}, CreatedBy: &alice},
			2: {ID: 2, Title: "Old Quiz", Description: "Pub quiz", Location: "Pub",
				StartTime: "2020-01-01T19:00:00.000Z", EndTime: "2020-01-01T22:00:00.000Z",
				CategoryIDs: []int64{2}},
		},
		categories: []eventsapi.Category{{ID: 1, Name: "sports"}, {ID: 2, Name: "games"}, {ID: 3, Name: "relaxation"}},
		users:      map[int64]eventsapi.User{1: {ID: 1, Name: "Alice"}},
		nextID:     3,
	}
}

func notFound(op string) error {
	return &eventsapi.Error{Kind: eventsapi.KindNotFound, Op: op, Status: http.StatusNotFound}
}

func (f *fakeAPI) Directory(_ context.Context) (*eventsapi.Directory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.directoryErr != nil {
		return nil, f.directoryErr
	}
	doc := &eventsapi.Directory{Categories: f.categories}
	for id := int64(1); id < f.nextID; id++ {
		if e, ok := f.events[id]; ok {
			doc.Events = append(doc.Events, e)
		}
	}
	return doc, nil
}

func (f *fakeAPI) Event(_ context.Context, id int64) (*eventsapi.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, notFound("GET /events")
	}
	return &e, nil
}

func (f *fakeAPI) User(_ context.Context, id int64) (*eventsapi.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, notFound("GET /users")
	}
	return &u, nil
}

func (f *fakeAPI) Category(_ context.Context, id int64) (*eventsapi.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, notFound("GET /categories")
}

func (f *fakeAPI) Categories(_ context.Context) ([]eventsapi.Category, error) {
	return f.categories, nil
}

func (f *fakeAPI) CreateEvent(_ context.Context, in eventsapi.NewEvent) (*eventsapi.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	e := eventsapi.Event{ID: f.nextID, Title: in.Title, Description: in.Description, Location: in.Location,
		StartTime: in.StartTime, EndTime: in.EndTime, CategoryIDs: in.CategoryIDs}
	f.events[e.ID] = e
	f.nextID++
	return &e, nil
}

func (f *fakeAPI) UpdateEvent(_ context.Context, evt eventsapi.Event) (*eventsapi.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.events[evt.ID] = evt
	return &evt, nil
}

func (f *fakeAPI) DeleteEvent(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.events[id]; !ok {
		return notFound("DELETE /events")
	}
	delete(f.events, id)
	return nil
}

// --- Helpers ---

func newTestEcho(api eventsapi.API) *echo.Echo {
	h := NewHandler(api, timefmt.New(time.UTC))
	h.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }

	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		_ = c.String(apperror.SafeCode(err), apperror.SafeMessage(err))
	}
	RegisterRoutes(e, h)
	return e
}

func get(e *echo.Echo, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func postForm(e *echo.Echo, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func flashCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookieName {
			return c
		}
	}
	t.Fatal("no flash cookie set")
	return nil
}

func assertContains(t *testing.T, body string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("body does not contain %q", w)
		}
	}
}

func assertNotContains(t *testing.T, body string, unwanted ...string) {
	t.Helper()
	for _, w := range unwanted {
		if strings.Contains(body, w) {
			t.Errorf("body unexpectedly contains %q", w)
		}
	}
}

// --- Directory ---

func TestDirectory_DefaultsToFutureOnly(t *testing.T) {
	e := newTestEcho(newFakeAPI())
	rec := get(e, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	assertContains(t, body, "Beach Party", `href="/events/1"`, "1 juli; 14.00", `name="future" value="1" checked`)
	assertNotContains(t, body, "Old Quiz")
}

func TestDirectory_QueryFilters(t *testing.T) {
	e := newTestEcho(newFakeAPI())

	body := get(e, "/?future=0&future=1&q=QUIZ").Body.String()
	assertContains(t, body, "Er zijn op dit moment geen evenementen")

	body = get(e, "/?future=0&q=quiz").Body.String()
	assertContains(t, body, "Old Quiz")
	assertNotContains(t, body, "Beach Party")

	body = get(e, "/?future=0&category=games&category=chess").Body.String()
	assertContains(t, body, "Old Quiz", `value="games" checked`)
	assertNotContains(t, body, "Beach Party", `value="chess"`)
}

func TestDirectory_LoadFailure(t *testing.T) {
	api := newFakeAPI()
	api.directoryErr = &eventsapi.Error{Kind: eventsapi.KindNetwork, Op: "GET /data/events.json"}
	rec := get(newTestEcho(api), "/")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	assertContains(t, rec.Body.String(), "De evenementen konden niet worden geladen")
}

func TestDirectory_EscapesEventText(t *testing.T) {
	api := newFakeAPI()
	evt := api.events[1]
	evt.Title = `<script>alert("x")</script>`
	api.events[1] = evt

	body := get(newTestEcho(api), "/").Body.String()
	assertContains(t, body, "&lt;script&gt;")
	assertNotContains(t, body, `<script>alert`)
}

// --- Detail ---

func TestDetail_States(t *testing.T) {
	e := newTestEcho(newFakeAPI())

	body := get(e, "/events/1").Body.String()
	assertContains(t, body, "<h1>Beach Party</h1>", "Alice", "sports", "1 juli - 14.00", "/static/images/no-image.png")
	assertNotContains(t, body, "<dialog")

	body = get(e, "/events/1?edit=1").Body.String()
	assertContains(t, body, `name="title" value="Beach Party"`, `value="2030-07-01T14:00"`, `action="/events/1"`)

	body = get(e, "/events/1?delete=1").Body.String()
	assertContains(t, body, "<dialog open", `action="/events/1/delete"`)

	// A missing creator renders the placeholder name.
	body = get(e, "/events/2").Body.String()
	assertContains(t, body, "Onbekend")
}

func TestDetail_NotFound(t *testing.T) {
	rec := get(newTestEcho(newFakeAPI()), "/events/99")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Event niet gevonden", "Fout bij laden")
}

func TestDetail_InvalidID(t *testing.T) {
	rec := get(newTestEcho(newFakeAPI()), "/events/abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSave_RedirectsWithFlash(t *testing.T) {
	api := newFakeAPI()
	e := newTestEcho(api)

	rec := postForm(e, "/events/1", url.Values{
		"title":       {"Beach Bash"},
		"description": {"Bigger"},
		"startTime":   {"2030-07-02T15:30"},
		"endTime":     {"2030-07-02T23:00"},
	})
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/events/1" {
		t.Fatalf("status %d location %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}

	saved := api.events[1]
	if saved.Title != "Beach Bash" || saved.StartTime != "2030-07-02T15:30:00.000Z" || saved.Location != "Beach" {
		t.Errorf("saved = %+v", saved)
	}

	body := get(e, "/events/1", flashCookie(t, rec)).Body.String()
	assertContains(t, body, "Event bijgewerkt", "Beach Bash")
}

func TestSave_InvalidTimeKeepsForm(t *testing.T) {
	api := newFakeAPI()
	rec := postForm(newTestEcho(api), "/events/1", url.Values{
		"title":       {"Typed title"},
		"description": {"Typed"},
		"startTime":   {"tomorrow"},
		"endTime":     {"2030-07-02T23:00"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Fout bij opslaan", `value="Typed title"`)
	if api.events[1].Title != "Beach Party" {
		t.Error("event must not change")
	}
}

func TestSave_BackendFailure(t *testing.T) {
	api := newFakeAPI()
	api.updateErr = &eventsapi.Error{Kind: eventsapi.KindServer, Op: "PUT /events/1", Status: http.StatusInternalServerError}
	rec := postForm(newTestEcho(api), "/events/1", url.Values{
		"title": {"X"}, "description": {"Y"},
		"startTime": {"2030-07-02T15:30"}, "endTime": {"2030-07-02T23:00"},
	})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Opslaan mislukt", `value="X"`)
}

func TestDelete_RedirectsToDirectory(t *testing.T) {
	api := newFakeAPI()
	e := newTestEcho(api)

	rec := postForm(e, "/events/1/delete", url.Values{})
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/" {
		t.Fatalf("status %d location %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
	if _, ok := api.events[1]; ok {
		t.Error("event still present")
	}

	body := get(e, "/", flashCookie(t, rec)).Body.String()
	assertContains(t, body, "Event verwijderd")
	assertNotContains(t, body, "Beach Party")
}

func TestDelete_Failure(t *testing.T) {
	api := newFakeAPI()
	api.deleteErr = errors.New("boom")
	rec := postForm(newTestEcho(api), "/events/1/delete", url.Values{})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Fout bij verwijderen", "<dialog open")
}

// --- Create ---

func TestNewForm_ListsCategories(t *testing.T) {
	body := get(newTestEcho(newFakeAPI()), "/new").Body.String()
	assertContains(t, body, `name="category" value="3"`, "relaxation", `action="/new"`)
}

func TestCreate_PostsNormalisedEvent(t *testing.T) {
	api := newFakeAPI()
	e := newTestEcho(api)

	rec := postForm(e, "/new", url.Values{
		"title":       {"Yoga"},
		"description": {"Stretch"},
		"location":    {"Park"},
		"startTime":   {"2030-08-01T10:00"},
		"endTime":     {"2030-08-01T11:00"},
		"category":    {"3", "1", "3", "x"},
	})
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/" {
		t.Fatalf("status %d location %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
	if len(api.created) != 1 {
		t.Fatalf("created %d events", len(api.created))
	}
	got := api.created[0]
	if got.StartTime != "2030-08-01T10:00:00.000Z" || got.EndTime != "2030-08-01T11:00:00.000Z" {
		t.Errorf("times = %s / %s", got.StartTime, got.EndTime)
	}
	if len(got.CategoryIDs) != 2 || got.CategoryIDs[0] != 3 || got.CategoryIDs[1] != 1 {
		t.Errorf("category ids = %v", got.CategoryIDs)
	}

	assertContains(t, get(e, "/").Body.String(), "Yoga")
}

func TestCreate_MissingFields(t *testing.T) {
	api := newFakeAPI()
	rec := postForm(newTestEcho(api), "/new", url.Values{"title": {"Half done"}, "category": {"2"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Fout bij toevoegen", `value="Half done"`, `value="2" checked`)
	if len(api.created) != 0 {
		t.Error("nothing must be posted")
	}
}
