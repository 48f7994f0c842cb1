package events

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/keyxmakerx/eventboard/internal/apperror"
)

// --- Mocks ---

// mockEventRepo implements EventRepository for testing.
type mockEventRepo struct {
	listEventsFn     func(ctx context.Context) ([]Event, error)
	findEventFn      func(ctx context.Context, id int64) (*Event, error)
	createEventFn    func(ctx context.Context, evt *Event) error
	updateEventFn    func(ctx context.Context, evt *Event) error
	deleteEventFn    func(ctx context.Context, id int64) error
	countEventsFn    func(ctx context.Context) (int, error)
	listCategoriesFn func(ctx context.Context) ([]Category, error)
	findCategoryFn   func(ctx context.Context, id int64) (*Category, error)
	listUsersFn      func(ctx context.Context) ([]User, error)
	findUserFn       func(ctx context.Context, id int64) (*User, error)
	importFn         func(ctx context.Context, seed *Seed) error
}

func (m *mockEventRepo) ListEvents(ctx context.Context) ([]Event, error) {
	if m.listEventsFn != nil {
		return m.listEventsFn(ctx)
	}
	return nil, nil
}

func (m *mockEventRepo) FindEvent(ctx context.Context, id int64) (*Event, error) {
	if m.findEventFn != nil {
		return m.findEventFn(ctx, id)
	}
	return nil, apperror.NewNotFound("event not found")
}

func (m *mockEventRepo) CreateEvent(ctx context.Context, evt *Event) error {
	if m.createEventFn != nil {
		return m.createEventFn(ctx, evt)
	}
	return nil
}

func (m *mockEventRepo) UpdateEvent(ctx context.Context, evt *Event) error {
	if m.updateEventFn != nil {
		return m.updateEventFn(ctx, evt)
	}
	return nil
}

func (m *mockEventRepo) DeleteEvent(ctx context.Context, id int64) error {
	if m.deleteEventFn != nil {
		return m.deleteEventFn(ctx, id)
	}
	return nil
}

func (m *mockEventRepo) CountEvents(ctx context.Context) (int, error) {
	if m.countEventsFn != nil {
		return m.countEventsFn(ctx)
	}
	return 0, nil
}

func (m *mockEventRepo) ListCategories(ctx context.Context) ([]Category, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx)
	}
	return []Category{{ID: 1, Name: "sports"}, {ID: 2, Name: "games"}}, nil
}

func (m *mockEventRepo) FindCategory(ctx context.Context, id int64) (*Category, error) {
	if m.findCategoryFn != nil {
		return m.findCategoryFn(ctx, id)
	}
	return nil, apperror.NewNotFound("category not found")
}

func (m *mockEventRepo) ListUsers(ctx context.Context) ([]User, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx)
	}
	return nil, nil
}

func (m *mockEventRepo) FindUser(ctx context.Context, id int64) (*User, error) {
	if m.findUserFn != nil {
		return m.findUserFn(ctx, id)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockEventRepo) Import(ctx context.Context, seed *Seed) error {
	if m.importFn != nil {
		return m.importFn(ctx, seed)
	}
	return nil
}

// mockCache implements DirectoryCache for testing.
type mockCache struct {
	stored      *Directory
	getErr      error
	gen         int64
	sets        int
	invalidates int
}

func (m *mockCache) Get(context.Context) (*Directory, error) { return m.stored, m.getErr }

func (m *mockCache) Generation(context.Context) (int64, error) { return m.gen, nil }

func (m *mockCache) Set(_ context.Context, d *Directory, gen int64) error {
	if gen != m.gen {
		return nil
	}
	m.sets++
	m.stored = d
	return nil
}

func (m *mockCache) Invalidate(context.Context) error {
	m.gen++
	m.invalidates++
	m.stored = nil
	return nil
}

// --- Helpers ---

func newTestService(repo EventRepository, cache DirectoryCache) EventService {
	return NewEventService(repo, cache, time.UTC)
}

// assertAppError checks that an error is an AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status code %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

func validInput() EventInput {
	return EventInput{
		Title:       "Beach Party",
		Description: "Sun and music",
		Location:    "Scheveningen",
		StartTime:   "2030-07-01T14:00:00.000Z",
		EndTime:     "2030-07-01T20:00:00.000Z",
		CategoryIDs: []int64{1},
	}
}

// --- Create Tests ---

func TestCreateEvent_Success(t *testing.T) {
	var stored *Event
	cache := &mockCache{stored: &Directory{}}
	repo := &mockEventRepo{
		createEventFn: func(_ context.Context, evt *Event) error {
			evt.ID = 7
			stored = evt
			return nil
		},
		findEventFn: func(_ context.Context, id int64) (*Event, error) {
			return stored, nil
		},
	}
	svc := newTestService(repo, cache)

	in := validInput()
	in.CategoryIDs = []int64{1, 2, 1}
	evt, err := svc.CreateEvent(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if evt.ID != 7 {
		t.Errorf("ID = %d", evt.ID)
	}
	if len(evt.CategoryIDs) != 2 {
		t.Errorf("category ids not de-duplicated: %v", evt.CategoryIDs)
	}
	if want := time.Date(2030, 7, 1, 14, 0, 0, 0, time.UTC); !evt.StartTime.Equal(want) {
		t.Errorf("StartTime = %v", evt.StartTime)
	}
	if cache.invalidates != 1 {
		t.Errorf("cache invalidated %d times, want 1", cache.invalidates)
	}
}

func TestCreateEvent_MissingFields(t *testing.T) {
	svc := newTestService(&mockEventRepo{
		createEventFn: func(context.Context, *Event) error {
			t.Fatal("repository must not be called")
			return nil
		},
	}, nil)

	in := validInput()
	in.Location = "   "
	in.EndTime = ""
	_, err := svc.CreateEvent(context.Background(), in)
	assertAppError(t, err, 422)
	if msg := apperror.SafeMessage(err); !strings.Contains(msg, "location") || !strings.Contains(msg, "endTime") {
		t.Errorf("message = %q", msg)
	}
}

func TestCreateEvent_MarkupOnlyTitleIsMissing(t *testing.T) {
	svc := newTestService(&mockEventRepo{}, nil)
	in := validInput()
	in.Title = "<script>alert(1)</script>"
	_, err := svc.CreateEvent(context.Background(), in)
	assertAppError(t, err, 422)
}

func TestCreateEvent_UnknownCategory(t *testing.T) {
	svc := newTestService(&mockEventRepo{}, nil)
	in := validInput()
	in.CategoryIDs = []int64{1, 99}
	_, err := svc.CreateEvent(context.Background(), in)
	assertAppError(t, err, 422)
	if !strings.Contains(apperror.SafeMessage(err), "99") {
		t.Errorf("message = %q", apperror.SafeMessage(err))
	}
}

func TestCreateEvent_UnknownCreator(t *testing.T) {
	svc := newTestService(&mockEventRepo{}, nil)
	in := validInput()
	uid := int64(4)
	in.CreatedBy = &uid
	_, err := svc.CreateEvent(context.Background(), in)
	assertAppError(t, err, 422)
}

func TestCreateEvent_BadTimes(t *testing.T) {
	svc := newTestService(&mockEventRepo{}, nil)

	in := validInput()
	in.StartTime = "next tuesday"
	_, err := svc.CreateEvent(context.Background(), in)
	assertAppError(t, err, 422)

	in = validInput()
	in.EndTime = "2030-06-30T10:00:00Z"
	_, err = svc.CreateEvent(context.Background(), in)
	assertAppError(t, err, 422)
}

func TestCreateEvent_RejectsScriptImage(t *testing.T) {
	svc := newTestService(&mockEventRepo{}, nil)
	in := validInput()
	in.Image = "javascript:alert(1)"
	_, err := svc.CreateEvent(context.Background(), in)
	assertAppError(t, err, 422)
}

func TestCreateEvent_LocalTimesUseServiceZone(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	var stored *Event
	repo := &mockEventRepo{
		createEventFn: func(_ context.Context, evt *Event) error { evt.ID = 1; stored = evt; return nil },
		findEventFn:   func(context.Context, int64) (*Event, error) { return stored, nil },
	}
	svc := NewEventService(repo, nil, loc)

	in := validInput()
	in.StartTime = "2030-07-01T14:00"
	in.EndTime = "2030-07-01T15:00"
	evt, err := svc.CreateEvent(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if evt.StartTime.Hour() != 13 || evt.StartTime.Location() != time.UTC {
		t.Errorf("StartTime = %v, want 13:00 UTC", evt.StartTime)
	}
}

// --- Update / Delete Tests ---

func TestUpdateEvent_NotFound(t *testing.T) {
	cache := &mockCache{}
	svc := newTestService(&mockEventRepo{
		updateEventFn: func(context.Context, *Event) error { return apperror.NewNotFound("event not found") },
	}, cache)

	_, err := svc.UpdateEvent(context.Background(), 5, validInput())
	assertAppError(t, err, 404)
	if cache.invalidates != 0 {
		t.Error("failed write must not invalidate")
	}
}

func TestUpdateEvent_UsesPathID(t *testing.T) {
	var gotID int64
	repo := &mockEventRepo{
		updateEventFn: func(_ context.Context, evt *Event) error { gotID = evt.ID; return nil },
		findEventFn:   func(_ context.Context, id int64) (*Event, error) { return &Event{ID: id, Title: "New"}, nil },
	}
	cache := &mockCache{}
	svc := newTestService(repo, cache)

	evt, err := svc.UpdateEvent(context.Background(), 5, validInput())
	if err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	if gotID != 5 || evt.ID != 5 {
		t.Errorf("ids = %d, %d", gotID, evt.ID)
	}
	if cache.invalidates != 1 {
		t.Errorf("invalidates = %d", cache.invalidates)
	}
}

func TestDeleteEvent(t *testing.T) {
	cache := &mockCache{}
	svc := newTestService(&mockEventRepo{}, cache)
	if err := svc.DeleteEvent(context.Background(), 3); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if cache.invalidates != 1 {
		t.Errorf("invalidates = %d", cache.invalidates)
	}

	svc = newTestService(&mockEventRepo{
		deleteEventFn: func(context.Context, int64) error { return apperror.NewNotFound("event not found") },
	}, cache)
	assertAppError(t, svc.DeleteEvent(context.Background(), 3), 404)
}

// --- Directory Tests ---

func TestDirectory_CacheHit(t *testing.T) {
	cached := &Directory{Events: []EventResponse{{ID: 1}}, Categories: []Category{}}
	svc := newTestService(&mockEventRepo{
		listEventsFn: func(context.Context) ([]Event, error) {
			t.Fatal("database must not be read on a cache hit")
			return nil, nil
		},
	}, &mockCache{stored: cached})

	d, err := svc.Directory(context.Background())
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	if d != cached {
		t.Error("expected cached document")
	}
}

func TestDirectory_MissBuildsAndStores(t *testing.T) {
	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	cache := &mockCache{getErr: errors.New("redis down")}
	svc := newTestService(&mockEventRepo{
		listEventsFn: func(context.Context) ([]Event, error) {
			return []Event{{ID: 2, Title: "A", StartTime: start, EndTime: start}}, nil
		},
	}, cache)

	d, err := svc.Directory(context.Background())
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	if len(d.Events) != 1 || d.Events[0].StartTime != "2030-01-01T10:00:00.000Z" {
		t.Errorf("events = %+v", d.Events)
	}
	if d.Events[0].CategoryIDs == nil {
		t.Error("categoryIds must serialise as []")
	}
	if len(d.Categories) != 2 {
		t.Errorf("categories = %+v", d.Categories)
	}
	if cache.sets != 1 {
		t.Errorf("sets = %d", cache.sets)
	}
}

func TestDirectory_DatabaseErrorIsInternal(t *testing.T) {
	svc := newTestService(&mockEventRepo{
		listEventsFn: func(context.Context) ([]Event, error) { return nil, errors.New("Error 2006: gone away") },
	}, nil)
	_, err := svc.Directory(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if apperror.SafeCode(err) != 500 || strings.Contains(apperror.SafeMessage(err), "2006") {
		t.Errorf("raw error leaked: %v", apperror.SafeMessage(err))
	}
}

// --- Import Tests ---

func TestImportIfEmpty(t *testing.T) {
	imported := 0
	repo := &mockEventRepo{
		countEventsFn: func(context.Context) (int, error) { return 0, nil },
		importFn: func(_ context.Context, seed *Seed) error {
			imported++
			if seed.Events[0].Title != "Quiz" {
				t.Errorf("title not sanitised: %q", seed.Events[0].Title)
			}
			return nil
		},
	}
	svc := newTestService(repo, nil)
	seed := &Seed{Events: []Event{{ID: 1, Title: "<b>Quiz</b>"}}}

	ok, err := svc.ImportIfEmpty(context.Background(), seed)
	if err != nil || !ok {
		t.Fatalf("ImportIfEmpty = %v, %v", ok, err)
	}

	repo.countEventsFn = func(context.Context) (int, error) { return 3, nil }
	ok, err = svc.ImportIfEmpty(context.Background(), seed)
	if err != nil || ok {
		t.Fatalf("non-empty table: ImportIfEmpty = %v, %v", ok, err)
	}
	if imported != 1 {
		t.Errorf("imported %d times", imported)
	}
}
