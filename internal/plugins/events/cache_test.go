package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestDirectoryCache_RoundTripAndExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cache := NewDirectoryCache(rdb, time.Minute)
	ctx := context.Background()

	if d, err := cache.Get(ctx); err != nil || d != nil {
		t.Fatalf("empty cache: %v, %v", d, err)
	}

	want := &Directory{
		Events:     []EventResponse{{ID: 1, Title: "Beach Party", CategoryIDs: []int64{1}}},
		Categories: []Category{{ID: 1, Name: "sports"}},
	}
	if err := cache.Set(ctx, want, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := cache.Get(ctx)
	if err != nil || got == nil {
		t.Fatalf("Get: %v, %v", got, err)
	}
	if got.Events[0].Title != "Beach Party" || got.Categories[0].Name != "sports" {
		t.Errorf("got %+v", got)
	}

	mr.FastForward(2 * time.Minute)
	if d, _ := cache.Get(ctx); d != nil {
		t.Error("entry should have expired")
	}
}

func TestDirectoryCache_Invalidate(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cache := NewDirectoryCache(rdb, 0)
	ctx := context.Background()

	_ = cache.Set(ctx, &Directory{Events: []EventResponse{}, Categories: []Category{}}, 0)
	if !mr.Exists(directoryKey) {
		t.Fatal("key not written")
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if mr.Exists(directoryKey) {
		t.Error("key still present")
	}
}

func TestDirectoryCache_CorruptEntryIsMiss(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cache := NewDirectoryCache(rdb, 0)
	_ = mr.Set(directoryKey, "{not json")

	d, err := cache.Get(context.Background())
	if err != nil || d != nil {
		t.Fatalf("corrupt entry: %v, %v", d, err)
	}
	if mr.Exists(directoryKey) {
		t.Error("corrupt entry not dropped")
	}
}

func TestDirectoryCache_ServiceInvalidatesOnWrite(t *testing.T) {
	_, rdb := newTestRedis(t)
	svc := NewEventService(NewMemoryRepository(), NewDirectoryCache(rdb, time.Hour), time.UTC)
	ctx := context.Background()

	d, err := svc.Directory(ctx)
	if err != nil || len(d.Events) != 0 {
		t.Fatalf("initial directory: %+v, %v", d, err)
	}
	if _, err := svc.CreateEvent(ctx, validInput()); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	d, _ = svc.Directory(ctx)
	if len(d.Events) != 1 {
		t.Errorf("stale directory after create: %+v", d.Events)
	}
}

func TestDirectoryCache_SetSkippedAfterInvalidate(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cache := NewDirectoryCache(rdb, 0)
	ctx := context.Background()

	gen, err := cache.Generation(ctx)
	if err != nil || gen != 0 {
		t.Fatalf("Generation: %d, %v", gen, err)
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if err := cache.Set(ctx, &Directory{Events: []EventResponse{}, Categories: []Category{}}, gen); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if mr.Exists(directoryKey) {
		t.Error("document read before the write was stored")
	}

	gen, _ = cache.Generation(ctx)
	if gen != 1 {
		t.Fatalf("generation = %d, want 1", gen)
	}
	_ = cache.Set(ctx, &Directory{Events: []EventResponse{}, Categories: []Category{}}, gen)
	if !mr.Exists(directoryKey) {
		t.Error("current document not stored")
	}
}

// pausingRepo blocks the first ListEvents call after it has read from the
// wrapped repository until release is closed.
type pausingRepo struct {
	EventRepository
	once    sync.Once
	reached chan struct{}
	release chan struct{}
}

func (r *pausingRepo) ListEvents(ctx context.Context) ([]Event, error) {
	events, err := r.EventRepository.ListEvents(ctx)
	r.once.Do(func() {
		close(r.reached)
		<-r.release
	})
	return events, err
}

func TestDirectoryCache_WarmRacingDeleteDoesNotResurrect(t *testing.T) {
	_, rdb := newTestRedis(t)
	repo := &pausingRepo{
		EventRepository: NewMemoryRepository(),
		reached:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	svc := NewEventService(repo, NewDirectoryCache(rdb, time.Hour), time.UTC)
	ctx := context.Background()

	evt, err := svc.CreateEvent(ctx, validInput())
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	warmed := make(chan error, 1)
	go func() { warmed <- svc.WarmCache(ctx) }()

	<-repo.reached
	if err := svc.DeleteEvent(ctx, evt.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	close(repo.release)
	if err := <-warmed; err != nil {
		t.Fatalf("WarmCache: %v", err)
	}

	d, err := svc.Directory(ctx)
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	if len(d.Events) != 0 {
		t.Errorf("deleted event still listed: %+v", d.Events)
	}
}
