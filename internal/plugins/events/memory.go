package events

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/keyxmakerx/eventboard/internal/apperror"
)

// memoryRepo is an in-process EventRepository used by `serve --in-memory`
// and by tests. It enforces the same foreign keys as the SQL schema.
type memoryRepo struct {
	mu         sync.RWMutex
	nextID     int64
	events     map[int64]Event
	categories map[int64]Category
	users      map[int64]User
	now        func() time.Time
}

// NewMemoryRepository returns an empty in-memory repository holding the
// default categories.
func NewMemoryRepository() EventRepository {
	r := &memoryRepo{
		nextID:     1,
		events:     map[int64]Event{},
		categories: map[int64]Category{},
		users:      map[int64]User{},
		now:        time.Now,
	}
	for _, c := range []Category{{1, "sports"}, {2, "games"}, {3, "relaxation"}} {
		r.categories[c.ID] = c
	}
	return r
}

func cloneEvent(e Event) Event {
	e.CategoryIDs = slices.Clone(e.CategoryIDs)
	if e.CategoryIDs == nil {
		e.CategoryIDs = []int64{}
	}
	if e.CreatedBy != nil {
		v := *e.CreatedBy
		e.CreatedBy = &v
	}
	return e
}

func (r *memoryRepo) ListEvents(_ context.Context) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, cloneEvent(e))
	}
	slices.SortFunc(out, func(a, b Event) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *memoryRepo) FindEvent(_ context.Context, id int64) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[id]
	if !ok {
		return nil, apperror.NewNotFound("event not found")
	}
	out := cloneEvent(e)
	return &out, nil
}

func (r *memoryRepo) CreateEvent(_ context.Context, evt *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkRefs(evt, nil); err != nil {
		return err
	}
	evt.ID = r.nextID
	r.nextID++
	evt.CreatedAt = r.now().UTC()
	evt.UpdatedAt = evt.CreatedAt
	r.events[evt.ID] = cloneEvent(*evt)
	return nil
}

func (r *memoryRepo) UpdateEvent(_ context.Context, evt *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.events[evt.ID]
	if !ok {
		return apperror.NewNotFound("event not found")
	}
	if err := r.checkRefs(evt, nil); err != nil {
		return err
	}
	evt.CreatedAt = old.CreatedAt
	evt.UpdatedAt = r.now().UTC()
	r.events[evt.ID] = cloneEvent(*evt)
	return nil
}

func (r *memoryRepo) DeleteEvent(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return apperror.NewNotFound("event not found")
	}
	delete(r.events, id)
	return nil
}

func (r *memoryRepo) CountEvents(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events), nil
}

func (r *memoryRepo) ListCategories(_ context.Context) ([]Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Category) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *memoryRepo) FindCategory(_ context.Context, id int64) (*Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, apperror.NewNotFound("category not found")
	}
	return &c, nil
}

func (r *memoryRepo) ListUsers(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b User) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *memoryRepo) FindUser(_ context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperror.NewNotFound("user not found")
	}
	return &u, nil
}

// Import applies seed all-or-nothing: references are checked against the
// stored rows plus the seed before anything is written.
func (r *memoryRepo) Import(_ context.Context, seed *Seed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range seed.Events {
		if err := r.checkRefs(&e, seed); err != nil {
			return err
		}
	}

	for _, c := range seed.Categories {
		r.categories[c.ID] = c
	}
	for _, u := range seed.Users {
		r.users[u.ID] = u
	}
	now := r.now().UTC()
	for _, e := range seed.Events {
		e.CreatedAt, e.UpdatedAt = now, now
		r.events[e.ID] = cloneEvent(e)
		r.nextID = max(r.nextID, e.ID+1)
	}
	return nil
}

// checkRefs mirrors the foreign keys of the events table. Rows in pending,
// when non-nil, count as stored.
func (r *memoryRepo) checkRefs(evt *Event, pending *Seed) error {
	for _, id := range evt.CategoryIDs {
		_, ok := r.categories[id]
		if !ok && pending != nil {
			ok = slices.ContainsFunc(pending.Categories, func(c Category) bool { return c.ID == id })
		}
		if !ok {
			return apperror.NewValidation("unknown category id")
		}
	}
	if evt.CreatedBy != nil {
		uid := *evt.CreatedBy
		_, ok := r.users[uid]
		if !ok && pending != nil {
			ok = slices.ContainsFunc(pending.Users, func(u User) bool { return u.ID == uid })
		}
		if !ok {
			return apperror.NewValidation("unknown user id")
		}
	}
	return nil
}
