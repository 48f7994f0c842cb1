package events

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const seedYAML = `
categories:
  - id: 1
    name: sports
  - id: 4
    name: music
users:
  - id: 1
    name: Ada
    image: /static/images/ada.png
events:
  - id: 10
    title: Concert
    description: Live
    location: Park
    startTime: "2030-05-01T20:00"
    endTime: "2030-05-01T23:00:00Z"
    categories: [music]
    categoryIds: [4, 1]
    createdBy: 1
`

const seedJSON = `{"events":[{"id":3,"title":"Run","description":"5k","location":"Dunes",
  "startTime":"2030-03-01T09:00:00.000Z","endTime":"2030-03-01T10:00:00.000Z","categoryIds":[1]}],
  "categories":[{"id":1,"name":"sports"}],"users":[]}`

func writeSeed(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing seed: %v", err)
	}
	return path
}

func TestLoadSeed_YAML(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	seed, err := LoadSeed(writeSeed(t, "seed.yaml", seedYAML), loc)
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if len(seed.Events) != 1 || len(seed.Categories) != 2 || len(seed.Users) != 1 {
		t.Fatalf("seed = %+v", seed)
	}
	evt := seed.Events[0]
	if evt.StartTime.Hour() != 19 {
		t.Errorf("zone-less start not read in loc: %v", evt.StartTime)
	}
	if len(evt.CategoryIDs) != 2 || evt.CategoryIDs[0] != 4 || evt.CategoryIDs[1] != 1 {
		t.Errorf("category ids = %v", evt.CategoryIDs)
	}
	if evt.CreatedBy == nil || *evt.CreatedBy != 1 {
		t.Errorf("createdBy = %v", evt.CreatedBy)
	}
}

func TestLoadSeed_JSONIntoMemory(t *testing.T) {
	seed, err := LoadSeed(writeSeed(t, "events.json", seedJSON), time.UTC)
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}

	repo := NewMemoryRepository()
	svc := NewEventService(repo, nil, time.UTC)
	if err := svc.Import(context.Background(), seed); err != nil {
		t.Fatalf("Import: %v", err)
	}
	evt, err := svc.GetEvent(context.Background(), 3)
	if err != nil || evt.Title != "Run" {
		t.Fatalf("GetEvent = %+v, %v", evt, err)
	}

	// New events continue after imported ids.
	created, err := svc.CreateEvent(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if created.ID != 4 {
		t.Errorf("next id = %d, want 4", created.ID)
	}
}

func TestLoadSeed_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing id":       `{"events":[{"title":"x","startTime":"2030-01-01","endTime":"2030-01-01"}]}`,
		"bad time":         `{"events":[{"id":1,"title":"x","startTime":"soon","endTime":"2030-01-01"}]}`,
		"unknown category": `{"events":[{"id":1,"title":"x","startTime":"2030-01-01","endTime":"2030-01-01","categories":["chess"]}]}`,
		"malformed":        `{"events":`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadSeed(writeSeed(t, "seed.json", body), time.UTC); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMemoryImport_FailedSeedLeavesStoreUntouched(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	uid := int64(7)
	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)

	bad := &Seed{
		Categories: []Category{{ID: 4, Name: "music"}},
		Users:      []User{{ID: 7, Name: "Alice"}},
		Events: []Event{
			{ID: 1, Title: "Gig", StartTime: start, EndTime: start, CategoryIDs: []int64{4}, CreatedBy: &uid},
			{ID: 2, Title: "Broken", StartTime: start, EndTime: start, CategoryIDs: []int64{99}},
		},
	}
	err := repo.Import(ctx, bad)
	assertAppError(t, err, http.StatusUnprocessableEntity)

	if _, err := repo.FindCategory(ctx, 4); err == nil {
		t.Error("category from failed seed was stored")
	}
	if _, err := repo.FindUser(ctx, 7); err == nil {
		t.Error("user from failed seed was stored")
	}
	if n, _ := repo.CountEvents(ctx); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}

	// The same rows import once the bad event is dropped; seed rows satisfy
	// each other's references.
	bad.Events = bad.Events[:1]
	if err := repo.Import(ctx, bad); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if evt, err := repo.FindEvent(ctx, 1); err != nil || evt.CategoryIDs[0] != 4 {
		t.Errorf("FindEvent = %+v, %v", evt, err)
	}
}
