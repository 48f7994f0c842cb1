package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/keyxmakerx/eventboard/internal/timefmt"
)

// SeedFile is the on-disk shape of a seed document: the events.json layout
// of the directory plus the users referenced as creators. It can be written
// as JSON or YAML.
type SeedFile struct {
	Events     []SeedEvent `json:"events" yaml:"events"`
	Categories []Category  `json:"categories" yaml:"categories"`
	Users      []User      `json:"users" yaml:"users"`
}

// SeedEvent is one event in a seed file. Categories may be given by id, by
// name, or both.
type SeedEvent struct {
	ID          int64    `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Image       string   `json:"image" yaml:"image"`
	Location    string   `json:"location" yaml:"location"`
	StartTime   string   `json:"startTime" yaml:"startTime"`
	EndTime     string   `json:"endTime" yaml:"endTime"`
	CategoryIDs []int64  `json:"categoryIds" yaml:"categoryIds"`
	Categories  []string `json:"categories" yaml:"categories"`
	CreatedBy   *int64   `json:"createdBy" yaml:"createdBy"`
}

// Seed is a validated seed document ready for import.
type Seed struct {
	Events     []Event
	Categories []Category
	Users      []User
}

// LoadSeed reads a seed file. Files ending in .yaml or .yml are parsed as
// YAML, everything else as JSON. Zone-less times are read in loc.
func LoadSeed(path string, loc *time.Location) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var file SeedFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		err = json.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", filepath.Base(path), err)
	}
	return file.Resolve(loc)
}

// Resolve validates the file and converts it to a Seed. Category names are
// mapped to ids through the file's own category list.
func (f *SeedFile) Resolve(loc *time.Location) (*Seed, error) {
	format := timefmt.New(loc)
	byName := make(map[string]int64, len(f.Categories))
	for _, c := range f.Categories {
		if c.ID <= 0 || c.Name == "" {
			return nil, fmt.Errorf("category %d: id and name are required", c.ID)
		}
		byName[c.Name] = c.ID
	}
	for _, u := range f.Users {
		if u.ID <= 0 || u.Name == "" {
			return nil, fmt.Errorf("user %d: id and name are required", u.ID)
		}
	}

	seed := &Seed{Categories: f.Categories, Users: f.Users}
	for _, se := range f.Events {
		if se.ID <= 0 || se.Title == "" {
			return nil, fmt.Errorf("event %d: id and title are required", se.ID)
		}
		start, err := format.Parse(se.StartTime)
		if err != nil {
			return nil, fmt.Errorf("event %d startTime: %w", se.ID, err)
		}
		end, err := format.Parse(se.EndTime)
		if err != nil {
			return nil, fmt.Errorf("event %d endTime: %w", se.ID, err)
		}

		ids := dedupeIDs(se.CategoryIDs)
		for _, name := range se.Categories {
			id, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("event %d: unknown category %q", se.ID, name)
			}
			ids = dedupeIDs(append(ids, id))
		}

		seed.Events = append(seed.Events, Event{
			ID:          se.ID,
			Title:       se.Title,
			Description: se.Description,
			Image:       se.Image,
			Location:    se.Location,
			StartTime:   start.UTC(),
			EndTime:     end.UTC(),
			CategoryIDs: ids,
			CreatedBy:   se.CreatedBy,
		})
	}
	return seed, nil
}

// dedupeIDs drops repeated ids keeping first occurrences. The result is
// never nil.
func dedupeIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
