package events

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-ical"
)

func TestBuildICS_RoundTrip(t *testing.T) {
	start := time.Date(2030, 7, 1, 14, 0, 0, 0, time.UTC)
	events := []Event{
		{ID: 1, Title: "Beach Party", Description: "Sun, sea", Location: "Beach",
			StartTime: start, EndTime: start.Add(6 * time.Hour), CategoryIDs: []int64{1, 9}},
		{ID: 2, Title: "Quiz", StartTime: start, EndTime: start},
	}
	cats := []Category{{ID: 1, Name: "sports"}}

	var buf bytes.Buffer
	if err := WriteICS(&buf, BuildICS(events, cats, "example.test", start)); err != nil {
		t.Fatalf("WriteICS: %v", err)
	}

	cal, err := ical.NewDecoder(&buf).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := cal.Events()
	if len(got) != 2 {
		t.Fatalf("decoded %d events, want 2", len(got))
	}

	uid, _ := got[0].Props.Text(ical.PropUID)
	if uid != "event-1@example.test" {
		t.Errorf("UID = %q", uid)
	}
	desc, _ := got[0].Props.Text(ical.PropDescription)
	if desc != "Sun, sea" {
		t.Errorf("DESCRIPTION = %q", desc)
	}
	dtStart, err := got[0].DateTimeStart(time.UTC)
	if err != nil || !dtStart.Equal(start) {
		t.Errorf("DTSTART = %v, %v", dtStart, err)
	}
	if n := len(got[0].Props.Values(ical.PropCategories)); n != 1 {
		t.Errorf("CATEGORIES count = %d, unknown ids must be skipped", n)
	}
	if got[1].Props.Get(ical.PropLocation) != nil {
		t.Error("empty location must be omitted")
	}
}

func TestBuildICS_NoEvents(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteICS(&buf, BuildICS(nil, nil, "example.test", time.Now())); err != nil {
		t.Fatalf("WriteICS: %v", err)
	}

	cal, err := ical.NewDecoder(&buf).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n := len(cal.Events()); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}
	if len(cal.Children) != 1 || cal.Children[0].Name != ical.CompTimezone {
		t.Errorf("children = %+v", cal.Children)
	}
}
