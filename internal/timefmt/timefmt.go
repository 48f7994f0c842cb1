// Package timefmt parses the loosely formatted timestamps stored on events
// and renders them for display in the fixed nl-NL locale. Every function is
// tolerant of bad input: parsing returns ErrInvalidTimestamp, formatting
// returns a sentinel string. Nothing here panics.
package timefmt

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// UnknownDate is returned by FormatDate for unparseable input.
	UnknownDate = "Onbekende datum"

	// UnknownTime is returned by FormatTime for unparseable input.
	UnknownTime = "Onbekende tijd"

	// isoLayout is the full ISO shape produced by browsers' toISOString().
	isoLayout = "2006-01-02T15:04:05.000Z07:00"

	// inputLayout is the shape of an HTML datetime-local field.
	inputLayout = "2006-01-02T15:04"
)

// ErrInvalidTimestamp is returned by Parse when no supported layout matches.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// zonedLayouts carry their own offset; localLayouts are interpreted in the
// formatter's location. A bare date is UTC midnight.
var (
	zonedLayouts = []string{time.RFC3339Nano, time.RFC3339}
	localLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		inputLayout,
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	dateLayout = "2006-01-02"
)

// dutchMonths holds the long month names of the nl-NL locale.
var dutchMonths = [...]string{
	"januari", "februari", "maart", "april", "mei", "juni",
	"juli", "augustus", "september", "oktober", "november", "december",
}

// Formatter formats timestamps in a fixed location.
type Formatter struct {
	Location *time.Location
}

// New returns a Formatter for loc. A nil loc means time.Local.
func New(loc *time.Location) Formatter {
	return Formatter{Location: loc}
}

func (f Formatter) loc() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

// Parse reads ts in any of the supported layouts.
func (f Formatter) Parse(ts string) (time.Time, error) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, ts, f.loc()); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(dateLayout, ts); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, ts)
}

// FormatDate renders ts as "<day> <month>", e.g. "15 maart".
func (f Formatter) FormatDate(ts string) string {
	t, err := f.Parse(ts)
	if err != nil {
		return UnknownDate
	}
	t = t.In(f.loc())
	return fmt.Sprintf("%d %s", t.Day(), dutchMonths[t.Month()-1])
}

// FormatTime renders ts as "H.MM" on a 24-hour clock, e.g. "9.05".
func (f Formatter) FormatTime(ts string) string {
	t, err := f.Parse(ts)
	if err != nil {
		return UnknownTime
	}
	t = t.In(f.loc())
	return fmt.Sprintf("%d.%02d", t.Hour(), t.Minute())
}

// InputValue converts ts to the datetime-local shape used by edit forms.
// Unparseable input yields an empty string.
func (f Formatter) InputValue(ts string) string {
	t, err := f.Parse(ts)
	if err != nil {
		return ""
	}
	return t.In(f.loc()).Format(inputLayout)
}

// ToISO parses ts and re-renders it as a full ISO timestamp in UTC.
func (f Formatter) ToISO(ts string) (string, error) {
	t, err := f.Parse(ts)
	if err != nil {
		return "", err
	}
	return ISO(t), nil
}

// ISO renders t as a millisecond-precision UTC timestamp.
func ISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

var local = Formatter{}

// Parse reads ts using the local system time zone for zone-less input.
func Parse(ts string) (time.Time, error) { return local.Parse(ts) }

// FormatDate formats ts in the local system time zone.
func FormatDate(ts string) string { return local.FormatDate(ts) }

// FormatTime formats ts in the local system time zone.
func FormatTime(ts string) string { return local.FormatTime(ts) }
