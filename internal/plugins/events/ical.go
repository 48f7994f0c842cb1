package events

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
)

// icsProductID identifies the exporter in PRODID.
const icsProductID = "-//eventboard//NL"

// BuildICS converts events to a VCALENDAR with one VEVENT each. Category
// ids are written as CATEGORIES names; unknown ids are skipped.
func BuildICS(events []Event, categories []Category, host string, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icsProductID)

	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	for i := range events {
		cal.Children = append(cal.Children, toVEvent(&events[i], names, host, now))
	}
	if len(cal.Children) == 0 {
		// A VCALENDAR needs at least one component.
		cal.Children = append(cal.Children, utcTimezone())
	}
	return cal
}

// utcTimezone returns a VTIMEZONE for UTC, the zone every exported
// timestamp is written in.
func utcTimezone() *ical.Component {
	std := ical.NewComponent(ical.CompTimezoneStandard)
	for name, value := range map[string]string{
		ical.PropDateTimeStart:      "19700101T000000",
		ical.PropTimezoneOffsetFrom: "+0000",
		ical.PropTimezoneOffsetTo:   "+0000",
	} {
		p := ical.NewProp(name)
		p.Value = value
		std.Props.Set(p)
	}

	tz := ical.NewComponent(ical.CompTimezone)
	tz.Props.SetText(ical.PropTimezoneID, "UTC")
	tz.Children = append(tz.Children, std)
	return tz
}

func toVEvent(evt *Event, categoryNames map[int64]string, host string, now time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, fmt.Sprintf("event-%d@%s", evt.ID, host))
	ve.Props.SetText(ical.PropSummary, evt.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, evt.StartTime.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, evt.EndTime.UTC())

	if evt.Description != "" {
		ve.Props.SetText(ical.PropDescription, evt.Description)
	}
	if evt.Location != "" {
		ve.Props.SetText(ical.PropLocation, evt.Location)
	}
	for _, id := range evt.CategoryIDs {
		name, ok := categoryNames[id]
		if !ok {
			continue
		}
		p := ical.NewProp(ical.PropCategories)
		p.SetText(name)
		ve.Props.Add(p)
	}
	return ve
}

// WriteICS encodes cal to w.
func WriteICS(w io.Writer, cal *ical.Calendar) error {
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}
