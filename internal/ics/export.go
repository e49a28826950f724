// Package ics converts between the internal event model and the iCalendar
// text format.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"calendar-service/internal/storage"
)

const prodID = "-//calendar-service//Calendar Export//EN"

// icsTimestamp is the UTC basic format used for RECURRENCE-ID values.
const icsTimestamp = "20060102T150405Z"

// Export serializes events into an iCalendar v2.0 document. Series bases are
// emitted once carrying their RRULE; detached exceptions are emitted with a
// RECURRENCE-ID pointing at the original occurrence they override
// (STATUS:CANCELLED for cancellations). Standalone events get one VEVENT
// each.
func Export(events []storage.Event, exceptions []storage.Event) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)

	for _, ev := range events {
		writeVEvent(cal, ev)
	}
	for _, ex := range exceptions {
		writeVEvent(cal, ex)
	}

	return cal.Serialize()
}

func eventUID(ev storage.Event) string {
	if ev.UID != "" {
		return ev.UID
	}
	return fmt.Sprintf("event-%d@calendar-service", ev.ID)
}

func writeVEvent(cal *ical.Calendar, ev storage.Event) {
	uid := eventUID(ev)
	if ev.IsException() {
		// Exceptions share the series UID; RECURRENCE-ID disambiguates.
		uid = fmt.Sprintf("event-%d@calendar-service", *ev.ParentEventID)
	}

	ve := cal.AddEvent(uid)
	ve.SetDtStampTime(time.Now().UTC())
	ve.SetSummary(ev.Title)

	if ev.AllDay {
		ve.SetAllDayStartAt(ev.StartAt)
		ve.SetAllDayEndAt(ev.EndAt)
	} else {
		ve.SetStartAt(ev.StartAt.UTC())
		ve.SetEndAt(ev.EndAt.UTC())
	}

	if ev.Description != "" {
		ve.SetDescription(ev.Description)
	}
	if ev.Location != "" {
		ve.SetLocation(ev.Location)
	}
	if ev.OnlineMeetingLink != "" {
		ve.SetURL(ev.OnlineMeetingLink)
	}

	if ev.IsSeriesBase() {
		ve.AddRrule(normalizeRule(*ev.RecurrenceRule))
	}

	if ev.IsException() && ev.OccurrenceStartAt != nil {
		ve.SetProperty(ical.ComponentProperty("RECURRENCE-ID"), ev.OccurrenceStartAt.UTC().Format(icsTimestamp))
		if ev.Cancelled {
			ve.SetStatus(ical.ObjectStatusCancelled)
		}
	}
}
