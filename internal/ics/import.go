package ics

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"calendar-service/internal/storage"
)

// ImportResult reports the outcome of an import: events parsed successfully
// and the count of malformed VEVENT blocks that were skipped.
type ImportResult struct {
	Events  []storage.Event
	Skipped int
}

var errMissingTimes = errors.New("missing DTSTART or DTEND")

// normalizeRule strips the RRULE: prefix some producers include in the value.
func normalizeRule(rule string) string {
	return strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
}

// ruleUntil extracts the UNTIL bound from a recurrence rule, if present.
func ruleUntil(rule string) *time.Time {
	for _, part := range strings.Split(rule, ";") {
		if !strings.HasPrefix(strings.ToUpper(part), "UNTIL=") {
			continue
		}
		val := part[len("UNTIL="):]
		for _, layout := range []string{icsTimestamp, "20060102T150405", "20060102"} {
			if t, err := time.Parse(layout, val); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}

// Parse reads an iCalendar payload and converts its VEVENT blocks into event
// rows scoped to the given calendar. Malformed blocks are skipped and
// counted, not fatal; the whole payload failing to parse is.
//
// External ICS files (notably Outlook exports) may carry a UTF-8 BOM, which
// the calendar parser trips over, so the input is run through a BOM-stripping
// decoder first.
func Parse(calendarID int64, createdByID int64, icsText string) (*ImportResult, error) {
	reader := transform.NewReader(strings.NewReader(icsText), unicode.UTF8BOM.NewDecoder())

	cal, err := ical.ParseCalendar(reader)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(calendarID, createdByID, ve)
		if err != nil {
			slog.Debug("Skipping malformed VEVENT", "error", err)
			result.Skipped++
			continue
		}
		result.Events = append(result.Events, ev)
	}

	return result, nil
}

func parseVEvent(calendarID int64, createdByID int64, ve *ical.VEvent) (storage.Event, error) {
	var ev storage.Event
	ev.CalendarID = calendarID
	ev.CreatedByID = createdByID
	ev.Timezone = "UTC"

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		ev.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Title = p.Value
	}
	if ev.Title == "" {
		ev.Title = "(untitled)"
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.Location = p.Value
	}

	ev.AllDay = isAllDay(ve)

	var start, end time.Time
	var err error
	if ev.AllDay {
		start, err = ve.GetAllDayStartAt()
		if err != nil {
			return ev, errMissingTimes
		}
		end, err = ve.GetAllDayEndAt()
		if err != nil {
			// DTEND is optional for all-day events; default to one day.
			end = start.AddDate(0, 0, 1)
		}
	} else {
		start, err = ve.GetStartAt()
		if err != nil {
			return ev, errMissingTimes
		}
		end, err = ve.GetEndAt()
		if err != nil {
			return ev, errMissingTimes
		}
	}
	if !end.After(start) {
		return ev, errors.New("DTEND not after DTSTART")
	}
	ev.StartAt = start.UTC()
	ev.EndAt = end.UTC()

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil && p.Value != "" {
		rule := normalizeRule(p.Value)
		ev.RecurrenceRule = &rule
		ev.RecurrenceEndAt = ruleUntil(rule)
	}

	return ev, nil
}

// isAllDay detects all-day events by the DTSTART VALUE=DATE parameter or a
// date-only value.
func isAllDay(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(p.Value, "T")
}
