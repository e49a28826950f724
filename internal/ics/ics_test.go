package ics

import (
	"strings"
	"testing"
	"time"

	"calendar-service/internal/storage"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestExportImportRoundTrip(t *testing.T) {
	ev := storage.Event{
		ID:         1,
		CalendarID: 1,
		UID:        "team-sync-1@calendar-service",
		Title:      "Team Sync",
		StartAt:    time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC),
		Timezone:   "UTC",
	}

	out := Export([]storage.Event{ev}, nil)
	if !strings.Contains(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "VERSION:2.0") {
		t.Fatalf("missing calendar header in:\n%s", out)
	}
	if !strings.Contains(out, "SUMMARY:Team Sync") {
		t.Fatalf("missing summary in:\n%s", out)
	}

	result, err := Parse(2, 7, out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if result.Skipped != 0 {
		t.Fatalf("expected 0 skipped, got %d", result.Skipped)
	}
	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result.Events))
	}

	got := result.Events[0]
	if got.Title != ev.Title {
		t.Errorf("title = %q, want %q", got.Title, ev.Title)
	}
	if !got.StartAt.Equal(ev.StartAt) {
		t.Errorf("start = %v, want %v", got.StartAt, ev.StartAt)
	}
	if !got.EndAt.Equal(ev.EndAt) {
		t.Errorf("end = %v, want %v", got.EndAt, ev.EndAt)
	}
	if got.CalendarID != 2 {
		t.Errorf("calendarId = %d, want target calendar 2", got.CalendarID)
	}
}

func TestExportSeriesRule(t *testing.T) {
	base := storage.Event{
		ID:             3,
		CalendarID:     1,
		Title:          "Standup",
		StartAt:        time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EndAt:          time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Timezone:       "UTC",
		RecurrenceRule: strPtr("FREQ=WEEKLY;INTERVAL=1"),
	}
	moved := storage.Event{
		ID:                4,
		CalendarID:        1,
		Title:             "Standup (moved)",
		StartAt:           time.Date(2024, 1, 8, 14, 0, 0, 0, time.UTC),
		EndAt:             time.Date(2024, 1, 8, 14, 30, 0, 0, time.UTC),
		ParentEventID:     &base.ID,
		OccurrenceStartAt: timePtr(time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)),
	}

	out := Export([]storage.Event{base}, []storage.Event{moved})

	if !strings.Contains(out, "RRULE:FREQ=WEEKLY;INTERVAL=1") {
		t.Errorf("missing RRULE on series base:\n%s", out)
	}
	if strings.Count(out, "RRULE:") != 1 {
		t.Errorf("RRULE must appear only on the series base, found %d", strings.Count(out, "RRULE:"))
	}
	if !strings.Contains(out, "RECURRENCE-ID:20240108T090000Z") {
		t.Errorf("missing RECURRENCE-ID on exception:\n%s", out)
	}
}

func TestExportAllDay(t *testing.T) {
	ev := storage.Event{
		ID:         5,
		CalendarID: 1,
		Title:      "Holiday",
		StartAt:    time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC),
		AllDay:     true,
		Timezone:   "UTC",
	}

	out := Export([]storage.Event{ev}, nil)
	if !strings.Contains(out, "DTSTART;VALUE=DATE:20240704") {
		t.Errorf("all-day start not date-only:\n%s", out)
	}
}

func TestImportSkipsMalformedBlocks(t *testing.T) {
	payload := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//test//EN",
		"BEGIN:VEVENT",
		"UID:good@test",
		"SUMMARY:Good",
		"DTSTART:20240301T100000Z",
		"DTEND:20240301T110000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:bad@test",
		"SUMMARY:No times",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	result, err := Parse(1, 1, payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(result.Events) != 1 {
		t.Fatalf("expected 1 imported event, got %d", len(result.Events))
	}
	if result.Skipped != 1 {
		t.Fatalf("expected 1 skipped block, got %d", result.Skipped)
	}
}

func TestImportStripsBOM(t *testing.T) {
	payload := "\ufeff" + strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//test//EN",
		"BEGIN:VEVENT",
		"UID:bom@test",
		"SUMMARY:BOM Event",
		"DTSTART:20240301T100000Z",
		"DTEND:20240301T110000Z",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	result, err := Parse(1, 1, payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result.Events))
	}
}

func TestImportRecurrenceUntil(t *testing.T) {
	payload := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//test//EN",
		"BEGIN:VEVENT",
		"UID:rec@test",
		"SUMMARY:Recurring",
		"DTSTART:20240101T090000Z",
		"DTEND:20240101T100000Z",
		"RRULE:FREQ=WEEKLY;UNTIL=20240301T000000Z",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	result, err := Parse(1, 1, payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result.Events))
	}

	ev := result.Events[0]
	if ev.RecurrenceRule == nil || !strings.Contains(*ev.RecurrenceRule, "FREQ=WEEKLY") {
		t.Fatalf("recurrence rule not carried over: %+v", ev.RecurrenceRule)
	}
	if ev.RecurrenceEndAt == nil {
		t.Fatal("UNTIL bound not extracted into recurrence end")
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !ev.RecurrenceEndAt.Equal(want) {
		t.Errorf("recurrence end = %v, want %v", ev.RecurrenceEndAt, want)
	}
}
