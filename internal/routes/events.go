package routes

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"calendar-service/internal/config"
	"calendar-service/internal/recurrence"
	"calendar-service/internal/storage"
	"calendar-service/internal/token"
)

const (
	editModeThis   = "THIS"
	editModeSeries = "SERIES"
)

type eventRequest struct {
	CalendarID        int64      `json:"calendarId"`
	Title             *string    `json:"title"`
	Description       *string    `json:"description"`
	Location          *string    `json:"location"`
	OnlineMeetingLink *string    `json:"onlineMeetingLink"`
	StartAt           *time.Time `json:"startAt"`
	EndAt             *time.Time `json:"endAt"`
	AllDay            *bool      `json:"allDay"`
	Timezone          *string    `json:"timezone"`
	RecurrenceRule    *string    `json:"recurrenceRule"`
	RecurrenceEndAt   *time.Time `json:"recurrenceEndAt"`
	// Expected version for optimistic concurrency; zero skips the check.
	Version int64 `json:"version"`

	Attendees []attendeeRequest `json:"attendees"`
	Reminders []reminderRequest `json:"reminders"`
}

type attendeeRequest struct {
	UserID *int64  `json:"userId"`
	Email  *string `json:"email"`
}

type reminderRequest struct {
	MinutesBefore int    `json:"minutesBefore"`
	Method        string `json:"method"`
}

// eventOccurrence is the wire shape of one expanded occurrence: the event row
// plus the concrete instance span, which differs from the row's own
// startAt/endAt for computed occurrences of a series.
type eventOccurrence struct {
	storage.Event
	OccurrenceStartAt time.Time `json:"occurrenceStartAt"`
	OccurrenceEndAt   time.Time `json:"occurrenceEndAt"`
}

func toWire(occurrences []recurrence.Occurrence) []eventOccurrence {
	out := make([]eventOccurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, eventOccurrence{
			Event:             occ.Event,
			OccurrenceStartAt: occ.Start,
			OccurrenceEndAt:   occ.End,
		})
	}
	return out
}

// expandWindow fetches and expands every occurrence visible to the principal
// in [start, end).
func expandWindow(c *gin.Context, principal token.Principal, start, end time.Time) ([]recurrence.Occurrence, error) {
	provider, err := GetStorageProvider(c)
	if err != nil {
		return nil, err
	}
	ctx := c.Request.Context()

	calendarIDs, err := resolveVisibleCalendarIDs(c, principal)
	if err != nil {
		return nil, err
	}

	bases, err := provider.ListEventsInRange(ctx, calendarIDs, start, end)
	if err != nil {
		return nil, err
	}

	var seriesIDs []int64
	for _, ev := range bases {
		if ev.IsSeriesBase() {
			seriesIDs = append(seriesIDs, ev.ID)
		}
	}
	exceptions, err := provider.ListExceptions(ctx, seriesIDs)
	if err != nil {
		return nil, err
	}
	byParent := make(map[int64][]storage.Event)
	for _, ex := range exceptions {
		if ex.ParentEventID != nil {
			byParent[*ex.ParentEventID] = append(byParent[*ex.ParentEventID], ex)
		}
	}

	return recurrence.ExpandAll(bases, byParent, start, end, config.Cfg.MaxOccurrencesPerSeries)
}

// EventRoutes mounts the event store endpoints.
func EventRoutes(r *gin.RouterGroup) {
	// Window query with occurrences pre-expanded.
	r.GET("", func(c *gin.Context) {
		principal, err := GetPrincipal(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		start, end, err := parseWindow(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		occurrences, err := expandWindow(c, principal, start, end)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		OK(c, toWire(occurrences))
	})

	r.POST("", createEvent)
	r.PATCH("/:id", updateEvent)
	r.DELETE("/:id", deleteEvent)

	r.GET("/search", func(c *gin.Context) {
		principal, err := GetPrincipal(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		text := c.Query("text")
		if text == "" {
			AbortWithError(c, fmt.Errorf("%w: text", ErrMissingParameter))
			return
		}

		var start, end *time.Time
		if c.Query("start") != "" || c.Query("end") != "" {
			s, e, err := parseWindow(c)
			if err != nil {
				AbortWithError(c, err)
				return
			}
			start, end = &s, &e
		}

		calendarIDs, err := resolveVisibleCalendarIDs(c, principal)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		provider, err := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		events, err := provider.SearchEvents(c.Request.Context(), calendarIDs, text, start, end)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		OK(c, events)
	})
}

func createEvent(c *gin.Context) {
	principal, err := GetPrincipal(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	provider, err := GetStorageProvider(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if req.Title == nil || *req.Title == "" || req.StartAt == nil || req.EndAt == nil {
		AbortWithError(c, ErrMissingParameter)
		return
	}
	if !req.EndAt.After(*req.StartAt) {
		AbortWithError(c, ErrInvalidTimeRange)
		return
	}

	cal, err := requireCalendarAccess(c, principal, req.CalendarID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ev := storage.Event{
		CalendarID:  cal.ID,
		UID:         uuid.NewString() + "@calendar-service",
		Title:       *req.Title,
		StartAt:     *req.StartAt,
		EndAt:       *req.EndAt,
		Timezone:    "UTC",
		CreatedByID: principal.UserID,
	}
	if req.Description != nil {
		ev.Description = *req.Description
	}
	if req.Location != nil {
		ev.Location = *req.Location
	}
	if req.OnlineMeetingLink != nil {
		ev.OnlineMeetingLink = *req.OnlineMeetingLink
	}
	if req.AllDay != nil {
		ev.AllDay = *req.AllDay
	}
	if req.Timezone != nil && *req.Timezone != "" {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			AbortWithError(c, fmt.Errorf("%w: timezone", ErrInvalidParameter))
			return
		}
		ev.Timezone = *req.Timezone
	}
	if req.RecurrenceRule != nil && *req.RecurrenceRule != "" {
		if err := recurrence.ValidateRule(*req.RecurrenceRule); err != nil {
			AbortWithError(c, ErrInvalidRecurrenceRule)
			return
		}
		ev.RecurrenceRule = req.RecurrenceRule
		ev.RecurrenceEndAt = req.RecurrenceEndAt
	}

	ctx := c.Request.Context()
	created, err := provider.CreateEvent(ctx, ev)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Reminders: explicit list, or the calendar default.
	if len(req.Reminders) > 0 {
		for _, rem := range req.Reminders {
			method := storage.ReminderMethod(rem.Method)
			if method != storage.ReminderApp && method != storage.ReminderEmail {
				method = storage.ReminderApp
			}
			if rem.MinutesBefore < 0 {
				continue
			}
			if _, err := provider.CreateReminder(ctx, storage.Reminder{
				EventID: created.ID, MinutesBefore: rem.MinutesBefore, Method: method,
			}); err != nil {
				slog.Warn("Failed to create reminder", "event_id", created.ID, "error", err)
			}
		}
	} else if cal.DefaultReminderMinutes > 0 {
		if _, err := provider.CreateReminder(ctx, storage.Reminder{
			EventID: created.ID, MinutesBefore: cal.DefaultReminderMinutes, Method: storage.ReminderApp,
		}); err != nil {
			slog.Warn("Failed to create default reminder", "event_id", created.ID, "error", err)
		}
	}

	for _, att := range req.Attendees {
		a := storage.Attendee{EventID: created.ID, UserID: att.UserID, Email: att.Email, Response: storage.ResponseNeedsAction}
		if a.UserID == nil && (a.Email == nil || *a.Email == "") {
			continue
		}
		if _, err := provider.UpsertAttendee(ctx, a); err != nil {
			slog.Warn("Failed to add attendee", "event_id", created.ID, "error", err)
			continue
		}
		if a.Email != nil {
			sendInvitation(c, created, *a.Email)
		}
	}

	Created(c, created)
}

func updateEvent(c *gin.Context) {
	principal, err := GetPrincipal(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ev, _, err := requireEventAccess(c, principal, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	provider, err := GetStorageProvider(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ctx := c.Request.Context()

	// An exception row, or a plain standalone event, is edited in place.
	if !ev.IsSeriesBase() {
		applyEventPatch(ev, &req)
		updated, err := provider.UpdateEvent(ctx, *ev, versionPtr(req.Version))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		OK(c, updated)
		return
	}

	switch c.Query("editMode") {
	case editModeSeries:
		applyEventPatch(ev, &req)
		if req.RecurrenceRule != nil && *req.RecurrenceRule != "" {
			if err := recurrence.ValidateRule(*req.RecurrenceRule); err != nil {
				AbortWithError(c, ErrInvalidRecurrenceRule)
				return
			}
		}
		updated, err := provider.UpdateEvent(ctx, *ev, versionPtr(req.Version))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		OK(c, updated)

	case editModeThis:
		occStart, err := parseTimeQuery(c, "occurrenceStartAt")
		if err != nil {
			AbortWithError(c, ErrOccurrenceStartMissing)
			return
		}

		ex := exceptionFromBase(*ev, principal, occStart)
		applyEventPatch(&ex, &req)
		saved, err := provider.UpsertException(ctx, ex)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		OK(c, saved)

	default:
		AbortWithError(c, ErrInvalidEditMode)
	}
}

func deleteEvent(c *gin.Context) {
	principal, err := GetPrincipal(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ev, _, err := requireEventAccess(c, principal, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	provider, err := GetStorageProvider(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ctx := c.Request.Context()

	if !ev.IsSeriesBase() {
		if err := provider.DeleteEvent(ctx, ev.ID); err != nil {
			AbortWithError(c, err)
			return
		}
		OK(c, gin.H{"deleted": ev.ID})
		return
	}

	switch c.Query("editMode") {
	case editModeSeries:
		// Cascades to detached exceptions.
		if err := provider.DeleteEvent(ctx, ev.ID); err != nil {
			AbortWithError(c, err)
			return
		}
		OK(c, gin.H{"deleted": ev.ID})

	case editModeThis:
		occStart, err := parseTimeQuery(c, "occurrenceStartAt")
		if err != nil {
			AbortWithError(c, ErrOccurrenceStartMissing)
			return
		}

		// Deleting one occurrence materializes a cancelled exception so
		// future expansions skip it.
		ex := exceptionFromBase(*ev, principal, occStart)
		ex.Cancelled = true
		if _, err := provider.UpsertException(ctx, ex); err != nil {
			AbortWithError(c, err)
			return
		}
		OK(c, gin.H{"cancelledOccurrence": occStart})

	default:
		AbortWithError(c, ErrInvalidEditMode)
	}
}

// exceptionFromBase seeds a detached exception with the base's fields and the
// occurrence's own computed span.
func exceptionFromBase(base storage.Event, principal token.Principal, occStart time.Time) storage.Event {
	duration := base.EndAt.Sub(base.StartAt)
	ex := base
	ex.ID = 0
	ex.RecurrenceRule = nil
	ex.RecurrenceEndAt = nil
	ex.ParentEventID = &base.ID
	occ := occStart.UTC()
	ex.OccurrenceStartAt = &occ
	ex.StartAt = occStart
	ex.EndAt = occStart.Add(duration)
	ex.CreatedByID = principal.UserID
	return ex
}

func applyEventPatch(ev *storage.Event, req *eventRequest) {
	if req.Title != nil {
		ev.Title = *req.Title
	}
	if req.Description != nil {
		ev.Description = *req.Description
	}
	if req.Location != nil {
		ev.Location = *req.Location
	}
	if req.OnlineMeetingLink != nil {
		ev.OnlineMeetingLink = *req.OnlineMeetingLink
	}
	if req.StartAt != nil {
		ev.StartAt = *req.StartAt
	}
	if req.EndAt != nil {
		ev.EndAt = *req.EndAt
	}
	if req.AllDay != nil {
		ev.AllDay = *req.AllDay
	}
	if req.Timezone != nil && *req.Timezone != "" {
		ev.Timezone = *req.Timezone
	}
	if ev.IsSeriesBase() || (req.RecurrenceRule != nil && *req.RecurrenceRule != "") {
		if req.RecurrenceRule != nil {
			if *req.RecurrenceRule == "" {
				ev.RecurrenceRule = nil
			} else {
				ev.RecurrenceRule = req.RecurrenceRule
			}
		}
		if req.RecurrenceEndAt != nil {
			ev.RecurrenceEndAt = req.RecurrenceEndAt
		}
	}
}

func versionPtr(v int64) *int64 {
	if v <= 0 {
		return nil
	}
	return &v
}
