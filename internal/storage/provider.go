package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"calendar-service/internal/config"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionMismatch = errors.New("event was modified concurrently")
)

type Provider interface {
	Close() error
	GetSchemaVersion(ctx context.Context) (int, error)

	// Calendar methods
	GetCalendar(ctx context.Context, id int64) (*Calendar, error)
	ListCalendarsByContext(ctx context.Context, contextType ContextType, contextID int64) ([]Calendar, error)
	ListCalendarsForUser(ctx context.Context, userID int64) ([]Calendar, error)
	CreateCalendar(ctx context.Context, cal Calendar) (*Calendar, error)
	UpdateCalendar(ctx context.Context, cal Calendar) (*Calendar, error)
	DeleteCalendar(ctx context.Context, id int64) error
	CountCalendarEvents(ctx context.Context, calendarID int64) (int64, error)

	// Event methods
	GetEvent(ctx context.Context, id int64) (*Event, error)
	CreateEvent(ctx context.Context, ev Event) (*Event, error)
	UpdateEvent(ctx context.Context, ev Event, expectedVersion *int64) (*Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	ListEventsInRange(ctx context.Context, calendarIDs []int64, start, end time.Time) ([]Event, error)
	ListExceptions(ctx context.Context, parentEventIDs []int64) ([]Event, error)
	UpsertException(ctx context.Context, ex Event) (*Event, error)
	SearchEvents(ctx context.Context, calendarIDs []int64, text string, start, end *time.Time) ([]Event, error)

	// Attendee methods
	ListAttendees(ctx context.Context, eventID int64) ([]Attendee, error)
	UpsertAttendee(ctx context.Context, a Attendee) (*Attendee, error)

	// Comment methods
	ListComments(ctx context.Context, eventID int64) ([]EventComment, error)
	CreateComment(ctx context.Context, c EventComment) (*EventComment, error)
	GetComment(ctx context.Context, id int64) (*EventComment, error)
	DeleteComment(ctx context.Context, id int64) error

	// Reminder methods
	ListReminders(ctx context.Context, eventID int64) ([]Reminder, error)
	CreateReminder(ctx context.Context, r Reminder) (*Reminder, error)
	DeleteReminder(ctx context.Context, id int64) error

	// Context membership methods
	IsContextMember(ctx context.Context, contextType ContextType, contextID int64, userID int64) (bool, error)
	ListMemberships(ctx context.Context, userID int64) ([]ContextMember, error)
	AddContextMember(ctx context.Context, m ContextMember) error
}

func NewProvider(config *config.Storage) Provider {
	switch {
	case config.SQLite != nil:
		provider := NewSQLiteProvider(config)
		if provider == nil {
			return nil
		}
		if err := provider.runMigrations(); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			return nil
		}
		return provider

	default:
		slog.Error("Unsupported storage configuration", "config", config)
	}

	return nil
}
