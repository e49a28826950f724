package storage

import "time"

type ContextType string

const (
	ContextPersonal  ContextType = "PERSONAL"
	ContextBusiness  ContextType = "BUSINESS"
	ContextHousehold ContextType = "HOUSEHOLD"
)

func (t ContextType) Valid() bool {
	switch t {
	case ContextPersonal, ContextBusiness, ContextHousehold:
		return true
	}
	return false
}

type Calendar struct {
	ID                     int64       `db:"id" json:"id"`
	Name                   string      `db:"name" json:"name"`
	Color                  string      `db:"color" json:"color"`
	ContextType            ContextType `db:"context_type" json:"contextType"`
	ContextID              int64       `db:"context_id" json:"contextId"`
	IsPrimary              bool        `db:"is_primary" json:"isPrimary"`
	IsSystem               bool        `db:"is_system" json:"isSystem"`
	IsDeletable            bool        `db:"is_deletable" json:"isDeletable"`
	DefaultReminderMinutes int         `db:"default_reminder_minutes" json:"defaultReminderMinutes"`
	CreatedAt              time.Time   `db:"created_at" json:"createdAt"`
}

// Event is a series base (RecurrenceRule set), a standalone event (neither
// RecurrenceRule nor ParentEventID set), or a detached exception overriding a
// single occurrence of its parent series (ParentEventID and OccurrenceStartAt
// set).
type Event struct {
	ID                int64      `db:"id" json:"id"`
	CalendarID        int64      `db:"calendar_id" json:"calendarId"`
	UID               string     `db:"uid" json:"uid"`
	Title             string     `db:"title" json:"title"`
	Description       string     `db:"description" json:"description"`
	Location          string     `db:"location" json:"location"`
	OnlineMeetingLink string     `db:"online_meeting_link" json:"onlineMeetingLink"`
	StartAt           time.Time  `db:"start_at" json:"startAt"`
	EndAt             time.Time  `db:"end_at" json:"endAt"`
	AllDay            bool       `db:"all_day" json:"allDay"`
	Timezone          string     `db:"timezone" json:"timezone"`
	RecurrenceRule    *string    `db:"recurrence_rule" json:"recurrenceRule,omitempty"`
	RecurrenceEndAt   *time.Time `db:"recurrence_end_at" json:"recurrenceEndAt,omitempty"`
	ParentEventID     *int64     `db:"parent_event_id" json:"parentEventId,omitempty"`
	OccurrenceStartAt *time.Time `db:"occurrence_start_at" json:"occurrenceStartAt,omitempty"`
	Cancelled         bool       `db:"cancelled" json:"cancelled"`
	Version           int64      `db:"version" json:"version"`
	CreatedByID       int64      `db:"created_by_id" json:"createdById"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updatedAt"`
}

func (e *Event) IsSeriesBase() bool {
	return e.RecurrenceRule != nil && *e.RecurrenceRule != ""
}

func (e *Event) IsException() bool {
	return e.ParentEventID != nil
}

type AttendeeResponse string

const (
	ResponseNeedsAction AttendeeResponse = "NEEDS_ACTION"
	ResponseAccepted    AttendeeResponse = "ACCEPTED"
	ResponseDeclined    AttendeeResponse = "DECLINED"
	ResponseTentative   AttendeeResponse = "TENTATIVE"
)

func (r AttendeeResponse) Valid() bool {
	switch r {
	case ResponseNeedsAction, ResponseAccepted, ResponseDeclined, ResponseTentative:
		return true
	}
	return false
}

// Attendee is identified by UserID for platform users, or Email for external
// invitees. Exactly one of the two is set.
type Attendee struct {
	ID       int64            `db:"id" json:"id"`
	EventID  int64            `db:"event_id" json:"eventId"`
	UserID   *int64           `db:"user_id" json:"userId,omitempty"`
	Email    *string          `db:"email" json:"email,omitempty"`
	Response AttendeeResponse `db:"response" json:"response"`
}

type EventComment struct {
	ID        int64     `db:"id" json:"id"`
	EventID   int64     `db:"event_id" json:"eventId"`
	UserID    int64     `db:"user_id" json:"userId"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type ReminderMethod string

const (
	ReminderApp   ReminderMethod = "APP"
	ReminderEmail ReminderMethod = "EMAIL"
)

type Reminder struct {
	ID            int64          `db:"id" json:"id"`
	EventID       int64          `db:"event_id" json:"eventId"`
	MinutesBefore int            `db:"minutes_before" json:"minutesBefore"`
	Method        ReminderMethod `db:"method" json:"method"`
}

// ContextMember records membership of a user in a business or household
// context. Rows are written by the identity system; the calendar service only
// reads them for access checks, plus trivially the user's own PERSONAL context.
type ContextMember struct {
	ContextType ContextType `db:"context_type" json:"contextType"`
	ContextID   int64       `db:"context_id" json:"contextId"`
	UserID      int64       `db:"user_id" json:"userId"`
	Role        string      `db:"role" json:"role"`
}
