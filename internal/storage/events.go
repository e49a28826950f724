package storage

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

func (p *SQLProvider) GetEvent(ctx context.Context, id int64) (*Event, error) {
	var ev Event
	err := p.db.GetContext(ctx, &ev, `SELECT * FROM events WHERE id = ?`, id)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &ev, nil
}

func (p *SQLProvider) CreateEvent(ctx context.Context, ev Event) (*Event, error) {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO events (calendar_id, uid, title, description, location, online_meeting_link,
			start_at, end_at, all_day, timezone, recurrence_rule, recurrence_end_at,
			parent_event_id, occurrence_start_at, cancelled, created_by_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.CalendarID, ev.UID, ev.Title, ev.Description, ev.Location, ev.OnlineMeetingLink,
		ev.StartAt.UTC(), ev.EndAt.UTC(), ev.AllDay, ev.Timezone, ev.RecurrenceRule, ev.RecurrenceEndAt,
		ev.ParentEventID, ev.OccurrenceStartAt, ev.Cancelled, ev.CreatedByID)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return p.GetEvent(ctx, id)
}

// UpdateEvent rewrites the event's mutable fields and bumps its version.
// When expectedVersion is non-nil and the row has moved past it, the update
// is rejected with ErrVersionMismatch.
func (p *SQLProvider) UpdateEvent(ctx context.Context, ev Event, expectedVersion *int64) (*Event, error) {
	query := `
		UPDATE events SET title = ?, description = ?, location = ?, online_meeting_link = ?,
			start_at = ?, end_at = ?, all_day = ?, timezone = ?,
			recurrence_rule = ?, recurrence_end_at = ?, cancelled = ?,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	args := []any{
		ev.Title, ev.Description, ev.Location, ev.OnlineMeetingLink,
		ev.StartAt.UTC(), ev.EndAt.UTC(), ev.AllDay, ev.Timezone,
		ev.RecurrenceRule, ev.RecurrenceEndAt, ev.Cancelled,
		ev.ID,
	}
	if expectedVersion != nil {
		query += ` AND version = ?`
		args = append(args, *expectedVersion)
	}

	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish a missing row from a stale version.
		if _, err := p.GetEvent(ctx, ev.ID); err != nil {
			return nil, err
		}
		return nil, ErrVersionMismatch
	}

	return p.GetEvent(ctx, ev.ID)
}

func (p *SQLProvider) DeleteEvent(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListEventsInRange returns standalone events intersecting [start, end) plus
// every series base whose recurrence could still produce an occurrence in the
// window, even when the base's own start lies before it. Detached exceptions
// are not returned here; the recurrence engine fetches them per series.
func (p *SQLProvider) ListEventsInRange(ctx context.Context, calendarIDs []int64, start, end time.Time) ([]Event, error) {
	if len(calendarIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT * FROM events
		WHERE calendar_id IN (?) AND parent_event_id IS NULL AND (
			(recurrence_rule IS NULL AND start_at < ? AND end_at > ?)
			OR (recurrence_rule IS NOT NULL AND start_at < ?
				AND (recurrence_end_at IS NULL OR recurrence_end_at > ?))
		)
		ORDER BY start_at`,
		calendarIDs, end.UTC(), start.UTC(), end.UTC(), start.UTC())
	if err != nil {
		return nil, err
	}

	var events []Event
	err = p.db.SelectContext(ctx, &events, p.db.Rebind(query), args...)
	return events, err
}

func (p *SQLProvider) ListExceptions(ctx context.Context, parentEventIDs []int64) ([]Event, error) {
	if len(parentEventIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM events WHERE parent_event_id IN (?)`, parentEventIDs)
	if err != nil {
		return nil, err
	}

	var events []Event
	err = p.db.SelectContext(ctx, &events, p.db.Rebind(query), args...)
	return events, err
}

// UpsertException writes a detached exception for one occurrence of a series.
// Retried edits for the same original occurrence update the existing row.
func (p *SQLProvider) UpsertException(ctx context.Context, ex Event) (*Event, error) {
	if ex.ParentEventID == nil || ex.OccurrenceStartAt == nil {
		return nil, ErrNotFound
	}
	occ := ex.OccurrenceStartAt.UTC()

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO events (calendar_id, uid, title, description, location, online_meeting_link,
			start_at, end_at, all_day, timezone, parent_event_id, occurrence_start_at, cancelled, created_by_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (parent_event_id, occurrence_start_at) WHERE parent_event_id IS NOT NULL
		DO UPDATE SET title = excluded.title, description = excluded.description,
			location = excluded.location, online_meeting_link = excluded.online_meeting_link,
			start_at = excluded.start_at, end_at = excluded.end_at,
			cancelled = excluded.cancelled,
			version = version + 1, updated_at = CURRENT_TIMESTAMP`,
		ex.CalendarID, ex.UID, ex.Title, ex.Description, ex.Location, ex.OnlineMeetingLink,
		ex.StartAt.UTC(), ex.EndAt.UTC(), ex.AllDay, ex.Timezone,
		ex.ParentEventID, occ, ex.Cancelled, ex.CreatedByID)
	if err != nil {
		return nil, err
	}

	var out Event
	err = p.db.GetContext(ctx, &out,
		`SELECT * FROM events WHERE parent_event_id = ? AND occurrence_start_at = ?`,
		*ex.ParentEventID, occ)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &out, nil
}

// SearchEvents does a case-insensitive substring match over title,
// description and location, optionally bounded to a time window.
func (p *SQLProvider) SearchEvents(ctx context.Context, calendarIDs []int64, text string, start, end *time.Time) ([]Event, error) {
	if len(calendarIDs) == 0 {
		return nil, nil
	}

	pattern := "%" + strings.ToLower(text) + "%"
	query := `
		SELECT * FROM events
		WHERE calendar_id IN (?) AND cancelled = 0
		  AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(location) LIKE ?)`
	args := []any{calendarIDs, pattern, pattern, pattern}

	if start != nil && end != nil {
		query += ` AND start_at < ? AND end_at > ?`
		args = append(args, end.UTC(), start.UTC())
	}
	query += ` ORDER BY start_at`

	q, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}

	var events []Event
	err = p.db.SelectContext(ctx, &events, p.db.Rebind(q), inArgs...)
	return events, err
}
