package storage

import (
	"context"
	"fmt"
)

func (p *SQLProvider) GetCalendar(ctx context.Context, id int64) (*Calendar, error) {
	var cal Calendar
	err := p.db.GetContext(ctx, &cal, `SELECT * FROM calendars WHERE id = ?`, id)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &cal, nil
}

func (p *SQLProvider) ListCalendarsByContext(ctx context.Context, contextType ContextType, contextID int64) ([]Calendar, error) {
	var calendars []Calendar
	err := p.db.SelectContext(ctx, &calendars,
		`SELECT * FROM calendars WHERE context_type = ? AND context_id = ? ORDER BY is_primary DESC, id`,
		contextType, contextID)
	return calendars, err
}

// ListCalendarsForUser returns every calendar across every context the user
// belongs to: the user's PERSONAL context plus all business/household
// memberships.
func (p *SQLProvider) ListCalendarsForUser(ctx context.Context, userID int64) ([]Calendar, error) {
	var calendars []Calendar
	err := p.db.SelectContext(ctx, &calendars, `
		SELECT c.* FROM calendars c
		WHERE (c.context_type = ? AND c.context_id = ?)
		   OR EXISTS (
			SELECT 1 FROM context_members m
			WHERE m.context_type = c.context_type AND m.context_id = c.context_id AND m.user_id = ?
		   )
		ORDER BY c.context_type, c.context_id, c.is_primary DESC, c.id`,
		ContextPersonal, userID, userID)
	return calendars, err
}

// CreateCalendar inserts the calendar. When the new calendar is primary, any
// existing primary calendar for the same context is demoted in the same
// transaction so the one-primary-per-context index holds.
func (p *SQLProvider) CreateCalendar(ctx context.Context, cal Calendar) (*Calendar, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if cal.IsPrimary {
		if _, err := tx.ExecContext(ctx,
			`UPDATE calendars SET is_primary = 0 WHERE context_type = ? AND context_id = ? AND is_primary = 1`,
			cal.ContextType, cal.ContextID); err != nil {
			return nil, fmt.Errorf("failed to demote primary calendar: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO calendars (name, color, context_type, context_id, is_primary, is_system, is_deletable, default_reminder_minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cal.Name, cal.Color, cal.ContextType, cal.ContextID, cal.IsPrimary, cal.IsSystem, cal.IsDeletable, cal.DefaultReminderMinutes)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return p.GetCalendar(ctx, id)
}

func (p *SQLProvider) UpdateCalendar(ctx context.Context, cal Calendar) (*Calendar, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if cal.IsPrimary {
		if _, err := tx.ExecContext(ctx,
			`UPDATE calendars SET is_primary = 0 WHERE context_type = ? AND context_id = ? AND is_primary = 1 AND id != ?`,
			cal.ContextType, cal.ContextID, cal.ID); err != nil {
			return nil, fmt.Errorf("failed to demote primary calendar: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE calendars SET name = ?, color = ?, is_primary = ?, default_reminder_minutes = ?
		WHERE id = ?`,
		cal.Name, cal.Color, cal.IsPrimary, cal.DefaultReminderMinutes, cal.ID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return p.GetCalendar(ctx, cal.ID)
}

func (p *SQLProvider) DeleteCalendar(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM calendars WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *SQLProvider) CountCalendarEvents(ctx context.Context, calendarID int64) (int64, error) {
	var count int64
	err := p.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM events WHERE calendar_id = ?`, calendarID)
	return count, err
}
