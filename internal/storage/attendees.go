package storage

import "context"

func (p *SQLProvider) ListAttendees(ctx context.Context, eventID int64) ([]Attendee, error) {
	var attendees []Attendee
	err := p.db.SelectContext(ctx, &attendees, `SELECT * FROM attendees WHERE event_id = ? ORDER BY id`, eventID)
	return attendees, err
}

// UpsertAttendee records or re-records an attendee response. Keyed on
// (event, user) for platform users and (event, email) for external invitees,
// so repeated RSVP clicks land on the same row.
func (p *SQLProvider) UpsertAttendee(ctx context.Context, a Attendee) (*Attendee, error) {
	var err error
	switch {
	case a.UserID != nil:
		_, err = p.db.ExecContext(ctx, `
			INSERT INTO attendees (event_id, user_id, response) VALUES (?, ?, ?)
			ON CONFLICT (event_id, user_id) WHERE user_id IS NOT NULL
			DO UPDATE SET response = excluded.response`,
			a.EventID, *a.UserID, a.Response)
	case a.Email != nil:
		_, err = p.db.ExecContext(ctx, `
			INSERT INTO attendees (event_id, email, response) VALUES (?, ?, ?)
			ON CONFLICT (event_id, email) WHERE email IS NOT NULL
			DO UPDATE SET response = excluded.response`,
			a.EventID, *a.Email, a.Response)
	default:
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var out Attendee
	if a.UserID != nil {
		err = p.db.GetContext(ctx, &out, `SELECT * FROM attendees WHERE event_id = ? AND user_id = ?`, a.EventID, *a.UserID)
	} else {
		err = p.db.GetContext(ctx, &out, `SELECT * FROM attendees WHERE event_id = ? AND email = ?`, a.EventID, *a.Email)
	}
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &out, nil
}

func (p *SQLProvider) ListComments(ctx context.Context, eventID int64) ([]EventComment, error) {
	var comments []EventComment
	err := p.db.SelectContext(ctx, &comments, `SELECT * FROM event_comments WHERE event_id = ? ORDER BY created_at, id`, eventID)
	return comments, err
}

func (p *SQLProvider) CreateComment(ctx context.Context, c EventComment) (*EventComment, error) {
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO event_comments (event_id, user_id, content) VALUES (?, ?, ?)`,
		c.EventID, c.UserID, c.Content)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return p.GetComment(ctx, id)
}

func (p *SQLProvider) GetComment(ctx context.Context, id int64) (*EventComment, error) {
	var c EventComment
	err := p.db.GetContext(ctx, &c, `SELECT * FROM event_comments WHERE id = ?`, id)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &c, nil
}

func (p *SQLProvider) DeleteComment(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM event_comments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *SQLProvider) ListReminders(ctx context.Context, eventID int64) ([]Reminder, error) {
	var reminders []Reminder
	err := p.db.SelectContext(ctx, &reminders, `SELECT * FROM reminders WHERE event_id = ? ORDER BY minutes_before`, eventID)
	return reminders, err
}

func (p *SQLProvider) CreateReminder(ctx context.Context, r Reminder) (*Reminder, error) {
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO reminders (event_id, minutes_before, method) VALUES (?, ?, ?)`,
		r.EventID, r.MinutesBefore, r.Method)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	r.ID = id
	return &r, nil
}

func (p *SQLProvider) DeleteReminder(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsContextMember reports whether the user may act within the given context.
// PERSONAL contexts belong to exactly the user with the matching id; other
// context types are resolved through the membership table maintained by the
// identity system.
func (p *SQLProvider) IsContextMember(ctx context.Context, contextType ContextType, contextID int64, userID int64) (bool, error) {
	if contextType == ContextPersonal {
		return contextID == userID, nil
	}

	var count int
	err := p.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM context_members WHERE context_type = ? AND context_id = ? AND user_id = ?`,
		contextType, contextID, userID)
	return count > 0, err
}

func (p *SQLProvider) ListMemberships(ctx context.Context, userID int64) ([]ContextMember, error) {
	var members []ContextMember
	err := p.db.SelectContext(ctx, &members,
		`SELECT * FROM context_members WHERE user_id = ? ORDER BY context_type, context_id`, userID)
	return members, err
}

func (p *SQLProvider) AddContextMember(ctx context.Context, m ContextMember) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO context_members (context_type, context_id, user_id, role) VALUES (?, ?, ?, ?)
		ON CONFLICT (context_type, context_id, user_id) DO UPDATE SET role = excluded.role`,
		m.ContextType, m.ContextID, m.UserID, m.Role)
	return err
}
