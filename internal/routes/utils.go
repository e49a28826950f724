package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"calendar-service/internal/storage"
	"calendar-service/internal/token"
)

// OK writes the standard success envelope.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// Created writes the standard success envelope with 201.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

// Helper function to generate a URL for a given path
func UrlFor(c *gin.Context, path string) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s://%s%s", scheme, c.Request.Host, path)
}

func parseIDParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidParameter, name)
	}
	return id, nil
}

// AcceptsJSON mirrors the content negotiation used by the error middleware.
func AcceptsJSON(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return accept == "" || accept == "application/json"
}

func parseIDQuery(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingParameter, name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidParameter, name)
	}
	return id, nil
}

// parseTimeQuery parses a required RFC 3339 query parameter.
func parseTimeQuery(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s", ErrMissingParameter, name)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidParameter, name)
	}
	return t, nil
}

// parseWindow parses the start/end query parameters and validates ordering.
func parseWindow(c *gin.Context) (time.Time, time.Time, error) {
	start, err := parseTimeQuery(c, "start")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseTimeQuery(c, "end")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, ErrInvalidTimeRange
	}
	return start, end, nil
}

// parseIDList parses a repeated or comma-separated int64 query parameter,
// accepting both `ids[]=1&ids[]=2` and `ids=1,2`.
func parseIDList(c *gin.Context, name string) ([]int64, error) {
	raw := c.QueryArray(name + "[]")
	if len(raw) == 0 {
		if joined := c.Query(name); joined != "" {
			raw = strings.Split(joined, ",")
		}
	}

	var out []int64
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidParameter, name)
		}
		out = append(out, id)
	}
	return out, nil
}

// contextRef identifies one calendar context in query parameters, encoded as
// TYPE:id, e.g. BUSINESS:31.
type contextRef struct {
	Type storage.ContextType
	ID   int64
}

func parseContextList(c *gin.Context, name string) ([]contextRef, error) {
	raw := c.QueryArray(name + "[]")
	if len(raw) == 0 {
		if joined := c.Query(name); joined != "" {
			raw = strings.Split(joined, ",")
		}
	}

	var out []contextRef
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		parts := strings.SplitN(s, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: %s must be TYPE:id", ErrInvalidParameter, name)
		}
		ctxType := storage.ContextType(strings.ToUpper(parts[0]))
		if !ctxType.Valid() {
			return nil, fmt.Errorf("%w: unknown context type %q", ErrInvalidParameter, parts[0])
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidParameter, name)
		}
		out = append(out, contextRef{Type: ctxType, ID: id})
	}
	return out, nil
}

// resolveVisibleCalendarIDs resolves the calendar set a request may read:
// explicit calendarIds (each checked for membership), explicit contexts
// (each checked for membership), or every calendar across the principal's
// memberships when neither filter is present.
func resolveVisibleCalendarIDs(c *gin.Context, principal token.Principal) ([]int64, error) {
	provider, err := GetStorageProvider(c)
	if err != nil {
		return nil, err
	}
	ctx := c.Request.Context()

	if ids, err := parseIDList(c, "calendarIds"); err != nil {
		return nil, err
	} else if len(ids) > 0 {
		for _, id := range ids {
			cal, err := provider.GetCalendar(ctx, id)
			if err != nil {
				if err == storage.ErrNotFound {
					return nil, ErrCalendarNotFound
				}
				return nil, err
			}
			member, err := provider.IsContextMember(ctx, cal.ContextType, cal.ContextID, principal.UserID)
			if err != nil {
				return nil, err
			}
			if !member {
				return nil, ErrNotContextMember
			}
		}
		return ids, nil
	}

	if contexts, err := parseContextList(c, "contexts"); err != nil {
		return nil, err
	} else if len(contexts) > 0 {
		var ids []int64
		for _, ref := range contexts {
			member, err := provider.IsContextMember(ctx, ref.Type, ref.ID, principal.UserID)
			if err != nil {
				return nil, err
			}
			if !member {
				return nil, ErrNotContextMember
			}
			calendars, err := provider.ListCalendarsByContext(ctx, ref.Type, ref.ID)
			if err != nil {
				return nil, err
			}
			for _, cal := range calendars {
				ids = append(ids, cal.ID)
			}
		}
		return ids, nil
	}

	calendars, err := provider.ListCalendarsForUser(c.Request.Context(), principal.UserID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(calendars))
	for _, cal := range calendars {
		ids = append(ids, cal.ID)
	}
	return ids, nil
}

// requireCalendarAccess loads a calendar and verifies the principal belongs
// to its context.
func requireCalendarAccess(c *gin.Context, principal token.Principal, calendarID int64) (*storage.Calendar, error) {
	provider, err := GetStorageProvider(c)
	if err != nil {
		return nil, err
	}
	ctx := c.Request.Context()

	cal, err := provider.GetCalendar(ctx, calendarID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, ErrCalendarNotFound
		}
		return nil, err
	}

	member, err := provider.IsContextMember(ctx, cal.ContextType, cal.ContextID, principal.UserID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotContextMember
	}
	return cal, nil
}

// requireEventAccess loads an event and verifies access through its calendar.
func requireEventAccess(c *gin.Context, principal token.Principal, eventID int64) (*storage.Event, *storage.Calendar, error) {
	provider, err := GetStorageProvider(c)
	if err != nil {
		return nil, nil, err
	}

	ev, err := provider.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, nil, ErrEventNotFound
		}
		return nil, nil, err
	}

	cal, err := requireCalendarAccess(c, principal, ev.CalendarID)
	if err != nil {
		return nil, nil, err
	}
	return ev, cal, nil
}
