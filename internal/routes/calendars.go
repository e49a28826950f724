package routes

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"calendar-service/internal/config"
	"calendar-service/internal/storage"
)

type calendarRequest struct {
	Name                   string `json:"name"`
	Color                  string `json:"color"`
	ContextType            string `json:"contextType"`
	ContextID              int64  `json:"contextId"`
	IsPrimary              *bool  `json:"isPrimary"`
	DefaultReminderMinutes *int   `json:"defaultReminderMinutes"`
}

type autoProvisionRequest struct {
	ContextType string `json:"contextType"`
	ContextID   int64  `json:"contextId"`
	Name        string `json:"name"`
	IsPrimary   *bool  `json:"isPrimary"`
}

// CalendarRoutes mounts the calendar registry endpoints.
func CalendarRoutes(r *gin.RouterGroup) {
	// List calendars visible to the principal, optionally filtered to one
	// context.
	r.GET("", func(c *gin.Context) {
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
		ctx := c.Request.Context()

		var calendars []storage.Calendar
		if rawType := c.Query("contextType"); rawType != "" {
			ctxType := storage.ContextType(strings.ToUpper(rawType))
			if !ctxType.Valid() {
				AbortWithError(c, ErrInvalidParameter)
				return
			}
			contextID, err := strconv.ParseInt(c.Query("contextId"), 10, 64)
			if err != nil {
				AbortWithError(c, ErrInvalidParameter)
				return
			}

			member, err := provider.IsContextMember(ctx, ctxType, contextID, principal.UserID)
			if err != nil {
				AbortWithError(c, err)
				return
			}
			if !member {
				AbortWithError(c, ErrNotContextMember)
				return
			}

			calendars, err = provider.ListCalendarsByContext(ctx, ctxType, contextID)
			if err != nil {
				AbortWithError(c, err)
				return
			}
		} else {
			calendars, err = provider.ListCalendarsForUser(ctx, principal.UserID)
			if err != nil {
				AbortWithError(c, err)
				return
			}
		}

		OK(c, calendars)
	})

	r.POST("", func(c *gin.Context) {
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

		var req calendarRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if req.Name == "" {
			AbortWithError(c, ErrMissingParameter)
			return
		}
		ctxType := storage.ContextType(strings.ToUpper(req.ContextType))
		if !ctxType.Valid() {
			AbortWithError(c, ErrInvalidParameter)
			return
		}

		ctx := c.Request.Context()
		member, err := provider.IsContextMember(ctx, ctxType, req.ContextID, principal.UserID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !member {
			AbortWithError(c, ErrNotContextMember)
			return
		}

		cal := storage.Calendar{
			Name:                   req.Name,
			Color:                  req.Color,
			ContextType:            ctxType,
			ContextID:              req.ContextID,
			IsDeletable:            true,
			DefaultReminderMinutes: 30,
		}
		if req.IsPrimary != nil {
			cal.IsPrimary = *req.IsPrimary
		}
		if req.DefaultReminderMinutes != nil {
			cal.DefaultReminderMinutes = *req.DefaultReminderMinutes
		}

		created, err := provider.CreateCalendar(ctx, cal)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		Created(c, created)
	})

	r.PATCH("/:id", func(c *gin.Context) {
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

		cal, err := requireCalendarAccess(c, principal, id)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		var req calendarRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		if req.Name != "" {
			cal.Name = req.Name
		}
		if req.Color != "" {
			cal.Color = req.Color
		}
		// Absent means leave unchanged; false explicitly demotes.
		if req.IsPrimary != nil {
			cal.IsPrimary = *req.IsPrimary
		}
		if req.DefaultReminderMinutes != nil {
			cal.DefaultReminderMinutes = *req.DefaultReminderMinutes
		}

		provider, err := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		updated, err := provider.UpdateCalendar(c.Request.Context(), *cal)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		OK(c, updated)
	})

	r.DELETE("/:id", func(c *gin.Context) {
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

		cal, err := requireCalendarAccess(c, principal, id)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if cal.IsSystem || !cal.IsDeletable {
			AbortWithError(c, ErrProtectedCalendar)
			return
		}

		provider, err := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		ctx := c.Request.Context()

		// Refuse to silently drop events unless the caller asked for it.
		if c.Query("cascade") != "true" {
			count, err := provider.CountCalendarEvents(ctx, id)
			if err != nil {
				AbortWithError(c, err)
				return
			}
			if count > 0 {
				AbortWithError(c, ErrCalendarNotEmpty)
				return
			}
		}

		if err := provider.DeleteCalendar(ctx, id); err != nil {
			AbortWithError(c, err)
			return
		}

		slog.Info("Calendar deleted", "calendar_id", id, "user_id", principal.UserID)
		OK(c, gin.H{"deleted": id})
	})

	// Idempotent default-calendar provisioning, called by the client the
	// first time a context's calendar view loads empty.
	r.POST("/auto-provision", func(c *gin.Context) {
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

		var req autoProvisionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		ctxType := storage.ContextType(strings.ToUpper(req.ContextType))
		if !ctxType.Valid() {
			AbortWithError(c, ErrInvalidParameter)
			return
		}

		ctx := c.Request.Context()
		member, err := provider.IsContextMember(ctx, ctxType, req.ContextID, principal.UserID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !member {
			AbortWithError(c, ErrNotContextMember)
			return
		}

		existing, err := provider.ListCalendarsByContext(ctx, ctxType, req.ContextID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if len(existing) > 0 {
			OK(c, existing[0])
			return
		}

		name := req.Name
		if name == "" {
			name = config.Cfg.DefaultCalendarName
		}
		isPrimary := true
		if req.IsPrimary != nil {
			isPrimary = *req.IsPrimary
		}

		created, err := provider.CreateCalendar(ctx, storage.Calendar{
			Name:                   name,
			ContextType:            ctxType,
			ContextID:              req.ContextID,
			IsPrimary:              isPrimary,
			IsSystem:               true,
			IsDeletable:            false,
			DefaultReminderMinutes: 30,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}

		slog.Info("Auto-provisioned default calendar", "calendar_id", created.ID, "context_type", ctxType, "context_id", req.ContextID)
		Created(c, created)
	})
}
