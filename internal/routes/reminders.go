package routes

import (
	"github.com/gin-gonic/gin"

	"calendar-service/internal/storage"
)

// ReminderRoutes mounts per-event reminder management.
func ReminderRoutes(r *gin.RouterGroup) {
	r.GET("/events/:id/reminders", func(c *gin.Context) {
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
		reminders, err := provider.ListReminders(c.Request.Context(), ev.ID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		OK(c, reminders)
	})

	r.POST("/events/:id/reminders", func(c *gin.Context) {
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

		var req struct {
			MinutesBefore int    `json:"minutesBefore"`
			Method        string `json:"method"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.MinutesBefore < 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		method := storage.ReminderMethod(req.Method)
		if method != storage.ReminderApp && method != storage.ReminderEmail {
			AbortWithError(c, ErrInvalidParameter)
			return
		}

		provider, err := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		reminder, err := provider.CreateReminder(c.Request.Context(), storage.Reminder{
			EventID:       ev.ID,
			MinutesBefore: req.MinutesBefore,
			Method:        method,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		Created(c, reminder)
	})

	r.DELETE("/events/:id/reminders/:reminderId", func(c *gin.Context) {
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
		reminderID, err := parseIDParam(c, "reminderId")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if _, _, err := requireEventAccess(c, principal, id); err != nil {
			AbortWithError(c, err)
			return
		}

		provider, err := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if err := provider.DeleteReminder(c.Request.Context(), reminderID); err != nil {
			AbortWithError(c, err)
			return
		}
		OK(c, gin.H{"deleted": reminderID})
	})
}
