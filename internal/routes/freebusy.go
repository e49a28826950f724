package routes

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"calendar-service/internal/freebusy"
	"calendar-service/internal/ics"
)

const maxICSBodyBytes = 1 << 20

// FreeBusyRoutes mounts the conflict and availability endpoints.
func FreeBusyRoutes(r *gin.RouterGroup) {
	// Candidate slot check: every visible occurrence overlapping the slot.
	r.GET("/events/conflicts", func(c *gin.Context) {
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

		conflicts := freebusy.Conflicts(occurrences, start, end)
		OK(c, gin.H{
			"hasConflicts": len(conflicts) > 0,
			"conflicts":    toWire(conflicts),
		})
	})

	// Merged busy intervals, opaque to event details.
	r.GET("/freebusy", func(c *gin.Context) {
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

		OK(c, gin.H{
			"start": start,
			"end":   end,
			"busy":  freebusy.BusyIntervals(occurrences),
		})
	})
}

// ICSRoutes mounts calendar import and export.
func ICSRoutes(r *gin.RouterGroup) {
	r.POST("/events/import", func(c *gin.Context) {
		principal, err := GetPrincipal(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		var req struct {
			CalendarID int64  `json:"calendarId"`
			ICS        string `json:"icsContent"`
		}
		if c.ContentType() == "text/calendar" {
			// Raw upload; the target calendar comes from the query string.
			body, err := readLimited(c.Request.Body)
			if err != nil {
				AbortWithError(c, ErrInvalidRequest)
				return
			}
			req.ICS = string(body)
			req.CalendarID, err = parseIDQuery(c, "calendarId")
			if err != nil {
				AbortWithError(c, err)
				return
			}
		} else if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if req.ICS == "" {
			AbortWithError(c, ErrMissingParameter)
			return
		}

		cal, err := requireCalendarAccess(c, principal, req.CalendarID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		result, err := ics.Parse(cal.ID, principal.UserID, req.ICS)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		provider, err := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		ctx := c.Request.Context()

		imported := make([]any, 0, len(result.Events))
		for _, ev := range result.Events {
			created, err := provider.CreateEvent(ctx, ev)
			if err != nil {
				slog.Warn("Skipping unimportable event", "uid", ev.UID, "error", err)
				result.Skipped++
				continue
			}
			imported = append(imported, created)
		}

		Created(c, gin.H{
			"imported": len(imported),
			"skipped":  result.Skipped,
			"events":   imported,
		})
	})

	r.GET("/events/export", func(c *gin.Context) {
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

		provider, err := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		ctx := c.Request.Context()

		calendarIDs, err := resolveVisibleCalendarIDs(c, principal)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		events, err := provider.ListEventsInRange(ctx, calendarIDs, start, end)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		var seriesIDs []int64
		for _, ev := range events {
			if ev.IsSeriesBase() {
				seriesIDs = append(seriesIDs, ev.ID)
			}
		}
		exceptions, err := provider.ListExceptions(ctx, seriesIDs)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		payload := ics.Export(events, exceptions)
		c.Header("Content-Disposition", `attachment; filename="calendar.ics"`)
		c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(payload))
	})
}

// readLimited guards against oversized raw ICS uploads.
func readLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxICSBodyBytes))
}
