package routes

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"calendar-service/internal/config"
	"calendar-service/internal/email"
	"calendar-service/internal/ratelimit"
	"calendar-service/internal/storage"
	"calendar-service/internal/token"
)

// GetMailer fetches the outbound mail client injected by the app, or nil when
// mail delivery is not configured.
func GetMailer(c *gin.Context) *email.Client {
	v, ok := c.Get("Mailer")
	if !ok {
		return nil
	}
	mailer, ok := v.(*email.Client)
	if !ok {
		return nil
	}
	return mailer
}

// rsvpURL builds the public self-contained response link for one attendee.
func rsvpURL(c *gin.Context, eventID int64, attendeeEmail string) (string, error) {
	ttl := time.Duration(config.Cfg.RSVPTokenTTL) * time.Hour
	claim := token.NewRSVPClaim(eventID, attendeeEmail, ttl)
	signed, err := token.Generate(config.Cfg.Secret, claim)
	if err != nil {
		return "", err
	}
	base := config.Cfg.BaseURL
	if base == "" {
		base = UrlFor(c, "")
	}
	return fmt.Sprintf("%s/calendar/rsvp?token=%s", base, url.QueryEscape(signed)), nil
}

// sendInvitation emails an attendee their RSVP link. Delivery failures are
// logged, not surfaced: the event exists regardless.
func sendInvitation(c *gin.Context, ev *storage.Event, attendeeEmail string) {
	mailer := GetMailer(c)
	if mailer == nil {
		return
	}

	link, err := rsvpURL(c, ev.ID, attendeeEmail)
	if err != nil {
		slog.Warn("Failed to build RSVP link", "event_id", ev.ID, "error", err)
		return
	}

	msg := email.Message{
		To:      attendeeEmail,
		Subject: fmt.Sprintf("Invitation: %s", ev.Title),
		HTML: fmt.Sprintf(
			"<p>You have been invited to <strong>%s</strong> starting %s.</p>"+
				"<p><a href=\"%s?response=ACCEPTED\">Accept</a> &middot; "+
				"<a href=\"%s?response=TENTATIVE\">Maybe</a> &middot; "+
				"<a href=\"%s?response=DECLINED\">Decline</a></p>",
			ev.Title, ev.StartAt.Format("Mon, 02 Jan 2006 15:04 MST"),
			link, link, link),
		RSVPURL: link,
	}
	if err := mailer.Send(&msg); err != nil {
		slog.Warn("Failed to send invitation", "event_id", ev.ID, "error", err)
	}
}

// RSVPRoutes mounts the authenticated response endpoint.
func RSVPRoutes(r *gin.RouterGroup) {
	r.POST("/events/:id/rsvp", func(c *gin.Context) {
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
			Response storage.AttendeeResponse `json:"response"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || !req.Response.Valid() {
			AbortWithError(c, ErrInvalidRSVPResponse)
			return
		}

		provider, err := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		saved, err := provider.UpsertAttendee(c.Request.Context(), storage.Attendee{
			EventID:  ev.ID,
			UserID:   &principal.UserID,
			Response: req.Response,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		OK(c, saved)
	})
}

// PublicRSVPRoutes mounts the tokenized endpoint reachable without a bearer
// token. Abuse is bounded per client address.
func PublicRSVPRoutes(r *gin.RouterGroup, limiter *ratelimit.Limiter) {
	r.GET("/rsvp", func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			AbortWithError(c, ErrTooManyRequests)
			return
		}

		raw := c.Query("token")
		if raw == "" {
			AbortWithError(c, ErrInvalidRSVPToken)
			return
		}
		claim, err := token.DecodeRSVP(config.Cfg.Secret, raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRSVPToken)
			return
		}

		response := storage.AttendeeResponse(c.Query("response"))
		if !response.Valid() {
			AbortWithError(c, ErrInvalidRSVPResponse)
			return
		}

		provider, err := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		ctx := c.Request.Context()

		ev, err := provider.GetEvent(ctx, claim.EventID)
		if err != nil {
			AbortWithError(c, ErrInvalidRSVPToken)
			return
		}

		saved, err := provider.UpsertAttendee(ctx, storage.Attendee{
			EventID:  ev.ID,
			Email:    &claim.Email,
			Response: response,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}

		if AcceptsJSON(c) {
			OK(c, saved)
			return
		}
		c.HTML(200, "rsvp_confirm.html.tmpl", gin.H{
			"Title":    ev.Title,
			"StartAt":  ev.StartAt.Format("Mon, 02 Jan 2006 15:04 MST"),
			"Response": string(response),
		})
	})
}
