package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"

	"calendar-service/internal/config"
	"calendar-service/internal/email"
	"calendar-service/internal/ratelimit"
	"calendar-service/internal/routes"
	"calendar-service/internal/storage"
)

func securityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("X-XSS-Protection", "1; mode=block")

	// Disable caching
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Next()
}

// htmlRenderer registers each page template against the shared layout.
func htmlRenderer(templateDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()
	layout := templateDir + "/layout.html.tmpl"
	for _, page := range []string{"error.html.tmpl", "rsvp_confirm.html.tmpl"} {
		r.AddFromFiles(page, layout, templateDir+"/"+page)
	}
	return r
}

// injectDependencies makes the storage provider and the optional mail client
// available to handlers through the request context.
func injectDependencies(provider storage.Provider, mailer *email.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("Storage", provider)
		if mailer != nil {
			c.Set("Mailer", mailer)
		}
		c.Next()
	}
}

// HTTPServer assembles the full engine: public RSVP endpoint, authenticated
// calendar API, and health check.
func HTTPServer(provider storage.Provider, mailer *email.Client, templateDir string) *gin.Engine {
	r := gin.Default()

	r.HTMLRender = htmlRenderer(templateDir)

	r.Use(securityHeaders)
	r.Use(injectDependencies(provider, mailer))
	r.Use(routes.ErrorHandler())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	rsvpLimiter := ratelimit.NewLimiter(config.Cfg.RSVPRateLimit, time.Minute)

	public := r.Group("/calendar")
	routes.PublicRSVPRoutes(public, rsvpLimiter)

	api := r.Group("/calendar")
	api.Use(routes.RequireAuth())
	routes.CalendarRoutes(api)
	routes.EventRoutes(api.Group("/events"))
	routes.FreeBusyRoutes(api)
	routes.ICSRoutes(api)
	routes.CommentRoutes(api)
	routes.ReminderRoutes(api)
	routes.RSVPRoutes(api)

	return r
}

// ServerMain starts the HTTP server on the configured listen address.
func ServerMain(provider storage.Provider, mailer *email.Client) error {
	r := HTTPServer(provider, mailer, "web/templates")

	slog.Info("Starting calendar service", "listen", config.Cfg.Listen)
	return r.Run(config.Cfg.Listen)
}
