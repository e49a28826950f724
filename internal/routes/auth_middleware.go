// Authentication middleware.
// Resolves the bearer credential into a concrete Principal once, at the
// boundary; handlers never touch the raw token.
package routes

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"calendar-service/internal/config"
	"calendar-service/internal/storage"
	"calendar-service/internal/token"
)

const principalKey = "Principal"

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved Principal in the request context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			AbortWithError(c, ErrInvalidCredentials)
			return
		}

		claim, err := token.DecodePrincipal(config.Cfg.Secret, raw)
		if err != nil {
			slog.Debug("Bearer token rejected", "error", err)
			AbortWithError(c, ErrInvalidCredentials)
			return
		}

		c.Set(principalKey, claim.Principal())
		c.Next()
	}
}

// GetPrincipal returns the authenticated principal set by RequireAuth.
func GetPrincipal(c *gin.Context) (token.Principal, error) {
	v, exists := c.Get(principalKey)
	if !exists {
		return token.Principal{}, ErrUnauthorized
	}
	principal, ok := v.(token.Principal)
	if !ok {
		return token.Principal{}, ErrUnauthorized
	}
	return principal, nil
}

// GetStorageProvider returns the storage provider injected by the server.
func GetStorageProvider(c *gin.Context) (storage.Provider, error) {
	v, exists := c.Get("Storage")
	if !exists {
		return nil, ErrInternalServer
	}
	provider, ok := v.(storage.Provider)
	if !ok {
		return nil, ErrInternalServer
	}
	return provider, nil
}
