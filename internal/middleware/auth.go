package middleware

import (
	"net/http"
	"strings"

	"paygate/config"
	"paygate/internal/auth"
	"paygate/internal/domain"

	"github.com/gin-gonic/gin"
)

const subjectKey = "subject"

// AuthRequired accepts "Authorization: Bearer <api key or jwt>" and stores the
// caller's subject in the context. It is a no-op when auth is disabled.
func AuthRequired(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(c, "Missing or malformed authorization header")
			return
		}
		subject, err := auth.Authenticate(cfg, strings.TrimSpace(parts[1]))
		if err != nil {
			unauthorized(c, "Invalid or expired token")
			return
		}
		c.Set(subjectKey, subject)
		c.Next()
	}
}

// GetSubject returns the authenticated caller, or "" when auth is off.
func GetSubject(c *gin.Context) string {
	return c.GetString(subjectKey)
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": domain.CodeUnauthorized, "message": msg},
	})
}
