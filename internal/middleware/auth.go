// auth.go provides the session authentication middleware.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Recovery → RequestID → Metrics → Logger → CORS → SecurityHeaders → RateLimit → SessionAuth → Handler
//
// Security headers run early so they appear on all responses including
// errors. Rate limiting runs before auth to block brute-force attacks before
// any token parsing.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brainsta/game-admin/internal/auth"
)

// SessionAuthMiddleware validates the admin session token on every request.
// Expects an Authorization header of the form "Bearer <token>" carrying a
// token issued by the login endpoint.
func SessionAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header must start with 'Bearer '",
			})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is empty",
			})
			return
		}

		claims, err := auth.ValidateSession(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired session",
			})
			return
		}

		c.Set("session_subject", claims.Subject)
		c.Next()
	}
}
