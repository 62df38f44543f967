// auth.go implements the login handler that exchanges the shared admin
// password for a session token.
package admin

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brainsta/game-admin/internal/auth"
	"github.com/brainsta/game-admin/internal/config"
	"github.com/brainsta/game-admin/internal/telemetry"
)

// AuthHandlers handles authentication endpoints
type AuthHandlers struct {
	cfg *config.Config
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(cfg *config.Config) *AuthHandlers {
	return &AuthHandlers{cfg: cfg}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login verifies the shared admin password and issues a session token.
// The response never distinguishes a wrong password from missing credentials.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if !auth.CheckPassword(&h.cfg.Admin, req.Password) {
		telemetry.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		slog.Warn("failed login attempt", "ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	token, expiresAt, err := auth.IssueSession(h.cfg.Admin.SessionTTL)
	if err != nil {
		slog.Error("failed to issue session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	telemetry.LoginAttemptsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}
