// Package auth - password.go verifies the shared admin password. A bcrypt
// hash is preferred; a plaintext password in config is still accepted for
// development and compared in constant time.
package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"

	"github.com/brainsta/game-admin/internal/config"
)

// CheckPassword verifies a submitted password against the admin credentials.
func CheckPassword(cfg *config.AdminConfig, submitted string) bool {
	if submitted == "" {
		return false
	}

	if cfg.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(cfg.PasswordHash), []byte(submitted)) == nil
	}

	if cfg.Password != "" {
		return subtle.ConstantTimeCompare([]byte(cfg.Password), []byte(submitted)) == 1
	}

	return false
}

// HashPassword produces a bcrypt hash suitable for admin.password_hash.
// Used by cmd/hash so operators never need to keep plaintext in config.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
