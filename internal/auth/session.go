// Package auth - session.go handles admin session token creation, signing,
// and verification using a shared secret, including lazy secret
// initialization and claims parsing.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// sessionSecret holds the validated session signing secret
	sessionSecret     string
	sessionSecretOnce sync.Once
	sessionSecretErr  error
)

// Claims represents the session token claims structure. The panel has a
// single shared operator identity, so the subject is fixed.
type Claims struct {
	jwt.RegisteredClaims
}

// isDevMode checks if we're in development mode
func isDevMode() bool {
	devMode := os.Getenv("DEV_MODE")
	ginMode := os.Getenv("GIN_MODE")

	return devMode == "true" || devMode == "1" || ginMode == "debug"
}

// generateRandomSecret creates a cryptographically secure random secret
func generateRandomSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a less secure but functional secret
		return fmt.Sprintf("dev-fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}

// ValidateSessionSecret checks that the session secret is properly configured.
// In production, this will fail if GA_SESSION_SECRET is not set.
// In dev mode, it will generate a random secret and log a warning.
// Call this at application startup.
func ValidateSessionSecret() error {
	sessionSecretOnce.Do(func() {
		secret := os.Getenv("GA_SESSION_SECRET")

		if secret == "" {
			if isDevMode() {
				sessionSecret = generateRandomSecret()
				log.Printf("WARNING: GA_SESSION_SECRET not set. Using auto-generated secret for development.")
				log.Printf("WARNING: Sessions will not persist across restarts. Set GA_SESSION_SECRET for persistent sessions.")
			} else {
				sessionSecretErr = errors.New("SECURITY ERROR: GA_SESSION_SECRET environment variable is required in production. " +
					"Generate a secure secret with: openssl rand -hex 32")
			}
			return
		}

		if len(secret) < 32 {
			log.Printf("WARNING: GA_SESSION_SECRET is shorter than recommended 32 characters. Consider using a longer secret.")
		}

		sessionSecret = secret
	})

	return sessionSecretErr
}

// getSessionSecret retrieves the validated session secret.
// Panics if ValidateSessionSecret() hasn't been called or failed.
func getSessionSecret() string {
	if sessionSecret == "" {
		if err := ValidateSessionSecret(); err != nil {
			panic(err)
		}
	}
	return sessionSecret
}

// IssueSession creates a signed session token for a successful login.
func IssueSession(ttl time.Duration) (token string, expiresAt time.Time, err error) {
	if ttl == 0 {
		ttl = 12 * time.Hour
	}

	expiresAt = time.Now().Add(ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "game-admin",
			Subject:   "admin",
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(getSessionSecret()))
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// ValidateSession parses and validates a session token.
func ValidateSession(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(getSessionSecret()), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	return claims, nil
}
