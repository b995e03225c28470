// Package auth issues and validates signed, time-limited session
// credentials. A credential is self-contained: validity is decided by
// signature and expiry alone, with no server-side lookup, so validation is a
// pure gate in front of every session-scoped operation.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/creastat/dialog"
)

// DefaultLifetime is how long an issued credential stays valid.
const DefaultLifetime = 7 * 24 * time.Hour

// Authenticator signs and verifies session credentials with HMAC-SHA256.
type Authenticator struct {
	signingKey []byte
	lifetime   time.Duration
	now        func() time.Time
}

// New creates an Authenticator. A non-positive lifetime falls back to
// DefaultLifetime.
func New(signingKey []byte, lifetime time.Duration) (*Authenticator, error) {
	if len(signingKey) == 0 {
		return nil, fmt.Errorf("signing key is required")
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Authenticator{
		signingKey: signingKey,
		lifetime:   lifetime,
		now:        time.Now,
	}, nil
}

// NewSessionID returns a fresh globally unique session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Issue produces a signed credential embedding the session id as subject and
// an expiry of now plus the configured lifetime. No side effects beyond
// token construction.
func (a *Authenticator) Issue(sessionID string) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.lifetime)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign credential: %w", err)
	}
	return signed, nil
}

// Validate verifies signature and expiry and returns the embedded session
// id. Expired credentials map to ErrExpiredCredential; bad signatures,
// malformed payloads and missing subjects map to ErrInvalidCredential.
func (a *Authenticator) Validate(credential string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(credential, claims,
		func(*jwt.Token) (any, error) { return a.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dialog.ErrExpiredCredential
		}
		return "", dialog.ErrInvalidCredential
	}
	if claims.Subject == "" {
		return "", dialog.ErrInvalidCredential
	}
	return claims.Subject, nil
}
