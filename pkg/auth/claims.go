package auth

import (
	"time"

	"github.com/angelmondragon/homestock-backend/pkg/ids"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims is the signed assertion handed to clients. The subject
// (sub) carries the user id.
type AccessTokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Subject is what a verified token asserts about its bearer.
type Subject struct {
	ID    ids.ID
	Email string
}

// IssuedToken is a freshly signed token with its validity window.
type IssuedToken struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
