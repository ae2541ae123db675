package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/homestock-backend/pkg/config"
	"github.com/angelmondragon/homestock-backend/pkg/ids"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// TokenService issues and verifies access tokens.
type TokenService interface {
	Issue(subject ids.ID, email string) (IssuedToken, error)
	Verify(token string) (Subject, error)
}

// Tokens is the HS256 TokenService. The secret is immutable after construction
// so a single instance is safe for concurrent use.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// Option customises a Tokens instance.
type Option func(*Tokens)

// WithClock replaces the wall clock used for iat/exp and for verification.
func WithClock(now func() time.Time) Option {
	return func(t *Tokens) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTokens builds a TokenService from the JWT config.
func NewTokens(cfg config.JWTConfig, opts ...Option) (*Tokens, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("jwt issuer is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("jwt ttl must be positive")
	}
	t := &Tokens{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue signs a token for subject valid for [now, now+ttl). JWT times have
// second precision so now is truncated before the window is computed.
func (t *Tokens) Issue(subject ids.ID, email string) (IssuedToken, error) {
	if subject.IsZero() {
		return IssuedToken{}, fmt.Errorf("subject id is required")
	}

	issuedAt := t.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(t.ttl)

	claims := AccessTokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString(t.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("signing jwt: %w", err)
	}
	return IssuedToken{Token: signed, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// Verify checks signature, issuer and expiry and returns the asserted subject.
// The signature is checked before any claim, so a tampered token reports
// ErrInvalidSignature even when it has also expired.
func (t *Tokens) Verify(token string) (Subject, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Subject{}, ErrMalformedToken
	}

	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(tok *jwt.Token) (interface{}, error) {
			if tok.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
			}
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Subject{}, classify(err)
	}

	subject, err := ids.Parse(claims.Subject)
	if err != nil {
		return Subject{}, fmt.Errorf("%w: subject: %v", ErrMalformedToken, err)
	}
	return Subject{ID: subject, Email: claims.Email}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		// foreign issuer and other claim failures: the token is not ours
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
}
