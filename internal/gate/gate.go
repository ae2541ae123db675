// Package gate resolves the caller of a protected request from its bearer credential.
package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/homestock-backend/internal/users"
	"github.com/angelmondragon/homestock-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/homestock-backend/pkg/errors"
	"github.com/angelmondragon/homestock-backend/pkg/ids"
	"github.com/angelmondragon/homestock-backend/pkg/metrics"
)

var (
	ErrMissingCredential = errors.New("missing bearer credential")
	ErrSubjectNotFound   = errors.New("token subject no longer exists")
)

// Gate authenticates the raw Authorization header of a request.
type Gate interface {
	Authenticate(ctx context.Context, authorization string) (auth.Identity, error)
}

type subjectResolver interface {
	ResolveSubject(ctx context.Context, id ids.ID) (users.Subject, error)
}

// ServiceParams bundles the dependencies required to build the gate.
type ServiceParams struct {
	Tokens   auth.TokenService
	Subjects subjectResolver
	Metrics  *metrics.AuthMetrics
}

// Service is the Gate used by the HTTP middleware. Each call either returns a
// complete identity or rejects; nothing is retried.
type Service struct {
	tokens   auth.TokenService
	subjects subjectResolver
	metrics  *metrics.AuthMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	if params.Subjects == nil {
		return nil, fmt.Errorf("subject resolver is required")
	}
	return &Service{
		tokens:   params.Tokens,
		subjects: params.Subjects,
		metrics:  params.Metrics,
	}, nil
}

func (s *Service) Authenticate(ctx context.Context, authorization string) (auth.Identity, error) {
	token, ok := BearerToken(authorization)
	if !ok {
		s.metrics.Inc(metrics.OutcomeMissing)
		return auth.Identity{}, pkgerrors.Wrap(pkgerrors.CodeMissingCredentials, ErrMissingCredential, "access token required")
	}

	claimed, err := s.tokens.Verify(token)
	if err != nil {
		return auth.Identity{}, s.rejectToken(err)
	}

	subject, err := s.subjects.ResolveSubject(ctx, claimed.ID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.metrics.Inc(metrics.OutcomeSubjectNotFound)
			return auth.Identity{}, pkgerrors.Wrap(pkgerrors.CodeSubjectNotFound, ErrSubjectNotFound, "user not found")
		}
		s.metrics.Inc(metrics.OutcomeError)
		return auth.Identity{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve token subject")
	}

	s.metrics.Inc(metrics.OutcomeAuthenticated)
	return auth.Identity{UserID: subject.ID, Email: subject.Email}, nil
}

func (s *Service) rejectToken(err error) error {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		s.metrics.Inc(metrics.OutcomeExpired)
		return pkgerrors.Wrap(pkgerrors.CodeTokenExpired, err, "token expired")
	case errors.Is(err, auth.ErrMalformedToken):
		s.metrics.Inc(metrics.OutcomeMalformed)
		return pkgerrors.Wrap(pkgerrors.CodeTokenMalformed, err, "malformed token")
	default:
		s.metrics.Inc(metrics.OutcomeInvalid)
		return pkgerrors.Wrap(pkgerrors.CodeTokenInvalid, err, "invalid token")
	}
}

// BearerToken extracts the credential from an Authorization value of the
// form "Bearer <token>". The scheme is case-insensitive.
func BearerToken(authorization string) (string, bool) {
	value := strings.TrimSpace(authorization)
	scheme, token, found := strings.Cut(value, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
