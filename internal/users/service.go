package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/homestock-backend/pkg/config"
	pkgdb "github.com/angelmondragon/homestock-backend/pkg/db"
	"github.com/angelmondragon/homestock-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/homestock-backend/pkg/errors"
	"github.com/angelmondragon/homestock-backend/pkg/ids"
	"github.com/angelmondragon/homestock-backend/pkg/logger"
	"github.com/angelmondragon/homestock-backend/pkg/security"
)

var (
	// ErrNotFound is wrapped into a NOT_FOUND error when a user id or email has no row.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is wrapped into a CONFLICT error when the normalized email is taken.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Store is the credential store used by the auth flows and the auth gate.
type Store interface {
	Create(ctx context.Context, in CreateInput) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id ids.ID) (*models.User, error)
	Update(ctx context.Context, id ids.ID, in UpdateInput) (*models.User, error)
	SetPassword(ctx context.Context, id ids.ID, plaintext string) error
	RecordLogin(ctx context.Context, id ids.ID) (time.Time, error)
	Delete(ctx context.Context, id ids.ID) error
	VerifyPassword(plaintext, storedHash string) bool
	ResolveSubject(ctx context.Context, id ids.ID) (Subject, error)
}

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id ids.ID) (*models.User, error)
	Update(ctx context.Context, id ids.ID, changes map[string]any) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id ids.ID, at time.Time) error
	Delete(ctx context.Context, id ids.ID) error
}

type subjectCache interface {
	Get(ctx context.Context, id ids.ID) (Subject, bool, error)
	Put(ctx context.Context, subject Subject) error
	Invalidate(ctx context.Context, id ids.ID) error
	Tombstone(ctx context.Context, id ids.ID) error
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	Repo     userRepository
	Password config.PasswordConfig
	// Cache is optional; without it subjects are always read from the repository.
	Cache  subjectCache
	Logger *logger.Logger
	Clock  func() time.Time
}

// Service implements Store on top of a gorm repository.
type Service struct {
	repo     userRepository
	password config.PasswordConfig
	cache    subjectCache
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs a users service with the provided dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     params.Repo,
		password: params.Password,
		cache:    params.Cache,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.User, error) {
	hash, err := security.HashPassword(in.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user := &models.User{
		ID:           ids.New(),
		Name:         strings.TrimSpace(in.Name),
		Email:        NormalizeEmail(in.Email),
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, mapWriteError(err, "create user")
	}
	return user, nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, mapReadError(err, "lookup user by email")
	}
	return user, nil
}

func (s *Service) FindByID(ctx context.Context, id ids.ID) (*models.User, error) {
	if id.IsZero() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrNotFound, ErrNotFound.Error())
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapReadError(err, "lookup user by id")
	}
	return user, nil
}

// Update changes the mutable fields set in in. UpdatedAt is refreshed even
// when no field is set.
func (s *Service) Update(ctx context.Context, id ids.ID, in UpdateInput) (*models.User, error) {
	changes := map[string]any{"updated_at": s.now().UTC()}
	if in.Name != nil {
		changes["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		changes["email"] = NormalizeEmail(*in.Email)
	}
	if in.PasswordHash != nil {
		changes["password_hash"] = *in.PasswordHash
	}

	user, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrNotFound, ErrNotFound.Error())
		}
		return nil, mapWriteError(err, "update user")
	}
	s.invalidate(ctx, id)
	return user, nil
}

func (s *Service) SetPassword(ctx context.Context, id ids.ID, plaintext string) error {
	hash, err := security.HashPassword(plaintext, s.password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	_, err = s.Update(ctx, id, UpdateInput{PasswordHash: &hash})
	return err
}

// RecordLogin stamps last_login_at and returns the recorded instant.
func (s *Service) RecordLogin(ctx context.Context, id ids.ID) (time.Time, error) {
	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, id, now); err != nil {
		return time.Time{}, mapReadError(err, "update last login")
	}
	return now, nil
}

// Delete removes the user together with their inventory. The cached subject
// is tombstoned first; if that fails nothing is deleted.
func (s *Service) Delete(ctx context.Context, id ids.ID) error {
	if s.cache != nil {
		if err := s.cache.Tombstone(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "tombstone cached subject")
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.invalidate(ctx, id)
		return mapReadError(err, "delete user")
	}
	return nil
}

// VerifyPassword reports whether plaintext matches storedHash. Unreadable
// hashes never match.
func (s *Service) VerifyPassword(plaintext, storedHash string) bool {
	ok, err := security.VerifyPassword(plaintext, storedHash)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(context.Background(), "stored password hash is unreadable")
		}
		return false
	}
	return ok
}

// ResolveSubject confirms that id still names an account and returns its
// current email, consulting the subject cache first when one is configured.
func (s *Service) ResolveSubject(ctx context.Context, id ids.ID) (Subject, error) {
	if s.cache != nil {
		subject, ok, err := s.cache.Get(ctx, id)
		if errors.Is(err, ErrSubjectDeleted) {
			return Subject{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrNotFound, ErrNotFound.Error())
		}
		if err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "subject cache read failed")
		}
		if ok {
			return subject, nil
		}
	}

	user, err := s.FindByID(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	subject := Subject{ID: user.ID, Email: user.Email}
	if s.cache != nil {
		err := s.cache.Put(ctx, subject)
		if errors.Is(err, ErrSubjectDeleted) {
			return Subject{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrNotFound, ErrNotFound.Error())
		}
		if err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "subject cache write failed")
		}
	}
	return subject, nil
}

func (s *Service) invalidate(ctx context.Context, id ids.ID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithUserID(ctx, id.String()), "subject cache invalidation failed", err)
	}
}

func mapReadError(err error, op string) error {
	if pkgdb.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrNotFound, ErrNotFound.Error())
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}

func mapWriteError(err error, op string) error {
	if pkgdb.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrDuplicateEmail, ErrDuplicateEmail.Error())
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
