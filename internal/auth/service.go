package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/homestock-backend/internal/users"
	pkgAuth "github.com/angelmondragon/homestock-backend/pkg/auth"
	"github.com/angelmondragon/homestock-backend/pkg/config"
	"github.com/angelmondragon/homestock-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/homestock-backend/pkg/errors"
	"github.com/angelmondragon/homestock-backend/pkg/ids"
	"github.com/angelmondragon/homestock-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid email or password"
	minPasswordLen            = 6
	// bcrypt ignores input past 72 bytes and x/crypto rejects it outright.
	maxPasswordBytes = 72
	decoyPassword    = "homestock-decoy-password"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Profile(ctx context.Context, userID ids.ID) (*users.UserDTO, error)
	UpdateProfile(ctx context.Context, userID ids.ID, req UpdateProfileRequest) (*users.UserDTO, error)
	ChangePassword(ctx context.Context, userID ids.ID, req ChangePasswordRequest) error
	VerifyToken(ctx context.Context, userID ids.ID) (*VerifyTokenResponse, error)
	DeleteAccount(ctx context.Context, userID ids.ID, req DeleteAccountRequest) error
}

type credentialStore interface {
	Create(ctx context.Context, in users.CreateInput) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id ids.ID) (*models.User, error)
	Update(ctx context.Context, id ids.ID, in users.UpdateInput) (*models.User, error)
	SetPassword(ctx context.Context, id ids.ID, plaintext string) error
	RecordLogin(ctx context.Context, id ids.ID) (time.Time, error)
	Delete(ctx context.Context, id ids.ID) error
	VerifyPassword(plaintext, storedHash string) bool
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users          credentialStore
	Tokens         pkgAuth.TokenService
	PasswordConfig config.PasswordConfig
}

type service struct {
	users     credentialStore
	tokens    pkgAuth.TokenService
	decoyHash string
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	decoy, err := security.HashPassword(decoyPassword, params.PasswordConfig)
	if err != nil {
		return nil, fmt.Errorf("hash decoy password: %w", err)
	}
	return &service{
		users:     params.Users,
		tokens:    params.Tokens,
		decoyHash: decoy,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fieldError("name", "is required")
	}
	email, err := validEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := checkPassword("password", req.Password); err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, users.CreateInput{Name: name, Email: email, Password: req.Password})
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "user already exists with this email")
		}
		return nil, err
	}

	issued, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue token")
	}
	return &AuthResponse{
		Message:   "user registered successfully",
		User:      users.FromModel(user),
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

// Login answers unknown emails and wrong passwords identically, and spends a
// password verification on both paths.
func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.users.VerifyPassword(req.Password, s.decoyHash)
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, err
	}
	if !s.users.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	at, err := s.users.RecordLogin(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.LastLoginAt = &at

	issued, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue token")
	}
	return &AuthResponse{
		Message:   "login successful",
		User:      users.FromModel(user),
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

func (s *service) Profile(ctx context.Context, userID ids.ID) (*users.UserDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return users.FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID ids.ID, req UpdateProfileRequest) (*users.UserDTO, error) {
	if req.Name == nil && req.Email == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name or email is required")
	}
	var in users.UpdateInput
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fieldError("name", "must not be empty")
		}
		in.Name = &name
	}
	if req.Email != nil {
		email, err := validEmail(*req.Email)
		if err != nil {
			return nil, err
		}
		in.Email = &email
	}

	user, err := s.users.Update(ctx, userID, in)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already in use")
		}
		return nil, err
	}
	return users.FromModel(user), nil
}

func (s *service) ChangePassword(ctx context.Context, userID ids.ID, req ChangePasswordRequest) error {
	if err := checkPassword("new_password", req.NewPassword); err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.users.VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}
	return s.users.SetPassword(ctx, userID, req.NewPassword)
}

func (s *service) VerifyToken(ctx context.Context, userID ids.ID) (*VerifyTokenResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &VerifyTokenResponse{
		Valid: true,
		User:  PublicUser{ID: user.ID, Name: user.Name, Email: user.Email},
	}, nil
}

// DeleteAccount removes the caller and every item they own once the password
// is re-verified. Tokens already issued stop authenticating immediately.
func (s *service) DeleteAccount(ctx context.Context, userID ids.ID, req DeleteAccountRequest) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.users.VerifyPassword(req.Password, user.PasswordHash) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}
	return s.users.Delete(ctx, userID)
}

// checkPassword bounds a new password: at least minPasswordLen characters and
// at most maxPasswordBytes bytes of UTF-8.
func checkPassword(field, password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return fieldError(field, fmt.Sprintf("must be at least %d", minPasswordLen))
	}
	if len(password) > maxPasswordBytes {
		return fieldError(field, fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}

func validEmail(raw string) (string, error) {
	email := users.NormalizeEmail(raw)
	if !emailPattern.MatchString(email) {
		return "", fieldError("email", "must be a valid email")
	}
	return email, nil
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: msg})
}
