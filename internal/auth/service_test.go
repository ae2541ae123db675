package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/homestock-backend/internal/users"
	pkgAuth "github.com/angelmondragon/homestock-backend/pkg/auth"
	"github.com/angelmondragon/homestock-backend/pkg/config"
	pkgdb "github.com/angelmondragon/homestock-backend/pkg/db"
	"github.com/angelmondragon/homestock-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/homestock-backend/pkg/errors"
	"github.com/angelmondragon/homestock-backend/pkg/ids"
	"github.com/angelmondragon/homestock-backend/pkg/security"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
)

var testPasswordConfig = config.PasswordConfig{Algorithm: "bcrypt", BcryptCost: bcrypt.MinCost}

type testEnv struct {
	svc    Service
	users  *users.Service
	tokens *pkgAuth.Tokens
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := pkgdb.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.InventoryItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store, err := users.NewService(users.ServiceParams{Repo: users.NewRepository(conn), Password: testPasswordConfig})
	if err != nil {
		t.Fatalf("users service: %v", err)
	}
	tokens, err := pkgAuth.NewTokens(config.JWTConfig{Secret: "test-secret", Issuer: "homestock", TTL: time.Hour})
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	svc, err := NewService(ServiceParams{Users: store, Tokens: tokens, PasswordConfig: testPasswordConfig})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	return &testEnv{svc: svc, users: store, tokens: tokens}
}

func (e *testEnv) register(t *testing.T, name, email, password string) *AuthResponse {
	t.Helper()
	resp, err := e.svc.Register(context.Background(), RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return resp
}

func TestRegisterReturnsPublicUserAndToken(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "Ann", "Ann@x.com", "secret1")

	if resp.User == nil || resp.User.Email != "ann@x.com" || resp.User.Name != "Ann" {
		t.Fatalf("unexpected user %+v", resp.User)
	}
	subject, err := env.tokens.Verify(resp.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if subject.ID != resp.User.ID || subject.Email != "ann@x.com" {
		t.Fatalf("unexpected token subject %+v", subject)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := []RegisterRequest{
		{Name: "", Email: "ann@x.com", Password: "secret1"},
		{Name: "Ann", Email: "ann@x", Password: "secret1"},
		{Name: "Ann", Email: "ann x@x.com", Password: "secret1"},
		{Name: "Ann", Email: "ann@x.com", Password: "12345"},
		{Name: "Ann", Email: "ann@x.com", Password: strings.Repeat("é", 40)},
		{Name: "Ann", Email: "ann@x.com", Password: strings.Repeat("a", 73)},
	}
	for _, req := range cases {
		_, err := env.svc.Register(context.Background(), req)
		if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected VALIDATION_ERROR for %+v, got %v", req, err)
		}
	}
}

func TestRegisterPasswordLengthCountsBytes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, RegisterRequest{Name: "Ann", Email: "ann@x.com", Password: strings.Repeat("é", 40)})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR for an 80-byte password, got %v", err)
	}

	fits := strings.Repeat("é", 36)
	env.register(t, "Ann", "ann@x.com", fits)
	if _, err := env.svc.Login(ctx, LoginRequest{Email: "ann@x.com", Password: fits}); err != nil {
		t.Fatalf("login with 72-byte password: %v", err)
	}
}

func TestRegisterDuplicateEmailIsConflict(t *testing.T) {
	env := newTestEnv(t)
	first := env.register(t, "Ann", "ann@x.com", "secret1")

	_, err := env.svc.Register(context.Background(), RegisterRequest{Name: "Other", Email: "  ANN@X.com ", Password: "secret2"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) || !errors.Is(err, users.ErrDuplicateEmail) {
		t.Fatalf("expected conflict, got %v", err)
	}

	profile, err := env.svc.Profile(context.Background(), first.User.ID)
	if err != nil || profile.Name != "Ann" {
		t.Fatalf("first user should remain retrievable, got %+v (%v)", profile, err)
	}
}

func TestLoginRecordsLastLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ann", "ann@x.com", "secret1")

	resp, err := env.svc.Login(context.Background(), LoginRequest{Email: " ANN@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.User.LastLoginAt == nil {
		t.Fatal("expected last_login_at in login response")
	}
	if _, err := env.tokens.Verify(resp.Token); err != nil {
		t.Fatalf("login token does not verify: %v", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ann", "ann@x.com", "secret1")

	_, wrongPassword := env.svc.Login(context.Background(), LoginRequest{Email: "ann@x.com", Password: "wrong-pass"})
	_, unknownEmail := env.svc.Login(context.Background(), LoginRequest{Email: "nobody@x.com", Password: "secret1"})

	for _, err := range []error{wrongPassword, unknownEmail} {
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected UNAUTHORIZED, got %v", err)
		}
	}
	if pkgerrors.As(wrongPassword).Message() != pkgerrors.As(unknownEmail).Message() {
		t.Fatalf("messages differ: %q vs %q", pkgerrors.As(wrongPassword).Message(), pkgerrors.As(unknownEmail).Message())
	}
	if errors.Is(unknownEmail, users.ErrNotFound) {
		t.Fatal("login must not leak that the email is unknown")
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ann := env.register(t, "Ann", "ann@x.com", "secret1")
	env.register(t, "Bob", "bob@x.com", "secret1")
	ctx := context.Background()

	if _, err := env.svc.UpdateProfile(ctx, ann.User.ID, UpdateProfileRequest{}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty update, got %v", err)
	}
	bad := "not-an-email"
	if _, err := env.svc.UpdateProfile(ctx, ann.User.ID, UpdateProfileRequest{Email: &bad}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bad email, got %v", err)
	}
	taken := "BOB@x.com"
	if _, err := env.svc.UpdateProfile(ctx, ann.User.ID, UpdateProfileRequest{Email: &taken}); !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for taken email, got %v", err)
	}

	name := "Annie"
	email := "annie@x.com"
	updated, err := env.svc.UpdateProfile(ctx, ann.User.ID, UpdateProfileRequest{Name: &name, Email: &email})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "Annie" || updated.Email != "annie@x.com" {
		t.Fatalf("unexpected profile %+v", updated)
	}

	verified, err := env.svc.VerifyToken(ctx, ann.User.ID)
	if err != nil || !verified.Valid || verified.User.Email != "annie@x.com" {
		t.Fatalf("unexpected verify response %+v (%v)", verified, err)
	}
}

func TestChangePasswordRequiresCurrentPassword(t *testing.T) {
	env := newTestEnv(t)
	ann := env.register(t, "Ann", "ann@x.com", "secret1")
	ctx := context.Background()

	err := env.svc.ChangePassword(ctx, ann.User.ID, ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "secret2"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED for wrong current password, got %v", err)
	}
	err = env.svc.ChangePassword(ctx, ann.User.ID, ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "short"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR for short password, got %v", err)
	}
	err = env.svc.ChangePassword(ctx, ann.User.ID, ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: strings.Repeat("é", 40)})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR for an 80-byte password, got %v", err)
	}

	if err := env.svc.ChangePassword(ctx, ann.User.ID, ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "secret2"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := env.svc.Login(ctx, LoginRequest{Email: "ann@x.com", Password: "secret1"}); err == nil {
		t.Fatal("old password must stop working")
	}
	if _, err := env.svc.Login(ctx, LoginRequest{Email: "ann@x.com", Password: "secret2"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestProfileOfMissingUserIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.Profile(context.Background(), ids.New()); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestDeleteAccountRequiresPassword(t *testing.T) {
	env := newTestEnv(t)
	ann := env.register(t, "Ann", "ann@x.com", "secret1")
	ctx := context.Background()

	err := env.svc.DeleteAccount(ctx, ann.User.ID, DeleteAccountRequest{Password: "wrong"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED for wrong password, got %v", err)
	}
	if _, err := env.svc.Profile(ctx, ann.User.ID); err != nil {
		t.Fatalf("account must survive a rejected delete: %v", err)
	}

	if err := env.svc.DeleteAccount(ctx, ann.User.ID, DeleteAccountRequest{Password: "secret1"}); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	if _, err := env.svc.Profile(ctx, ann.User.ID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND after delete, got %v", err)
	}
	if _, err := env.svc.Login(ctx, LoginRequest{Email: "ann@x.com", Password: "secret1"}); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("deleted account must not log in, got %v", err)
	}
}

type failingStore struct {
	credentialStore
	err error
}

func (f failingStore) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, f.err
}

func TestLoginStoreFailureIsNotReportedAsBadCredentials(t *testing.T) {
	tokens, _ := pkgAuth.NewTokens(config.JWTConfig{Secret: "s", Issuer: "homestock", TTL: time.Hour})
	cause := pkgerrors.Wrap(pkgerrors.CodeInternal, errors.New("connection refused"), "lookup user by email")
	svc, err := NewService(ServiceParams{Users: failingStore{err: cause}, Tokens: tokens, PasswordConfig: testPasswordConfig})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: "ann@x.com", Password: "secret1"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected INTERNAL_ERROR, got %v", err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error without store")
	}
}

func TestNewServicePreparesDecoyHash(t *testing.T) {
	env := newTestEnv(t)
	decoy := env.svc.(*service).decoyHash
	if ok, err := security.VerifyPassword(decoyPassword, decoy); err != nil || !ok {
		t.Fatalf("expected a usable decoy hash, got ok=%v err=%v", ok, err)
	}

	tokens, _ := pkgAuth.NewTokens(config.JWTConfig{Secret: "s", Issuer: "homestock", TTL: time.Hour})
	_, err := NewService(ServiceParams{
		Users:          env.users,
		Tokens:         tokens,
		PasswordConfig: config.PasswordConfig{Algorithm: "md5"},
	})
	if err == nil {
		t.Fatal("expected construction to fail when the decoy cannot be hashed")
	}
}
