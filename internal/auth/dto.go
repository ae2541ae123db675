package auth

import (
	"time"

	"github.com/angelmondragon/homestock-backend/internal/users"
	"github.com/angelmondragon/homestock-backend/pkg/ids"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,max=320"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest changes name and/or email of the caller.
type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=200"`
	Email *string `json:"email" validate:"omitempty,max=320"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

// DeleteAccountRequest confirms account removal with the current password.
type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Message   string         `json:"message"`
	User      *users.UserDTO `json:"user"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// PublicUser is the short identity echoed by verify-token.
type PublicUser struct {
	ID    ids.ID `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type VerifyTokenResponse struct {
	Valid bool       `json:"valid"`
	User  PublicUser `json:"user"`
}
