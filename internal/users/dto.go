package users

import (
	"time"

	"github.com/angelmondragon/homestock-backend/pkg/db/models"
	"github.com/angelmondragon/homestock-backend/pkg/ids"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          ids.ID     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateInput holds what registration passes to the store. Password is plaintext
// and is hashed before it reaches the repository.
type CreateInput struct {
	Name     string
	Email    string
	Password string
}

// UpdateInput carries the mutable user fields; nil means unchanged.
type UpdateInput struct {
	Name         *string
	Email        *string
	PasswordHash *string
}

// Subject is the minimal identity the auth gate needs, and what the subject
// cache stores.
type Subject struct {
	ID    ids.ID `json:"id"`
	Email string `json:"email"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
