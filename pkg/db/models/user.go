package models

import (
	"time"

	"github.com/angelmondragon/homestock-backend/pkg/ids"
)

// User is an account holder. Email is stored trimmed and lowercased.
type User struct {
	ID           ids.ID     `gorm:"column:id;type:varchar(24);primaryKey"`
	Name         string     `gorm:"column:name;type:text;not null"`
	Email        string     `gorm:"column:email;type:text;not null;uniqueIndex:idx_users_email"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }
