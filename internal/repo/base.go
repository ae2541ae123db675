package repo

import (
	"context"
	"errors"

	pkgdb "github.com/angelmondragon/homestock-backend/pkg/db"
	"github.com/angelmondragon/homestock-backend/pkg/ids"
	"gorm.io/gorm"
)

// ErrOwnerRequired is returned when a tenant-scoped query is built without an owner.
var ErrOwnerRequired = errors.New("owner id is required")

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Transaction runs fn inside a transaction bound to ctx.
func (b Base) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return pkgdb.WithTx(b.DB(ctx), fn)
}

// OwnedBy is a gorm scope restricting a statement to rows of one owner.
// A zero owner fails the statement instead of widening it.
func OwnedBy(owner ids.ID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if owner.IsZero() {
			_ = db.AddError(ErrOwnerRequired)
			return db
		}
		return db.Where("owner_id = ?", owner)
	}
}
