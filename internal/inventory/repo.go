package inventory

import (
	"context"
	"errors"

	"github.com/angelmondragon/homestock-backend/internal/repo"
	pkgdb "github.com/angelmondragon/homestock-backend/pkg/db"
	"github.com/angelmondragon/homestock-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/homestock-backend/pkg/errors"
	"github.com/angelmondragon/homestock-backend/pkg/ids"
	"gorm.io/gorm"
)

var (
	// ErrOwnerRequired rejects any call made without a verified owner.
	ErrOwnerRequired = repo.ErrOwnerRequired
	// ErrDuplicateItem means the owner already has an item with that name in that room.
	ErrDuplicateItem = errors.New("item already exists in this room")
)

// Store is inventory data access scoped to one owner per call. Every
// statement it issues carries owner_id = owner.
type Store interface {
	Create(ctx context.Context, owner ids.ID, item NewItem) (ids.ID, error)
	FindOne(ctx context.Context, owner ids.ID, name string) (*models.InventoryItem, bool, error)
	FindMany(ctx context.Context, owner ids.ID, filter Filter) ([]models.InventoryItem, error)
	Update(ctx context.Context, owner ids.ID, key Key, changes Changes) (UpdateResult, error)
	Delete(ctx context.Context, owner ids.ID, key Key) (DeleteResult, error)
}

// Repository is the gorm Store.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, owner ids.ID, item NewItem) (ids.ID, error) {
	if owner.IsZero() {
		return "", ownerRequired()
	}
	record := &models.InventoryItem{
		ID:          ids.New(),
		OwnerID:     owner,
		Name:        item.Name,
		RoomName:    item.RoomName,
		Quantity:    item.Quantity,
		Description: item.Description,
	}
	if err := r.DB(ctx).Create(record).Error; err != nil {
		return "", storeError(err, "create item")
	}
	return record.ID, nil
}

// FindOne returns the owner's item called name. A name may exist in several
// rooms; the oldest one wins.
func (r *Repository) FindOne(ctx context.Context, owner ids.ID, name string) (*models.InventoryItem, bool, error) {
	if owner.IsZero() {
		return nil, false, ownerRequired()
	}
	var items []models.InventoryItem
	err := r.DB(ctx).
		Scopes(repo.OwnedBy(owner)).
		Where("name = ?", name).
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, false, storeError(err, "find item")
	}
	if len(items) == 0 {
		return nil, false, nil
	}
	return &items[0], true, nil
}

func (r *Repository) FindMany(ctx context.Context, owner ids.ID, filter Filter) ([]models.InventoryItem, error) {
	if owner.IsZero() {
		return nil, ownerRequired()
	}
	query := r.DB(ctx).Scopes(repo.OwnedBy(owner))
	if filter.RoomName != "" {
		query = query.Where("room_name = ?", filter.RoomName)
	}
	if filter.Name != "" {
		query = query.Where("name = ?", filter.Name)
	}
	items := make([]models.InventoryItem, 0)
	if err := query.Order("room_name ASC, name ASC, created_at ASC").Find(&items).Error; err != nil {
		return nil, storeError(err, "list items")
	}
	return items, nil
}

// Update applies changes to the owner's item matching key. When the key
// matches more than one row only the oldest is changed and Ambiguous is set.
func (r *Repository) Update(ctx context.Context, owner ids.ID, key Key, changes Changes) (UpdateResult, error) {
	if owner.IsZero() {
		return UpdateResult{}, ownerRequired()
	}
	var result UpdateResult
	err := r.Transaction(ctx, func(tx *gorm.DB) error {
		target, ambiguous, err := matchKey(tx, owner, key)
		if err != nil || target == nil {
			return err
		}
		result.Matched = 1
		result.Ambiguous = ambiguous

		columns := changes.columnsChangedFrom(target)
		if len(columns) == 0 {
			return nil
		}
		res := tx.Model(&models.InventoryItem{}).
			Scopes(repo.OwnedBy(owner)).
			Where("id = ?", target.ID).
			Updates(columns)
		if res.Error != nil {
			return res.Error
		}
		result.Modified = res.RowsAffected
		return nil
	})
	if err != nil {
		return UpdateResult{}, storeError(err, "update item")
	}
	return result, nil
}

// Delete removes at most one of the owner's items matching key, the oldest.
func (r *Repository) Delete(ctx context.Context, owner ids.ID, key Key) (DeleteResult, error) {
	if owner.IsZero() {
		return DeleteResult{}, ownerRequired()
	}
	var result DeleteResult
	err := r.Transaction(ctx, func(tx *gorm.DB) error {
		target, ambiguous, err := matchKey(tx, owner, key)
		if err != nil || target == nil {
			return err
		}
		result.Ambiguous = ambiguous
		res := tx.Scopes(repo.OwnedBy(owner)).Delete(&models.InventoryItem{}, "id = ?", target.ID)
		if res.Error != nil {
			return res.Error
		}
		result.Deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return DeleteResult{}, storeError(err, "delete item")
	}
	return result, nil
}

func matchKey(tx *gorm.DB, owner ids.ID, key Key) (*models.InventoryItem, bool, error) {
	var matches []models.InventoryItem
	err := tx.Scopes(repo.OwnedBy(owner)).
		Where("name = ? AND room_name = ?", key.Name, key.RoomName).
		Order("created_at ASC, id ASC").
		Limit(2).
		Find(&matches).Error
	if err != nil {
		return nil, false, err
	}
	if len(matches) == 0 {
		return nil, false, nil
	}
	return &matches[0], len(matches) > 1, nil
}

func ownerRequired() error {
	return pkgerrors.Wrap(pkgerrors.CodeInternal, ErrOwnerRequired, "owner id is required")
}

func storeError(err error, op string) error {
	if pkgdb.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrDuplicateItem, ErrDuplicateItem.Error())
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
