package models

import (
	"time"

	"github.com/angelmondragon/homestock-backend/pkg/ids"
)

// InventoryItem is one tracked thing in one room of one owner's home.
// (owner_id, room_name, name) is unique.
type InventoryItem struct {
	ID          ids.ID    `gorm:"column:id;type:varchar(24);primaryKey"`
	OwnerID     ids.ID    `gorm:"column:owner_id;type:varchar(24);not null;uniqueIndex:idx_inventory_items_owner_room_name,priority:1"`
	RoomName    string    `gorm:"column:room_name;type:text;not null;uniqueIndex:idx_inventory_items_owner_room_name,priority:2"`
	Name        string    `gorm:"column:name;type:text;not null;uniqueIndex:idx_inventory_items_owner_room_name,priority:3"`
	Quantity    int       `gorm:"column:quantity;not null;default:0;check:chk_inventory_items_quantity,quantity >= 0"`
	Description string    `gorm:"column:description;type:text;not null;default:''"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryItem) TableName() string { return "inventory_items" }
