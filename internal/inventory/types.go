package inventory

import "github.com/angelmondragon/homestock-backend/pkg/db/models"

// NewItem is the owner-less shape of an item to create; the owner is stamped
// by the repository.
type NewItem struct {
	Name        string
	RoomName    string
	Quantity    int
	Description string
}

// Filter narrows FindMany. Empty fields do not filter.
type Filter struct {
	RoomName string
	Name     string
}

// Key is the business key of an item within one owner's inventory.
type Key struct {
	Name     string
	RoomName string
}

// Changes is a partial update; nil fields are left as stored.
type Changes struct {
	Name        *string
	RoomName    *string
	Quantity    *int
	Description *string
}

func (c Changes) empty() bool {
	return c.Name == nil && c.RoomName == nil && c.Quantity == nil && c.Description == nil
}

// columnsChangedFrom returns the columns whose new value differs from item.
func (c Changes) columnsChangedFrom(item *models.InventoryItem) map[string]any {
	columns := map[string]any{}
	if c.Name != nil && *c.Name != item.Name {
		columns["name"] = *c.Name
	}
	if c.RoomName != nil && *c.RoomName != item.RoomName {
		columns["room_name"] = *c.RoomName
	}
	if c.Quantity != nil && *c.Quantity != item.Quantity {
		columns["quantity"] = *c.Quantity
	}
	if c.Description != nil && *c.Description != item.Description {
		columns["description"] = *c.Description
	}
	return columns
}

// UpdateResult separates "no such item" (Matched == 0) from "item already had
// these values" (Matched == 1, Modified == 0).
type UpdateResult struct {
	Matched   int64
	Modified  int64
	Ambiguous bool
}

type DeleteResult struct {
	Deleted   int64
	Ambiguous bool
}
