package inventory

import (
	"time"

	"github.com/angelmondragon/homestock-backend/pkg/db/models"
	"github.com/angelmondragon/homestock-backend/pkg/ids"
)

// ItemDTO is the API shape of an inventory item. The owner is implied by the
// caller and never echoed back.
type ItemDTO struct {
	ID          ids.ID    `json:"id"`
	Name        string    `json:"name"`
	RoomName    string    `json:"roomName"`
	Quantity    int       `json:"quantity"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateItemRequest is the body of POST /api/new. The room arrives as
// roomName; room_name is still accepted from older clients.
type CreateItemRequest struct {
	Name           string `json:"name" validate:"required,max=200"`
	RoomName       string `json:"roomName" validate:"max=200"`
	LegacyRoomName string `json:"room_name" validate:"max=200"`
	Quantity       *int   `json:"quantity" validate:"required,min=0"`
	Description    string `json:"description" validate:"max=2000"`
}

func (r CreateItemRequest) room() string {
	if r.RoomName != "" {
		return r.RoomName
	}
	return r.LegacyRoomName
}

// UpdateItemRequest is the body of PUT /api/room/{roomName}/item/{name}.
type UpdateItemRequest struct {
	Name           *string `json:"name" validate:"omitempty,max=200"`
	RoomName       *string `json:"roomName" validate:"omitempty,max=200"`
	LegacyRoomName *string `json:"room_name" validate:"omitempty,max=200"`
	Quantity       *int    `json:"quantity" validate:"omitempty,min=0"`
	Description    *string `json:"description" validate:"omitempty,max=2000"`
}

func (r UpdateItemRequest) room() *string {
	if r.RoomName != nil {
		return r.RoomName
	}
	return r.LegacyRoomName
}

type UpdateResponse struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
}

type DeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

func FromModel(m *models.InventoryItem) ItemDTO {
	return ItemDTO{
		ID:          m.ID,
		Name:        m.Name,
		RoomName:    m.RoomName,
		Quantity:    m.Quantity,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func fromModels(items []models.InventoryItem) []ItemDTO {
	out := make([]ItemDTO, 0, len(items))
	for i := range items {
		out = append(out, FromModel(&items[i]))
	}
	return out
}
