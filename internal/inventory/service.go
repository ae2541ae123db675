package inventory

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/homestock-backend/pkg/errors"
	"github.com/angelmondragon/homestock-backend/pkg/ids"
	"github.com/angelmondragon/homestock-backend/pkg/logger"
	"github.com/angelmondragon/homestock-backend/pkg/metrics"
)

const (
	maxLabelLen       = 200
	maxDescriptionLen = 2000
)

// Service defines the inventory behavior needed by the controllers. owner is
// always the identity resolved by the auth gate.
type Service interface {
	List(ctx context.Context, owner ids.ID) ([]ItemDTO, error)
	ListRoom(ctx context.Context, owner ids.ID, roomName string) ([]ItemDTO, error)
	Get(ctx context.Context, owner ids.ID, name string) (*ItemDTO, error)
	Create(ctx context.Context, owner ids.ID, req CreateItemRequest) (*ItemDTO, error)
	Update(ctx context.Context, owner ids.ID, key Key, req UpdateItemRequest) (*UpdateResponse, error)
	Delete(ctx context.Context, owner ids.ID, key Key) (*DeleteResponse, error)
}

// ServiceParams bundles the dependencies required to build an inventory service.
type ServiceParams struct {
	Store   Store
	Metrics *metrics.InventoryMetrics
	Logger  *logger.Logger
}

type service struct {
	store   Store
	metrics *metrics.InventoryMetrics
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("inventory store is required")
	}
	return &service{
		store:   params.Store,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func (s *service) List(ctx context.Context, owner ids.ID) ([]ItemDTO, error) {
	items, err := s.store.FindMany(ctx, owner, Filter{})
	if err != nil {
		return nil, err
	}
	return fromModels(items), nil
}

func (s *service) ListRoom(ctx context.Context, owner ids.ID, roomName string) ([]ItemDTO, error) {
	room, err := label("roomName", roomName)
	if err != nil {
		return nil, err
	}
	items, err := s.store.FindMany(ctx, owner, Filter{RoomName: room})
	if err != nil {
		return nil, err
	}
	return fromModels(items), nil
}

func (s *service) Get(ctx context.Context, owner ids.ID, name string) (*ItemDTO, error) {
	itemName, err := label("name", name)
	if err != nil {
		return nil, err
	}
	item, found, err := s.store.FindOne(ctx, owner, itemName)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, itemNotFound()
	}
	dto := FromModel(item)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, owner ids.ID, req CreateItemRequest) (*ItemDTO, error) {
	name, err := label("name", req.Name)
	if err != nil {
		return nil, err
	}
	room, err := label("roomName", req.room())
	if err != nil {
		return nil, err
	}
	if req.Quantity == nil {
		return nil, fieldError("quantity", "is required")
	}
	if *req.Quantity < 0 {
		return nil, fieldError("quantity", "must be at least 0")
	}
	description, err := describe(req.Description)
	if err != nil {
		return nil, err
	}

	id, err := s.store.Create(ctx, owner, NewItem{
		Name:        name,
		RoomName:    room,
		Quantity:    *req.Quantity,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	items, err := s.store.FindMany(ctx, owner, Filter{RoomName: room, Name: name})
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			dto := FromModel(&items[i])
			return &dto, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "created item not readable")
}

func (s *service) Update(ctx context.Context, owner ids.ID, key Key, req UpdateItemRequest) (*UpdateResponse, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}

	var changes Changes
	if req.Name != nil {
		name, err := label("name", *req.Name)
		if err != nil {
			return nil, err
		}
		changes.Name = &name
	}
	if newRoom := req.room(); newRoom != nil {
		room, err := label("roomName", *newRoom)
		if err != nil {
			return nil, err
		}
		changes.RoomName = &room
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return nil, fieldError("quantity", "must be at least 0")
		}
		changes.Quantity = req.Quantity
	}
	if req.Description != nil {
		description, err := describe(*req.Description)
		if err != nil {
			return nil, err
		}
		changes.Description = &description
	}
	if changes.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one field must be provided")
	}

	result, err := s.store.Update(ctx, owner, key, changes)
	if err != nil {
		return nil, err
	}
	if result.Ambiguous {
		s.reportAmbiguous(ctx, "update", owner, key)
	}
	if result.Matched == 0 {
		return nil, itemNotFound()
	}
	return &UpdateResponse{Matched: result.Matched, Modified: result.Modified}, nil
}

func (s *service) Delete(ctx context.Context, owner ids.ID, key Key) (*DeleteResponse, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	result, err := s.store.Delete(ctx, owner, key)
	if err != nil {
		return nil, err
	}
	if result.Ambiguous {
		s.reportAmbiguous(ctx, "delete", owner, key)
	}
	if result.Deleted == 0 {
		return nil, itemNotFound()
	}
	return &DeleteResponse{Deleted: result.Deleted}, nil
}

func (s *service) reportAmbiguous(ctx context.Context, op string, owner ids.ID, key Key) {
	s.metrics.IncAnomaly(op)
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"operation": op,
		"owner_id":  owner.String(),
		"name":      key.Name,
		"room_name": key.RoomName,
	})
	s.logg.Warn(ctx, "inventory.key_matched_multiple_items")
}

func normalizeKey(key Key) (Key, error) {
	name, err := label("name", key.Name)
	if err != nil {
		return Key{}, err
	}
	room, err := label("roomName", key.RoomName)
	if err != nil {
		return Key{}, err
	}
	return Key{Name: name, RoomName: room}, nil
}

func label(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fieldError(field, "is required")
	}
	if len(trimmed) > maxLabelLen {
		return "", fieldError(field, fmt.Sprintf("must be at most %d", maxLabelLen))
	}
	return trimmed, nil
}

func describe(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) > maxDescriptionLen {
		return "", fieldError("description", fmt.Sprintf("must be at most %d", maxDescriptionLen))
	}
	return trimmed, nil
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: msg})
}

func itemNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
}
