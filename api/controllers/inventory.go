package controllers

import (
	"net/http"

	"github.com/angelmondragon/homestock-backend/api/responses"
	"github.com/angelmondragon/homestock-backend/api/validators"
	"github.com/angelmondragon/homestock-backend/internal/inventory"
	pkgerrors "github.com/angelmondragon/homestock-backend/pkg/errors"
	"github.com/angelmondragon/homestock-backend/pkg/logger"
)

var errInventoryUnavailable = pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable")

// Inventory handlers take the owner from the authenticated identity only. No
// path, query, or body field can name a different owner.

func InventoryList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errInventoryUnavailable)
			return
		}
		owner, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}

		items, err := svc.List(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}

func InventoryListRoom(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errInventoryUnavailable)
			return
		}
		owner, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		room, err := validators.PathParam(r, "roomName")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListRoom(r.Context(), owner, room)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}

func InventoryGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errInventoryUnavailable)
			return
		}
		owner, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		name, err := validators.PathParam(r, "name")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), owner, name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

func InventoryCreate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errInventoryUnavailable)
			return
		}
		owner, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}

		var body inventory.CreateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), owner, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func InventoryUpdate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errInventoryUnavailable)
			return
		}
		owner, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		key, err := itemKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body inventory.UpdateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Update(r.Context(), owner, key, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func InventoryDelete(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errInventoryUnavailable)
			return
		}
		owner, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		key, err := itemKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Delete(r.Context(), owner, key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func itemKey(r *http.Request) (inventory.Key, error) {
	room, err := validators.PathParam(r, "roomName")
	if err != nil {
		return inventory.Key{}, err
	}
	name, err := validators.PathParam(r, "name")
	if err != nil {
		return inventory.Key{}, err
	}
	return inventory.Key{Name: name, RoomName: room}, nil
}
