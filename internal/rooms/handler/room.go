package handler

import (
	"errors"
	"net/http"

	roomserrors "lagoonstay/internal/rooms/errors"
	"lagoonstay/internal/rooms/repository"
	apperrors "lagoonstay/pkg/errors"
	httputil "lagoonstay/pkg/http"
	"lagoonstay/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// RoomHandler exposes the read-only catalog endpoints. The catalog is
// managed out of band, so there is no service layer between handler and
// repository.
type RoomHandler struct {
	repo repository.RoomRepository
	log  *logger.Logger
}

func NewRoomHandler(repo repository.RoomRepository, log *logger.Logger) *RoomHandler {
	return &RoomHandler{
		repo: repo,
		log:  log,
	}
}

func (h *RoomHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rooms, err := h.repo.FindAll(r.Context())
	if err != nil {
		h.log.Error("Failed to list rooms", "error", err)
		if writeErr := httputil.WriteError(w, apperrors.Internal("Failed to retrieve rooms", err)); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, rooms); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAll", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	room, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, roomserrors.ErrNotFound) {
			err = apperrors.NotFoundWithID("Room", id)
		} else {
			h.log.Error("Failed to find room", "id", id, "error", err)
			err = apperrors.Internal("Failed to retrieve room", err)
		}
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, room); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) GetAccommodationRooms(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	rooms, err := h.repo.FindByAccommodation(r.Context(), id)
	if err != nil {
		h.log.Error("Failed to list accommodation rooms", "accommodation_id", id, "error", err)
		if writeErr := httputil.WriteError(w, apperrors.Internal("Failed to retrieve rooms", err)); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAccommodationRooms", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, rooms); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAccommodationRooms", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) GetAccommodations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	accommodations, err := h.repo.FindAccommodations(r.Context())
	if err != nil {
		h.log.Error("Failed to list accommodations", "error", err)
		if writeErr := httputil.WriteError(w, apperrors.Internal("Failed to retrieve accommodations", err)); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAccommodations", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, accommodations); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAccommodations", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) GetPrograms(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	programs, err := h.repo.FindPrograms(r.Context())
	if err != nil {
		h.log.Error("Failed to list wellness programs", "error", err)
		if writeErr := httputil.WriteError(w, apperrors.Internal("Failed to retrieve wellness programs", err)); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetPrograms", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, programs); err != nil {
		h.log.Error("failed to write success response", "handler", "GetPrograms", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/rooms", h.GetAll)
	router.GET("/api/v1/rooms/id/:id", h.GetByID)
	router.GET("/api/v1/accommodations", h.GetAccommodations)
	router.GET("/api/v1/accommodations/:id/rooms", h.GetAccommodationRooms)
	router.GET("/api/v1/wellness-programs", h.GetPrograms)
}
