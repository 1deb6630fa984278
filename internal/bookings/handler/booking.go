package handler

import (
	"encoding/json"
	"net/http"

	"lagoonstay/internal/bookings/service"
	httputil "lagoonstay/pkg/http"
	"lagoonstay/pkg/logger"
	"lagoonstay/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	admission service.AdmissionService
	service   service.BookingService
	log       *logger.Logger
}

func NewBookingHandler(admission service.AdmissionService, bookingService service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		admission: admission,
		service:   bookingService,
		log:       log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	summary, err := h.admission.Admit(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if summary.AlreadyExists {
		if err := httputil.WriteSuccess(w, summary); err != nil {
			h.log.Error("failed to write success response", "handler", "Create", "operation", "WriteSuccess", "error", err)
		}
		return
	}

	if err := httputil.WriteCreated(w, summary); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	bookings, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) GetByGuest(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByGuest", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	bookings, err := h.service.GetByGuestEmail(r.Context(), ps.ByName("email"), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByGuest", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByGuest", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetMine", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	bookings, err := h.service.GetMine(r.Context(), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetMine", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "GetMine", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update service.GuestUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Update", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	booking, err := h.service.Update(r.Context(), ps.ByName("id"), &update)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Cancel(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Cancel", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Checkout(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Checkout(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Checkout", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Checkout", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Release(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	released, err := h.service.Release(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Release", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, map[string]int64{"released": released}); err != nil {
		h.log.Error("failed to write success response", "handler", "Release", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) AddMenuItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var item model.MenuItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "AddMenuItem", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	booking, err := h.service.AddMenuItem(r.Context(), ps.ByName("id"), item)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "AddMenuItem", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "AddMenuItem", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Bill(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bill, err := h.service.Bill(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Bill", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, bill); err != nil {
		h.log.Error("failed to write success response", "handler", "Bill", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.GetAll)
	router.GET("/api/v1/bookings/me", h.GetMine)
	router.GET("/api/v1/bookings/guest/:email", h.GetByGuest)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.PUT("/api/v1/bookings/id/:id", h.Update)
	router.DELETE("/api/v1/bookings/id/:id", h.Delete)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/bookings/id/:id/checkout", h.Checkout)
	router.POST("/api/v1/bookings/id/:id/release", h.Release)
	router.POST("/api/v1/bookings/id/:id/menu", h.AddMenuItem)
	router.GET("/api/v1/bookings/id/:id/bill", h.Bill)
}
