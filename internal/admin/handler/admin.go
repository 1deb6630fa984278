package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"lagoonstay/internal/bookings/repository"
	httputil "lagoonstay/pkg/http"
	"lagoonstay/pkg/logger"
	"lagoonstay/pkg/model"
)

// AdminHandler exposes operational state: which admission coordinator is
// active and which reservation locks are currently held. Lock entries
// only appear when the lock-based coordinator is in use; on transaction
// deployments the list stays empty.
type AdminHandler struct {
	lockRepo        repository.LockRepository
	coordinatorName string
	log             *logger.Logger
}

func NewAdminHandler(lockRepo repository.LockRepository, coordinatorName string, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		lockRepo:        lockRepo,
		coordinatorName: coordinatorName,
		log:             log,
	}
}

type locksResponse struct {
	Coordinator string                   `json:"coordinator"`
	Locks       []*model.ReservationLock `json:"locks"`
}

func (h *AdminHandler) ListLocks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	locks, err := h.lockRepo.FindAll(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListLocks", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if locks == nil {
		locks = []*model.ReservationLock{}
	}

	if err := httputil.WriteSuccess(w, locksResponse{
		Coordinator: h.coordinatorName,
		Locks:       locks,
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "ListLocks", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AdminHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/admin/locks", h.ListLocks)
}
