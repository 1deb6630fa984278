package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	otaerrors "lagoonstay/internal/ota/errors"
	"lagoonstay/internal/ota/service"
	"lagoonstay/pkg/config"
	apperrors "lagoonstay/pkg/errors"
	httputil "lagoonstay/pkg/http"
	"lagoonstay/pkg/logger"
	"lagoonstay/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

// WebhookHandler receives channel notifications. Each provider posts to
// its own path segment so the signature secret and payload adapter can
// be picked per source.
type WebhookHandler struct {
	reconcile service.ReconcileService
	cfg       *config.Config
	log       *logger.Logger
}

func NewWebhookHandler(reconcile service.ReconcileService, cfg *config.Config, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconcile: reconcile,
		cfg:       cfg,
		log:       log,
	}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	source := strings.ToLower(strings.TrimSpace(ps.ByName("source")))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Failed to read request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Receive", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if secret := h.cfg.OTASecret(source); secret != "" {
		if !middleware.VerifySignature(body, r.Header.Get(middleware.SignatureHeader), secret) {
			h.log.Warn("Rejected webhook with bad signature", "source", source)
			if writeErr := httputil.WriteError(w, apperrors.Unauthorized("Invalid webhook signature")); writeErr != nil {
				h.log.Error("failed to write error response", "handler", "Receive", "operation", "WriteError", "error", writeErr)
			}
			return
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Receive", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	notification, err := service.AdapterFor(source)(payload)
	if err != nil {
		if errors.Is(err, otaerrors.ErrMissingIdentity) {
			err = apperrors.InvalidInput("webhook payload is missing the booking identifier")
		}
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Receive", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	notification.Source = source

	result, err := h.reconcile.Reconcile(r.Context(), notification)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Receive", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Receive", "operation", "WriteSuccess", "error", err)
	}
}

func (h *WebhookHandler) ListMappings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListMappings", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	mappings, err := h.reconcile.Mappings(r.Context(), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListMappings", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, mappings); err != nil {
		h.log.Error("failed to write success response", "handler", "ListMappings", "operation", "WriteSuccess", "error", err)
	}
}

func (h *WebhookHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/ota/webhook/:source", h.Receive)
	router.GET("/api/v1/ota/bookings", h.ListMappings)
}
