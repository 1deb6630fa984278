package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	bookingsrepo "lagoonstay/internal/bookings/repository"
	bookingssvc "lagoonstay/internal/bookings/service"
	otaerrors "lagoonstay/internal/ota/errors"
	"lagoonstay/internal/ota/repository"
	"lagoonstay/pkg/config"
	apperrors "lagoonstay/pkg/errors"
	"lagoonstay/pkg/model"
)

// Reconcile actions reported to callers.
const (
	ActionCreated   = "created"
	ActionCancelled = "cancelled"
	ActionModified  = "modified"
	ActionRecorded  = "recorded"
	ActionUnchanged = "unchanged"
)

type ReconcileResult struct {
	Action    string `json:"action"`
	BookingID string `json:"booking_id,omitempty"`
	Reference string `json:"reference,omitempty"`
}

type ReconcileService interface {
	Reconcile(ctx context.Context, n *model.OTANotification) (*ReconcileResult, error)
	Mappings(ctx context.Context, limit int, offset int64) ([]*model.OTAMapping, error)
}

type reconcileService struct {
	mappingRepo   repository.MappingRepository
	occupancyRepo bookingsrepo.OccupancyRepository
	admission     bookingssvc.AdmissionService
	bookings      bookingssvc.BookingService
	cfg           *config.Config
}

func NewReconcileService(
	mappingRepo repository.MappingRepository,
	occupancyRepo bookingsrepo.OccupancyRepository,
	admission bookingssvc.AdmissionService,
	bookings bookingssvc.BookingService,
	cfg *config.Config,
) ReconcileService {
	return &reconcileService{
		mappingRepo:   mappingRepo,
		occupancyRepo: occupancyRepo,
		admission:     admission,
		bookings:      bookings,
		cfg:           cfg,
	}
}

// Reconcile applies one channel notification to local state. New bookings
// run through the same admission pipeline as direct guests; cancellations
// free their room nights; modifications release the old stay and re-admit
// the new one, restoring the old nights if the new dates cannot be
// honored.
func (s *reconcileService) Reconcile(ctx context.Context, n *model.OTANotification) (*ReconcileResult, error) {
	source := strings.ToLower(strings.TrimSpace(n.Source))
	externalID := strings.TrimSpace(n.ExternalID)
	if source == "" || externalID == "" {
		return nil, apperrors.InvalidInput("source and external_id are required")
	}

	status := normalizeStatus(n.Status)

	mapping, err := s.mappingRepo.FindBySourceExternal(ctx, source, externalID)
	if err != nil && !errors.Is(err, otaerrors.ErrMappingNotFound) {
		return nil, apperrors.Internal("Failed to look up channel booking", err)
	}

	switch {
	case status == model.StatusCancelled && mapping == nil:
		// A cancellation for a booking never seen locally. Record it so
		// a late-arriving create for the same ID reconciles as a no-op.
		record := &model.OTAMapping{Source: source, ExternalID: externalID, Status: model.StatusCancelled}
		if err := s.mappingRepo.Create(ctx, record); err != nil && !errors.Is(err, otaerrors.ErrMappingExists) {
			return nil, apperrors.Internal("Failed to record channel cancellation", err)
		}
		s.cfg.Log.Info("Recorded cancellation for unknown channel booking", "source", source, "external_id", externalID)
		return &ReconcileResult{Action: ActionRecorded}, nil

	case status == model.StatusCancelled:
		return s.cancel(ctx, mapping)

	case mapping == nil:
		return s.create(ctx, source, externalID, n)

	case mapping.Status == model.StatusCancelled:
		// Channel replayed a create after its own cancellation. Keep the
		// cancellation authoritative.
		s.cfg.Log.Info("Ignoring channel update for cancelled mapping", "source", source, "external_id", externalID)
		return &ReconcileResult{Action: ActionUnchanged, BookingID: mapping.BookingID}, nil

	default:
		return s.modify(ctx, mapping, n)
	}
}

func (s *reconcileService) create(ctx context.Context, source, externalID string, n *model.OTANotification) (*ReconcileResult, error) {
	summary, err := s.admission.Admit(ctx, s.buildRequest(source, externalID, n))
	if err != nil {
		return nil, err
	}

	mapping := &model.OTAMapping{
		Source:     source,
		ExternalID: externalID,
		BookingID:  summary.ID,
		Status:     model.StatusConfirmed,
	}
	if err := s.mappingRepo.Create(ctx, mapping); err != nil {
		if errors.Is(err, otaerrors.ErrMappingExists) {
			// Lost a race against a concurrent delivery of the same
			// webhook. Drop the duplicate booking and defer to the winner.
			if !summary.AlreadyExists {
				if deleteErr := s.bookings.Delete(ctx, summary.ID); deleteErr != nil {
					s.cfg.Log.Error("Failed to drop duplicate channel booking",
						"booking_id", summary.ID, "error", deleteErr)
				}
			}
			existing, findErr := s.mappingRepo.FindBySourceExternal(ctx, source, externalID)
			if findErr != nil {
				return nil, apperrors.Internal("Failed to resolve concurrent channel booking", findErr)
			}
			return &ReconcileResult{Action: ActionUnchanged, BookingID: existing.BookingID}, nil
		}
		return nil, apperrors.Internal("Failed to bind channel booking", err)
	}

	s.cfg.Log.Info("Channel booking admitted",
		"source", source,
		"external_id", externalID,
		"booking_id", summary.ID,
	)
	return &ReconcileResult{Action: ActionCreated, BookingID: summary.ID, Reference: summary.Reference}, nil
}

func (s *reconcileService) cancel(ctx context.Context, mapping *model.OTAMapping) (*ReconcileResult, error) {
	if mapping.Status == model.StatusCancelled {
		return &ReconcileResult{Action: ActionUnchanged, BookingID: mapping.BookingID}, nil
	}

	if mapping.BookingID != "" {
		if _, err := s.bookings.Cancel(ctx, mapping.BookingID); err != nil && !isConflict(err) {
			return nil, err
		}
	}

	if err := s.mappingRepo.UpdateStatus(ctx, mapping.Source, mapping.ExternalID, model.StatusCancelled); err != nil {
		return nil, apperrors.Internal("Failed to update channel mapping", err)
	}

	s.cfg.Log.Info("Channel booking cancelled",
		"source", mapping.Source,
		"external_id", mapping.ExternalID,
		"booking_id", mapping.BookingID,
	)
	return &ReconcileResult{Action: ActionCancelled, BookingID: mapping.BookingID}, nil
}

// modify releases the existing stay, re-admits with the new details, and
// restores the released nights when re-admission is rejected.
func (s *reconcileService) modify(ctx context.Context, mapping *model.OTAMapping, n *model.OTANotification) (*ReconcileResult, error) {
	old, err := s.bookings.GetByID(ctx, mapping.BookingID)
	if err != nil {
		return nil, err
	}

	if _, err := s.bookings.Release(ctx, mapping.BookingID); err != nil {
		return nil, err
	}

	summary, err := s.admission.Admit(ctx, s.buildRequest(mapping.Source, mapping.ExternalID, n))
	if err != nil {
		if restoreErr := s.occupancyRepo.InsertForStay(ctx, old.ID, old.AllocatedRooms, old.CheckIn, old.CheckOut); restoreErr != nil {
			s.cfg.Log.Error("Failed to restore occupancies after rejected modification",
				"booking_id", old.ID, "error", restoreErr)
		}
		return nil, err
	}

	if _, err := s.bookings.Cancel(ctx, old.ID); err != nil && !isConflict(err) {
		s.cfg.Log.Error("Failed to retire booking after modification",
			"booking_id", old.ID, "error", err)
	}

	if err := s.mappingRepo.UpdateBinding(ctx, mapping.Source, mapping.ExternalID, summary.ID, model.StatusConfirmed); err != nil {
		return nil, apperrors.Internal("Failed to rebind channel mapping", err)
	}

	s.cfg.Log.Info("Channel booking modified",
		"source", mapping.Source,
		"external_id", mapping.ExternalID,
		"old_booking_id", old.ID,
		"new_booking_id", summary.ID,
	)
	return &ReconcileResult{Action: ActionModified, BookingID: summary.ID, Reference: summary.Reference}, nil
}

func (s *reconcileService) Mappings(ctx context.Context, limit int, offset int64) ([]*model.OTAMapping, error) {
	mappings, err := s.mappingRepo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.Internal("Failed to list channel mappings", err)
	}
	return mappings, nil
}

// buildRequest turns a channel notification into the same admission
// request a direct guest would submit. The payment order ID carries the
// channel identity, so replayed deliveries hit payment idempotency
// instead of double booking.
func (s *reconcileService) buildRequest(source, externalID string, n *model.OTANotification) *model.BookingRequest {
	guests := n.Guests
	if guests <= 0 {
		guests = 1
	}

	name := n.GuestName
	if name == "" {
		name = fmt.Sprintf("%s guest %s", source, externalID)
	}
	email := n.GuestEmail
	if email == "" {
		email = fmt.Sprintf("%s.%s@channel.invalid", source, externalID)
	}

	req := &model.BookingRequest{
		GuestName:  name,
		GuestEmail: email,
		GuestPhone: n.GuestPhone,
		Guests:     guests,
		CheckIn:    n.CheckIn,
		CheckOut:   n.CheckOut,
		Payment:    &model.Payment{OrderID: source + ":" + externalID, Method: "ota"},
	}
	if n.RoomType != "" {
		req.PreferredTypes = []string{n.RoomType}
	}
	return req
}

func normalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "cancelled", "canceled", "cancellation":
		return model.StatusCancelled
	case "checked_out", "completed":
		return model.StatusCheckedOut
	default:
		return model.StatusConfirmed
	}
}

func isConflict(err error) bool {
	appErr := apperrors.AsAppError(err)
	return appErr != nil && appErr.Code == apperrors.CodeConflict
}
