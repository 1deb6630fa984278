package service

import (
	"context"
	"errors"
	"sync"

	bookingserrors "lagoonstay/internal/bookings/errors"
	"lagoonstay/internal/bookings/repository"
	"lagoonstay/internal/bookings/validator"
	"lagoonstay/pkg/config"
	apperrors "lagoonstay/pkg/errors"
	"lagoonstay/pkg/middleware"
	"lagoonstay/pkg/model"
	"lagoonstay/pkg/sanitizer"
)

// GuestUpdate carries the mutable guest-facing fields of a booking.
// Stay dates and rooms are immutable after admission; changing them means
// cancelling and rebooking so the occupancy ledger stays consistent.
type GuestUpdate struct {
	GuestName        *string  `json:"guest_name,omitempty"`
	GuestEmail       *string  `json:"guest_email,omitempty"`
	GuestPhone       *string  `json:"guest_phone,omitempty"`
	SelectedPrograms []string `json:"selected_programs,omitempty"`
}

// BillStatement is the response of the bill operation.
type BillStatement struct {
	BookingID      string               `json:"booking_id"`
	Reference      string               `json:"reference"`
	PriceBreakdown model.PriceBreakdown `json:"price_breakdown"`
	MenuItems      []model.MenuItem     `json:"menu_items"`
	MenuTotal      float64              `json:"menu_total"`
	GrandTotal     float64              `json:"grand_total"`
}

type BookingService interface {
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	GetByGuestEmail(ctx context.Context, email string, limit int, offset int64) ([]*model.Booking, error)
	GetMine(ctx context.Context, limit int, offset int64) ([]*model.Booking, error)
	Update(ctx context.Context, id string, update *GuestUpdate) (*model.Booking, error)
	Cancel(ctx context.Context, id string) (*model.Booking, error)
	Checkout(ctx context.Context, id string) (*model.Booking, error)
	Release(ctx context.Context, id string) (int64, error)
	Delete(ctx context.Context, id string) error
	AddMenuItem(ctx context.Context, id string, item model.MenuItem) (*model.Booking, error)
	Bill(ctx context.Context, id string) (*BillStatement, error)
}

type bookingService struct {
	repo          repository.BookingRepository
	occupancyRepo repository.OccupancyRepository
	rooms         RoomSource
	validator     *validator.BookingValidator
	events        EventSink
	cfg           *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	occupancyRepo repository.OccupancyRepository,
	rooms RoomSource,
	bookingValidator *validator.BookingValidator,
	events EventSink,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:          repo,
		occupancyRepo: occupancyRepo,
		rooms:         rooms,
		validator:     bookingValidator,
		events:        events,
		cfg:           cfg,
	}
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateLookupError(err, id)
	}

	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) GetByGuestEmail(ctx context.Context, email string, limit int, offset int64) ([]*model.Booking, error) {
	email = sanitizer.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.InvalidInput("Guest email cannot be empty")
	}

	bookings, err := s.repo.FindByGuestEmail(ctx, email, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings by guest", "email", email, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}
	return bookings, nil
}

// GetMine lists bookings for the authenticated caller, matching on the
// token subject and falling back to the email claim for bookings made
// before the guest signed up.
func (s *bookingService) GetMine(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	userID := middleware.UserIDFromContext(ctx)
	email := middleware.EmailFromContext(ctx)
	if userID == "" && email == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	if userID != "" {
		bookings, err := s.repo.FindByUser(ctx, userID, limit, offset)
		if err != nil {
			return nil, apperrors.Internal("Failed to retrieve bookings", err)
		}
		if len(bookings) > 0 || email == "" {
			return bookings, nil
		}
	}

	return s.GetByGuestEmail(ctx, email, limit, offset)
}

func (s *bookingService) Update(ctx context.Context, id string, update *GuestUpdate) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.GuestName != nil {
		booking.GuestName = sanitizer.NormalizeName(*update.GuestName)
	}
	if update.GuestEmail != nil {
		booking.GuestEmail = sanitizer.NormalizeEmail(*update.GuestEmail)
	}
	if update.GuestPhone != nil {
		if phone := sanitizer.NormalizePhone(*update.GuestPhone); phone != "" {
			booking.GuestPhone = phone
		} else {
			booking.GuestPhone = *update.GuestPhone
		}
	}
	if booking.GuestName == "" || booking.GuestEmail == "" {
		return nil, apperrors.Validation("Guest name and email are required", nil)
	}

	if update.SelectedPrograms != nil {
		booking.SelectedPrograms = sanitizer.NormalizeIDs(update.SelectedPrograms)

		programs, err := s.rooms.FindProgramsByIDs(ctx, booking.SelectedPrograms)
		if err != nil {
			return nil, apperrors.Internal("Failed to load wellness programs", err)
		}
		rooms := make([]model.Room, 0, len(booking.PriceBreakdown.PerRoom))
		for _, charge := range booking.PriceBreakdown.PerRoom {
			rooms = append(rooms, model.Room{ID: charge.RoomID, PricePerNight: charge.PricePerNight})
		}
		booking.PriceBreakdown = Quote(rooms, booking.Nights, programs, s.cfg.TaxRate)
	}

	if _, err := s.repo.Update(ctx, id, booking); err != nil {
		return nil, translateLookupError(err, id)
	}

	s.cfg.Log.Info("Booking updated", "booking_id", id)
	s.events.Publish(ctx, model.Event{
		Name:      model.EventBookingModified,
		BookingID: booking.ID,
		Reference: booking.Reference,
		Status:    booking.Status,
	})

	return booking, nil
}

// Cancel releases the booking's room nights and marks it cancelled.
func (s *bookingService) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status == model.StatusCancelled {
		return nil, apperrors.Conflict("Booking is already cancelled")
	}

	if _, err := s.occupancyRepo.DeleteByBooking(ctx, id); err != nil {
		return nil, apperrors.Internal("Failed to release room nights", err)
	}
	if err := s.repo.UpdateStatus(ctx, id, model.StatusCancelled); err != nil {
		return nil, translateLookupError(err, id)
	}
	booking.Status = model.StatusCancelled

	s.cfg.Log.Info("Booking cancelled", "booking_id", id, "reference", booking.Reference)
	s.events.Publish(ctx, model.Event{
		Name:      model.EventBookingCancelled,
		BookingID: booking.ID,
		Reference: booking.Reference,
		Status:    booking.Status,
	})

	return booking, nil
}

// Checkout marks the stay complete. Occupancies stay in the ledger as
// history; only future nights matter for availability.
func (s *bookingService) Checkout(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status == model.StatusCancelled {
		return nil, apperrors.Conflict("Cancelled bookings cannot be checked out")
	}
	if booking.Status == model.StatusCheckedOut {
		return nil, apperrors.Conflict("Booking is already checked out")
	}

	if err := s.repo.UpdateStatus(ctx, id, model.StatusCheckedOut); err != nil {
		return nil, translateLookupError(err, id)
	}
	booking.Status = model.StatusCheckedOut

	s.cfg.Log.Info("Booking checked out", "booking_id", id, "reference", booking.Reference)
	s.events.Publish(ctx, model.Event{
		Name:      model.EventBookingCheckedOut,
		BookingID: booking.ID,
		Reference: booking.Reference,
		Status:    booking.Status,
	})

	return booking, nil
}

// Release frees the booking's room nights without touching its status.
// Admin escape hatch for stuck inventory.
func (s *bookingService) Release(ctx context.Context, id string) (int64, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return 0, err
	}

	count, err := s.occupancyRepo.DeleteByBooking(ctx, id)
	if err != nil {
		return 0, apperrors.Internal("Failed to release room nights", err)
	}

	s.cfg.Log.Info("Booking occupancies released", "booking_id", id, "released", count)
	return count, nil
}

func (s *bookingService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	// Occupancies first so a failure never leaves orphaned room nights
	// pointing at a deleted booking.
	if _, err := s.occupancyRepo.DeleteByBooking(ctx, id); err != nil {
		return apperrors.Internal("Failed to release room nights", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return translateLookupError(err, id)
	}

	s.cfg.Log.Info("Booking deleted", "booking_id", id)
	return nil
}

func (s *bookingService) AddMenuItem(ctx context.Context, id string, item model.MenuItem) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status == model.StatusCancelled {
		return nil, apperrors.Conflict("Cannot add menu items to a cancelled booking")
	}

	if err := s.validator.ValidateMenuItem(&item); err != nil {
		return nil, apperrors.Validation("Invalid menu item", map[string]any{"error": err.Error()})
	}

	booking.MenuItems = append(booking.MenuItems, item)
	booking.MenuTotal = MenuTotal(booking.MenuItems)

	if err := s.repo.AddMenuItem(ctx, id, item, booking.MenuTotal); err != nil {
		return nil, translateLookupError(err, id)
	}

	s.cfg.Log.Info("Menu item added", "booking_id", id, "item", item.Name, "menu_total", booking.MenuTotal)
	return booking, nil
}

func (s *bookingService) Bill(ctx context.Context, id string) (*BillStatement, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &BillStatement{
		BookingID:      booking.ID,
		Reference:      booking.Reference,
		PriceBreakdown: booking.PriceBreakdown,
		MenuItems:      booking.MenuItems,
		MenuTotal:      booking.MenuTotal,
		GrandTotal:     round2(booking.PriceBreakdown.Total + booking.MenuTotal),
	}, nil
}

func translateLookupError(err error, id string) error {
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking", id)
	}
	if errors.Is(err, bookingserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid booking ID format")
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal("Failed to access booking", err)
}
