package service

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"lagoonstay/internal/allocation"
	bookingserrors "lagoonstay/internal/bookings/errors"
	"lagoonstay/internal/bookings/repository"
	"lagoonstay/internal/bookings/validator"
	"lagoonstay/pkg/config"
	apperrors "lagoonstay/pkg/errors"
	"lagoonstay/pkg/middleware"
	"lagoonstay/pkg/model"
	"lagoonstay/pkg/sanitizer"

	"github.com/google/uuid"
)

// RoomSource is the slice of the room catalog admission needs.
type RoomSource interface {
	FindAvailable(ctx context.Context) ([]model.Room, error)
	FindAccommodations(ctx context.Context) ([]model.Accommodation, error)
	FindProgramsByIDs(ctx context.Context, ids []string) ([]model.WellnessProgram, error)
}

// EventSink receives best-effort lifecycle notifications.
type EventSink interface {
	Publish(ctx context.Context, event model.Event)
}

type AdmissionService interface {
	Admit(ctx context.Context, req *model.BookingRequest) (*model.BookingSummary, error)
}

type admissionService struct {
	bookingRepo repository.BookingRepository
	rooms       RoomSource
	validator   *validator.BookingValidator
	primary     ReservationCoordinator
	fallback    ReservationCoordinator
	events      EventSink
	cfg         *config.Config
}

// NewAdmissionService wires the booking admission pipeline. fallback may
// be nil; when set, it is tried once if the primary coordinator fails
// with an infrastructure error (not a client rejection).
func NewAdmissionService(
	bookingRepo repository.BookingRepository,
	rooms RoomSource,
	bookingValidator *validator.BookingValidator,
	primary ReservationCoordinator,
	fallback ReservationCoordinator,
	events EventSink,
	cfg *config.Config,
) AdmissionService {
	return &admissionService{
		bookingRepo: bookingRepo,
		rooms:       rooms,
		validator:   bookingValidator,
		primary:     primary,
		fallback:    fallback,
		events:      events,
		cfg:         cfg,
	}
}

func (s *admissionService) Admit(ctx context.Context, req *model.BookingRequest) (*model.BookingSummary, error) {
	s.sanitize(req)

	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Booking request validation failed", "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	checkIn, _ := validator.ParseDate(req.CheckIn)
	checkOut, _ := validator.ParseDate(req.CheckOut)
	nights := int(checkOut.Sub(checkIn).Hours() / 24)

	// A retried payment must return the original booking, not a second one.
	if req.Payment != nil && (req.Payment.PaymentID != "" || req.Payment.OrderID != "") {
		existing, err := s.bookingRepo.FindByPayment(ctx, req.Payment.PaymentID, req.Payment.OrderID)
		if err == nil {
			s.cfg.Log.Info("Returning existing booking for repeated payment",
				"booking_id", existing.ID,
				"payment_id", req.Payment.PaymentID,
			)
			summary := existing.Summary()
			summary.AlreadyExists = true
			return summary, nil
		}
		if !errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.Internal("Failed to check payment reference", err)
		}
	}

	busyIDs, err := s.bookingRepo.DistinctBusyRoomIDs(ctx, checkIn, checkOut)
	if err != nil {
		return nil, apperrors.Internal("Failed to check room availability", err)
	}
	busy := make(map[string]bool, len(busyIDs))
	for _, id := range busyIDs {
		busy[id] = true
	}

	inventory, err := s.rooms.FindAvailable(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to load room inventory", err)
	}

	allocated, err := s.chooseRooms(ctx, req, inventory, busy)
	if err != nil {
		return nil, err
	}

	roomIDs := make([]string, 0, len(allocated))
	for _, room := range allocated {
		roomIDs = append(roomIDs, room.ID)
	}

	// Recheck right before reserving; the coordinator revalidates again
	// under its own guard, this just fails fast.
	overlapping, err := s.bookingRepo.CountOverlapping(ctx, roomIDs, checkIn, checkOut, "")
	if err != nil {
		return nil, apperrors.Internal("Failed to recheck availability", err)
	}
	if overlapping > 0 {
		return nil, apperrors.Busy("Requested dates were just taken by another booking")
	}

	programs, err := s.rooms.FindProgramsByIDs(ctx, req.SelectedPrograms)
	if err != nil {
		return nil, apperrors.Internal("Failed to load wellness programs", err)
	}

	booking := &model.Booking{
		Reference:        newReference(),
		GuestName:        req.GuestName,
		GuestEmail:       req.GuestEmail,
		GuestPhone:       req.GuestPhone,
		Guests:           req.Guests,
		SelectedRooms:    req.SelectedRooms,
		AllocatedRooms:   roomIDs,
		SelectedPrograms: req.SelectedPrograms,
		Payment:          req.Payment,
		ExtraBedding:     req.AllowExtraBeds,
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		Nights:           nights,
		PriceBreakdown:   Quote(allocated, nights, programs, s.cfg.TaxRate),
		Status:           model.StatusConfirmed,
	}
	if userID := middleware.UserIDFromContext(ctx); userID != "" {
		booking.UserID = userID
	}

	if err := s.reserve(ctx, booking); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking admitted",
		"booking_id", booking.ID,
		"reference", booking.Reference,
		"rooms", booking.AllocatedRooms,
		"check_in", req.CheckIn,
		"check_out", req.CheckOut,
		"total", booking.PriceBreakdown.Total,
	)

	s.events.Publish(ctx, model.Event{
		Name:      model.EventBookingCreated,
		BookingID: booking.ID,
		Reference: booking.Reference,
		Status:    booking.Status,
		Payload: map[string]any{
			"rooms": booking.AllocatedRooms,
			"total": booking.PriceBreakdown.Total,
		},
	})

	return booking.Summary(), nil
}

// reserve runs the primary coordinator and falls back once when the
// failure is infrastructural. Client rejections (busy dates, conflicts)
// are final on the first attempt.
func (s *admissionService) reserve(ctx context.Context, booking *model.Booking) error {
	err := s.primary.Reserve(ctx, booking)
	if err == nil {
		return nil
	}
	if s.fallback == nil || apperrors.IsClientError(err) {
		return err
	}

	s.cfg.Log.Warn("Primary reservation path failed, retrying via fallback",
		"primary", s.primary.Name(),
		"fallback", s.fallback.Name(),
		"error", err,
	)
	return s.fallback.Reserve(ctx, booking)
}

func (s *admissionService) chooseRooms(ctx context.Context, req *model.BookingRequest, inventory []model.Room, busy map[string]bool) ([]model.Room, error) {
	if len(req.SelectedRooms) > 0 {
		accommodations, err := s.rooms.FindAccommodations(ctx)
		if err != nil {
			return nil, apperrors.Internal("Failed to load accommodations", err)
		}
		chosen, err := resolveSelection(req.SelectedRooms, inventory, accommodations, busy)
		if err != nil {
			switch {
			case errors.Is(err, bookingserrors.ErrDuplicateSelection):
				return nil, apperrors.InvalidInput("A room was selected more than once")
			case errors.Is(err, bookingserrors.ErrRoomNotFound):
				return nil, apperrors.InvalidInput("Selected room not found")
			case errors.Is(err, bookingserrors.ErrRoomUnavailable):
				return nil, apperrors.Conflict("Selected room is unavailable for the requested dates")
			case errors.Is(err, bookingserrors.ErrInsufficientRooms):
				return nil, apperrors.Conflict("Not enough rooms of the selected type are available")
			}
			return nil, apperrors.Internal("Failed to resolve room selection", err)
		}
		return chosen, nil
	}

	candidates := make([]model.Room, 0, len(inventory))
	for _, room := range inventory {
		if !busy[room.ID] {
			candidates = append(candidates, room)
		}
	}

	allocated := allocation.Allocate(candidates, req.Guests, allocation.Options{
		AllowExtraBeds: req.AllowExtraBeds,
		PreferredTypes: req.PreferredTypes,
		MaxRooms:       s.cfg.MaxRoomsPerBooking,
	})
	if len(allocated) == 0 {
		return nil, apperrors.Conflict("Not enough rooms available for the requested dates")
	}
	return allocated, nil
}

// resolveSelection maps selection tokens to concrete rooms. A token is
// either a room ID, which may appear once, or a room slug, accommodation
// ID or accommodation slug, where the repeat count requests that many
// distinct rooms of the group. Rooms are matched in ID order so repeated
// requests resolve identically.
func resolveSelection(selected []string, inventory []model.Room, accommodations []model.Accommodation, busy map[string]bool) ([]model.Room, error) {
	byID := make(map[string]model.Room, len(inventory))
	bySlug := make(map[string][]model.Room)
	byAccommodation := make(map[string][]model.Room)
	for _, room := range inventory {
		byID[room.ID] = room
		slug := strings.ToLower(room.Slug)
		if slug != "" {
			bySlug[slug] = append(bySlug[slug], room)
		}
		if room.AccommodationID != "" {
			byAccommodation[room.AccommodationID] = append(byAccommodation[room.AccommodationID], room)
		}
	}
	for slug := range bySlug {
		rooms := bySlug[slug]
		sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	}
	for id := range byAccommodation {
		rooms := byAccommodation[id]
		sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	}
	accommodationSlugs := make(map[string]string, len(accommodations))
	for _, accommodation := range accommodations {
		slug := strings.ToLower(accommodation.Slug)
		if slug != "" {
			accommodationSlugs[slug] = accommodation.ID
		}
	}

	counts := map[string]int{}
	var order []string
	for _, raw := range selected {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		if counts[token] == 0 {
			order = append(order, token)
		}
		counts[token]++
	}

	chosen := map[string]bool{}
	var result []model.Room

	take := func(room model.Room) error {
		if busy[room.ID] || chosen[room.ID] {
			return bookingserrors.ErrRoomUnavailable
		}
		chosen[room.ID] = true
		result = append(result, room)
		return nil
	}

	for _, token := range order {
		qty := counts[token]

		if room, ok := byID[token]; ok {
			if qty > 1 {
				return nil, bookingserrors.ErrDuplicateSelection
			}
			if err := take(room); err != nil {
				return nil, err
			}
			continue
		}

		rooms, ok := bySlug[strings.ToLower(token)]
		if !ok {
			rooms, ok = byAccommodation[token]
		}
		if !ok {
			if accommodationID, slugMatch := accommodationSlugs[strings.ToLower(token)]; slugMatch {
				rooms, ok = byAccommodation[accommodationID]
			}
		}
		if !ok {
			return nil, bookingserrors.ErrRoomNotFound
		}

		taken := 0
		for _, room := range rooms {
			if taken == qty {
				break
			}
			if busy[room.ID] || chosen[room.ID] {
				continue
			}
			chosen[room.ID] = true
			result = append(result, room)
			taken++
		}
		if taken < qty {
			return nil, bookingserrors.ErrInsufficientRooms
		}
	}

	return result, nil
}

func (s *admissionService) sanitize(req *model.BookingRequest) {
	req.GuestName = sanitizer.NormalizeName(req.GuestName)
	req.GuestEmail = sanitizer.NormalizeEmail(req.GuestEmail)
	if phone := sanitizer.NormalizePhone(req.GuestPhone); phone != "" {
		req.GuestPhone = phone
	} else {
		req.GuestPhone = strings.TrimSpace(req.GuestPhone)
	}
	req.SelectedPrograms = sanitizer.NormalizeIDs(req.SelectedPrograms)
	req.PreferredTypes = sanitizer.NormalizeIDs(req.PreferredTypes)
	// Selected rooms keep duplicates: repeat count encodes quantity.
}

// newReference builds a guest-facing booking reference,
// RB-<unix-timestamp>-<4 random digits>.
func newReference() string {
	id := uuid.New()
	suffix := binary.BigEndian.Uint32(id[:4]) % 10000
	return fmt.Sprintf("RB-%d-%04d", time.Now().Unix(), suffix)
}
