package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	bookingserrors "lagoonstay/internal/bookings/errors"
	"lagoonstay/internal/bookings/repository"
	"lagoonstay/pkg/config"
	apperrors "lagoonstay/pkg/errors"
	"lagoonstay/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

const dateLayout = "2006-01-02"

// ReservationCoordinator atomically persists a booking together with its
// room-night occupancies. Two implementations exist: a multi-document
// transaction for replica sets, and an advisory-lock protocol for
// standalone deployments where transactions are unavailable.
type ReservationCoordinator interface {
	Reserve(ctx context.Context, booking *model.Booking) error
	// Name identifies the active strategy in logs and admin output.
	Name() string
}

// LockKey derives the advisory lock key for a reservation attempt. Room
// IDs are sorted so two requests over the same set always contend on the
// same key regardless of allocation order.
func LockKey(roomIDs []string, checkIn, checkOut time.Time) string {
	sorted := append([]string(nil), roomIDs...)
	sort.Strings(sorted)
	return "rooms:" + strings.Join(sorted, ",") + ":" + checkIn.Format(dateLayout) + ":" + checkOut.Format(dateLayout)
}

type transactionCoordinator struct {
	bookingRepo   repository.BookingRepository
	occupancyRepo repository.OccupancyRepository
	cfg           *config.Config
}

func NewTransactionCoordinator(
	bookingRepo repository.BookingRepository,
	occupancyRepo repository.OccupancyRepository,
	cfg *config.Config,
) ReservationCoordinator {
	return &transactionCoordinator{
		bookingRepo:   bookingRepo,
		occupancyRepo: occupancyRepo,
		cfg:           cfg,
	}
}

func (c *transactionCoordinator) Name() string { return "transaction" }

func (c *transactionCoordinator) Reserve(ctx context.Context, booking *model.Booking) error {
	err := c.bookingRepo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := c.bookingRepo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		if err := c.occupancyRepo.InsertForStay(sessCtx, booking.ID, booking.AllocatedRooms, booking.CheckIn, booking.CheckOut); err != nil {
			if errors.Is(err, bookingserrors.ErrNightTaken) {
				return apperrors.Busy("Requested dates were just taken by another booking")
			}
			return apperrors.Internal("Failed to record occupancies", err)
		}
		return nil
	})
	if err != nil {
		// The aborted transaction left a stale ID on the model.
		if !apperrors.IsClientError(err) {
			booking.ID = ""
		}
		return err
	}
	return nil
}

type lockCoordinator struct {
	bookingRepo   repository.BookingRepository
	occupancyRepo repository.OccupancyRepository
	lockRepo      repository.LockRepository
	cfg           *config.Config
}

func NewLockCoordinator(
	bookingRepo repository.BookingRepository,
	occupancyRepo repository.OccupancyRepository,
	lockRepo repository.LockRepository,
	cfg *config.Config,
) ReservationCoordinator {
	return &lockCoordinator{
		bookingRepo:   bookingRepo,
		occupancyRepo: occupancyRepo,
		lockRepo:      lockRepo,
		cfg:           cfg,
	}
}

func (c *lockCoordinator) Name() string { return "lock" }

// Reserve serializes concurrent attempts on the same rooms and dates via
// an advisory lock, rechecks availability while holding it, then writes
// booking and occupancies. The unique occupancy index remains the final
// guard: if it still fires, the booking insert is compensated.
func (c *lockCoordinator) Reserve(ctx context.Context, booking *model.Booking) error {
	key := LockKey(booking.AllocatedRooms, booking.CheckIn, booking.CheckOut)
	owner := strings.ReplaceAll(uuid.New().String(), "-", "")

	err := c.lockRepo.AcquireWait(ctx, key, owner, c.cfg.LockTTL, c.cfg.LockAcquireTimeout, c.cfg.LockRetryInterval)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrLockBusy) {
			return apperrors.Busy("Requested dates are being booked by another request")
		}
		return apperrors.Internal("Failed to acquire reservation lock", err)
	}
	defer func() {
		if releaseErr := c.lockRepo.Release(context.WithoutCancel(ctx), key, owner); releaseErr != nil &&
			!errors.Is(releaseErr, bookingserrors.ErrLockNotHeld) {
			c.cfg.Log.Warn("Failed to release reservation lock", "key", key, "error", releaseErr)
		}
	}()

	overlapping, err := c.bookingRepo.CountOverlapping(ctx, booking.AllocatedRooms, booking.CheckIn, booking.CheckOut, "")
	if err != nil {
		return apperrors.Internal("Failed to recheck availability", err)
	}
	if overlapping > 0 {
		return apperrors.Busy("Requested dates were just taken by another booking")
	}

	if err := c.bookingRepo.Create(ctx, booking); err != nil {
		return apperrors.Internal("Failed to create booking", err)
	}

	if err := c.occupancyRepo.InsertForStay(ctx, booking.ID, booking.AllocatedRooms, booking.CheckIn, booking.CheckOut); err != nil {
		if deleteErr := c.bookingRepo.Delete(context.WithoutCancel(ctx), booking.ID); deleteErr != nil {
			c.cfg.Log.Error("Failed to compensate booking after occupancy conflict",
				"booking_id", booking.ID,
				"error", deleteErr,
			)
		}
		booking.ID = ""
		if errors.Is(err, bookingserrors.ErrNightTaken) {
			return apperrors.Busy("Requested dates were just taken by another booking")
		}
		return apperrors.Internal("Failed to record occupancies", err)
	}

	return nil
}
