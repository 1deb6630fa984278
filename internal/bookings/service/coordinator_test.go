package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	bookingserrors "lagoonstay/internal/bookings/errors"
	apperrors "lagoonstay/pkg/errors"
	"lagoonstay/pkg/model"
)

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad date %q: %v", value, err)
	}
	return d
}

func stayBooking(t *testing.T) *model.Booking {
	t.Helper()
	return &model.Booking{
		Reference:      "RB-TEST0001",
		GuestName:      "Asha Verma",
		GuestEmail:     "asha@example.com",
		Guests:         2,
		AllocatedRooms: []string{"room-1"},
		CheckIn:        mustDate(t, "2026-09-10"),
		CheckOut:       mustDate(t, "2026-09-12"),
		Status:         model.StatusConfirmed,
	}
}

func TestLockKey(t *testing.T) {
	in := mustDate(t, "2026-09-10")
	out := mustDate(t, "2026-09-12")

	key := LockKey([]string{"room-2", "room-1"}, in, out)
	want := "rooms:room-1,room-2:2026-09-10:2026-09-12"
	if key != want {
		t.Errorf("expected %q, got %q", want, key)
	}

	// Room order must not matter.
	if other := LockKey([]string{"room-1", "room-2"}, in, out); other != key {
		t.Errorf("expected identical keys, got %q and %q", key, other)
	}
}

func TestTransactionCoordinator_Success(t *testing.T) {
	cfg := testConfig(t)
	repo := &fakeBookingRepo{}
	coordinator := NewTransactionCoordinator(repo, &fakeOccupancyRepo{}, cfg)

	booking := stayBooking(t)
	if err := coordinator.Reserve(context.Background(), booking); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.ID == "" {
		t.Error("expected booking ID to be assigned")
	}
}

func TestTransactionCoordinator_NightTakenMapsToConflict(t *testing.T) {
	cfg := testConfig(t)
	repo := &fakeBookingRepo{}
	occupancies := &fakeOccupancyRepo{
		insertForStayFunc: func(ctx context.Context, bookingID string, roomIDs []string, checkIn, checkOut time.Time) error {
			return fmt.Errorf("%w: duplicate key", bookingserrors.ErrNightTaken)
		},
	}
	coordinator := NewTransactionCoordinator(repo, occupancies, cfg)

	err := coordinator.Reserve(context.Background(), stayBooking(t))
	if err == nil {
		t.Fatal("expected conflict")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected conflict code, got %s", appErr.Code)
	}
	if retryable, _ := appErr.Details["retryable"].(bool); !retryable {
		t.Error("expected a retryable conflict")
	}
}

func TestTransactionCoordinator_ClearsIDOnInfrastructureFailure(t *testing.T) {
	cfg := testConfig(t)
	repo := &fakeBookingRepo{}
	occupancies := &fakeOccupancyRepo{
		insertForStayFunc: func(ctx context.Context, bookingID string, roomIDs []string, checkIn, checkOut time.Time) error {
			return errors.New("write concern failure")
		},
	}
	coordinator := NewTransactionCoordinator(repo, occupancies, cfg)

	booking := stayBooking(t)
	err := coordinator.Reserve(context.Background(), booking)
	if err == nil {
		t.Fatal("expected error")
	}
	if booking.ID != "" {
		t.Errorf("expected stale booking ID to be cleared, got %q", booking.ID)
	}
}

type fakeLockRepo struct {
	mu       sync.Mutex
	held     map[string]string
	acquires int

	acquireWaitFunc func(ctx context.Context, key, owner string, ttl, timeout, retryInterval time.Duration) error
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{held: make(map[string]string)}
}

func (f *fakeLockRepo) Acquire(ctx context.Context, key, owner string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.held[key]; taken {
		return bookingserrors.ErrLockBusy
	}
	f.held[key] = owner
	return nil
}

func (f *fakeLockRepo) AcquireWait(ctx context.Context, key, owner string, ttl, timeout, retryInterval time.Duration) error {
	f.mu.Lock()
	f.acquires++
	f.mu.Unlock()
	if f.acquireWaitFunc != nil {
		return f.acquireWaitFunc(ctx, key, owner, ttl, timeout, retryInterval)
	}
	return f.Acquire(ctx, key, owner, ttl)
}

func (f *fakeLockRepo) Release(ctx context.Context, key, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] != owner {
		return bookingserrors.ErrLockNotHeld
	}
	delete(f.held, key)
	return nil
}

func (f *fakeLockRepo) FindAll(ctx context.Context) ([]*model.ReservationLock, error) {
	return nil, nil
}

func TestLockCoordinator_Success(t *testing.T) {
	cfg := testConfig(t)
	repo := &fakeBookingRepo{}
	locks := newFakeLockRepo()
	coordinator := NewLockCoordinator(repo, &fakeOccupancyRepo{}, locks, cfg)

	booking := stayBooking(t)
	if err := coordinator.Reserve(context.Background(), booking); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.ID == "" {
		t.Error("expected booking ID to be assigned")
	}

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if len(locks.held) != 0 {
		t.Errorf("expected lock released, still held: %v", locks.held)
	}
}

func TestLockCoordinator_BusyLockMapsToConflict(t *testing.T) {
	cfg := testConfig(t)
	locks := newFakeLockRepo()
	locks.acquireWaitFunc = func(ctx context.Context, key, owner string, ttl, timeout, retryInterval time.Duration) error {
		return bookingserrors.ErrLockBusy
	}
	coordinator := NewLockCoordinator(&fakeBookingRepo{}, &fakeOccupancyRepo{}, locks, cfg)

	err := coordinator.Reserve(context.Background(), stayBooking(t))
	if err == nil {
		t.Fatal("expected conflict")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected conflict code, got %s", appErr.Code)
	}
}

func TestLockCoordinator_RechecksUnderLock(t *testing.T) {
	cfg := testConfig(t)
	repo := &fakeBookingRepo{
		countOverlappingFunc: func(ctx context.Context, roomIDs []string, checkIn, checkOut time.Time, excludeBookingID string) (int64, error) {
			return 1, nil
		},
	}
	locks := newFakeLockRepo()
	coordinator := NewLockCoordinator(repo, &fakeOccupancyRepo{}, locks, cfg)

	err := coordinator.Reserve(context.Background(), stayBooking(t))
	if err == nil {
		t.Fatal("expected conflict")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected conflict code, got %s", appErr.Code)
	}
	if len(repo.created) != 0 {
		t.Error("booking must not be created when the recheck fails")
	}

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if len(locks.held) != 0 {
		t.Errorf("expected lock released, still held: %v", locks.held)
	}
}

func TestLockCoordinator_CompensatesBookingOnOccupancyConflict(t *testing.T) {
	cfg := testConfig(t)
	var deleted []string
	repo := &fakeBookingRepo{
		deleteFunc: func(ctx context.Context, id string) error {
			deleted = append(deleted, id)
			return nil
		},
	}
	occupancies := &fakeOccupancyRepo{
		insertForStayFunc: func(ctx context.Context, bookingID string, roomIDs []string, checkIn, checkOut time.Time) error {
			return fmt.Errorf("%w: duplicate key", bookingserrors.ErrNightTaken)
		},
	}
	coordinator := NewLockCoordinator(repo, occupancies, newFakeLockRepo(), cfg)

	booking := stayBooking(t)
	err := coordinator.Reserve(context.Background(), booking)
	if err == nil {
		t.Fatal("expected conflict")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected conflict code, got %s", appErr.Code)
	}
	if len(deleted) != 1 {
		t.Fatalf("expected one compensating delete, got %v", deleted)
	}
	if booking.ID != "" {
		t.Errorf("expected booking ID cleared after compensation, got %q", booking.ID)
	}
}
