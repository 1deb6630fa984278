package service

import (
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	bookingserrors "lagoonstay/internal/bookings/errors"
	"lagoonstay/internal/bookings/validator"
	"lagoonstay/pkg/config"
	mongotx "lagoonstay/pkg/db/mongo"
	apperrors "lagoonstay/pkg/errors"
	"lagoonstay/pkg/logger"
	"lagoonstay/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// ────────────────────────────────────────────────
// Fakes shared across the service tests
// ────────────────────────────────────────────────

type fakeBookingRepo struct {
	mu      sync.Mutex
	nextID  int
	created []*model.Booking

	createFunc           func(ctx context.Context, booking *model.Booking) error
	findByPaymentFunc    func(ctx context.Context, paymentID, orderID string) (*model.Booking, error)
	distinctBusyFunc     func(ctx context.Context, checkIn, checkOut time.Time) ([]string, error)
	countOverlappingFunc func(ctx context.Context, roomIDs []string, checkIn, checkOut time.Time, excludeBookingID string) (int64, error)
	deleteFunc           func(ctx context.Context, id string) error
}

func (f *fakeBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	if f.createFunc != nil {
		return f.createFunc(ctx, booking)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	booking.ID = "bk-" + strconv.Itoa(f.nextID)
	f.created = append(f.created, booking)
	return nil
}

func (f *fakeBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	return nil, bookingserrors.ErrNotFound
}

func (f *fakeBookingRepo) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	return nil, nil
}

func (f *fakeBookingRepo) FindByGuestEmail(ctx context.Context, email string, limit int, offset int64) ([]*model.Booking, error) {
	return nil, nil
}

func (f *fakeBookingRepo) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	return nil, nil
}

func (f *fakeBookingRepo) FindByPayment(ctx context.Context, paymentID, orderID string) (*model.Booking, error) {
	if f.findByPaymentFunc != nil {
		return f.findByPaymentFunc(ctx, paymentID, orderID)
	}
	return nil, bookingserrors.ErrNotFound
}

func (f *fakeBookingRepo) Update(ctx context.Context, id string, booking *model.Booking) (*mongo.UpdateResult, error) {
	return &mongo.UpdateResult{MatchedCount: 1}, nil
}

func (f *fakeBookingRepo) UpdateStatus(ctx context.Context, id string, status string) error {
	return nil
}

func (f *fakeBookingRepo) AddMenuItem(ctx context.Context, id string, item model.MenuItem, newTotal float64) error {
	return nil
}

func (f *fakeBookingRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFunc != nil {
		return f.deleteFunc(ctx, id)
	}
	return nil
}

func (f *fakeBookingRepo) DistinctBusyRoomIDs(ctx context.Context, checkIn, checkOut time.Time) ([]string, error) {
	if f.distinctBusyFunc != nil {
		return f.distinctBusyFunc(ctx, checkIn, checkOut)
	}
	return nil, nil
}

func (f *fakeBookingRepo) CountOverlapping(ctx context.Context, roomIDs []string, checkIn, checkOut time.Time, excludeBookingID string) (int64, error) {
	if f.countOverlappingFunc != nil {
		return f.countOverlappingFunc(ctx, roomIDs, checkIn, checkOut, excludeBookingID)
	}
	return 0, nil
}

func (f *fakeBookingRepo) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

func (f *fakeBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type fakeRoomSource struct {
	rooms          []model.Room
	accommodations []model.Accommodation
	programs       []model.WellnessProgram
}

func (f *fakeRoomSource) FindAvailable(ctx context.Context) ([]model.Room, error) {
	return f.rooms, nil
}

func (f *fakeRoomSource) FindAccommodations(ctx context.Context) ([]model.Accommodation, error) {
	return f.accommodations, nil
}

func (f *fakeRoomSource) FindProgramsByIDs(ctx context.Context, ids []string) ([]model.WellnessProgram, error) {
	var out []model.WellnessProgram
	for _, id := range ids {
		for _, p := range f.programs {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

type fakeEventSink struct {
	mu     sync.Mutex
	events []model.Event
}

func (f *fakeEventSink) Publish(ctx context.Context, event model.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeEventSink) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, e := range f.events {
		names = append(names, e.Name)
	}
	return names
}

type fakeCoordinator struct {
	name        string
	reserveFunc func(ctx context.Context, booking *model.Booking) error
	calls       int
}

func (f *fakeCoordinator) Name() string { return f.name }

func (f *fakeCoordinator) Reserve(ctx context.Context, booking *model.Booking) error {
	f.calls++
	if f.reserveFunc != nil {
		return f.reserveFunc(ctx, booking)
	}
	return nil
}

type fakeOccupancyRepo struct {
	insertForStayFunc   func(ctx context.Context, bookingID string, roomIDs []string, checkIn, checkOut time.Time) error
	deleteByBookingFunc func(ctx context.Context, bookingID string) (int64, error)
}

func (f *fakeOccupancyRepo) InsertForStay(ctx context.Context, bookingID string, roomIDs []string, checkIn, checkOut time.Time) error {
	if f.insertForStayFunc != nil {
		return f.insertForStayFunc(ctx, bookingID, roomIDs, checkIn, checkOut)
	}
	return nil
}

func (f *fakeOccupancyRepo) DeleteByBooking(ctx context.Context, bookingID string) (int64, error) {
	if f.deleteByBookingFunc != nil {
		return f.deleteByBookingFunc(ctx, bookingID)
	}
	return 0, nil
}

func (f *fakeOccupancyRepo) FindByBooking(ctx context.Context, bookingID string) ([]*model.Occupancy, error) {
	return nil, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Log:                logger.New(logger.Config{Service: "bookings-test", Output: io.Discard}),
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		TaxRate:            0.1,
		MaxRoomsPerBooking: 4,
		LockTTL:            time.Second,
		LockAcquireTimeout: 200 * time.Millisecond,
		LockRetryInterval:  10 * time.Millisecond,
	}
}

func testValidator(t *testing.T) *validator.BookingValidator {
	t.Helper()
	return validator.NewBookingValidator(logger.New(logger.Config{Service: "bookings-test", Output: io.Discard}))
}

func capPtr(v int) *int { return &v }

func stdInventory() []model.Room {
	return []model.Room{
		{ID: "room-1", Slug: "lakeview", Type: "cottage", PricePerNight: 120, Available: true, Capacity: capPtr(2)},
		{ID: "room-2", Slug: "lakeview", Type: "cottage", PricePerNight: 120, Available: true, Capacity: capPtr(2)},
		{ID: "room-3", Slug: "gardenia", Type: "villa", PricePerNight: 300, Available: true, Capacity: capPtr(4)},
	}
}

func stdRequest() *model.BookingRequest {
	return &model.BookingRequest{
		GuestName:  "Asha Verma",
		GuestEmail: "asha@example.com",
		Guests:     2,
		CheckIn:    "2026-09-10",
		CheckOut:   "2026-09-12",
	}
}

// References look like RB-1757500800-0042: unix timestamp, then four
// random digits.
var referencePattern = regexp.MustCompile(`^RB-\d+-\d{4}$`)

// ────────────────────────────────────────────────
// Admission tests
// ────────────────────────────────────────────────

func TestNewReference(t *testing.T) {
	ref := newReference()
	if !referencePattern.MatchString(ref) {
		t.Errorf("unexpected reference format: %q", ref)
	}

	ts := strings.TrimPrefix(ref, "RB-")
	ts = ts[:strings.Index(ts, "-")]
	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		t.Fatalf("reference timestamp is not numeric: %q", ref)
	}
	if delta := time.Now().Unix() - secs; delta < 0 || delta > 5 {
		t.Errorf("reference timestamp %d not close to now", secs)
	}
}

func TestAdmit_AllocatesAndReserves(t *testing.T) {
	cfg := testConfig(t)
	repo := &fakeBookingRepo{}
	events := &fakeEventSink{}
	primary := &fakeCoordinator{name: "primary", reserveFunc: func(ctx context.Context, b *model.Booking) error {
		b.ID = "bk-1"
		return nil
	}}
	svc := NewAdmissionService(repo, &fakeRoomSource{rooms: stdInventory()}, testValidator(t), primary, nil, events, cfg)

	summary, err := svc.Admit(context.Background(), stdRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.ID != "bk-1" {
		t.Errorf("expected booking ID bk-1, got %q", summary.ID)
	}
	if !referencePattern.MatchString(summary.Reference) {
		t.Errorf("unexpected reference format: %q", summary.Reference)
	}
	if summary.Status != model.StatusConfirmed {
		t.Errorf("expected status confirmed, got %q", summary.Status)
	}
	// Two guests fit the cheapest single room.
	if len(summary.AllocatedRooms) != 1 || summary.AllocatedRooms[0] != "room-1" {
		t.Errorf("expected allocation [room-1], got %v", summary.AllocatedRooms)
	}
	// 2 nights at 120 plus 10% tax.
	if summary.PriceBreakdown.Total != 264 {
		t.Errorf("expected total 264, got %v", summary.PriceBreakdown.Total)
	}
	if names := events.names(); len(names) != 1 || names[0] != model.EventBookingCreated {
		t.Errorf("expected a single created event, got %v", names)
	}
}

func TestAdmit_ValidationFailure(t *testing.T) {
	cfg := testConfig(t)
	svc := NewAdmissionService(&fakeBookingRepo{}, &fakeRoomSource{rooms: stdInventory()}, testValidator(t), &fakeCoordinator{name: "primary"}, nil, &fakeEventSink{}, cfg)

	req := stdRequest()
	req.CheckOut = "2026-09-10" // same day checkout

	_, err := svc.Admit(context.Background(), req)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeValidation {
		t.Errorf("expected validation error code, got %s", appErr.Code)
	}
}

func TestAdmit_PaymentIdempotency(t *testing.T) {
	cfg := testConfig(t)
	existing := &model.Booking{
		ID:             "bk-existing",
		Reference:      "RB-AAAA1111",
		Status:         model.StatusConfirmed,
		AllocatedRooms: []string{"room-1"},
	}
	repo := &fakeBookingRepo{
		findByPaymentFunc: func(ctx context.Context, paymentID, orderID string) (*model.Booking, error) {
			if paymentID == "pay-1" {
				return existing, nil
			}
			return nil, bookingserrors.ErrNotFound
		},
	}
	primary := &fakeCoordinator{name: "primary"}
	svc := NewAdmissionService(repo, &fakeRoomSource{rooms: stdInventory()}, testValidator(t), primary, nil, &fakeEventSink{}, cfg)

	req := stdRequest()
	req.Payment = &model.Payment{PaymentID: "pay-1"}

	summary, err := svc.Admit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !summary.AlreadyExists {
		t.Error("expected AlreadyExists to be set")
	}
	if summary.ID != "bk-existing" {
		t.Errorf("expected existing booking, got %q", summary.ID)
	}
	if primary.calls != 0 {
		t.Errorf("expected no reservation attempt, got %d", primary.calls)
	}
}

func TestAdmit_SelectionByRoomID(t *testing.T) {
	cfg := testConfig(t)
	svc := NewAdmissionService(&fakeBookingRepo{}, &fakeRoomSource{rooms: stdInventory()}, testValidator(t),
		&fakeCoordinator{name: "primary"}, nil, &fakeEventSink{}, cfg)

	req := stdRequest()
	req.SelectedRooms = []string{"room-3"}

	summary, err := svc.Admit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.AllocatedRooms) != 1 || summary.AllocatedRooms[0] != "room-3" {
		t.Errorf("expected [room-3], got %v", summary.AllocatedRooms)
	}
}

func TestAdmit_DuplicateRoomIDSelection(t *testing.T) {
	cfg := testConfig(t)
	svc := NewAdmissionService(&fakeBookingRepo{}, &fakeRoomSource{rooms: stdInventory()}, testValidator(t),
		&fakeCoordinator{name: "primary"}, nil, &fakeEventSink{}, cfg)

	req := stdRequest()
	req.SelectedRooms = []string{"room-3", "room-3"}

	_, err := svc.Admit(context.Background(), req)
	if err == nil {
		t.Fatal("expected duplicate selection error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeInvalidInput {
		t.Errorf("expected invalid input code, got %s", appErr.Code)
	}
}

func TestAdmit_SlugQuantitySelection(t *testing.T) {
	cfg := testConfig(t)
	svc := NewAdmissionService(&fakeBookingRepo{}, &fakeRoomSource{rooms: stdInventory()}, testValidator(t),
		&fakeCoordinator{name: "primary"}, nil, &fakeEventSink{}, cfg)

	req := stdRequest()
	req.Guests = 4
	req.SelectedRooms = []string{"lakeview", "lakeview"}

	summary, err := svc.Admit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.AllocatedRooms) != 2 {
		t.Fatalf("expected 2 rooms, got %v", summary.AllocatedRooms)
	}
	// Slug matches resolve in room ID order.
	if summary.AllocatedRooms[0] != "room-1" || summary.AllocatedRooms[1] != "room-2" {
		t.Errorf("expected [room-1 room-2], got %v", summary.AllocatedRooms)
	}
}

func lodgeInventory() *fakeRoomSource {
	return &fakeRoomSource{
		rooms: []model.Room{
			{ID: "room-1", Slug: "lakeview", Type: "cottage", AccommodationID: "acc-1", PricePerNight: 120, Available: true, Capacity: capPtr(2)},
			{ID: "room-2", Slug: "lakeview", Type: "cottage", AccommodationID: "acc-1", PricePerNight: 120, Available: true, Capacity: capPtr(2)},
			{ID: "room-3", Slug: "gardenia", Type: "villa", AccommodationID: "acc-2", PricePerNight: 300, Available: true, Capacity: capPtr(4)},
		},
		accommodations: []model.Accommodation{
			{ID: "acc-1", Slug: "lakeside-lodge", Name: "Lakeside Lodge"},
			{ID: "acc-2", Slug: "garden-villas", Name: "Garden Villas"},
		},
	}
}

func TestAdmit_AccommodationQuantitySelection(t *testing.T) {
	cfg := testConfig(t)
	svc := NewAdmissionService(&fakeBookingRepo{}, lodgeInventory(), testValidator(t),
		&fakeCoordinator{name: "primary"}, nil, &fakeEventSink{}, cfg)

	req := stdRequest()
	req.Guests = 4
	req.SelectedRooms = []string{"acc-1", "acc-1"}

	summary, err := svc.Admit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// An accommodation token expands to its rooms in room ID order.
	if len(summary.AllocatedRooms) != 2 ||
		summary.AllocatedRooms[0] != "room-1" || summary.AllocatedRooms[1] != "room-2" {
		t.Errorf("expected [room-1 room-2], got %v", summary.AllocatedRooms)
	}
}

func TestAdmit_AccommodationSlugSelection(t *testing.T) {
	cfg := testConfig(t)
	svc := NewAdmissionService(&fakeBookingRepo{}, lodgeInventory(), testValidator(t),
		&fakeCoordinator{name: "primary"}, nil, &fakeEventSink{}, cfg)

	req := stdRequest()
	req.SelectedRooms = []string{"Lakeside-Lodge"}

	summary, err := svc.Admit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.AllocatedRooms) != 1 || summary.AllocatedRooms[0] != "room-1" {
		t.Errorf("expected [room-1], got %v", summary.AllocatedRooms)
	}
}

func TestAdmit_AccommodationSelectionSkipsBusyRooms(t *testing.T) {
	cfg := testConfig(t)
	repo := &fakeBookingRepo{
		distinctBusyFunc: func(ctx context.Context, checkIn, checkOut time.Time) ([]string, error) {
			return []string{"room-1"}, nil
		},
	}
	svc := NewAdmissionService(repo, lodgeInventory(), testValidator(t),
		&fakeCoordinator{name: "primary"}, nil, &fakeEventSink{}, cfg)

	req := stdRequest()
	req.SelectedRooms = []string{"acc-1"}

	summary, err := svc.Admit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.AllocatedRooms) != 1 || summary.AllocatedRooms[0] != "room-2" {
		t.Errorf("expected [room-2], got %v", summary.AllocatedRooms)
	}
}

func TestAdmit_AccommodationSelectionInsufficientRooms(t *testing.T) {
	cfg := testConfig(t)
	svc := NewAdmissionService(&fakeBookingRepo{}, lodgeInventory(), testValidator(t),
		&fakeCoordinator{name: "primary"}, nil, &fakeEventSink{}, cfg)

	req := stdRequest()
	req.Guests = 6
	req.SelectedRooms = []string{"acc-1", "acc-1", "acc-1"}

	_, err := svc.Admit(context.Background(), req)
	if err == nil {
		t.Fatal("expected conflict")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected conflict code, got %s", appErr.Code)
	}
}

func TestAdmit_SelectedRoomBusy(t *testing.T) {
	cfg := testConfig(t)
	repo := &fakeBookingRepo{
		distinctBusyFunc: func(ctx context.Context, checkIn, checkOut time.Time) ([]string, error) {
			return []string{"room-3"}, nil
		},
	}
	svc := NewAdmissionService(repo, &fakeRoomSource{rooms: stdInventory()}, testValidator(t),
		&fakeCoordinator{name: "primary"}, nil, &fakeEventSink{}, cfg)

	req := stdRequest()
	req.SelectedRooms = []string{"room-3"}

	_, err := svc.Admit(context.Background(), req)
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected conflict code, got %s", appErr.Code)
	}
}

func TestAdmit_FallbackOnInfrastructureFailure(t *testing.T) {
	cfg := testConfig(t)
	primary := &fakeCoordinator{name: "transaction", reserveFunc: func(ctx context.Context, b *model.Booking) error {
		return apperrors.Internal("transactions unavailable", nil)
	}}
	fallback := &fakeCoordinator{name: "lock", reserveFunc: func(ctx context.Context, b *model.Booking) error {
		b.ID = "bk-via-lock"
		return nil
	}}
	svc := NewAdmissionService(&fakeBookingRepo{}, &fakeRoomSource{rooms: stdInventory()}, testValidator(t),
		primary, fallback, &fakeEventSink{}, cfg)

	summary, err := svc.Admit(context.Background(), stdRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.ID != "bk-via-lock" {
		t.Errorf("expected fallback booking, got %q", summary.ID)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("expected one attempt each, got primary=%d fallback=%d", primary.calls, fallback.calls)
	}
}

func TestAdmit_NoFallbackOnClientRejection(t *testing.T) {
	cfg := testConfig(t)
	primary := &fakeCoordinator{name: "transaction", reserveFunc: func(ctx context.Context, b *model.Booking) error {
		return apperrors.Busy("dates just taken")
	}}
	fallback := &fakeCoordinator{name: "lock"}
	svc := NewAdmissionService(&fakeBookingRepo{}, &fakeRoomSource{rooms: stdInventory()}, testValidator(t),
		primary, fallback, &fakeEventSink{}, cfg)

	_, err := svc.Admit(context.Background(), stdRequest())
	if err == nil {
		t.Fatal("expected rejection")
	}
	if fallback.calls != 0 {
		t.Errorf("fallback must not run on a client rejection, got %d calls", fallback.calls)
	}
}

func TestAdmit_InsufficientCapacity(t *testing.T) {
	cfg := testConfig(t)
	svc := NewAdmissionService(&fakeBookingRepo{}, &fakeRoomSource{rooms: stdInventory()}, testValidator(t),
		&fakeCoordinator{name: "primary"}, nil, &fakeEventSink{}, cfg)

	req := stdRequest()
	req.Guests = 20

	_, err := svc.Admit(context.Background(), req)
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected conflict code, got %s", appErr.Code)
	}
}

// memoryLedger mimics the unique (room_id, date) index for concurrency
/// tests: the first insert of a room-night wins, later ones collide.
type memoryLedger struct {
	mu    sync.Mutex
	taken map[string]string
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{taken: make(map[string]string)}
}

func (l *memoryLedger) InsertForStay(ctx context.Context, bookingID string, roomIDs []string, checkIn, checkOut time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, roomID := range roomIDs {
		for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
			key := roomID + "|" + d.Format("2006-01-02")
			if _, exists := l.taken[key]; exists {
				return bookingserrors.ErrNightTaken
			}
		}
	}
	for _, roomID := range roomIDs {
		for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
			l.taken[roomID+"|"+d.Format("2006-01-02")] = bookingID
		}
	}
	return nil
}

func (l *memoryLedger) DeleteByBooking(ctx context.Context, bookingID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for key, holder := range l.taken {
		if holder == bookingID {
			delete(l.taken, key)
			n++
		}
	}
	return n, nil
}

func (l *memoryLedger) FindByBooking(ctx context.Context, bookingID string) ([]*model.Occupancy, error) {
	return nil, nil
}

func TestAdmit_ConcurrentRequestsSingleWinner(t *testing.T) {
	cfg := testConfig(t)
	repo := &fakeBookingRepo{}
	ledger := newMemoryLedger()
	coordinator := NewTransactionCoordinator(repo, ledger, cfg)

	inventory := []model.Room{
		{ID: "room-1", Slug: "lakeview", PricePerNight: 120, Available: true, Capacity: capPtr(2)},
	}
	svc := NewAdmissionService(repo, &fakeRoomSource{rooms: inventory}, testValidator(t),
		coordinator, nil, &fakeEventSink{}, cfg)

	const attempts = 6
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Admit(context.Background(), stdRequest())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		if appErr := apperrors.AsAppError(err); appErr.Code == apperrors.CodeConflict {
			conflicts++
		} else {
			t.Errorf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
	if conflicts != attempts-1 {
		t.Errorf("expected %d conflicts, got %d", attempts-1, conflicts)
	}
}

func TestAdmit_SucceedsAfterOccupancyRelease(t *testing.T) {
	cfg := testConfig(t)
	repo := &fakeBookingRepo{}
	ledger := newMemoryLedger()
	coordinator := NewTransactionCoordinator(repo, ledger, cfg)

	inventory := []model.Room{
		{ID: "room-1", Slug: "lakeview", PricePerNight: 120, Available: true, Capacity: capPtr(2)},
	}
	svc := NewAdmissionService(repo, &fakeRoomSource{rooms: inventory}, testValidator(t),
		coordinator, nil, &fakeEventSink{}, cfg)

	winner, err := svc.Admit(context.Background(), stdRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Admit(context.Background(), stdRequest()); err == nil {
		t.Fatal("expected conflict while the nights are held")
	} else if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeConflict {
		t.Fatalf("expected conflict code, got %s", appErr.Code)
	}

	if _, err := ledger.DeleteByBooking(context.Background(), winner.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Admit(context.Background(), stdRequest()); err != nil {
		t.Fatalf("expected admission after release, got %v", err)
	}
}
