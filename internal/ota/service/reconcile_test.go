package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	bookingssvc "lagoonstay/internal/bookings/service"
	otaerrors "lagoonstay/internal/ota/errors"
	"lagoonstay/pkg/config"
	apperrors "lagoonstay/pkg/errors"
	"lagoonstay/pkg/logger"
	"lagoonstay/pkg/model"
)

// ────────────────────────────────────────────────
// Fakes
// ────────────────────────────────────────────────

type fakeMappingRepo struct {
	mu       sync.Mutex
	mappings map[string]*model.OTAMapping

	createFunc func(ctx context.Context, mapping *model.OTAMapping) error
	findFunc   func(ctx context.Context, source, externalID string) (*model.OTAMapping, error)
}

func newFakeMappingRepo() *fakeMappingRepo {
	return &fakeMappingRepo{mappings: make(map[string]*model.OTAMapping)}
}

func mappingKey(source, externalID string) string { return source + "|" + externalID }

func (f *fakeMappingRepo) seed(mapping *model.OTAMapping) {
	f.mappings[mappingKey(mapping.Source, mapping.ExternalID)] = mapping
}

func (f *fakeMappingRepo) Create(ctx context.Context, mapping *model.OTAMapping) error {
	if f.createFunc != nil {
		return f.createFunc(ctx, mapping)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := mappingKey(mapping.Source, mapping.ExternalID)
	if _, exists := f.mappings[key]; exists {
		return otaerrors.ErrMappingExists
	}
	mapping.ID = "map-" + mapping.ExternalID
	f.mappings[key] = mapping
	return nil
}

func (f *fakeMappingRepo) FindBySourceExternal(ctx context.Context, source, externalID string) (*model.OTAMapping, error) {
	if f.findFunc != nil {
		return f.findFunc(ctx, source, externalID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	mapping, ok := f.mappings[mappingKey(source, externalID)]
	if !ok {
		return nil, otaerrors.ErrMappingNotFound
	}
	copied := *mapping
	return &copied, nil
}

func (f *fakeMappingRepo) UpdateStatus(ctx context.Context, source, externalID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	mapping, ok := f.mappings[mappingKey(source, externalID)]
	if !ok {
		return otaerrors.ErrMappingNotFound
	}
	mapping.Status = status
	return nil
}

func (f *fakeMappingRepo) UpdateBinding(ctx context.Context, source, externalID, bookingID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	mapping, ok := f.mappings[mappingKey(source, externalID)]
	if !ok {
		return otaerrors.ErrMappingNotFound
	}
	mapping.BookingID = bookingID
	mapping.Status = status
	return nil
}

func (f *fakeMappingRepo) FindAll(ctx context.Context, limit int, offset int64) ([]*model.OTAMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.OTAMapping
	for _, m := range f.mappings {
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

type fakeAdmission struct {
	requests  []*model.BookingRequest
	admitFunc func(ctx context.Context, req *model.BookingRequest) (*model.BookingSummary, error)
}

func (f *fakeAdmission) Admit(ctx context.Context, req *model.BookingRequest) (*model.BookingSummary, error) {
	f.requests = append(f.requests, req)
	if f.admitFunc != nil {
		return f.admitFunc(ctx, req)
	}
	return &model.BookingSummary{ID: "bk-new", Reference: "RB-NEW00001", Status: model.StatusConfirmed}, nil
}

type fakeBookings struct {
	cancelled []string
	released  []string
	deleted   []string

	getByIDFunc func(ctx context.Context, id string) (*model.Booking, error)
	cancelFunc  func(ctx context.Context, id string) (*model.Booking, error)
}

func (f *fakeBookings) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if f.getByIDFunc != nil {
		return f.getByIDFunc(ctx, id)
	}
	return &model.Booking{ID: id, Status: model.StatusConfirmed}, nil
}

func (f *fakeBookings) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	return nil, 0, nil
}

func (f *fakeBookings) GetByGuestEmail(ctx context.Context, email string, limit int, offset int64) ([]*model.Booking, error) {
	return nil, nil
}

func (f *fakeBookings) GetMine(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	return nil, nil
}

func (f *fakeBookings) Update(ctx context.Context, id string, update *bookingssvc.GuestUpdate) (*model.Booking, error) {
	return nil, nil
}

func (f *fakeBookings) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	f.cancelled = append(f.cancelled, id)
	if f.cancelFunc != nil {
		return f.cancelFunc(ctx, id)
	}
	return &model.Booking{ID: id, Status: model.StatusCancelled}, nil
}

func (f *fakeBookings) Checkout(ctx context.Context, id string) (*model.Booking, error) {
	return nil, nil
}

func (f *fakeBookings) Release(ctx context.Context, id string) (int64, error) {
	f.released = append(f.released, id)
	return 2, nil
}

func (f *fakeBookings) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBookings) AddMenuItem(ctx context.Context, id string, item model.MenuItem) (*model.Booking, error) {
	return nil, nil
}

func (f *fakeBookings) Bill(ctx context.Context, id string) (*bookingssvc.BillStatement, error) {
	return nil, nil
}

type fakeOccupancies struct {
	inserts []string
}

func (f *fakeOccupancies) InsertForStay(ctx context.Context, bookingID string, roomIDs []string, checkIn, checkOut time.Time) error {
	f.inserts = append(f.inserts, bookingID)
	return nil
}

func (f *fakeOccupancies) DeleteByBooking(ctx context.Context, bookingID string) (int64, error) {
	return 0, nil
}

func (f *fakeOccupancies) FindByBooking(ctx context.Context, bookingID string) ([]*model.Occupancy, error) {
	return nil, nil
}

func otaConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Log: logger.New(logger.Config{Service: "ota-test", Output: io.Discard}),
	}
}

func notification(status string) *model.OTANotification {
	return &model.OTANotification{
		Source:     "yatra",
		ExternalID: "YT-1",
		GuestName:  "Asha Verma",
		GuestEmail: "asha@example.com",
		CheckIn:    "2026-09-10",
		CheckOut:   "2026-09-12",
		RoomType:   "cottage",
		Guests:     2,
		Status:     status,
	}
}

// ────────────────────────────────────────────────
// Reconcile tests
// ────────────────────────────────────────────────

func TestReconcile_CreateAdmitsAndBinds(t *testing.T) {
	mappings := newFakeMappingRepo()
	admission := &fakeAdmission{}
	svc := NewReconcileService(mappings, &fakeOccupancies{}, admission, &fakeBookings{}, otaConfig(t))

	result, err := svc.Reconcile(context.Background(), notification("confirmed"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != ActionCreated || result.BookingID != "bk-new" {
		t.Errorf("unexpected result: %+v", result)
	}

	if len(admission.requests) != 1 {
		t.Fatalf("expected one admission, got %d", len(admission.requests))
	}
	req := admission.requests[0]
	if req.Payment == nil || req.Payment.OrderID != "yatra:YT-1" {
		t.Errorf("expected channel identity in payment order ID, got %+v", req.Payment)
	}
	if len(req.PreferredTypes) != 1 || req.PreferredTypes[0] != "cottage" {
		t.Errorf("expected room type preference, got %v", req.PreferredTypes)
	}

	mapping, err := mappings.FindBySourceExternal(context.Background(), "yatra", "YT-1")
	if err != nil {
		t.Fatalf("expected mapping, got %v", err)
	}
	if mapping.BookingID != "bk-new" || mapping.Status != model.StatusConfirmed {
		t.Errorf("unexpected mapping: %+v", mapping)
	}
}

func TestReconcile_CreateDefaultsGuestIdentity(t *testing.T) {
	admission := &fakeAdmission{}
	svc := NewReconcileService(newFakeMappingRepo(), &fakeOccupancies{}, admission, &fakeBookings{}, otaConfig(t))

	n := notification("confirmed")
	n.ExternalID = "YT-2"
	n.GuestName = ""
	n.GuestEmail = ""
	n.Guests = 0

	if _, err := svc.Reconcile(context.Background(), n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := admission.requests[0]
	if req.Guests != 1 {
		t.Errorf("expected default 1 guest, got %d", req.Guests)
	}
	if req.GuestName != "yatra guest YT-2" {
		t.Errorf("unexpected synthetic name: %q", req.GuestName)
	}
	if req.GuestEmail != "yatra.YT-2@channel.invalid" {
		t.Errorf("unexpected synthetic email: %q", req.GuestEmail)
	}
}

func TestReconcile_DuplicateDeliveryDefersToWinner(t *testing.T) {
	winner := &model.OTAMapping{Source: "yatra", ExternalID: "YT-1", BookingID: "bk-winner", Status: model.StatusConfirmed}

	calls := 0
	mappings := newFakeMappingRepo()
	mappings.findFunc = func(ctx context.Context, source, externalID string) (*model.OTAMapping, error) {
		calls++
		if calls == 1 {
			// The concurrent delivery has not bound yet at lookup time.
			return nil, otaerrors.ErrMappingNotFound
		}
		return winner, nil
	}
	mappings.createFunc = func(ctx context.Context, mapping *model.OTAMapping) error {
		return otaerrors.ErrMappingExists
	}

	bookings := &fakeBookings{}
	svc := NewReconcileService(mappings, &fakeOccupancies{}, &fakeAdmission{}, bookings, otaConfig(t))

	result, err := svc.Reconcile(context.Background(), notification("confirmed"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != ActionUnchanged || result.BookingID != "bk-winner" {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(bookings.deleted) != 1 || bookings.deleted[0] != "bk-new" {
		t.Errorf("expected duplicate booking dropped, got %v", bookings.deleted)
	}
}

func TestReconcile_CancelKnownBooking(t *testing.T) {
	mappings := newFakeMappingRepo()
	mappings.seed(&model.OTAMapping{Source: "yatra", ExternalID: "YT-1", BookingID: "bk-1", Status: model.StatusConfirmed})

	bookings := &fakeBookings{}
	svc := NewReconcileService(mappings, &fakeOccupancies{}, &fakeAdmission{}, bookings, otaConfig(t))

	result, err := svc.Reconcile(context.Background(), notification("cancelled"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != ActionCancelled || result.BookingID != "bk-1" {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(bookings.cancelled) != 1 || bookings.cancelled[0] != "bk-1" {
		t.Errorf("expected booking cancelled, got %v", bookings.cancelled)
	}

	mapping, _ := mappings.FindBySourceExternal(context.Background(), "yatra", "YT-1")
	if mapping.Status != model.StatusCancelled {
		t.Errorf("expected cancelled mapping, got %q", mapping.Status)
	}
}

func TestReconcile_CancelUnknownIsRecorded(t *testing.T) {
	mappings := newFakeMappingRepo()
	admission := &fakeAdmission{}
	svc := NewReconcileService(mappings, &fakeOccupancies{}, admission, &fakeBookings{}, otaConfig(t))

	result, err := svc.Reconcile(context.Background(), notification("canceled"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != ActionRecorded {
		t.Errorf("expected recorded action, got %q", result.Action)
	}
	if len(admission.requests) != 0 {
		t.Error("cancellation must not admit a booking")
	}

	mapping, err := mappings.FindBySourceExternal(context.Background(), "yatra", "YT-1")
	if err != nil {
		t.Fatalf("expected recorded mapping, got %v", err)
	}
	if mapping.Status != model.StatusCancelled || mapping.BookingID != "" {
		t.Errorf("unexpected mapping: %+v", mapping)
	}
}

func TestReconcile_CreateAfterCancellationIgnored(t *testing.T) {
	mappings := newFakeMappingRepo()
	mappings.seed(&model.OTAMapping{Source: "yatra", ExternalID: "YT-1", BookingID: "bk-1", Status: model.StatusCancelled})

	admission := &fakeAdmission{}
	svc := NewReconcileService(mappings, &fakeOccupancies{}, admission, &fakeBookings{}, otaConfig(t))

	result, err := svc.Reconcile(context.Background(), notification("confirmed"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != ActionUnchanged || result.BookingID != "bk-1" {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(admission.requests) != 0 {
		t.Error("cancelled mapping must not be re-admitted")
	}
}

func TestReconcile_ModifyReleasesAndReadmits(t *testing.T) {
	mappings := newFakeMappingRepo()
	mappings.seed(&model.OTAMapping{Source: "yatra", ExternalID: "YT-1", BookingID: "bk-old", Status: model.StatusConfirmed})

	bookings := &fakeBookings{}
	admission := &fakeAdmission{}
	svc := NewReconcileService(mappings, &fakeOccupancies{}, admission, bookings, otaConfig(t))

	result, err := svc.Reconcile(context.Background(), notification("confirmed"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != ActionModified || result.BookingID != "bk-new" {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(bookings.released) != 1 || bookings.released[0] != "bk-old" {
		t.Errorf("expected old booking released, got %v", bookings.released)
	}
	if len(bookings.cancelled) != 1 || bookings.cancelled[0] != "bk-old" {
		t.Errorf("expected old booking cancelled, got %v", bookings.cancelled)
	}

	mapping, _ := mappings.FindBySourceExternal(context.Background(), "yatra", "YT-1")
	if mapping.BookingID != "bk-new" || mapping.Status != model.StatusConfirmed {
		t.Errorf("expected rebound mapping, got %+v", mapping)
	}
}

func TestReconcile_ModifyRestoresOnRejection(t *testing.T) {
	mappings := newFakeMappingRepo()
	mappings.seed(&model.OTAMapping{Source: "yatra", ExternalID: "YT-1", BookingID: "bk-old", Status: model.StatusConfirmed})

	old := &model.Booking{
		ID:             "bk-old",
		AllocatedRooms: []string{"room-1"},
		Status:         model.StatusConfirmed,
	}
	bookings := &fakeBookings{
		getByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) { return old, nil },
	}
	admission := &fakeAdmission{
		admitFunc: func(ctx context.Context, req *model.BookingRequest) (*model.BookingSummary, error) {
			return nil, apperrors.Busy("dates taken")
		},
	}
	occupancies := &fakeOccupancies{}
	svc := NewReconcileService(mappings, occupancies, admission, bookings, otaConfig(t))

	_, err := svc.Reconcile(context.Background(), notification("confirmed"))
	if err == nil {
		t.Fatal("expected rejection to propagate")
	}
	if len(occupancies.inserts) != 1 || occupancies.inserts[0] != "bk-old" {
		t.Errorf("expected old occupancies restored, got %v", occupancies.inserts)
	}

	mapping, _ := mappings.FindBySourceExternal(context.Background(), "yatra", "YT-1")
	if mapping.BookingID != "bk-old" {
		t.Errorf("mapping must keep the old binding, got %+v", mapping)
	}
}

func TestReconcile_MissingIdentity(t *testing.T) {
	svc := NewReconcileService(newFakeMappingRepo(), &fakeOccupancies{}, &fakeAdmission{}, &fakeBookings{}, otaConfig(t))

	n := notification("confirmed")
	n.Source = ""

	_, err := svc.Reconcile(context.Background(), n)
	if err == nil {
		t.Fatal("expected error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeInvalidInput {
		t.Errorf("expected invalid input code, got %s", appErr.Code)
	}
}
