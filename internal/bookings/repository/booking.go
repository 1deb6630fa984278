package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "lagoonstay/internal/bookings/errors"
	"lagoonstay/pkg/config"
	mongotx "lagoonstay/pkg/db/mongo"
	"lagoonstay/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

// activeStatuses are the statuses that hold room nights.
var activeStatuses = []string{model.StatusPending, model.StatusConfirmed}

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error)
	FindByGuestEmail(ctx context.Context, email string, limit int, offset int64) ([]*model.Booking, error)
	FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error)
	FindByPayment(ctx context.Context, paymentID, orderID string) (*model.Booking, error)
	Update(ctx context.Context, id string, booking *model.Booking) (*mongo.UpdateResult, error)
	UpdateStatus(ctx context.Context, id string, status string) error
	AddMenuItem(ctx context.Context, id string, item model.MenuItem, newTotal float64) error
	Delete(ctx context.Context, id string) error
	DistinctBusyRoomIDs(ctx context.Context, checkIn, checkOut time.Time) ([]string, error)
	CountOverlapping(ctx context.Context, roomIDs []string, checkIn, checkOut time.Time, excludeBookingID string) (int64, error)
	Count(ctx context.Context) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.CreatedAt = now
	booking.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}

	var booking model.Booking
	err = r.collection.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	return r.findMany(ctx, bson.M{}, limit, offset)
}

func (r *mongoBookingRepository) FindByGuestEmail(ctx context.Context, email string, limit int, offset int64) ([]*model.Booking, error) {
	return r.findMany(ctx, bson.M{"guest_email": email}, limit, offset)
}

func (r *mongoBookingRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	return r.findMany(ctx, bson.M{"user_id": userID}, limit, offset)
}

func (r *mongoBookingRepository) findMany(ctx context.Context, filter bson.M, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "check_in", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

// FindByPayment looks up a booking by payment or order reference. Used for
// payment idempotency: a retried webhook or client must get the original
// booking back instead of double booking.
func (r *mongoBookingRepository) FindByPayment(ctx context.Context, paymentID, orderID string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var conditions []bson.M
	if paymentID != "" {
		conditions = append(conditions, bson.M{"payment.payment_id": paymentID})
	}
	if orderID != "" {
		conditions = append(conditions, bson.M{"payment.order_id": orderID})
	}
	if len(conditions) == 0 {
		return nil, bookingserrors.ErrNotFound
	}

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"$or": conditions}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking by payment: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) Update(ctx context.Context, id string, booking *model.Booking) (*mongo.UpdateResult, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	update := bson.M{
		"$set": bson.M{
			"guest_name":        booking.GuestName,
			"guest_email":       booking.GuestEmail,
			"guest_phone":       booking.GuestPhone,
			"guests":            booking.Guests,
			"check_in":          booking.CheckIn,
			"check_out":         booking.CheckOut,
			"nights":            booking.Nights,
			"allocated_rooms":   booking.AllocatedRooms,
			"selected_programs": booking.SelectedPrograms,
			"price_breakdown":   booking.PriceBreakdown,
			"status":            booking.Status,
			"updated_at":        time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	if result.MatchedCount == 0 {
		return nil, bookingserrors.ErrNotFound
	}

	return result, nil
}

func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	update := bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}

	return nil
}

func (r *mongoBookingRepository) AddMenuItem(ctx context.Context, id string, item model.MenuItem, newTotal float64) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$push": bson.M{"menu_items": item},
		"$set": bson.M{
			"menu_total": newTotal,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to add menu item: %w", err)
	}

	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}

	return nil
}

func (r *mongoBookingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	if result.DeletedCount == 0 {
		return bookingserrors.ErrNotFound
	}

	return nil
}

// DistinctBusyRoomIDs returns the rooms held by active bookings whose stay
// overlaps [checkIn, checkOut).
func (r *mongoBookingRepository) DistinctBusyRoomIDs(ctx context.Context, checkIn, checkOut time.Time) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":    bson.M{"$in": activeStatuses},
		"check_in":  bson.M{"$lt": checkOut},
		"check_out": bson.M{"$gt": checkIn},
	}

	values, err := r.collection.Distinct(ctx, "allocated_rooms", filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find busy rooms: %w", err)
	}

	roomIDs := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			roomIDs = append(roomIDs, id)
		}
	}
	return roomIDs, nil
}

// CountOverlapping counts active bookings that hold any of the given rooms
// over [checkIn, checkOut). excludeBookingID skips one booking, used when
// re-admitting a modified booking.
func (r *mongoBookingRepository) CountOverlapping(ctx context.Context, roomIDs []string, checkIn, checkOut time.Time, excludeBookingID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":          bson.M{"$in": activeStatuses},
		"allocated_rooms": bson.M{"$in": roomIDs},
		"check_in":        bson.M{"$lt": checkOut},
		"check_out":       bson.M{"$gt": checkIn},
	}

	if excludeBookingID != "" {
		if objectID, err := primitive.ObjectIDFromHex(excludeBookingID); err == nil {
			filter["_id"] = bson.M{"$ne": objectID}
		}
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	return count, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
