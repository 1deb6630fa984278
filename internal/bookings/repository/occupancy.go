package repository

import (
	"context"
	"fmt"
	"time"

	bookingserrors "lagoonstay/internal/bookings/errors"
	"lagoonstay/pkg/config"
	"lagoonstay/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const OccupancyCollectionName = "Occupancies"

// OccupancyRepository maintains the room-night ledger. One document per
// (room, night); the unique index on that pair rejects double bookings
// at the storage layer regardless of which admission path inserted them.
type OccupancyRepository interface {
	InsertForStay(ctx context.Context, bookingID string, roomIDs []string, checkIn, checkOut time.Time) error
	DeleteByBooking(ctx context.Context, bookingID string) (int64, error)
	FindByBooking(ctx context.Context, bookingID string) ([]*model.Occupancy, error)
}

type mongoOccupancyRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoOccupancyRepository(cfg *config.Config) OccupancyRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOccupancyRepository{
		cfg:        cfg,
		collection: db.Collection(OccupancyCollectionName),
	}
}

func (r *mongoOccupancyRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// StayNights expands a [checkIn, checkOut) stay into its occupied nights.
// The checkout day itself is not occupied.
func StayNights(checkIn, checkOut time.Time) []time.Time {
	var nights []time.Time
	for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d)
	}
	return nights
}

// InsertForStay claims every room-night of the stay with an ordered
// insert. A duplicate key on any night means another booking already
// holds it and surfaces as ErrNightTaken.
func (r *mongoOccupancyRepository) InsertForStay(ctx context.Context, bookingID string, roomIDs []string, checkIn, checkOut time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)

	var docs []interface{}
	for _, roomID := range roomIDs {
		for _, night := range StayNights(checkIn, checkOut) {
			docs = append(docs, model.Occupancy{
				RoomID:    roomID,
				Date:      night,
				BookingID: bookingID,
				CreatedAt: now,
			})
		}
	}
	if len(docs) == 0 {
		return nil
	}

	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", bookingserrors.ErrNightTaken, err)
		}
		return fmt.Errorf("failed to insert occupancies: %w", err)
	}

	return nil
}

func (r *mongoOccupancyRepository) DeleteByBooking(ctx context.Context, bookingID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete occupancies: %w", err)
	}

	return result.DeletedCount, nil
}

func (r *mongoOccupancyRepository) FindByBooking(ctx context.Context, bookingID string) ([]*model.Occupancy, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "room_id", Value: 1}, {Key: "date", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find occupancies: %w", err)
	}
	defer cursor.Close(ctx)

	var occupancies []*model.Occupancy
	if err = cursor.All(ctx, &occupancies); err != nil {
		return nil, fmt.Errorf("failed to decode occupancies: %w", err)
	}

	return occupancies, nil
}
