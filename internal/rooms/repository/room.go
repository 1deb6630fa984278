package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	roomserrors "lagoonstay/internal/rooms/errors"
	"lagoonstay/pkg/config"
	"lagoonstay/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	RoomCollectionName          = "Rooms"
	AccommodationCollectionName = "Accommodations"
	ProgramCollectionName       = "Wellness_programs"
)

// RoomRepository serves the room catalog, accommodations and wellness
// programs. Catalog data is reference inventory; all lookups are reads.
type RoomRepository interface {
	FindAvailable(ctx context.Context) ([]model.Room, error)
	FindAll(ctx context.Context) ([]model.Room, error)
	FindByID(ctx context.Context, id string) (*model.Room, error)
	FindByAccommodation(ctx context.Context, accommodationID string) ([]model.Room, error)
	FindAccommodations(ctx context.Context) ([]model.Accommodation, error)
	FindPrograms(ctx context.Context) ([]model.WellnessProgram, error)
	FindProgramsByIDs(ctx context.Context, ids []string) ([]model.WellnessProgram, error)
}

type mongoRoomRepository struct {
	cfg            *config.Config
	rooms          *mongo.Collection
	accommodations *mongo.Collection
	programs       *mongo.Collection
}

func NewMongoRoomRepository(cfg *config.Config) RoomRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRoomRepository{
		cfg:            cfg,
		rooms:          db.Collection(RoomCollectionName),
		accommodations: db.Collection(AccommodationCollectionName),
		programs:       db.Collection(ProgramCollectionName),
	}
}

func (r *mongoRoomRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoRoomRepository) FindAvailable(ctx context.Context) ([]model.Room, error) {
	return r.findRooms(ctx, bson.M{"available": true})
}

func (r *mongoRoomRepository) FindAll(ctx context.Context) ([]model.Room, error) {
	return r.findRooms(ctx, bson.M{})
}

func (r *mongoRoomRepository) findRooms(ctx context.Context, filter bson.M) ([]model.Room, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.rooms.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find rooms: %w", err)
	}
	defer cursor.Close(ctx)

	var rooms []model.Room
	if err = cursor.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("failed to decode rooms: %w", err)
	}

	return rooms, nil
}

func (r *mongoRoomRepository) FindByID(ctx context.Context, id string) (*model.Room, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var room model.Room
	err := r.rooms.FindOne(ctx, bson.M{"$or": []bson.M{{"_id": id}, {"slug": id}}}).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, roomserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}

	return &room, nil
}

func (r *mongoRoomRepository) FindByAccommodation(ctx context.Context, accommodationID string) ([]model.Room, error) {
	return r.findRooms(ctx, bson.M{"accommodation_id": accommodationID})
}

func (r *mongoRoomRepository) FindAccommodations(ctx context.Context) ([]model.Accommodation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.accommodations.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find accommodations: %w", err)
	}
	defer cursor.Close(ctx)

	var accommodations []model.Accommodation
	if err = cursor.All(ctx, &accommodations); err != nil {
		return nil, fmt.Errorf("failed to decode accommodations: %w", err)
	}

	return accommodations, nil
}

func (r *mongoRoomRepository) FindPrograms(ctx context.Context) ([]model.WellnessProgram, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.programs.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find wellness programs: %w", err)
	}
	defer cursor.Close(ctx)

	var programs []model.WellnessProgram
	if err = cursor.All(ctx, &programs); err != nil {
		return nil, fmt.Errorf("failed to decode wellness programs: %w", err)
	}

	return programs, nil
}

// FindProgramsByIDs resolves the given program IDs. Unknown IDs are
// skipped silently; a booking with a stale program reference prices
// without it instead of failing.
func (r *mongoRoomRepository) FindProgramsByIDs(ctx context.Context, ids []string) ([]model.WellnessProgram, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.programs.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find wellness programs: %w", err)
	}
	defer cursor.Close(ctx)

	var programs []model.WellnessProgram
	if err = cursor.All(ctx, &programs); err != nil {
		return nil, fmt.Errorf("failed to decode wellness programs: %w", err)
	}

	return programs, nil
}
