package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	otaerrors "lagoonstay/internal/ota/errors"
	"lagoonstay/pkg/config"
	"lagoonstay/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Ota_bookings"

// MappingRepository stores the channel-to-internal booking bindings. The
// unique (source, external_id) index makes webhook replays land on the
// existing mapping.
type MappingRepository interface {
	Create(ctx context.Context, mapping *model.OTAMapping) error
	FindBySourceExternal(ctx context.Context, source, externalID string) (*model.OTAMapping, error)
	UpdateStatus(ctx context.Context, source, externalID, status string) error
	UpdateBinding(ctx context.Context, source, externalID, bookingID, status string) error
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.OTAMapping, error)
}

type mongoMappingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoMappingRepository(cfg *config.Config) MappingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoMappingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoMappingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoMappingRepository) Create(ctx context.Context, mapping *model.OTAMapping) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	mapping.CreatedAt = now
	mapping.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, mapping)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return otaerrors.ErrMappingExists
		}
		return fmt.Errorf("failed to create ota mapping: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		mapping.ID = oid.Hex()
	}
	return nil
}

func (r *mongoMappingRepository) FindBySourceExternal(ctx context.Context, source, externalID string) (*model.OTAMapping, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var mapping model.OTAMapping
	err := r.collection.FindOne(ctx, bson.M{"source": source, "external_id": externalID}).Decode(&mapping)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, otaerrors.ErrMappingNotFound
		}
		return nil, fmt.Errorf("failed to find ota mapping: %w", err)
	}

	return &mapping, nil
}

func (r *mongoMappingRepository) UpdateStatus(ctx context.Context, source, externalID, status string) error {
	return r.update(ctx, source, externalID, bson.M{
		"status":     status,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	})
}

// UpdateBinding repoints the mapping at a new internal booking, used when
// a modified channel booking is re-admitted.
func (r *mongoMappingRepository) UpdateBinding(ctx context.Context, source, externalID, bookingID, status string) error {
	return r.update(ctx, source, externalID, bson.M{
		"booking_id": bookingID,
		"status":     status,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	})
}

func (r *mongoMappingRepository) update(ctx context.Context, source, externalID string, set bson.M) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"source": source, "external_id": externalID},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("failed to update ota mapping: %w", err)
	}
	if result.MatchedCount == 0 {
		return otaerrors.ErrMappingNotFound
	}
	return nil
}

func (r *mongoMappingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.OTAMapping, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list ota mappings: %w", err)
	}
	defer cursor.Close(ctx)

	var mappings []*model.OTAMapping
	if err = cursor.All(ctx, &mappings); err != nil {
		return nil, fmt.Errorf("failed to decode ota mappings: %w", err)
	}

	return mappings, nil
}
