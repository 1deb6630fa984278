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

const LockCollectionName = "Booking_locks"

// LockRepository implements a TTL advisory lock over a Mongo collection.
// The lock key is the document _id; a TTL index on expires_at reclaims
// locks whose holders died without releasing.
type LockRepository interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) error
	AcquireWait(ctx context.Context, key, owner string, ttl, timeout, retryInterval time.Duration) error
	Release(ctx context.Context, key, owner string) error
	FindAll(ctx context.Context) ([]*model.ReservationLock, error)
}

type mongoLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoLockRepository(cfg *config.Config) LockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

// Acquire takes the lock in a single conditional upsert: it replaces the
// document only when it is absent or expired. A live holder makes the
// upsert collide on _id, which surfaces as a duplicate key error and maps
// to ErrLockBusy.
func (r *mongoLockRepository) Acquire(ctx context.Context, key, owner string, ttl time.Duration) error {
	now := time.Now().UTC()

	filter := bson.M{
		"_id":        key,
		"expires_at": bson.M{"$lte": now},
	}
	lock := model.ReservationLock{
		ID:        key,
		Owner:     owner,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	_, err := r.collection.ReplaceOne(ctx, filter, lock, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingserrors.ErrLockBusy
		}
		return fmt.Errorf("failed to acquire lock %q: %w", key, err)
	}

	return nil
}

// AcquireWait retries Acquire until it succeeds or the timeout elapses.
func (r *mongoLockRepository) AcquireWait(ctx context.Context, key, owner string, ttl, timeout, retryInterval time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		err := r.Acquire(ctx, key, owner, ttl)
		if err == nil {
			return nil
		}
		if err != bookingserrors.ErrLockBusy {
			return err
		}
		if time.Now().After(deadline) {
			return bookingserrors.ErrLockBusy
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// Release deletes the lock only when still held by owner, so an expired
// lock re-acquired by someone else is never stolen back.
func (r *mongoLockRepository) Release(ctx context.Context, key, owner string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": key, "owner": owner})
	if err != nil {
		return fmt.Errorf("failed to release lock %q: %w", key, err)
	}
	if result.DeletedCount == 0 {
		return bookingserrors.ErrLockNotHeld
	}
	return nil
}

func (r *mongoLockRepository) FindAll(ctx context.Context) ([]*model.ReservationLock, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list locks: %w", err)
	}
	defer cursor.Close(ctx)

	var locks []*model.ReservationLock
	if err = cursor.All(ctx, &locks); err != nil {
		return nil, fmt.Errorf("failed to decode locks: %w", err)
	}

	return locks, nil
}
