package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lagoonstay/internal/migrations/mongo/validators"
)

var (
	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "allocated_rooms", Value: 1},
			{Key: "check_in", Value: 1},
			{Key: "check_out", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "check_in", Value: 1},
		}},
		{Keys: bson.D{{Key: "guest_email", Value: 1}}},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "payment.payment_id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "payment.order_id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	// The unique (room_id, date) index is the double-booking guard; every
	// admission path relies on it, so it is never optional.
	OccupanciesIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "booking_id", Value: 1}}},
	}

	// expireAfterSeconds 0 makes Mongo reap a lock the moment expires_at
	// passes, reclaiming locks from crashed holders.
	BookingLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	OTABookingsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "source", Value: 1},
				{Key: "external_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "updated_at", Value: -1}}},
	}

	// Slug is deliberately non-unique: rooms of the same category share a
	// slug and selection by slug resolves to however many are needed.
	RoomsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}},
		{Keys: bson.D{
			{Key: "available", Value: 1},
			{Key: "accommodation_id", Value: 1},
		}},
	}

	AccommodationsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("🚀 Running LagoonStay Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Bookings": {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		"Occupancies": {
			Indexes:   OccupanciesIndexes,
			Validator: validators.OccupancyValidator,
		},
		"Booking_locks": {
			Indexes:   BookingLocksIndexes,
			Validator: validators.ReservationLockValidator,
		},
		"Ota_bookings": {
			Indexes:   OTABookingsIndexes,
			Validator: validators.OTABookingValidator,
		},
		"Rooms": {
			Indexes: RoomsIndexes,
		},
		"Accommodations": {
			Indexes: AccommodationsIndexes,
		},
		"Wellness_programs": {},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts = opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		fmt.Printf("ℹ️ Collection %s already exists\n", name)
		return nil
	}

	fmt.Printf("ℹ️ Collection %s already exists — updating validator if needed\n", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	if len(models) == 0 {
		return nil
	}
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}
