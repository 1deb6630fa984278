package main

import (
	"context"
	"fmt"
	"log"
	"time"

	mongoMigration "lagoonstay/internal/migrations/mongo"
	"lagoonstay/pkg/config"

	"github.com/joho/godotenv"
)

const JobName = "mongo-migration"

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()
	cfg := config.Load(JobName)
	cfg.SetMongo()
	cfg.Log.Info("Starting Mongo migration job")
	defer cfg.GracefulShutdown()
	migrateMongo(ctx, cfg)
	fmt.Println("Migration completed successfully.")
}

func migrateMongo(ctx context.Context, cfg *config.Config) {
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}
