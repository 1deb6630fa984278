package main

import (
	"context"

	adminhandler "lagoonstay/internal/admin/handler"
	bookinghandler "lagoonstay/internal/bookings/handler"
	bookingrepo "lagoonstay/internal/bookings/repository"
	bookingservice "lagoonstay/internal/bookings/service"
	"lagoonstay/internal/bookings/validator"
	otahandler "lagoonstay/internal/ota/handler"
	otarepo "lagoonstay/internal/ota/repository"
	otaservice "lagoonstay/internal/ota/service"
	roomhandler "lagoonstay/internal/rooms/handler"
	roomrepo "lagoonstay/internal/rooms/repository"
	"lagoonstay/pkg/app"
	"lagoonstay/pkg/config"
	mongotx "lagoonstay/pkg/db/mongo"
	"lagoonstay/pkg/events"
	"lagoonstay/pkg/kafka"
	kafka_config "lagoonstay/pkg/kafka/config"

	"github.com/joho/godotenv"
)

const ServiceName = "lagoonstay-server"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting LagoonStay server")

	serverApp := app.NewApplication(cfg)

	// Repositories
	bookingRepo := bookingrepo.NewMongoBookingRepository(cfg)
	occupancyRepo := bookingrepo.NewMongoOccupancyRepository(cfg)
	lockRepo := bookingrepo.NewMongoLockRepository(cfg)
	roomRepo := roomrepo.NewMongoRoomRepository(cfg)
	mappingRepo := otarepo.NewMongoMappingRepository(cfg)

	// The transaction path needs a replica set; standalone deployments
	// fall back to the advisory lock coordinator.
	primary, fallback := chooseCoordinators(cfg, bookingRepo, occupancyRepo, lockRepo)
	cfg.Log.Info("Reservation coordinator selected",
		"primary", primary.Name(),
		"fallback_available", fallback != nil,
	)

	// Events
	broadcaster := events.NewBroadcaster(cfg.EventBufferSize, cfg.Log)
	serverApp.OnShutdown(broadcaster.Close)

	var producer *kafka.Producer
	var kafkaCfg *kafka_config.Config
	if cfg.KafkaEnabled {
		kafkaCfg = kafka_config.Load()
		kafkaCfg.LogConfiguration(cfg.Log.Info)

		var err error
		producer, err = kafka.NewProducer(kafkaCfg, cfg.BookingEventTopic, cfg.BookingEventDLQ)
		if err != nil {
			cfg.Log.Fatal("Failed to create kafka producer", "error", err)
		}
		serverApp.OnShutdown(func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close kafka producer", "error", err)
			}
		})
	}
	publisher := events.NewPublisher(broadcaster, producer, cfg.Log)

	// Services
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	admission := bookingservice.NewAdmissionService(bookingRepo, roomRepo, bookingValidator, primary, fallback, publisher, cfg)
	bookingSvc := bookingservice.NewBookingService(bookingRepo, occupancyRepo, roomRepo, bookingValidator, publisher, cfg)
	reconcile := otaservice.NewReconcileService(mappingRepo, occupancyRepo, admission, bookingSvc, cfg)

	if cfg.KafkaEnabled {
		worker, err := otaservice.NewStreamWorker(reconcile, cfg, kafkaCfg, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create OTA stream worker", "error", err)
		}
		workerCtx, stopWorker := context.WithCancel(context.Background())
		go worker.Start(workerCtx)
		serverApp.OnShutdown(func() {
			stopWorker()
			if err := worker.Close(); err != nil {
				cfg.Log.Error("Failed to close OTA stream worker", "error", err)
			}
		})
	}

	serverApp.OnShutdown(cfg.GracefulShutdown)

	serverApp.SetApp(
		adminhandler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
		bookinghandler.NewBookingHandler(admission, bookingSvc, cfg.Log),
		roomhandler.NewRoomHandler(roomRepo, cfg.Log),
		otahandler.NewWebhookHandler(reconcile, cfg, cfg.Log),
		events.NewStreamHandler(broadcaster, cfg.Log),
		adminhandler.NewAdminHandler(lockRepo, primary.Name(), cfg.Log),
	)
	serverApp.Run()
}

func chooseCoordinators(
	cfg *config.Config,
	bookingRepo bookingrepo.BookingRepository,
	occupancyRepo bookingrepo.OccupancyRepository,
	lockRepo bookingrepo.LockRepository,
) (primary, fallback bookingservice.ReservationCoordinator) {
	txn := bookingservice.NewTransactionCoordinator(bookingRepo, occupancyRepo, cfg)
	lock := bookingservice.NewLockCoordinator(bookingRepo, occupancyRepo, lockRepo, cfg)

	probeCtx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
	defer cancel()

	tm := mongotx.NewTransactionManager(cfg.Client.Mongo)
	if mongotx.Supported(probeCtx, tm) {
		return txn, lock
	}

	cfg.Log.Warn("Multi-document transactions unavailable, using advisory lock coordinator")
	return lock, nil
}
