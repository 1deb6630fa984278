package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "lagoonstay"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultRateLimitRPS   = 20
	DefaultRateLimitBurst = 40

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100

	DefaultLockTTL            = 30 * time.Second
	DefaultLockAcquireTimeout = 5 * time.Second
	DefaultLockRetryInterval  = 100 * time.Millisecond

	DefaultMaxRoomsPerBooking = 4
	DefaultTaxRate            = 0.18

	DefaultEventBufferSize = 64

	DefaultKafkaEnabled      = false
	DefaultBookingEventTopic = "lagoonstay.bookings"
	DefaultBookingEventDLQ   = "lagoonstay.bookings.dlq"
	DefaultOTAStreamTopic    = "lagoonstay.ota"
	DefaultOTAStreamDLQ      = "lagoonstay.ota.dlq"
	DefaultOTAConsumerGroup  = "lagoonstay-ota-reconciler"
)
