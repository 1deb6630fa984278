package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret = "JWT_SECRET"

	EnvOTAWebhookSecret  = "OTA_WEBHOOK_SECRET"
	EnvOTAWebhookSecrets = "OTA_WEBHOOK_SECRETS"

	EnvRateLimitRPS   = "RATE_LIMIT_RPS"
	EnvRateLimitBurst = "RATE_LIMIT_BURST"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvLockTTL            = "LOCK_TTL"
	EnvLockAcquireTimeout = "LOCK_ACQUIRE_TIMEOUT"
	EnvLockRetryInterval  = "LOCK_RETRY_INTERVAL"

	EnvMaxRoomsPerBooking = "MAX_ROOMS_PER_BOOKING"
	EnvTaxRate            = "TAX_RATE"

	EnvEventBufferSize = "EVENT_BUFFER_SIZE"

	EnvKafkaEnabled      = "KAFKA_ENABLED"
	EnvBookingEventTopic = "BOOKING_EVENT_TOPIC"
	EnvBookingEventDLQ   = "BOOKING_EVENT_DLQ"
	EnvOTAStreamTopic    = "OTA_STREAM_TOPIC"
	EnvOTAStreamDLQ      = "OTA_STREAM_DLQ"
	EnvOTAConsumerGroup  = "OTA_CONSUMER_GROUP"
)
