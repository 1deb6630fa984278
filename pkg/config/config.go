package config

import (
	"fmt"
	"lagoonstay/pkg/client"
	"lagoonstay/pkg/logger"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	JWTSecret string

	// OTAWebhookSecret is the fallback HMAC secret for channel webhooks;
	// OTAWebhookSecrets holds per-provider overrides keyed by source name.
	OTAWebhookSecret  string
	OTAWebhookSecrets map[string]string

	RateLimitRPS   int
	RateLimitBurst int

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	LockTTL            time.Duration
	LockAcquireTimeout time.Duration
	LockRetryInterval  time.Duration

	MaxRoomsPerBooking int
	TaxRate            float64

	EventBufferSize int

	KafkaEnabled      bool
	BookingEventTopic string
	BookingEventDLQ   string
	OTAStreamTopic    string
	OTAStreamDLQ      string
	OTAConsumerGroup  string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		OTAWebhookSecret:  getEnvStr(EnvOTAWebhookSecret, ""),
		OTAWebhookSecrets: parseSecretMap(getEnvStr(EnvOTAWebhookSecrets, "")),

		RateLimitRPS:   getEnvNum(EnvRateLimitRPS, DefaultRateLimitRPS),
		RateLimitBurst: getEnvNum(EnvRateLimitBurst, DefaultRateLimitBurst),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		LockTTL:            getEnvDuration(EnvLockTTL, DefaultLockTTL),
		LockAcquireTimeout: getEnvDuration(EnvLockAcquireTimeout, DefaultLockAcquireTimeout),
		LockRetryInterval:  getEnvDuration(EnvLockRetryInterval, DefaultLockRetryInterval),

		MaxRoomsPerBooking: getEnvNum(EnvMaxRoomsPerBooking, DefaultMaxRoomsPerBooking),
		TaxRate:            getEnvFloat(EnvTaxRate, DefaultTaxRate),

		EventBufferSize: getEnvNum(EnvEventBufferSize, DefaultEventBufferSize),

		KafkaEnabled:      getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		BookingEventTopic: getEnvStr(EnvBookingEventTopic, DefaultBookingEventTopic),
		BookingEventDLQ:   getEnvStr(EnvBookingEventDLQ, DefaultBookingEventDLQ),
		OTAStreamTopic:    getEnvStr(EnvOTAStreamTopic, DefaultOTAStreamTopic),
		OTAStreamDLQ:      getEnvStr(EnvOTAStreamDLQ, DefaultOTAStreamDLQ),
		OTAConsumerGroup:  getEnvStr(EnvOTAConsumerGroup, DefaultOTAConsumerGroup),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// OTASecret returns the webhook secret for the given channel source,
// falling back to the shared secret. An empty result disables signature
// verification for that source.
func (cfg *Config) OTASecret(source string) string {
	if s, ok := cfg.OTAWebhookSecrets[strings.ToLower(source)]; ok {
		return s
	}
	return cfg.OTAWebhookSecret
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	for name, d := range map[string]time.Duration{
		"MongoConnTimeout":   cfg.MongoConnTimeout,
		"RequestTimeout":     cfg.RequestTimeout,
		"IdempotencyTTL":     cfg.IdempotencyTTL,
		"ReadTimeout":        cfg.ReadTimeout,
		"WriteTimeout":       cfg.WriteTimeout,
		"IdleTimeout":        cfg.IdleTimeout,
		"ShutdownTimeout":    cfg.ShutdownTimeout,
		"LockTTL":            cfg.LockTTL,
		"LockAcquireTimeout": cfg.LockAcquireTimeout,
		"LockRetryInterval":  cfg.LockRetryInterval,
	} {
		if d <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", name, d))
		}
	}

	if cfg.LockRetryInterval >= cfg.LockAcquireTimeout {
		errors = append(errors, fmt.Sprintf("LockRetryInterval (%s) must be shorter than LockAcquireTimeout (%s)", cfg.LockRetryInterval, cfg.LockAcquireTimeout))
	}

	if cfg.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRPS must be positive, got: %d", cfg.RateLimitRPS))
	}
	if cfg.RateLimitBurst < cfg.RateLimitRPS {
		errors = append(errors, fmt.Sprintf("RateLimitBurst (%d) must be >= RateLimitRPS (%d)", cfg.RateLimitBurst, cfg.RateLimitRPS))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.MaxRoomsPerBooking < 1 {
		errors = append(errors, fmt.Sprintf("MaxRoomsPerBooking must be at least 1, got: %d", cfg.MaxRoomsPerBooking))
	}
	if cfg.TaxRate < 0 || cfg.TaxRate >= 1 {
		errors = append(errors, fmt.Sprintf("TaxRate must be in [0, 1), got: %g", cfg.TaxRate))
	}
	if cfg.EventBufferSize <= 0 {
		errors = append(errors, fmt.Sprintf("EventBufferSize must be positive, got: %d", cfg.EventBufferSize))
	}

	if cfg.KafkaEnabled {
		if cfg.BookingEventTopic == "" {
			errors = append(errors, "BookingEventTopic cannot be empty when Kafka is enabled")
		}
		if cfg.OTAStreamTopic == "" {
			errors = append(errors, "OTAStreamTopic cannot be empty when Kafka is enabled")
		}
		if cfg.OTAConsumerGroup == "" {
			errors = append(errors, "OTAConsumerGroup cannot be empty when Kafka is enabled")
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"ota_secret_set", cfg.OTAWebhookSecret != "",
		"ota_provider_secrets", len(cfg.OTAWebhookSecrets),
		"rate_limit_rps", cfg.RateLimitRPS,
		"rate_limit_burst", cfg.RateLimitBurst,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"lock_ttl", cfg.LockTTL,
		"lock_acquire_timeout", cfg.LockAcquireTimeout,
		"lock_retry_interval", cfg.LockRetryInterval,
		"max_rooms_per_booking", cfg.MaxRoomsPerBooking,
		"tax_rate", cfg.TaxRate,
		"event_buffer_size", cfg.EventBufferSize,
		"kafka_enabled", cfg.KafkaEnabled,
		"booking_event_topic", cfg.BookingEventTopic,
		"ota_stream_topic", cfg.OTAStreamTopic,
		"ota_consumer_group", cfg.OTAConsumerGroup,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

// parseSecretMap parses "source:secret,source2:secret2" pairs.
func parseSecretMap(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		source, secret, found := strings.Cut(pair, ":")
		if !found || source == "" || secret == "" {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(source))] = strings.TrimSpace(secret)
	}
	return out
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
