package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	CORSOrigins        []string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration

	OverlapCheck          bool
	Currency              string
	TaxBps                int64
	DepositBps            int64
	DepositCapCents       int64
	InsurancePerDayCents  int64
	CancellationCutoff    time.Duration
	FullRefundBefore      time.Duration
	PartialRefundBps      int64
	ReminderSchedule      string
	ReminderWindow        time.Duration
	SandboxPayments       bool
	StripeSecretKey       string
	StripeWebhookSecret   string
	SendGridAPIKey        string
	MailFrom              string
	MailFromName          string
	TwilioAccountSID      string
	TwilioAuthToken       string
	TwilioFromNumber      string
	JWTSecret             string
	JWTIssuer             string
	JWTTTL                time.Duration
	S3Endpoint            string
	S3AccessKey           string
	S3SecretKey           string
	S3Bucket              string
	S3UseSSL              bool
	S3Region              string
	SupportEmail          string
	ReceiptsEnabled       bool
	SeedDemoCars          bool
	ShutdownGrace         time.Duration
	NotificationQueueSize int
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:                 getEnv("APP_ENV", "dev"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		MongoURI:            os.Getenv("MONGO_URI"),
		MongoDB:             getEnv("MONGO_DB", "rentcars"),
		KafkaTopicPrefix:    getEnv("KAFKA_TOPIC_PREFIX", ""),
		Currency:            strings.ToUpper(getEnv("BOOKING_CURRENCY", "USD")),
		ReminderSchedule:    getEnv("REMINDER_SCHEDULE", "@every 15m"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		SendGridAPIKey:      os.Getenv("SENDGRID_API_KEY"),
		MailFrom:            getEnv("MAIL_FROM", "bookings@rentcars.local"),
		MailFromName:        getEnv("MAIL_FROM_NAME", "RentCars"),
		TwilioAccountSID:    os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:     os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:    os.Getenv("TWILIO_FROM_NUMBER"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		JWTIssuer:           getEnv("JWT_ISSUER", "rentcars"),
		S3Endpoint:          os.Getenv("S3_ENDPOINT"),
		S3AccessKey:         os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:         os.Getenv("S3_SECRET_KEY"),
		S3Bucket:            getEnv("S3_BUCKET", "rentcars-receipts"),
		S3Region:            getEnv("S3_REGION", "us-east-1"),
		SupportEmail:        os.Getenv("SUPPORT_EMAIL"),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitList(brokers)
	}
	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "http://localhost:3000"))

	var err error
	durations := []struct {
		key    string
		def    time.Duration
		target *time.Duration
	}{
		{"IDEMP_TTL", 168 * time.Hour, &cfg.IdempotencyTTL},
		{"OUTBOX_POLL_INTERVAL", 500 * time.Millisecond, &cfg.OutboxPollInterval},
		{"CANCELLATION_CUTOFF", 24 * time.Hour, &cfg.CancellationCutoff},
		{"FULL_REFUND_BEFORE", 48 * time.Hour, &cfg.FullRefundBefore},
		{"REMINDER_WINDOW", 24 * time.Hour, &cfg.ReminderWindow},
		{"SHUTDOWN_GRACE", 10 * time.Second, &cfg.ShutdownGrace},
		{"JWT_TTL", 24 * time.Hour, &cfg.JWTTTL},
	}
	for _, d := range durations {
		if *d.target, err = parseDurationEnv(d.key, d.def); err != nil {
			return Config{}, err
		}
	}

	ints := []struct {
		key    string
		def    int64
		target *int64
	}{
		{"TAX_BPS", 800, &cfg.TaxBps},
		{"DEPOSIT_BPS", 5000, &cfg.DepositBps},
		{"DEPOSIT_CAP_CENTS", 50000, &cfg.DepositCapCents},
		{"INSURANCE_PER_DAY_CENTS", 1500, &cfg.InsurancePerDayCents},
		{"PARTIAL_REFUND_BPS", 5000, &cfg.PartialRefundBps},
	}
	for _, i := range ints {
		if *i.target, err = parseIntEnv(i.key, i.def); err != nil {
			return Config{}, err
		}
	}
	queueSize, err := parseIntEnv("NOTIFY_QUEUE_SIZE", 256)
	if err != nil {
		return Config{}, err
	}
	cfg.NotificationQueueSize = int(queueSize)

	bools := []struct {
		key    string
		def    bool
		target *bool
	}{
		{"BOOKING_OVERLAP_CHECK", true, &cfg.OverlapCheck},
		{"S3_USE_SSL", false, &cfg.S3UseSSL},
		{"RECEIPTS_ENABLED", true, &cfg.ReceiptsEnabled},
	}
	for _, b := range bools {
		if *b.target, err = parseBoolEnv(b.key, b.def); err != nil {
			return Config{}, err
		}
	}
	// sandbox payments and demo cars default on only when the real thing is absent
	if cfg.SandboxPayments, err = parseBoolEnv("SANDBOX_PAYMENTS", cfg.StripeSecretKey == ""); err != nil {
		return Config{}, err
	}
	if cfg.SeedDemoCars, err = parseBoolEnv("SEED_DEMO_CARS", cfg.MongoURI == ""); err != nil {
		return Config{}, err
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.CancellationCutoff > c.FullRefundBefore {
		return fmt.Errorf("CANCELLATION_CUTOFF (%s) must not exceed FULL_REFUND_BEFORE (%s)", c.CancellationCutoff, c.FullRefundBefore)
	}
	if c.PartialRefundBps < 0 || c.PartialRefundBps > 10000 {
		return fmt.Errorf("PARTIAL_REFUND_BPS must be within 0..10000, got %d", c.PartialRefundBps)
	}
	if c.TaxBps < 0 || c.DepositBps < 0 || c.DepositCapCents < 0 || c.InsurancePerDayCents < 0 {
		return fmt.Errorf("pricing settings cannot be negative")
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("BOOKING_CURRENCY must be an ISO 4217 code, got %q", c.Currency)
	}
	if !c.SandboxPayments && c.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required unless SANDBOX_PAYMENTS is on")
	}
	if c.SandboxPayments && c.Env == "prod" {
		return fmt.Errorf("SANDBOX_PAYMENTS cannot be used with APP_ENV=prod")
	}
	if c.JWTSecret == "" && c.Env == "prod" {
		return fmt.Errorf("JWT_SECRET is required with APP_ENV=prod")
	}
	return nil
}

// UsesMongo reports whether durable storage is configured.
func (c Config) UsesMongo() bool { return c.MongoURI != "" }

// UsesKafka reports whether domain events are published.
func (c Config) UsesKafka() bool { return len(c.KafkaBrokers) > 0 }

func (c Config) UsesS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c Config) UsesTwilio() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
