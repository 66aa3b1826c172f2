package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	CORSOrigins    []string
	UseMemoryQueue bool
	WorkerCount    int

	// Conversation engine
	SessionInactivityWindow time.Duration
	SessionLockTTL          time.Duration
	SessionLockWait         time.Duration
	DistributedLocks        bool
	CatalogCacheTTL         time.Duration
	MaxSlotsShown           int
	DateOptionsShown        int
	NumericDateOrder        string
	BookingNote             string
	InboundRatePerSecond    float64
	InboundRateBurst        int
	AdminJWTSecret          string
	DemoTenantID            string

	// AWS (SQS inbound queue, DynamoDB jobs, SES email)
	AWSRegion             string
	AWSAccessKeyID        string
	AWSSecretAccessKey    string
	AWSEndpointOverride   string
	ConversationQueueURL  string
	ConversationJobsTable string
	JobStore              string // memory, postgres or dynamodb; empty picks from the other settings

	// Reminders
	RemindersEnabled bool
	ReminderLeadTime time.Duration
	ReminderRedisDB  int

	// Email notifications
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	OutboxPollInterval time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		CORSOrigins:    getEnvAsList("CORS_ALLOWED_ORIGINS"),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", true),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 4),

		SessionInactivityWindow: getEnvAsDuration("SESSION_INACTIVITY_WINDOW", 24*time.Hour),
		SessionLockTTL:          getEnvAsDuration("SESSION_LOCK_TTL", 30*time.Second),
		SessionLockWait:         getEnvAsDuration("SESSION_LOCK_WAIT", 10*time.Second),
		DistributedLocks:        getEnvAsBool("DISTRIBUTED_LOCKS", false),
		CatalogCacheTTL:         getEnvAsDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		MaxSlotsShown:           getEnvAsInt("MAX_SLOTS_SHOWN", 10),
		DateOptionsShown:        getEnvAsInt("DATE_OPTIONS_SHOWN", 7),
		NumericDateOrder:        strings.ToLower(getEnv("NUMERIC_DATE_ORDER", "dmy")),
		BookingNote:             getEnv("BOOKING_NOTE", "booked via chat"),
		InboundRatePerSecond:    getEnvAsFloat("INBOUND_RATE_PER_SECOND", 1),
		InboundRateBurst:        getEnvAsInt("INBOUND_RATE_BURST", 5),
		AdminJWTSecret:          getEnv("ADMIN_JWT_SECRET", ""),
		DemoTenantID:            getEnv("DEMO_TENANT_ID", "demo"),

		AWSRegion:             getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:        getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:   getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		ConversationQueueURL:  getEnv("CONVERSATION_QUEUE_URL", ""),
		ConversationJobsTable: getEnv("CONVERSATION_JOBS_TABLE", "conversation_jobs"),
		JobStore:              strings.ToLower(getEnv("JOB_STORE", "")),

		RemindersEnabled: getEnvAsBool("REMINDERS_ENABLED", false),
		ReminderLeadTime: getEnvAsDuration("REMINDER_LEAD_TIME", 24*time.Hour),
		ReminderRedisDB:  getEnvAsInt("REMINDER_REDIS_DB", 1),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Salon Bookings"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		OutboxPollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
