package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Logging
	Env      string
	LogLevel string

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Notification store: "redis" or "memory"
	NotificationStore    string
	NotificationStoreKey string
	NotificationCapacity int

	// Retry policy applied to every enqueued job
	JobMaxAttempts    int
	JobBackoffBase    time.Duration
	JobHandlerTimeout time.Duration

	// Worker counts per job kind
	NotificationWorkers int
	ReminderWorkers     int

	// Rate limiting: maximum handler starts per second per job kind
	RateLimit int

	// Background loop intervals
	DispatchInterval time.Duration
	ReaperInterval   time.Duration
	JobRetention     time.Duration

	// Daily reminder schedule
	ReminderCron      string
	SchedulerInterval time.Duration
	// Occurrences this far in the past are fired at startup. Must stay below
	// JobRetention so a fire from before a restart is still deduplicated.
	SchedulerCatchUp  time.Duration
	Timezone          string
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		NotificationStore:    getEnv("NOTIFICATION_STORE", StoreRedis),
		NotificationStoreKey: getEnv("NOTIFICATION_STORE_KEY", "notifications:managers"),
		NotificationCapacity: getInt("NOTIFICATION_CAPACITY", 100),

		JobMaxAttempts:    getInt("JOB_MAX_ATTEMPTS", 3),
		JobBackoffBase:    getDuration("JOB_BACKOFF_BASE", 2*time.Second),
		JobHandlerTimeout: getDuration("JOB_HANDLER_TIMEOUT", 30*time.Second),

		NotificationWorkers: getInt("NOTIFICATION_WORKERS", 5),
		ReminderWorkers:     getInt("REMINDER_WORKERS", 1),

		RateLimit: getInt("RATE_LIMIT_PER_KIND", 50),

		DispatchInterval: getDuration("DISPATCH_INTERVAL", 500*time.Millisecond),
		ReaperInterval:   getDuration("REAPER_INTERVAL", 10*time.Second),
		JobRetention:     getDuration("JOB_RETENTION", 168*time.Hour),

		ReminderCron:      getEnv("REMINDER_CRON", "0 9 * * *"),
		SchedulerInterval: getDuration("SCHEDULER_INTERVAL", 30*time.Second),
		SchedulerCatchUp:  getDuration("SCHEDULER_CATCHUP", 24*time.Hour),
		Timezone:          getEnv("TIMEZONE", "UTC"),
	}

	switch cfg.NotificationStore {
	case StoreRedis, StoreMemory:
	default:
		return nil, fmt.Errorf("NOTIFICATION_STORE must be %q or %q, got %q", StoreRedis, StoreMemory, cfg.NotificationStore)
	}

	if cfg.SchedulerCatchUp >= cfg.JobRetention {
		return nil, fmt.Errorf("SCHEDULER_CATCHUP (%s) must be shorter than JOB_RETENTION (%s)", cfg.SchedulerCatchUp, cfg.JobRetention)
	}

	return cfg, nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
