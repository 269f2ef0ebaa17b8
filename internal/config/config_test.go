package config_test

import (
	"testing"
	"time"

	"github.com/notifyhub/activity-reminders/internal/config"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reminders")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != "8080" || cfg.Env != "development" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected server/log defaults: %+v", cfg)
	}
	if cfg.NotificationStore != config.StoreRedis || cfg.NotificationCapacity != 100 ||
		cfg.NotificationStoreKey != "notifications:managers" {
		t.Fatalf("unexpected store defaults: %+v", cfg)
	}
	if cfg.JobMaxAttempts != 3 || cfg.JobBackoffBase != 2*time.Second {
		t.Fatalf("unexpected retry defaults: %d/%s", cfg.JobMaxAttempts, cfg.JobBackoffBase)
	}
	if cfg.ReminderCron != "0 9 * * *" || cfg.Timezone != "UTC" {
		t.Fatalf("unexpected schedule defaults: %q %q", cfg.ReminderCron, cfg.Timezone)
	}
	if cfg.JobRetention != 7*24*time.Hour {
		t.Fatalf("unexpected retention %s", cfg.JobRetention)
	}
	if cfg.SchedulerCatchUp != 24*time.Hour {
		t.Fatalf("unexpected catch-up window %s", cfg.SchedulerCatchUp)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reminders")
	t.Setenv("NOTIFICATION_STORE", "memory")
	t.Setenv("JOB_MAX_ATTEMPTS", "5")
	t.Setenv("JOB_BACKOFF_BASE", "250ms")
	t.Setenv("REMINDER_WORKERS", "3")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.NotificationStore != config.StoreMemory {
		t.Fatalf("expected memory store, got %q", cfg.NotificationStore)
	}
	if cfg.JobMaxAttempts != 5 || cfg.JobBackoffBase != 250*time.Millisecond || cfg.ReminderWorkers != 3 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.RedisDB != 0 {
		t.Fatalf("unparseable value should fall back to the default, got %d", cfg.RedisDB)
	}
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reminders")
	t.Setenv("NOTIFICATION_STORE", "memcached")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for unknown store")
	}
}

func TestLoad_RejectsCatchUpOutlivingRetention(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reminders")
	t.Setenv("JOB_RETENTION", "12h")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error when the catch-up window exceeds job retention")
	}
}

func TestLocation(t *testing.T) {
	cfg := &config.Config{Timezone: "UTC"}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC, got %v (%v)", loc, err)
	}

	cfg.Timezone = "Mars/Olympus_Mons"
	if _, err := cfg.Location(); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}
