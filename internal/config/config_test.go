package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DataBackend != "memory" {
		t.Fatalf("expected default backend memory, got %s", cfg.DataBackend)
	}
	if cfg.AMQPExchange != "bilancio" || cfg.AMQPQueue != "report_sync" {
		t.Fatalf("unexpected AMQP defaults: %s %s", cfg.AMQPExchange, cfg.AMQPQueue)
	}
	if cfg.SnapshotSchedule != "0 6 1 * *" {
		t.Fatalf("unexpected snapshot schedule: %s", cfg.SnapshotSchedule)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATA_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/bilancio")
	t.Setenv("SESSION_TTL", "2h")

	cfg := Load()
	if cfg.Port != "9000" || cfg.DataBackend != "postgres" {
		t.Fatalf("environment not applied: %+v", cfg)
	}
	if cfg.SessionTTL.Hours() != 2 {
		t.Fatalf("expected 2h TTL, got %v", cfg.SessionTTL)
	}
}

func TestValidate(t *testing.T) {
	t.Run("defaults pass", func(t *testing.T) {
		if err := Load().Validate(); err != nil {
			t.Fatalf("default config should validate: %v", err)
		}
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := Load()
		cfg.Port = "not-a-port"
		requireError(t, cfg, "invalid port")
	})

	t.Run("port out of range", func(t *testing.T) {
		cfg := Load()
		cfg.Port = "70000"
		requireError(t, cfg, "must be between")
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := Load()
		cfg.DataBackend = "redis"
		requireError(t, cfg, "invalid data backend")
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		cfg := Load()
		cfg.DataBackend = "postgres"
		requireError(t, cfg, "POSTGRES_DSN is required")
	})

	t.Run("bad amqp scheme", func(t *testing.T) {
		cfg := Load()
		cfg.AMQPURL = "http://broker:5672"
		requireError(t, cfg, "AMQP URL scheme")
	})

	t.Run("amqp url without names", func(t *testing.T) {
		cfg := Load()
		cfg.AMQPURL = "amqp://broker:5672"
		cfg.AMQPExchange = ""
		cfg.AMQPQueue = ""
		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "exchange") || !strings.Contains(err.Error(), "queue") {
			t.Fatalf("expected both problems reported, got: %v", err)
		}
	})

	t.Run("spreadsheet without sheet name", func(t *testing.T) {
		cfg := Load()
		cfg.GoogleSpreadsheetID = "abc123"
		cfg.GoogleSheetName = ""
		requireError(t, cfg, "GOOGLE_SHEET_NAME")
	})

	t.Run("session ttl too short", func(t *testing.T) {
		cfg := Load()
		cfg.SessionTTL = 0
		requireError(t, cfg, "session TTL")
	})

	t.Run("empty snapshot schedule", func(t *testing.T) {
		cfg := Load()
		cfg.SnapshotSchedule = "  "
		requireError(t, cfg, "snapshot schedule")
	})
}

func requireError(t *testing.T, cfg *Config, fragment string) {
	t.Helper()
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected error containing %q", fragment)
	}
	if !strings.Contains(err.Error(), fragment) {
		t.Fatalf("expected error containing %q, got: %v", fragment, err)
	}
}
