package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		unset := []string{
			"BOOKING_HTTP_PORT",
			"BOOKING_SQLITE_DSN",
			"BOOKING_SESSION_TTL",
			"BOOKING_AVAILABILITY_CACHE_TTL",
			"BOOKING_ADMIN_EMAIL",
			"BOOKING_ADMIN_PASSWORD",
		}
		for _, key := range unset {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:booking.db?_foreign_keys=on" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.SessionTTL != 24*time.Hour {
			t.Fatalf("expected default session TTL 24h, got %s", cfg.SessionTTL)
		}
		if cfg.AvailabilityCacheTTL != 15*time.Second {
			t.Fatalf("expected default cache TTL 15s, got %s", cfg.AvailabilityCacheTTL)
		}
	})

	t.Run("parses duration and numeric fields", func(t *testing.T) {
		t.Setenv("BOOKING_HTTP_PORT", "9090")
		t.Setenv("BOOKING_SQLITE_DSN", "file:/tmp/booking.db")
		t.Setenv("BOOKING_SESSION_TTL", "12h")
		t.Setenv("BOOKING_AVAILABILITY_CACHE_TTL", "30s")
		t.Setenv("BOOKING_ADMIN_EMAIL", "admin@example.com")
		t.Setenv("BOOKING_ADMIN_PASSWORD", "bootstrap-pass")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:/tmp/booking.db" {
			t.Fatalf("unexpected DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.SessionTTL != 12*time.Hour {
			t.Fatalf("expected session TTL 12h, got %s", cfg.SessionTTL)
		}
		if cfg.AvailabilityCacheTTL != 30*time.Second {
			t.Fatalf("expected cache TTL 30s, got %s", cfg.AvailabilityCacheTTL)
		}
		if cfg.AdminEmail != "admin@example.com" {
			t.Fatalf("unexpected admin email: %q", cfg.AdminEmail)
		}
	})

	t.Run("errors when values are invalid", func(t *testing.T) {
		t.Setenv("BOOKING_HTTP_PORT", "not-a-port")
		t.Setenv("BOOKING_SESSION_TTL", "yesterday")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		for _, key := range []string{"BOOKING_HTTP_PORT", "BOOKING_SESSION_TTL"} {
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("expected error to name %s, got %q", key, err.Error())
			}
		}
	})

	t.Run("errors when admin bootstrap is half configured", func(t *testing.T) {
		t.Setenv("BOOKING_ADMIN_EMAIL", "admin@example.com")
		if err := os.Unsetenv("BOOKING_ADMIN_PASSWORD"); err != nil {
			t.Fatalf("failed to unset BOOKING_ADMIN_PASSWORD: %v", err)
		}

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when only the admin email is set")
		}
	})
}
