package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort             int
	SQLiteDSN            string
	SessionTTL           time.Duration
	AvailabilityCacheTTL time.Duration
	AdminEmail           string
	AdminPassword        string
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults; invalid values are reported together
// so one run surfaces every problem.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:             8080,
		SQLiteDSN:            "file:booking.db?_foreign_keys=on",
		SessionTTL:           24 * time.Hour,
		AvailabilityCacheTTL: 15 * time.Second,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("BOOKING_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "BOOKING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("BOOKING_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("BOOKING_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "BOOKING_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("BOOKING_AVAILABILITY_CACHE_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl < 0 {
			invalid = append(invalid, "BOOKING_AVAILABILITY_CACHE_TTL")
		} else {
			cfg.AvailabilityCacheTTL = ttl
		}
	}

	cfg.AdminEmail = strings.TrimSpace(os.Getenv("BOOKING_ADMIN_EMAIL"))
	cfg.AdminPassword = os.Getenv("BOOKING_ADMIN_PASSWORD")
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		invalid = append(invalid, "BOOKING_ADMIN_EMAIL/BOOKING_ADMIN_PASSWORD")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
