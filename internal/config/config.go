// Package config loads application configuration from environment
// variables.  An optional .env file in the working directory is read first;
// variables already present in the environment take precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the core runtime configuration.  Concern-specific settings
// (cache, rate limit, queue) have their own loaders in this package.
type Config struct {
	Env        string // application environment (dev, test, prod)
	Port       string // HTTP port to listen on
	DBUser     string
	DBPass     string // may be empty
	DBHost     string
	DBPort     string
	DBName     string
	DBMigrate  bool   // apply the embedded schema on startup
	JWTSecret  string // HMAC secret used to verify bearer tokens
	MaxTickets int    // upper bound on tickets per reservation request
}

// Load reads .env (if present) and then the process environment.  Every
// missing required variable is reported in the returned error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var missing []error
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			missing = append(missing, fmt.Errorf("missing required env var: %s", key))
		}
		return v
	}

	cfg := Config{
		Env:        envStr("APP_ENV", "dev"),
		Port:       envStr("APP_PORT", "8080"),
		DBUser:     must("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"),
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envStr("DB_PORT", "3306"),
		DBName:     must("DB_NAME"),
		DBMigrate:  envBool("DB_MIGRATE", false),
		JWTSecret:  must("JWT_SECRET"),
		MaxTickets: envInt("RESERVATION_MAX_TICKETS", 50),
	}
	if len(missing) > 0 {
		return Config{}, errors.Join(missing...)
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("invalid APP_PORT %q: %w", cfg.Port, err)
	}
	return cfg, nil
}
