package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment at startup.
type Config struct {
	DatabaseURL    string
	ServerAddr     string
	JWTSecret      string
	TokenTTL       time.Duration
	AutoMigrate    bool
	MaxOpenConns   int
	MaxIdleConns   int
	ExpirySchedule string

	LoginRatePerSecond float64
	LoginRateBurst     int
}

// Load reads an optional .env file and then the process environment.
// Values already present in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("[INFO] config: no .env file loaded, using process environment")
	}

	cfg := &Config{
		DatabaseURL:    GetEnv("DATABASE_URL"),
		ServerAddr:     GetEnv("SERVER_ADDR", ":8080"),
		JWTSecret:      GetEnv("JWT_SECRET"),
		ExpirySchedule: GetEnv("LOAN_EXPIRY_SCHEDULE"),
	}

	var err error
	if cfg.TokenTTL, err = time.ParseDuration(GetEnv("TOKEN_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("TOKEN_TTL: %w", err)
	}
	if cfg.AutoMigrate, err = strconv.ParseBool(GetEnv("DB_AUTO_MIGRATE", "true")); err != nil {
		return nil, fmt.Errorf("DB_AUTO_MIGRATE: %w", err)
	}
	if cfg.MaxOpenConns, err = strconv.Atoi(GetEnv("DB_MAX_OPEN_CONNS", "20")); err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	if cfg.MaxIdleConns, err = strconv.Atoi(GetEnv("DB_MAX_IDLE_CONNS", "10")); err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}
	if cfg.LoginRatePerSecond, err = strconv.ParseFloat(GetEnv("LOGIN_RATE_PER_SECOND", "1"), 64); err != nil {
		return nil, fmt.Errorf("LOGIN_RATE_PER_SECOND: %w", err)
	}
	if cfg.LoginRateBurst, err = strconv.Atoi(GetEnv("LOGIN_RATE_BURST", "5")); err != nil {
		return nil, fmt.Errorf("LOGIN_RATE_BURST: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL environment variable is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.LoginRateBurst < 1 {
		errs = append(errs, errors.New("LOGIN_RATE_BURST must be at least 1"))
	}
	return errors.Join(errs...)
}

// GetEnv returns the value of key, or the first default when key is unset.
func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}
