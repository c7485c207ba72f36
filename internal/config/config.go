package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN         string
	DBLog         bool
	ServerPort    string
	SessionSecret string
	AppEnv        string

	// LockTimeout bounds how long a reconciliation may wait on row locks.
	LockTimeout time.Duration

	AdminEmail    string
	AdminPassword string
}

func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		ServerPort:    os.Getenv("SERVER_PORT"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		AppEnv:        os.Getenv("APP_ENV"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		LockTimeout:   5 * time.Second,
	}

	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET is not set")
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "production"
	}
	if cfg.AdminEmail == "" {
		cfg.AdminEmail = "admin@relief.local"
	}

	if v := os.Getenv("LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("LOCK_TIMEOUT must be a positive duration, got %q", v)
		}
		cfg.LockTimeout = d
	}
	if v := os.Getenv("DB_LOG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("DB_LOG must be a boolean, got %q", v)
		}
		cfg.DBLog = b
	}

	return cfg, nil
}
