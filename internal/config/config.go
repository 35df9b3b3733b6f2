// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dukerupert/eventsphere/internal/media"
	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string

	JWTSecret string
	JWTTTL    time.Duration

	FrontendURL string
	CORSOrigins []string
	Location    *time.Location

	PostmarkToken string
	EmailFrom     string

	ReminderInterval time.Duration
	ReminderLead     time.Duration

	S3 media.Config
}

// Load reads .env (if present) and then the process environment. Variables
// already set in the environment win over .env values.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Port:          get("PORT", "8080"),
		DBPath:        get("DB_PATH", "eventsphere.db"),
		LogLevel:      get("LOG_LEVEL", "info"),
		LogFormat:     get("LOG_FORMAT", "text"),
		JWTSecret:     get("JWT_SECRET", ""),
		FrontendURL:   strings.TrimRight(get("FRONTEND_URL", "http://localhost:5173"), "/"),
		PostmarkToken: get("POSTMARK_TOKEN", ""),
		EmailFrom:     get("EMAIL_FROM", ""),
		S3: media.Config{
			Endpoint:  get("S3_ENDPOINT", ""),
			Bucket:    get("S3_BUCKET", ""),
			Region:    get("S3_REGION", ""),
			AccessKey: get("S3_ACCESS_KEY", ""),
			SecretKey: get("S3_SECRET_KEY", ""),
			PublicURL: get("S3_PUBLIC_URL", ""),
		},
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	var err error
	if cfg.JWTTTL, err = parseDuration("JWT_TTL", get("JWT_TTL", "24h")); err != nil {
		return Config{}, err
	}
	if cfg.ReminderInterval, err = parseDuration("REMINDER_INTERVAL", get("REMINDER_INTERVAL", "15m")); err != nil {
		return Config{}, err
	}
	if cfg.ReminderLead, err = parseDuration("REMINDER_LEAD", get("REMINDER_LEAD", "24h")); err != nil {
		return Config{}, err
	}

	tz := get("TIMEZONE", "UTC")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return Config{}, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}

	origins := get("CORS_ORIGINS", cfg.FrontendURL)
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	return cfg, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
