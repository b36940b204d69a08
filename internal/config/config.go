package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabasePath   string
	Port           string
	APIToken       string
	BaseURL        string
	LogLevel       string
	RotationAnchor *time.Time
}

func Load() (Config, error) {
	config := Config{
		DatabasePath: envOrDefault("DATABASE_PATH", "./data/hass-flatmate.db"),
		Port:         envOrDefault("PORT", "8099"),
		APIToken:     os.Getenv("API_TOKEN"),
		BaseURL:      envOrDefault("BASE_URL", "http://localhost:8099"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
	}

	if config.APIToken == "" {
		return Config{}, fmt.Errorf("API_TOKEN is required")
	}

	if anchor := os.Getenv("ROTATION_ANCHOR"); anchor != "" {
		parsed, err := time.Parse("2006-01-02", anchor)
		if err != nil {
			return Config{}, fmt.Errorf("parsing ROTATION_ANCHOR: %w", err)
		}
		if parsed.Weekday() != time.Monday {
			return Config{}, fmt.Errorf("ROTATION_ANCHOR must be a Monday")
		}
		config.RotationAnchor = &parsed
	}

	return config, nil
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
