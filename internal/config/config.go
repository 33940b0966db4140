package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	Capacity          int
	ServiceName       string
	ServiceVersion    string
	Environment       string
	OTelEndpoint      string
	ReportSchedule    string
	OverstayThreshold time.Duration
}

func Load() *Config {
	return &Config{
		Port:              envOr("APP_PORT", "8080"),
		Capacity:          envOrInt("PARKING_CAPACITY", 8),
		ServiceName:       envOr("OTEL_SERVICE_NAME", "parking-queue-service"),
		ServiceVersion:    envOr("SERVICE_VERSION", "1.0.0"),
		Environment:       envOr("ENVIRONMENT", "development"),
		OTelEndpoint:      envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		ReportSchedule:    envOr("REPORT_SCHEDULE", "@every 1m"),
		OverstayThreshold: envOrDuration("OVERSTAY_THRESHOLD", 2*time.Hour),
	}
}

// LoadWithDotEnv applies variables from the given .env files (default
// ".env") before reading the environment. Missing files are ignored and
// variables already set in the process win.
func LoadWithDotEnv(paths ...string) *Config {
	_ = godotenv.Load(paths...)
	return Load()
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
