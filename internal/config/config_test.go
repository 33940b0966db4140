package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 8, cfg.Capacity)
	assert.Equal(t, "parking-queue-service", cfg.ServiceName)
	assert.Equal(t, "1.0.0", cfg.ServiceVersion)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "http://localhost:4318", cfg.OTelEndpoint)
	assert.Equal(t, "@every 1m", cfg.ReportSchedule)
	assert.Equal(t, 2*time.Hour, cfg.OverstayThreshold)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("PARKING_CAPACITY", "12")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("REPORT_SCHEDULE", "*/5 * * * *")
	t.Setenv("OVERSTAY_THRESHOLD", "45m")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 12, cfg.Capacity)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "*/5 * * * *", cfg.ReportSchedule)
	assert.Equal(t, 45*time.Minute, cfg.OverstayThreshold)
}

func TestInvalidValuesFallBackToDefault(t *testing.T) {
	t.Setenv("PARKING_CAPACITY", "lots")
	t.Setenv("OVERSTAY_THRESHOLD", "forever")

	cfg := Load()

	assert.Equal(t, 8, cfg.Capacity)
	assert.Equal(t, 2*time.Hour, cfg.OverstayThreshold)
}

func TestLoadWithDotEnv(t *testing.T) {
	t.Setenv("PARKING_CAPACITY", "")
	require.NoError(t, os.Unsetenv("PARKING_CAPACITY"))
	t.Setenv("APP_PORT", "7070")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PARKING_CAPACITY=24\nAPP_PORT=1111\n"), 0o600))

	cfg := LoadWithDotEnv(path)

	assert.Equal(t, 24, cfg.Capacity)
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoadWithMissingDotEnv(t *testing.T) {
	t.Setenv("PARKING_CAPACITY", "5")

	cfg := LoadWithDotEnv(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, 5, cfg.Capacity)
}
