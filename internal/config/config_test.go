package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SPREADSCAN_DATA_DIR", filepath.Join(dir, "data"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data"), cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "data", "prices.db"), cfg.PriceDBPath)
	assert.Equal(t, filepath.Join(dir, "data", "archive"), cfg.Archive.Dir)
	assert.Equal(t, "sqlite", cfg.PriceDBDriver)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 4, cfg.Parallelism)
	assert.Equal(t, 10*time.Minute, cfg.ScanTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.ScanSchedule)
	assert.Equal(t, "0 0 4 * * SUN", cfg.VacuumSchedule)
	assert.Equal(t, 90, cfg.Archive.RetentionDays)
	assert.False(t, cfg.ArchiveToS3())
}

func TestLoad_FromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SPREADSCAN_DATA_DIR", dir)
	t.Setenv("SPREADSCAN_PRICE_DB_DRIVER", "sqlite3")
	t.Setenv("SPREADSCAN_PORT", "9100")
	t.Setenv("SPREADSCAN_SCAN_SCHEDULE", "0 30 18 * * 1-5")
	t.Setenv("SPREADSCAN_ARCHIVE_BUCKET", "scans")
	t.Setenv("SPREADSCAN_ARCHIVE_ENDPOINT", "http://localhost:9000")
	t.Setenv("SPREADSCAN_DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.PriceDBDriver)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "0 30 18 * * 1-5", cfg.ScanSchedule)
	assert.True(t, cfg.DevMode)
	assert.True(t, cfg.ArchiveToS3())
	assert.Equal(t, "http://localhost:9000", cfg.Archive.Endpoint)
	assert.Equal(t, "auto", cfg.Archive.Region)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SPREADSCAN_DATA_DIR", dir)
	t.Setenv("SPREADSCAN_PORT", "not-a-port")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			PriceDBDriver: "sqlite",
			Port:          8080,
			Parallelism:   2,
			ScanTimeout:   time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"mattn driver", func(c *Config) { c.PriceDBDriver = "sqlite3" }, false},
		{"unknown driver", func(c *Config) { c.PriceDBDriver = "postgres" }, true},
		{"zero port", func(c *Config) { c.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Port = 70000 }, true},
		{"negative parallelism", func(c *Config) { c.Parallelism = -1 }, true},
		{"zero timeout", func(c *Config) { c.ScanTimeout = 0 }, true},
		{"descriptor schedule", func(c *Config) { c.ScanSchedule = "@hourly" }, false},
		{"bad schedule", func(c *Config) { c.ScanSchedule = "every day" }, true},
		{"negative retention", func(c *Config) { c.Archive.RetentionDays = -1 }, true},
		{"bad vacuum schedule", func(c *Config) { c.VacuumSchedule = "sunday" }, true},
		{"five-field schedule", func(c *Config) { c.MaintenanceSchedule = "0 3 * * *" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
