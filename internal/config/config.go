// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// EnvPrefix prefixes every environment variable, e.g. SPREADSCAN_PORT.
const EnvPrefix = "SPREADSCAN"

// Config holds application configuration
type Config struct {
	DataDir       string        `envconfig:"DATA_DIR" default:"data"` // Base directory for the price store and archives, always absolute after Load
	PriceDBPath   string        `envconfig:"PRICE_DB_PATH"`           // Defaults to <DataDir>/prices.db
	PriceDBDriver string        `envconfig:"PRICE_DB_DRIVER" default:"sqlite"`
	ScanFile      string        `envconfig:"SCAN_FILE" default:"scans.yaml"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	Port          int           `envconfig:"PORT" default:"8080"`
	DevMode       bool          `envconfig:"DEV_MODE" default:"false"`
	Parallelism   int           `envconfig:"PARALLELISM" default:"4"`
	ScanTimeout   time.Duration `envconfig:"SCAN_TIMEOUT" default:"10m"`

	// ScanSchedule is a cron expression with a seconds field. Empty disables scheduled scans.
	ScanSchedule string `envconfig:"SCAN_SCHEDULE"`
	// MaintenanceSchedule runs the price store WAL checkpoint.
	MaintenanceSchedule string `envconfig:"MAINTENANCE_SCHEDULE" default:"0 0 3 * * *"`
	// VacuumSchedule compacts the price store and prunes old archives. Empty disables both.
	VacuumSchedule string `envconfig:"VACUUM_SCHEDULE" default:"0 0 4 * * SUN"`

	Archive ArchiveConfig `envconfig:"ARCHIVE"`
}

// ArchiveConfig configures where scan results are archived. An empty Bucket keeps
// archives on local disk only.
type ArchiveConfig struct {
	Dir             string `envconfig:"DIR"` // Defaults to <DataDir>/archive
	Bucket          string `envconfig:"BUCKET"`
	Region          string `envconfig:"REGION" default:"auto"`
	Endpoint        string `envconfig:"ENDPOINT"` // S3-compatible endpoint, empty for AWS
	AccessKeyID     string `envconfig:"ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"SECRET_ACCESS_KEY"`
	RetentionDays   int    `envconfig:"RETENTION_DAYS" default:"90"` // 0 keeps local snapshots forever
}

// Load reads configuration from environment variables, after loading .env if present
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	cfg.DataDir = absDataDir

	if cfg.PriceDBPath == "" {
		cfg.PriceDBPath = filepath.Join(cfg.DataDir, "prices.db")
	}
	if cfg.Archive.Dir == "" {
		cfg.Archive.Dir = filepath.Join(cfg.DataDir, "archive")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for values the application cannot run with
func (c *Config) Validate() error {
	switch c.PriceDBDriver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("unsupported PRICE_DB_DRIVER %q (want sqlite or sqlite3)", c.PriceDBDriver)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("PARALLELISM must not be negative, got %d", c.Parallelism)
	}
	if c.Archive.RetentionDays < 0 {
		return fmt.Errorf("ARCHIVE_RETENTION_DAYS must not be negative, got %d", c.Archive.RetentionDays)
	}
	if c.ScanTimeout <= 0 {
		return fmt.Errorf("SCAN_TIMEOUT must be positive, got %s", c.ScanTimeout)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{"SCAN_SCHEDULE": c.ScanSchedule, "MAINTENANCE_SCHEDULE": c.MaintenanceSchedule, "VACUUM_SCHEDULE": c.VacuumSchedule} {
		if spec == "" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, spec, err)
		}
	}

	return nil
}

// ArchiveToS3 reports whether archives are also uploaded to object storage
func (c *Config) ArchiveToS3() bool {
	return c.Archive.Bucket != ""
}
