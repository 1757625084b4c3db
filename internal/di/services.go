package di

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/rs/zerolog"

	"github.com/aristath/spreadscan/internal/config"
	"github.com/aristath/spreadscan/internal/metrics"
	"github.com/aristath/spreadscan/internal/modules/archive"
	"github.com/aristath/spreadscan/internal/modules/prices"
	"github.com/aristath/spreadscan/internal/modules/scan"
)

// InitializeServices creates the repositories and scan services on top of the databases
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.PriceRepo = prices.NewRepository(container.PriceDB.Conn(), log)
	container.Metrics = metrics.NewScanMetrics()
	container.Scanner = scan.NewScanner(container.PriceRepo, container.Metrics, log)

	var uploader archive.Uploader
	if cfg.ArchiveToS3() {
		s3Uploader, err := archive.NewS3Uploader(ctx, archive.S3Config{
			Bucket:          cfg.Archive.Bucket,
			Region:          cfg.Archive.Region,
			Endpoint:        cfg.Archive.Endpoint,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize archive uploader: %w", err)
		}
		uploader = s3Uploader
	}
	container.Archive = archive.New(cfg.Archive.Dir, uploader, log)

	defs, err := LoadScanDefinitions(cfg.ScanFile, log)
	if err != nil {
		return err
	}
	container.ScanService = scan.NewService(container.Scanner, defs, container.Archive, cfg.Parallelism, log)

	return nil
}

// LoadScanDefinitions reads the scan file. A missing file yields no definitions.
func LoadScanDefinitions(path string, log zerolog.Logger) ([]scan.Definition, error) {
	defs, err := scan.LoadDefinitions(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("Scan file not found, starting without scans")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	for _, def := range defs {
		if err := def.Validate(); err != nil {
			log.Warn().Err(err).Str("scan", def.Name).Msg("Invalid scan definition")
		}
	}

	log.Info().Str("path", path).Int("scans", len(defs)).Msg("Loaded scan definitions")
	return defs, nil
}
