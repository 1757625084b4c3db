package di

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/spreadscan/internal/config"
	"github.com/aristath/spreadscan/internal/modules/scan"
	"github.com/aristath/spreadscan/internal/scheduler"
)

// RegisterJobs creates the background jobs and registers the scheduled ones
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	container.Scheduler = scheduler.New(log)

	scanBatch := scheduler.NewScanBatchJob(container.ScanService, func() ([]scan.Definition, error) {
		return LoadScanDefinitions(cfg.ScanFile, log)
	}, cfg.ScanTimeout)
	scanBatch.SetLogger(log.With().Str("job", scanBatch.Name()).Logger())

	walJob := scheduler.NewCheckWALCheckpointsJob(container.PriceDB)
	walJob.SetLogger(log.With().Str("job", walJob.Name()).Logger())

	vacuumJob := scheduler.NewVacuumDatabasesJob(container.PriceDB)
	vacuumJob.SetLogger(log.With().Str("job", vacuumJob.Name()).Logger())

	pruneJob := scheduler.NewPruneArchiveJob(container.Archive, time.Duration(cfg.Archive.RetentionDays)*24*time.Hour)
	pruneJob.SetLogger(log.With().Str("job", pruneJob.Name()).Logger())

	if cfg.ScanSchedule != "" {
		if err := container.Scheduler.AddJob(cfg.ScanSchedule, scanBatch); err != nil {
			return nil, fmt.Errorf("failed to register scan batch job: %w", err)
		}
	}
	if cfg.MaintenanceSchedule != "" {
		if err := container.Scheduler.AddJob(cfg.MaintenanceSchedule, walJob); err != nil {
			return nil, fmt.Errorf("failed to register WAL checkpoint job: %w", err)
		}
	}

	if cfg.VacuumSchedule != "" {
		if err := container.Scheduler.AddJob(cfg.VacuumSchedule, vacuumJob); err != nil {
			return nil, fmt.Errorf("failed to register vacuum job: %w", err)
		}
		if err := container.Scheduler.AddJob(cfg.VacuumSchedule, pruneJob); err != nil {
			return nil, fmt.Errorf("failed to register archive prune job: %w", err)
		}
	}

	return &JobInstances{
		ScanBatch:           scanBatch,
		CheckWALCheckpoints: walJob,
		VacuumDatabases:     vacuumJob,
		PruneArchive:        pruneJob,
	}, nil
}
