package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/spreadscan/internal/database"
)

// VacuumDatabasesJob rebuilds databases to reclaim space left by deleted rows
type VacuumDatabasesJob struct {
	JobBase
	databases []*database.DB
}

// NewVacuumDatabasesJob creates a new VacuumDatabasesJob. Nil databases are skipped.
func NewVacuumDatabasesJob(databases ...*database.DB) *VacuumDatabasesJob {
	return &VacuumDatabasesJob{
		JobBase:   JobBase{log: zerolog.Nop()},
		databases: databases,
	}
}

// Name returns the job name
func (j *VacuumDatabasesJob) Name() string {
	return "vacuum_databases"
}

// Run executes VACUUM on every database, continuing past failures
func (j *VacuumDatabasesJob) Run() error {
	failed := 0
	for _, db := range j.databases {
		if db == nil {
			continue
		}
		if err := j.vacuum(db); err != nil {
			j.log.Error().
				Str("database", db.Name()).
				Err(err).
				Msg("VACUUM failed")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d databases failed to vacuum", failed)
	}
	return nil
}

func (j *VacuumDatabasesJob) vacuum(db *database.DB) error {
	j.log.Debug().Str("database", db.Name()).Msg("Starting VACUUM")

	sizeBefore, err := sizeMB(db)
	if err != nil {
		return err
	}

	if _, err := db.Conn().Exec("VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed: %w", err)
	}

	sizeAfter, err := sizeMB(db)
	if err != nil {
		return err
	}

	j.log.Info().
		Str("database", db.Name()).
		Float64("size_before_mb", sizeBefore).
		Float64("size_after_mb", sizeAfter).
		Float64("space_reclaimed_mb", sizeBefore-sizeAfter).
		Msg("VACUUM completed")

	return nil
}

func sizeMB(db *database.DB) (float64, error) {
	var pageCount, pageSize int
	if err := db.Conn().QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("failed to read page count: %w", err)
	}
	if err := db.Conn().QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("failed to read page size: %w", err)
	}
	return float64(pageCount*pageSize) / 1024 / 1024, nil
}
