// Package di provides dependency injection wiring and initialization.
//
// The Container is the single source of truth for service instances. It is built by
// Wire() and handed to the server and commands.
package di

import (
	"github.com/aristath/spreadscan/internal/database"
	"github.com/aristath/spreadscan/internal/metrics"
	"github.com/aristath/spreadscan/internal/modules/archive"
	"github.com/aristath/spreadscan/internal/modules/prices"
	"github.com/aristath/spreadscan/internal/modules/scan"
	"github.com/aristath/spreadscan/internal/scheduler"
)

// Container holds all dependencies for the application.
type Container struct {
	// Databases
	PriceDB *database.DB // Contract listings and daily settlements

	// Repositories - Data access layer
	PriceRepo *prices.Repository

	// Services - Business logic layer
	Metrics     *metrics.ScanMetrics
	Scanner     *scan.Scanner
	Archive     *archive.Archive
	ScanService *scan.Service

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	ScanBatch           *scheduler.ScanBatchJob
	CheckWALCheckpoints *scheduler.CheckWALCheckpointsJob
	VacuumDatabases     *scheduler.VacuumDatabasesJob
	PruneArchive        *scheduler.PruneArchiveJob
}

// All returns every job instance
func (j *JobInstances) All() []scheduler.Job {
	return []scheduler.Job{j.ScanBatch, j.CheckWALCheckpoints, j.VacuumDatabases, j.PruneArchive}
}

// Close releases the container's databases
func (c *Container) Close() error {
	if c.PriceDB == nil {
		return nil
	}
	return c.PriceDB.Close()
}
