package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ArchivePruner deletes snapshots written before a cutoff
type ArchivePruner interface {
	Prune(cutoff time.Time) (int, error)
}

// PruneArchiveJob removes local scan snapshots older than the retention period
type PruneArchiveJob struct {
	JobBase
	archive   ArchivePruner
	retention time.Duration
	now       func() time.Time
}

// NewPruneArchiveJob creates a new PruneArchiveJob. A zero retention disables pruning.
func NewPruneArchiveJob(archive ArchivePruner, retention time.Duration) *PruneArchiveJob {
	return &PruneArchiveJob{
		JobBase:   JobBase{log: zerolog.Nop()},
		archive:   archive,
		retention: retention,
		now:       time.Now,
	}
}

// Name returns the job name
func (j *PruneArchiveJob) Name() string {
	return "prune_archive"
}

// Run executes the prune archive job
func (j *PruneArchiveJob) Run() error {
	if j.archive == nil || j.retention <= 0 {
		j.log.Debug().Msg("Archive retention disabled, skipping")
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	deleted, err := j.archive.Prune(cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune archive: %w", err)
	}

	j.log.Info().
		Int("deleted", deleted).
		Dur("retention", j.retention).
		Msg("Archive retention applied")
	return nil
}
