package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/spreadscan/internal/modules/scan"
)

// ScanRunner executes every configured scan.
type ScanRunner interface {
	RunAll(ctx context.Context) []*scan.Result
	SetDefinitions(defs []scan.Definition)
}

// ScanBatchJob reloads the scan definitions and runs them as one batch
type ScanBatchJob struct {
	JobBase
	runner  ScanRunner
	load    func() ([]scan.Definition, error)
	timeout time.Duration
}

// NewScanBatchJob creates a new ScanBatchJob. load may be nil to keep the current
// definitions; a zero timeout disables the deadline.
func NewScanBatchJob(runner ScanRunner, load func() ([]scan.Definition, error), timeout time.Duration) *ScanBatchJob {
	return &ScanBatchJob{
		JobBase: JobBase{log: zerolog.Nop()},
		runner:  runner,
		load:    load,
		timeout: timeout,
	}
}

// Name returns the job name
func (j *ScanBatchJob) Name() string {
	return "scan_batch"
}

// Run executes the scan batch job
func (j *ScanBatchJob) Run() error {
	if j.load != nil {
		defs, err := j.load()
		if err != nil {
			return fmt.Errorf("failed to reload scan definitions: %w", err)
		}
		j.runner.SetDefinitions(defs)
	}

	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	results := j.runner.RunAll(ctx)

	failed, matches := 0, 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			j.log.Warn().Err(res.Err).Str("scan", res.Name).Msg("Scan failed")
			continue
		}
		matches += len(res.Matches)
	}

	j.log.Info().
		Int("scans", len(results)).
		Int("failed", failed).
		Int("matches", matches).
		Msg("Scan batch job completed")

	if failed > 0 {
		return fmt.Errorf("%d of %d scans failed", failed, len(results))
	}
	return nil
}
