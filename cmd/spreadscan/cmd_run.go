package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aristath/spreadscan/internal/database"
	"github.com/aristath/spreadscan/internal/di"
	"github.com/aristath/spreadscan/internal/modules/archive"
	"github.com/aristath/spreadscan/internal/modules/export"
	"github.com/aristath/spreadscan/internal/modules/scan"
)

// runCmd executes the scan batch once
var runCmd = &cobra.Command{
	Use:   "run [scan names...]",
	Short: "Run the scan batch once",
	Long: `Run every scan in the definition file, or only the named ones, and print
the matches.

Examples:
  spreadscan run
  spreadscan run cl-calendars --json
  spreadscan run --xlsx out/scans.xlsx --archive`,
	RunE: runScans,
}

var (
	runXLSX        string
	runArchive     bool
	runJSON        bool
	runParallelism int
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runXLSX, "xlsx", "", "Write the results to an .xlsx workbook")
	runCmd.Flags().BoolVar(&runArchive, "archive", false, "Archive each result to the archive directory (and bucket, when configured)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print results as JSON")
	runCmd.Flags().IntVar(&runParallelism, "parallelism", 0, "Scans run concurrently, overrides SPREADSCAN_PARALLELISM")
}

func runScans(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if runParallelism > 0 {
		cfg.Parallelism = runParallelism
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.ScanTimeout)
	defer cancel()

	container, err := di.InitializeDatabases(cfg, database.ProfileStandard, log)
	if err != nil {
		return err
	}
	defer container.Close()

	if err := di.InitializeServices(ctx, container, cfg, log); err != nil {
		return err
	}

	defs, err := selectDefinitions(container.ScanService.Definitions(), args)
	if err != nil {
		return err
	}

	var archiver scan.Archiver
	if runArchive {
		archiver = container.Archive
	}
	service := scan.NewService(container.Scanner, defs, archiver, cfg.Parallelism, log)
	results := service.RunAll(ctx)

	if runJSON {
		err = printJSON(cmd.OutOrStdout(), results)
	} else {
		err = printTable(cmd.OutOrStdout(), results)
	}
	if err != nil {
		return err
	}

	if runXLSX != "" {
		if err := writeWorkbook(runXLSX, results); err != nil {
			return err
		}
		log.Info().Str("path", runXLSX).Msg("Wrote workbook")
	}

	for _, res := range results {
		if res.Err != nil {
			return fmt.Errorf("one or more scans failed")
		}
	}
	return nil
}

func selectDefinitions(defs []scan.Definition, names []string) ([]scan.Definition, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("no scan definitions found")
	}
	if len(names) == 0 {
		return defs, nil
	}

	selected := make([]scan.Definition, 0, len(names))
	for _, name := range names {
		def, ok := scan.FindDefinition(defs, name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", scan.ErrUnknownScan, name)
		}
		selected = append(selected, def)
	}
	return selected, nil
}

func printTable(out io.Writer, results []*scan.Result) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCAN\tAGGREGATE\tPLOT\tDATE\tSETTLE\tDAYS LISTED")

	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(w, "%s\tERROR: %v\t\t\t\t\n", res.Name, res.Err)
			continue
		}
		if len(res.Matches) == 0 {
			fmt.Fprintf(w, "%s\t(no matches of %d combinations)\t\t\t\t\n", res.Name, res.Combinations)
			continue
		}
		for _, m := range res.Matches {
			latest, ok := m.Set.Latest()
			if !ok {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.4f\t%d\n",
				res.Name, m.AggregateID, latest.PlotID, latest.Date.Format("2006-01-02"), latest.Settle, latest.DaysListed)
		}
	}

	return w.Flush()
}

func printJSON(out io.Writer, results []*scan.Result) error {
	snaps := make([]archive.Snapshot, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		snaps = append(snaps, archive.NewSnapshot(res))
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(snaps)
}

func writeWorkbook(path string, results []*scan.Result) error {
	snaps := make([]archive.Snapshot, 0, len(results))
	for _, res := range results {
		if res.Err == nil {
			snaps = append(snaps, archive.NewSnapshot(res))
		}
	}
	return createWorkbook(path, snaps)
}

func createWorkbook(path string, snaps []archive.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}
	if err := export.WriteXLSX(f, snaps); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
