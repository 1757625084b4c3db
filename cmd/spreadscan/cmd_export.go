package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aristath/spreadscan/internal/modules/archive"
)

// exportCmd converts archived results into a workbook
var exportCmd = &cobra.Command{
	Use:   "export [snapshot.msgpack...]",
	Short: "Export archived scan results to .xlsx",
	Long: `Write archived scan results to an .xlsx workbook, one sheet per result.
Snapshots are given as paths, or by scan name with --scan to use the latest
archived run of each.

Examples:
  spreadscan export --out scans.xlsx data/archive/cl-*.msgpack
  spreadscan export --out scans.xlsx --scan cl-calendars --scan ng-flies`,
	RunE: runExport,
}

var (
	exportOut   string
	exportScans []string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportOut, "out", "scans.xlsx", "Workbook path")
	exportCmd.Flags().StringSliceVar(&exportScans, "scan", nil, "Export the latest archived run of a scan (repeatable)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	var snaps []archive.Snapshot
	for _, path := range args {
		snap, err := archive.Load(path)
		if err != nil {
			return err
		}
		snaps = append(snaps, *snap)
	}

	store := archive.New(cfg.Archive.Dir, nil, log)
	for _, name := range exportScans {
		snap, err := store.Latest(name)
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("no archived runs of scan %s in %s", name, cfg.Archive.Dir)
		}
		snaps = append(snaps, *snap)
	}

	if len(snaps) == 0 {
		return fmt.Errorf("nothing to export: pass snapshot paths or --scan")
	}

	if err := createWorkbook(exportOut, snaps); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d results to %s\n", len(snaps), exportOut)
	return nil
}
