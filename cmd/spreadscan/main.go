// Package main is the spreadscan command line: one-shot scan batches, leg previews,
// price imports, spreadsheet exports, and the long-running service.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/spreadscan/internal/config"
	"github.com/aristath/spreadscan/pkg/logger"
)

var (
	logLevel string
	scanFile string
)

// rootCmd is the base command for the spreadscan CLI
var rootCmd = &cobra.Command{
	Use:   "spreadscan",
	Short: "Futures spread scanner",
	Long: `spreadscan enumerates futures spread combinations from leg specifications,
builds their historical spread series from daily settlements, and filters them on
rolling statistics (settle, vol, beta, r_2, m_tick).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&scanFile, "scans", "", "Scan definition file (.yaml, .yml or .json), overrides SPREADSCAN_SCAN_FILE")
}

// loadConfig reads the environment configuration and applies the persistent flag overrides.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if scanFile != "" {
		cfg.ScanFile = scanFile
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
		Output: os.Stderr,
	})
	logger.SetGlobalLogger(log)

	return cfg, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
