package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aristath/spreadscan/internal/database"
	"github.com/aristath/spreadscan/internal/di"
	"github.com/aristath/spreadscan/internal/modules/prices"
)

// importCmd loads settlements into the price store
var importCmd = &cobra.Command{
	Use:   "import <file.csv>...",
	Short: "Import daily settlements from CSV",
	Long: `Import daily settlements into the price store. Files need a header row with
name, month, year, date and settle columns, plus an optional from_date.
Existing settlements for the same contract and date are replaced.

Example:
  spreadscan import data/cl_2021.csv data/cl_2022.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	container, err := di.InitializeDatabases(cfg, database.ProfileBulk, log)
	if err != nil {
		return err
	}
	defer container.Close()

	repo := prices.NewRepository(container.PriceDB.Conn(), log)

	var total prices.ImportStats
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		stats, err := repo.ImportCSV(cmd.Context(), f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", path, err)
		}

		log.Info().
			Str("path", path).
			Int("contracts", stats.Contracts).
			Int("settlements", stats.Settlements).
			Msg("Imported settlements")
		total.Contracts += stats.Contracts
		total.Settlements += stats.Settlements
	}

	if err := container.PriceDB.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("Failed to checkpoint price database")
	}

	symbols, err := repo.Symbols(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d settlements across %d contracts; symbols: %v\n",
		total.Settlements, total.Contracts, symbols)
	return nil
}
