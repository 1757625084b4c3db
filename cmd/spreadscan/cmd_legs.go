package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aristath/spreadscan/internal/domain"
	"github.com/aristath/spreadscan/internal/modules/legs"
)

// legsCmd prints the combinations a leg specification enumerates
var legsCmd = &cobra.Command{
	Use:   "legs [leg...]",
	Short: "Print the combinations of a leg specification",
	Long: `Print every combination a leg specification enumerates, in iteration order.
Each leg is given in the compact comma form, or one per line in --file.

Examples:
  spreadscan legs "F,H,0,0,A" "+1,H,0,0,B"
  spreadscan legs --type sequence "0,2,A" "+1,3,B"
  spreadscan legs --file legs.txt --limit 20`,
	RunE: runLegs,
}

var (
	legsType  string
	legsFile  string
	legsLimit int
)

func init() {
	rootCmd.AddCommand(legsCmd)

	legsCmd.Flags().StringVar(&legsType, "type", string(domain.ModeCalendar), "Scan type (calendar|sequence)")
	legsCmd.Flags().StringVar(&legsFile, "file", "", "Read legs from a file, one per line")
	legsCmd.Flags().IntVar(&legsLimit, "limit", 0, "Stop after this many combinations (0 prints all)")
}

func runLegs(cmd *cobra.Command, args []string) error {
	var text string
	if legsFile != "" {
		data, err := os.ReadFile(legsFile)
		if err != nil {
			return fmt.Errorf("failed to read legs file: %w", err)
		}
		text = string(data)
	}
	for _, arg := range args {
		text += "\n" + arg
	}

	it, err := legs.New(domain.Mode(legsType), legs.ParseLegText(text))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	count := 0
	for legsLimit == 0 || count < legsLimit {
		m, ok := it.Next()
		if !ok {
			break
		}
		fmt.Fprintln(out, m.String())
		count++
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%d combinations\n", count)
	return nil
}
