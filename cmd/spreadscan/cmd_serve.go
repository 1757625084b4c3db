package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aristath/spreadscan/internal/server"
)

// serveCmd runs the HTTP service and scheduler
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scan API and run scheduled scans",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort > 0 {
			cfg.Port = servePort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return server.Run(ctx, cfg, log)
	},
}

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port, overrides SPREADSCAN_PORT")
}
