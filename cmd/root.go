package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opendcs/odcsapi/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "odcsapi",
	Short: "OpenDCS REST API server",
	Long: `odcsapi serves the OpenDCS REST API: authentication against the
OpenDCS time series database, session management, and lifecycle
management for cached LRGS client connections.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	// Global flags mirror the environment variables the server reads.
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: SERVER_ADDR)")
	rootCmd.PersistentFlags().String("auth-type", "", "Authorization check type (env: AUTH_TYPE)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: DEBUG)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
