// Package cmd wires the CLI commands.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/scour-dl/scour/internal/config"
	"github.com/scour-dl/scour/internal/utils"
)

var settings *config.Settings

var rootCmd = &cobra.Command{
	Use:   "scour",
	Short: "Concurrent media downloader for supported gallery sites",
	Long: `scour downloads images, videos, archives and documents from supported
gallery and board sites into an organized folder tree, with a bounded
number of parallel downloads and resumable skip-if-exists behavior.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A .env next to the binary can supply SCOUR_OUT and SCOUR_PROXY.
		_ = godotenv.Load()
		utils.ConfigureDebug(config.GetLogsDir())

		var err error
		settings, err = config.LoadSettings()
		if err != nil {
			settings = config.DefaultSettings()
			cmd.PrintErrf("warning: could not load settings: %v\n", err)
		}
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
