package main

import (
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "roast",
	Short: "Roast a résumé from the command line",
	Long: `roast runs the résumé analysis pipeline locally: text extraction,
screening, the model round trip and record assembly.

Configuration comes from the same environment variables as the API server.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline events to stderr")
}
