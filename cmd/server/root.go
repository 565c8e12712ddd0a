package main

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pocketai",
	Short: "Backend for the vegan food scanner and conflict mediator demo apps",
	Long: `pocketai serves the JSON API behind two small Gemini-powered apps:

  - a food scanner that decides whether a photographed dish is vegan
  - a conflict mediator that proposes a fair resolution and action items

Configuration is read from flags, POCKETAI_* environment variables,
an optional config.yaml and a local .env file.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
