package main

import (
	"fmt"

	"github.com/castlemilk/pocketai/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the pocketai HTTP API server.

Without a Gemini API key the server still starts; analyze and resolve
requests then fail with "Gemini API key not configured".

Examples:
  pocketai serve                      # in-memory store on :8111
  pocketai serve --port 3000
  POCKETAI_STORE_BACKEND=firestore GOOGLE_CLOUD_PROJECT=my-proj pocketai serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		logger, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer logger.Sync()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		logger.Info("configuration loaded",
			zap.String("store", cfg.Store.Backend),
			zap.Bool("gemini", cfg.GeminiConfigured()),
			zap.String("model", cfg.Gemini.Model),
			zap.Bool("algolia", cfg.AlgoliaConfigured()),
			zap.String("image_bucket", cfg.Images.Bucket))

		return a.server.Run(ctx, fmt.Sprintf(":%d", cfg.Port))
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8111, "port to listen on")
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zc.Build()
}
