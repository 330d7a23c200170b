// Package cmd implements the unidown command line using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"unidown/internal/config"
	"unidown/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagConfig   string
	flagLogLevel string
)

// cfg holds the loaded configuration (defaults < config file < env < flags).
var cfg *config.Config

var logger *logrus.Logger

var rootCmd = &cobra.Command{
	Use:   "unidown",
	Short: "Resolve short-video links into playable stream URLs",
	Long: `unidown serves an HTTP API that turns a pasted video link into direct
video and audio stream URLs, plus a header-spoofing fetch proxy.
Without a subcommand it starts the server.`,
	Version:           Version,
	SilenceUsage:      true,
	Args:              cobra.NoArgs,
	PersistentPreRunE: loadConfig,
	RunE:              serveRun,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to a unidown.toml config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: trace | debug | info | warn | error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(platformsCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig loads configuration and builds the logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(afero.NewOsFs(), flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger = logging.Setup(logging.Options{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		Output: cmd.ErrOrStderr(),
	})
	return nil
}
