package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"treblle-hq/agent/pkg/cli"
	"treblle-hq/agent/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "treblle",
	Short: "Treblle agent - API telemetry capture and delivery",
	Long: `The Treblle agent captures HTTP request/response exchanges, masks
sensitive fields and ships the resulting payloads to the Treblle ingestion
endpoints in the background.

Configuration is read from an optional YAML file and TREBLLE_* environment
variables. Capture stays disabled until both TREBLLE_SDK_TOKEN and
TREBLLE_API_KEY are set.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (environment only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the configuration named by --config with environment
// overrides applied. --verbose forces debug logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}
