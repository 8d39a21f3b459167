package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"treblle-hq/agent/pkg/config"
	"treblle-hq/agent/pkg/gatherer"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the agent configuration",
	Long: `Load the configuration file and environment overrides and report every
invalid field. Exits with status 2 when the configuration is invalid.

Examples:
  treblle validate --config treblle.yaml
  TREBLLE_DELIVERY_TIMEOUT=5s treblle validate`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(out, "✗ %d invalid field(s)\n", len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Fprintf(out, "  - %s: %s\n", fe.Field, fe.Message)
			}
		}
		return err
	}

	fmt.Fprintln(out, "✓ Configuration valid")
	fmt.Fprintf(out, "  environment: %s\n", cfg.Capture.Environment)
	fmt.Fprintf(out, "  endpoints:   %d\n", len(cfg.Delivery.Hosts))
	fmt.Fprintf(out, "  journal:     %s\n", journalState(cfg))

	gcfg := gatherer.Config{
		SDKToken:            cfg.Credentials.SDKToken,
		APIKey:              cfg.Credentials.APIKey,
		IgnoredEnvironments: cfg.Capture.IgnoredEnvironments,
		Environment:         cfg.Capture.Environment,
	}
	switch {
	case cfg.Credentials.SDKToken == "" || cfg.Credentials.APIKey == "":
		fmt.Fprintln(out, "! Capture disabled: SDK token and API key are both required")
	case gcfg.Disabled():
		fmt.Fprintf(out, "! Capture disabled in environment %q\n", cfg.Capture.Environment)
	default:
		fmt.Fprintln(out, "✓ Capture enabled")
	}
	return nil
}

func journalState(cfg *config.Config) string {
	if !cfg.Journal.Enabled {
		return "disabled"
	}
	if cfg.Journal.Driver == "memory" {
		return "memory"
	}
	return fmt.Sprintf("%s (%s)", cfg.Journal.Driver, cfg.Journal.Path)
}
