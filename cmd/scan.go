package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/divyagonja/phoenixing/internal/observability"
	"github.com/divyagonja/phoenixing/internal/registry"
	"github.com/divyagonja/phoenixing/internal/reporting"
	"github.com/divyagonja/phoenixing/internal/scan"
)

// newScanCmd creates and configures the `scan` command.
func newScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan <company-number>",
		Short: "Runs a deep phoenixing scan against one company",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so CLI values override the
			// config file and environment with the right precedence.
			if err := viper.BindPFlag("scan.concurrency", cmd.Flags().Lookup("concurrency")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from main (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Scan.Output = viper.GetString("output")
			cfg.Scan.Format = viper.GetString("format")

			companyNumber := args[0]
			logger.Info("Starting deep scan",
				zap.String("company", companyNumber),
				zap.Int("concurrency", cfg.Scan.Concurrency),
			)

			client := registry.NewClient(cfg.Registry, nil, logger)
			orchestrator, err := scan.New(client, cfg.Scan, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize scan orchestrator: %w", err)
			}

			report, err := orchestrator.Scan(ctx, companyNumber)
			if err != nil {
				if registry.IsNotFound(err) {
					return fmt.Errorf("company %s not found in the registry", companyNumber)
				}
				return fmt.Errorf("scan failed: %w", err)
			}

			reporter, err := reporting.New(cfg.Scan.Format, cfg.Scan.Output)
			if err != nil {
				return err
			}
			defer reporter.Close()
			return reporter.Write(report)
		},
	}

	scanCmd.Flags().IntP("concurrency", "n", 4, "maximum concurrent registry searches")
	scanCmd.Flags().StringP("output", "o", "", "output path (default stdout)")
	scanCmd.Flags().StringP("format", "f", "text", "output format: text or json")
	return scanCmd
}
