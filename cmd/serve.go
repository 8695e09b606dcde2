package cmd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/divyagonja/phoenixing/internal/dataset"
	"github.com/divyagonja/phoenixing/internal/observability"
	"github.com/divyagonja/phoenixing/internal/registry"
	"github.com/divyagonja/phoenixing/internal/scan"
	"github.com/divyagonja/phoenixing/internal/server"
)

// newServeCmd creates and configures the `serve` command.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the scanner and dataset browser as a JSON API",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.RecordStore.BaseURL == "" {
				return fmt.Errorf("recordstore.base_url is required in serve mode")
			}

			// Wire the full component graph: registry client and scan
			// orchestrator for on-demand scans, record store behind the
			// pagination layer and the statistics cache for the dataset.
			client := registry.NewClient(cfg.Registry, nil, logger)
			orchestrator, err := scan.New(client, cfg.Scan, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize scan orchestrator: %w", err)
			}

			store := dataset.NewStore(cfg.RecordStore, nil, logger)
			query := dataset.NewQuery(store, cfg.RecordStore, logger)
			stats := dataset.NewStatsCache(store, cfg.RecordStore.StatsTTL, logger)

			srv := server.New(orchestrator, query, stats, cfg.Server, logger)
			if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}

			logger.Info("Server stopped", zap.String("addr", cfg.Server.Addr))
			return nil
		},
	}

	serveCmd.Flags().String("addr", ":8080", "listen address for the API server")
	return serveCmd
}
