package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/davarch/ci-dashboard/internal/infrastructure/config"
	"github.com/davarch/ci-dashboard/internal/infrastructure/http_api"
	"github.com/davarch/ci-dashboard/internal/infrastructure/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the aggregated project list as JSON over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New()
		defer func() { _ = log.Sync() }()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Serve.Addr = serveAddr
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		m := newMetrics(ctx, log, cfg)
		defer func() { _ = m.Close(context.Background()) }()

		paths := cfg.EnabledPaths()
		srv := http_api.NewServer(log, newAggregator(log, cfg, m), func() []string { return paths })

		log.Info("serve",
			zap.String("version", version),
			zap.String("addr", cfg.Serve.Addr),
			zap.Int("paths", len(paths)),
			zap.String("gitlab", cfg.GitLab.BaseURL),
		)
		return srv.ListenAndServe(ctx, cfg.Serve.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides serve.addr)")

	rootCmd.AddCommand(serveCmd)
}
