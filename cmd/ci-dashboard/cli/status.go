package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/davarch/ci-dashboard/internal/domain"
	"github.com/davarch/ci-dashboard/internal/infrastructure/config"
	"github.com/davarch/ci-dashboard/internal/infrastructure/logging"
	"github.com/davarch/ci-dashboard/internal/infrastructure/render_term"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	statusJSON         bool
	statusFailOnFailed bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Aggregate pipeline status once and print it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New()
		defer func() { _ = log.Sync() }()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		m := newMetrics(ctx, log, cfg)
		defer func() { _ = m.Close(context.Background()) }()

		res, err := newAggregator(log, cfg, m).Aggregate(ctx, cfg.EnabledPaths())
		if err != nil {
			return err
		}

		if res.ExceedPageLimit {
			log.Warn("results truncated to the first page of at least one group")
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
		} else if err := render_term.Tiles(os.Stdout, res, cfg.GitLab.BaseURL, time.Now()); err != nil {
			return err
		}

		if statusFailOnFailed {
			for _, p := range res.Projects {
				if p.Status == domain.StatusFailed {
					return fmt.Errorf("project %s has a failed pipeline", p.Path)
				}
			}
		}

		log.Debug("status done", zap.Int("projects", len(res.Projects)))
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print JSON")
	statusCmd.Flags().BoolVar(&statusFailOnFailed, "fail-on-failed", false, "exit non-zero if any project has a failed pipeline")

	rootCmd.AddCommand(statusCmd)
}
