package cli

import (
	"context"

	"github.com/davarch/ci-dashboard/internal/application"
	"github.com/davarch/ci-dashboard/internal/domain"
	"github.com/davarch/ci-dashboard/internal/infrastructure/config"
	"github.com/davarch/ci-dashboard/internal/infrastructure/gitlab_graphql"
	"github.com/davarch/ci-dashboard/internal/infrastructure/metrics_otel"
	"go.uber.org/zap"
)

func newMetrics(ctx context.Context, log *zap.Logger, cfg config.Config) domain.MetricsRecorder {
	if !cfg.Metrics.Enabled {
		return metrics_otel.NewNoOpExporter()
	}

	exp, err := metrics_otel.NewExporter(ctx, metrics_otel.Config{
		Endpoint: cfg.Metrics.Endpoint,
		Enabled:  cfg.Metrics.Enabled,
		Insecure: cfg.Metrics.Insecure,
	}, version)
	if err != nil {
		log.Warn("metrics disabled", zap.Error(err))
		return metrics_otel.NewNoOpExporter()
	}
	return exp
}

func newAggregator(log *zap.Logger, cfg config.Config, m domain.MetricsRecorder) *application.Aggregator {
	gl := gitlab_graphql.New(cfg.GitLab.BaseURL, cfg.GitLab.Token, cfg.GitLab.Timeout)
	return application.NewAggregator(log, gl, m)
}
