package metrics_otel

import (
	"context"
	"time"

	"github.com/davarch/ci-dashboard/internal/domain"
)

// NoOpExporter is used when metrics are disabled.
type NoOpExporter struct{}

func NewNoOpExporter() *NoOpExporter {
	return &NoOpExporter{}
}

func (e *NoOpExporter) RecordAggregation(context.Context, domain.Result, time.Duration, error) {}

func (e *NoOpExporter) Close(context.Context) error {
	return nil
}
