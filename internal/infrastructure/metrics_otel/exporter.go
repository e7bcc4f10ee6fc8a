package metrics_otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/davarch/ci-dashboard/internal/domain"
)

const serviceName = "ci-dashboard"

type Config struct {
	Endpoint string
	Enabled  bool
	Insecure bool
}

// Exporter pushes aggregation metrics to an OTEL collector.
type Exporter struct {
	provider     *sdkmetric.MeterProvider
	aggregations metric.Int64Counter
	duration     metric.Float64Histogram
	projects     metric.Int64Histogram
}

func NewExporter(ctx context.Context, cfg Config, version string) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	return newExporter(provider)
}

func newExporter(provider *sdkmetric.MeterProvider) (*Exporter, error) {
	meter := provider.Meter(serviceName)

	aggregations, err := meter.Int64Counter(
		"cidash_aggregations_total",
		metric.WithDescription("Aggregation runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating aggregations counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"cidash_aggregation_duration_seconds",
		metric.WithDescription("Wall time of a full aggregation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	projects, err := meter.Int64Histogram(
		"cidash_projects",
		metric.WithDescription("Projects per aggregation by pipeline status"),
		metric.WithUnit("{project}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating projects histogram: %w", err)
	}

	return &Exporter{
		provider:     provider,
		aggregations: aggregations,
		duration:     duration,
		projects:     projects,
	}, nil
}

func (e *Exporter) RecordAggregation(ctx context.Context, res domain.Result, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.aggregations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.Bool("exceed_page_limit", res.ExceedPageLimit),
	))
	e.duration.Record(ctx, took.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))

	if err != nil {
		return
	}

	counts := map[domain.ProjectStatus]int64{}
	for _, p := range res.Projects {
		counts[p.Status]++
	}
	for s, n := range counts {
		e.projects.Record(ctx, n, metric.WithAttributes(attribute.String("status", string(s))))
	}
}

// Close flushes pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
