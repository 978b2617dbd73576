package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/xilidan/vidscribe/services/transcriber/entity"
)

const (
	serviceName    = "vidscribe"
	serviceVersion = "1.0.0"
)

type Config struct {
	Enabled  bool
	Endpoint string
	Insecure bool
}

// Otel records pipeline metrics on an OpenTelemetry meter provider.
type Otel struct {
	provider      *sdkmetric.MeterProvider
	stageDuration metric.Float64Histogram
	runDuration   metric.Float64Histogram
	runsTotal     metric.Int64Counter
}

// New returns a recorder exporting over OTLP/gRPC, or a NoOp when disabled.
func New(ctx context.Context, cfg Config) (Recorder, error) {
	if !cfg.Enabled {
		return NewNoOp(), nil
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("otel endpoint is not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
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

	rec, err := NewWithProvider(provider)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// NewWithProvider builds the instruments on an existing provider.
func NewWithProvider(provider *sdkmetric.MeterProvider) (*Otel, error) {
	meter := provider.Meter(serviceName)

	stageDuration, err := meter.Float64Histogram(
		"vidscribe_pipeline_stage_duration_seconds",
		metric.WithDescription("Duration of a single pipeline stage"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage histogram: %w", err)
	}

	runDuration, err := meter.Float64Histogram(
		"vidscribe_pipeline_duration_seconds",
		metric.WithDescription("Duration of a whole pipeline run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating run histogram: %w", err)
	}

	runsTotal, err := meter.Int64Counter(
		"vidscribe_pipeline_runs_total",
		metric.WithDescription("Total number of pipeline runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating runs counter: %w", err)
	}

	return &Otel{
		provider:      provider,
		stageDuration: stageDuration,
		runDuration:   runDuration,
		runsTotal:     runsTotal,
	}, nil
}

func (o *Otel) RecordStage(ctx context.Context, stage entity.Stage, elapsed time.Duration, err error) {
	o.stageDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("stage", string(stage)),
		attribute.String("outcome", outcome(err)),
	))
}

func (o *Otel) RecordRun(ctx context.Context, elapsed time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("outcome", outcome(err)))
	o.runDuration.Record(ctx, elapsed.Seconds(), opt)
	o.runsTotal.Add(ctx, 1, opt)
}

// Close flushes pending metrics and shuts the provider down.
func (o *Otel) Close(ctx context.Context) error {
	return o.provider.Shutdown(ctx)
}
