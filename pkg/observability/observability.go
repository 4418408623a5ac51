// Package observability provides OpenTelemetry tracing and metrics for the
// rule engine: evaluation rate, candidate pruning ratio, IR cache hit rate,
// per-rule error rate, and evaluation latency, exported over OTLP gRPC.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "regula.engine"

// Config configures the OpenTelemetry providers.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string // gRPC, e.g. "localhost:4317"
	SampleRate     float64
	BatchTimeout   time.Duration
	Enabled        bool
	Insecure       bool
}

// DefaultConfig returns development defaults.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "regula",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4317",
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		Enabled:        true,
		Insecure:       false,
	}
}

// Provider owns the trace and metric pipelines plus the engine's
// instruments. A disabled provider records nothing and is safe to use
// everywhere a live one is.
type Provider struct {
	config         *Config
	logger         *slog.Logger
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer

	evalCounter    metric.Int64Counter
	ruleErrCounter metric.Int64Counter
	cacheCounter   metric.Int64Counter
	pruneRatio     metric.Float64Histogram
	evalDuration   metric.Float64Histogram
}

// New builds a Provider and installs it as the global OTel provider pair.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}
	p := &Provider{
		config: config,
		logger: slog.Default().With("component", "observability"),
		tracer: noop.NewTracerProvider().Tracer(instrumentationName),
	}
	if !config.Enabled {
		p.logger.InfoContext(ctx, "observability disabled")
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: resource: %w", err)
	}

	if err := p.initTraceProvider(ctx, res); err != nil {
		return nil, err
	}
	if err := p.initMetricProvider(ctx, res); err != nil {
		return nil, err
	}

	p.tracer = otel.Tracer(instrumentationName,
		trace.WithInstrumentationVersion(config.ServiceVersion))
	meter := otel.Meter(instrumentationName,
		metric.WithInstrumentationVersion(config.ServiceVersion))
	if err := p.initInstruments(meter); err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "observability initialized",
		"service", config.ServiceName,
		"environment", config.Environment,
		"endpoint", config.OTLPEndpoint)
	return p, nil
}

func (p *Provider) initTraceProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.config.OTLPEndpoint)}
	if p.config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("observability: trace exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case p.config.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case p.config.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(p.config.SampleRate)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(p.config.BatchTimeout)),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return nil
}

func (p *Provider) initMetricProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.config.OTLPEndpoint)}
	if p.config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("observability: metric exporter: %w", err)
	}
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(p.meterProvider)
	return nil
}

func (p *Provider) initInstruments(meter metric.Meter) error {
	var err error
	p.evalCounter, err = meter.Int64Counter("regula.evaluations",
		metric.WithDescription("Scenario evaluations"))
	if err != nil {
		return fmt.Errorf("observability: instrument: %w", err)
	}
	p.ruleErrCounter, err = meter.Int64Counter("regula.rule_errors",
		metric.WithDescription("Per-rule evaluation errors"))
	if err != nil {
		return fmt.Errorf("observability: instrument: %w", err)
	}
	p.cacheCounter, err = meter.Int64Counter("regula.ir_cache_lookups",
		metric.WithDescription("IR cache lookups by outcome"))
	if err != nil {
		return fmt.Errorf("observability: instrument: %w", err)
	}
	p.pruneRatio, err = meter.Float64Histogram("regula.candidate_ratio",
		metric.WithDescription("Candidates divided by loaded rules"))
	if err != nil {
		return fmt.Errorf("observability: instrument: %w", err)
	}
	p.evalDuration, err = meter.Float64Histogram("regula.evaluation_duration_ms",
		metric.WithDescription("Scenario evaluation latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return fmt.Errorf("observability: instrument: %w", err)
	}
	return nil
}

// Tracer returns the engine tracer (no-op when disabled).
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// RecordEvaluation implements the runtime's Metrics interface.
func (p *Provider) RecordEvaluation(ctx context.Context, candidates, total int, duration time.Duration, ruleErrors int) {
	if p.evalCounter == nil {
		return
	}
	p.evalCounter.Add(ctx, 1)
	if ruleErrors > 0 {
		p.ruleErrCounter.Add(ctx, int64(ruleErrors))
	}
	if total > 0 {
		p.pruneRatio.Record(ctx, float64(candidates)/float64(total))
	}
	p.evalDuration.Record(ctx, float64(duration.Microseconds())/1000.0)
}

// RecordCacheLookup implements the runtime's Metrics interface.
func (p *Provider) RecordCacheLookup(ctx context.Context, hit bool) {
	if p.cacheCounter == nil {
		return
	}
	p.cacheCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", hit)))
}

// Shutdown flushes and stops both pipelines.
func (p *Provider) Shutdown(ctx context.Context) error {
	var firstErr error
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
