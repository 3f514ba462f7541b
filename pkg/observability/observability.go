// Package observability provides OpenTelemetry metrics and tracing for the
// IngressKit server: RED metrics on the HTTP surface plus domain counters for
// repaired rows and ingested events. Disabled providers are no-ops, so call
// sites never need to branch.
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
)

// Config configures the OpenTelemetry providers.
type Config struct {
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string // gRPC collector, e.g. "localhost:4317"
	Enabled        bool
	Insecure       bool
}

// Provider manages the trace and metric providers and the instruments the
// server records against.
type Provider struct {
	config         *Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	logger         *slog.Logger

	requestCounter metric.Int64Counter
	errorCounter   metric.Int64Counter
	durationHist   metric.Float64Histogram
	rowsRepaired   metric.Int64Counter
	eventsIngested metric.Int64Counter
}

// New creates an observability provider. With Enabled false it returns a
// provider whose recording methods are safe no-ops.
func New(ctx context.Context, config *Config) (*Provider, error) {
	p := &Provider{
		config: config,
		logger: slog.Default().With("component", "observability"),
	}
	if config == nil || !config.Enabled {
		p.logger.InfoContext(ctx, "observability disabled")
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: resource: %w", err)
	}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(config.OTLPEndpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(config.OTLPEndpoint)}
	if config.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	traceExp, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("observability: trace exporter: %w", err)
	}
	metricExp, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return nil, fmt.Errorf("observability: metric exporter: %w", err)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(p.tracerProvider)
	otel.SetMeterProvider(p.meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	p.tracer = p.tracerProvider.Tracer(config.ServiceName)
	p.meter = p.meterProvider.Meter(config.ServiceName)
	if err := p.initInstruments(); err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "observability enabled", "endpoint", config.OTLPEndpoint)
	return p, nil
}

func (p *Provider) initInstruments() error {
	var err error
	if p.requestCounter, err = p.meter.Int64Counter("ingresskit.http.requests",
		metric.WithDescription("HTTP requests served")); err != nil {
		return err
	}
	if p.errorCounter, err = p.meter.Int64Counter("ingresskit.http.errors",
		metric.WithDescription("HTTP error responses")); err != nil {
		return err
	}
	if p.durationHist, err = p.meter.Float64Histogram("ingresskit.http.duration",
		metric.WithDescription("Request duration"), metric.WithUnit("ms")); err != nil {
		return err
	}
	if p.rowsRepaired, err = p.meter.Int64Counter("ingresskit.repair.rows",
		metric.WithDescription("Rows repaired across all modalities")); err != nil {
		return err
	}
	if p.eventsIngested, err = p.meter.Int64Counter("ingresskit.events.ingested",
		metric.WithDescription("Webhook events harmonized")); err != nil {
		return err
	}
	return nil
}

// RecordRequest records one served request with its status class.
func (p *Provider) RecordRequest(ctx context.Context, route string, status int, elapsed time.Duration) {
	if p.requestCounter == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	p.requestCounter.Add(ctx, 1, attrs)
	if status >= 400 {
		p.errorCounter.Add(ctx, 1, attrs)
	}
	p.durationHist.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

// RecordRows counts repaired rows for a schema.
func (p *Provider) RecordRows(ctx context.Context, schemaName string, rows int) {
	if p.rowsRepaired == nil {
		return
	}
	p.rowsRepaired.Add(ctx, int64(rows), metric.WithAttributes(attribute.String("schema", schemaName)))
}

// RecordEvent counts one harmonized webhook event.
func (p *Provider) RecordEvent(ctx context.Context, source string) {
	if p.eventsIngested == nil {
		return
	}
	p.eventsIngested.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// Shutdown flushes and stops the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

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
