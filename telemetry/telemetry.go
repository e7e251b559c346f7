//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

// Package telemetry initializes OpenTelemetry metric and trace export for
// the service and exposes the pipeline's instruments.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Service identity reported as resource attributes.
const (
	ServiceName    = "promptcheck"
	ServiceVersion = "v0.1.0"
	instrumentName = "promptcheck"
)

// Export protocols.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"
)

// Pipeline instruments. They stay nil until Start succeeds; the Add helpers
// below tolerate that, so an uninitialized service still runs.
var (
	eventsReceived   metric.Int64Counter
	artifactsFetched metric.Int64Counter
	evaluationsRun   metric.Int64Counter
	publishFailures  metric.Int64Counter
)

// Tracer returns the service tracer from the global provider. Before Start
// it is a noop tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentName)
}

// Option configures telemetry startup.
type Option func(*options)

type options struct {
	endpoint string
	protocol string
}

// WithEndpoint sets the collector endpoint, e.g. "localhost:4317". When
// unset, OTEL_EXPORTER_OTLP_ENDPOINT and the protocol default apply.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithProtocol selects "grpc" (default) or "http" export.
func WithProtocol(protocol string) Option {
	return func(o *options) {
		if protocol != "" {
			o.protocol = protocol
		}
	}
}

// Start initializes the global meter and tracer providers and the pipeline
// instruments. The returned function flushes and shuts both providers down.
func Start(ctx context.Context, opt ...Option) (func(context.Context) error, error) {
	opts := &options{protocol: ProtocolGRPC}
	for _, o := range opt {
		o(opts)
	}
	if opts.endpoint == "" {
		opts.endpoint = defaultEndpoint(opts.protocol)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(ServiceVersion),
		),
		resource.WithFromEnv(),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	mp, err := newMeterProvider(ctx, res, opts)
	if err != nil {
		return nil, err
	}
	tp, err := newTracerProvider(ctx, res, opts)
	if err != nil {
		shutdownErr := mp.Shutdown(ctx)
		return nil, errors.Join(err, shutdownErr)
	}

	otel.SetMeterProvider(mp)
	otel.SetTracerProvider(tp)
	if err := initInstruments(mp); err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func defaultEndpoint(protocol string) string {
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	if protocol == ProtocolHTTP {
		return "localhost:4318"
	}
	return "localhost:4317"
}

func newMeterProvider(ctx context.Context, res *resource.Resource, opts *options) (*sdkmetric.MeterProvider, error) {
	var exporter sdkmetric.Exporter
	var err error
	switch opts.protocol {
	case ProtocolHTTP:
		exporter, err = otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(opts.endpoint),
			otlpmetrichttp.WithInsecure())
	default:
		var conn *grpc.ClientConn
		conn, err = newGRPCConn(opts.endpoint)
		if err == nil {
			exporter, err = otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create metrics exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	), nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource, opts *options) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	var err error
	switch opts.protocol {
	case ProtocolHTTP:
		exporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(opts.endpoint),
			otlptracehttp.WithInsecure())
	default:
		var conn *grpc.ClientConn
		conn, err = newGRPCConn(opts.endpoint)
		if err == nil {
			exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

func newGRPCConn(endpoint string) (*grpc.ClientConn, error) {
	// Note the use of insecure transport here. TLS is recommended in
	// production.
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("create gRPC connection to collector: %w", err)
	}
	return conn, nil
}

func initInstruments(mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentName)
	var err error
	if eventsReceived, err = meter.Int64Counter("promptcheck.events.received",
		metric.WithDescription("Webhook events accepted for processing"),
		metric.WithUnit("1")); err != nil {
		return fmt.Errorf("create events counter: %w", err)
	}
	if artifactsFetched, err = meter.Int64Counter("promptcheck.artifacts.fetched",
		metric.WithDescription("Prompt artifacts extracted from run bundles"),
		metric.WithUnit("1")); err != nil {
		return fmt.Errorf("create artifacts counter: %w", err)
	}
	if evaluationsRun, err = meter.Int64Counter("promptcheck.evaluations.run",
		metric.WithDescription("Rubric evaluations executed"),
		metric.WithUnit("1")); err != nil {
		return fmt.Errorf("create evaluations counter: %w", err)
	}
	if publishFailures, err = meter.Int64Counter("promptcheck.publish.failures",
		metric.WithDescription("Check-run publish calls that failed after retry"),
		metric.WithUnit("1")); err != nil {
		return fmt.Errorf("create publish failures counter: %w", err)
	}
	return nil
}

// AddEvent counts one accepted webhook event of the given type.
func AddEvent(ctx context.Context, eventType string) {
	if eventsReceived != nil {
		eventsReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("event.type", eventType)))
	}
}

// AddArtifacts counts artifacts extracted from a run.
func AddArtifacts(ctx context.Context, n int) {
	if artifactsFetched != nil && n > 0 {
		artifactsFetched.Add(ctx, int64(n))
	}
}

// AddEvaluations counts rubric evaluations executed.
func AddEvaluations(ctx context.Context, n int) {
	if evaluationsRun != nil && n > 0 {
		evaluationsRun.Add(ctx, int64(n))
	}
}

// AddPublishFailure counts one failed publish for a pipeline stage.
func AddPublishFailure(ctx context.Context, stage string) {
	if publishFailures != nil {
		publishFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("pipeline.stage", stage)))
	}
}
