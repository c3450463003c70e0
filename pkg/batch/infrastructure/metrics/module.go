package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	config "github.com/tigerroll/weatheretl/pkg/batch/core/config"
	metrics "github.com/tigerroll/weatheretl/pkg/batch/core/metrics"
	logger "github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

func newResource(serviceName string) *resource.Resource {
	return resource.NewSchemaless(attribute.String("service.name", serviceName))
}

func newMetricExporter(ctx context.Context, cfg config.MetricsConfig) (sdkmetric.Exporter, error) {
	switch cfg.Backend {
	case config.MetricsBackendOTLPHTTP:
		opts := []otlpmetrichttp.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	case config.MetricsBackendOTLPGRPC:
		opts := []otlpmetricgrpc.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP metrics backend: %s", cfg.Backend)
	}
}

func newSpanExporter(ctx context.Context, cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "otlp-http":
		opts := []otlptracehttp.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	case "otlp-grpc":
		opts := []otlptracegrpc.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}
}

// NewMetricRecorder selects the MetricRecorder backend from surfin.metrics.backend.
func NewMetricRecorder(lc fx.Lifecycle, cfg *config.Config) (metrics.MetricRecorder, error) {
	mc := cfg.Surfin.Metrics
	switch mc.Backend {
	case "", config.MetricsBackendNone:
		return metrics.NewNoOpMetricRecorder(), nil
	case config.MetricsBackendPrometheus:
		logger.Infof("Metrics: using Prometheus registry (textfile: %q, pushgateway: %q).", mc.TextfilePath, mc.PushgatewayURL)
		return NewPrometheusRecorder(PrometheusOptions{
			TextfilePath:   mc.TextfilePath,
			PushgatewayURL: mc.PushgatewayURL,
			PushJobName:    cfg.Surfin.Tracing.ServiceName,
		}), nil
	}

	exporter, err := newMetricExporter(context.Background(), mc)
	if err != nil {
		return nil, err
	}
	interval := time.Duration(mc.ExportIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(newResource(cfg.Surfin.Tracing.ServiceName)),
	)
	otel.SetMeterProvider(provider)

	recorder, err := NewOTelRecorder(provider)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: recorder.Shutdown})
	logger.Infof("Metrics: exporting via %s to %s.", mc.Backend, mc.OTLPEndpoint)
	return recorder, nil
}

// NewTracer selects the Tracer backend from surfin.tracing.exporter.
func NewTracer(lc fx.Lifecycle, cfg *config.Config) (metrics.Tracer, error) {
	tc := cfg.Surfin.Tracing
	if tc.Exporter == "" || tc.Exporter == "none" {
		return metrics.NewNoOpTracer(), nil
	}

	exporter, err := newSpanExporter(context.Background(), tc)
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(tc.ServiceName)),
	)
	otel.SetTracerProvider(provider)
	lc.Append(fx.Hook{OnStop: provider.Shutdown})
	logger.Infof("Tracing: exporting spans via %s to %s.", tc.Exporter, tc.Endpoint)
	return NewOpenTelemetryTracer(provider), nil
}

// Module provides the configured metrics.MetricRecorder and metrics.Tracer.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
