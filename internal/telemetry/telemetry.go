// Package telemetry wires OpenTelemetry logs and metrics for awsts.
//
// Telemetry is off by default. It activates only when an OTLP endpoint is
// provided via environment variable or settings, so normal CLI runs never
// open network connections for observability.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	// EnvMetricsURL is the OTLP HTTP endpoint for metrics. Unset disables
	// metric export.
	EnvMetricsURL = "AWSTS_OTEL_METRICS_URL"
	// EnvLogsURL is the OTLP HTTP endpoint for log events. Unset disables
	// log export.
	EnvLogsURL = "AWSTS_OTEL_LOGS_URL"

	serviceName = "awsts"

	// exportInterval is short because awsts is a one-shot CLI — the final
	// flush in Shutdown does most of the work.
	exportInterval = 5 * time.Second
)

// ShutdownFunc flushes and closes telemetry providers.
type ShutdownFunc func(ctx context.Context) error

// EndpointURL resolves an endpoint: the environment variable wins over
// the configured value.
func EndpointURL(envKey, configured string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return configured
}

// Init installs global OTel log and metric providers backed by OTLP HTTP
// exporters. Empty URLs install nothing and return a no-op shutdown. The
// returned ShutdownFunc must be called before process exit to flush
// pending data.
func Init(ctx context.Context, metricsURL, logsURL string) (ShutdownFunc, error) {
	if metricsURL == "" && logsURL == "" {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		))
	if err != nil {
		return nil, fmt.Errorf("building telemetry resource: %w", err)
	}

	var shutdowns []ShutdownFunc

	if metricsURL != "" {
		exp, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpointURL(metricsURL),
		)
		if err != nil {
			return nil, fmt.Errorf("creating metric exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp,
				sdkmetric.WithInterval(exportInterval))),
		)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	if logsURL != "" {
		exp, err := otlploghttp.New(ctx,
			otlploghttp.WithEndpointURL(logsURL),
		)
		if err != nil {
			return nil, fmt.Errorf("creating log exporter: %w", err)
		}
		lp := sdklog.NewLoggerProvider(
			sdklog.WithResource(res),
			sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		)
		global.SetLoggerProvider(lp)
		shutdowns = append(shutdowns, lp.Shutdown)
	}

	return func(ctx context.Context) error {
		var firstErr error
		for _, fn := range shutdowns {
			if err := fn(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}, nil
}
