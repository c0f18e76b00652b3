package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/gobexport/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment.
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// ExportMetrics holds the instruments of an export run. A nil
// *ExportMetrics records nothing.
type ExportMetrics struct {
	pages           metric.Int64Counter
	entities        metric.Int64Counter
	rows            metric.Int64Counter
	retries         metric.Int64Counter
	errors          metric.Int64Counter
	productDuration metric.Float64Histogram
}

// NewExportMetrics creates the export instruments on the given meter.
func NewExportMetrics(meter metric.Meter) (*ExportMetrics, error) {
	pages, err := meter.Int64Counter("gobexport.pages",
		metric.WithDescription("Pages or stream batches fetched from the API"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gobexport.pages counter: %w", err)
	}

	entities, err := meter.Int64Counter("gobexport.entities",
		metric.WithDescription("Entities yielded by sources"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gobexport.entities counter: %w", err)
	}

	rows, err := meter.Int64Counter("gobexport.rows",
		metric.WithDescription("Rows written by sinks"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gobexport.rows counter: %w", err)
	}

	retries, err := meter.Int64Counter("gobexport.retries",
		metric.WithDescription("Retried API calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gobexport.retries counter: %w", err)
	}

	errs, err := meter.Int64Counter("gobexport.errors",
		metric.WithDescription("Failed products by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gobexport.errors counter: %w", err)
	}

	productDuration, err := meter.Float64Histogram("gobexport.product.duration",
		metric.WithDescription("Duration of product exports in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gobexport.product.duration histogram: %w", err)
	}

	return &ExportMetrics{
		pages:           pages,
		entities:        entities,
		rows:            rows,
		retries:         retries,
		errors:          errs,
		productDuration: productDuration,
	}, nil
}

// RecordPage counts one fetched page or batch.
func (m *ExportMetrics) RecordPage(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.pages.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordEntities counts entities yielded by a source.
func (m *ExportMetrics) RecordEntities(ctx context.Context, source string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.entities.Add(ctx, int64(n), metric.WithAttributes(attribute.String("source", source)))
}

// RecordRetry counts one retried call.
func (m *ExportMetrics) RecordRetry(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordProduct records a finished product export.
func (m *ExportMetrics) RecordProduct(ctx context.Context, product string, rows int, duration time.Duration, code string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("product", product))
	m.rows.Add(ctx, int64(rows), attrs)
	m.productDuration.Record(ctx, duration.Seconds(), attrs)
	if code != "" {
		m.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("product", product),
			attribute.String("code", code),
		))
	}
}
