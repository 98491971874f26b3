// Package telemetry instruments the object cache with OpenTelemetry
// counters and gauges, exported through both an OTLP/gRPC pipeline and a
// Prometheus HTTP handler, the same dual-exporter shape used throughout
// this module's lineage.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

const meterName = "github.com/wolfeidau/sslcache"

// Config configures the metrics system.
type Config struct {
	// ServiceName names the resource attribute. Defaults to "sslcache".
	ServiceName string

	// OTLPEndpoint is the OTLP gRPC endpoint (e.g. "localhost:4317"). If
	// empty, OTLP export is disabled.
	OTLPEndpoint string

	// EnablePrometheus turns on the Prometheus /metrics handler.
	EnablePrometheus bool

	// FlushInterval is the OTLP export period. Defaults to 10s.
	FlushInterval time.Duration
}

// Metrics holds the instruments the cache records fetch outcomes against.
// A nil *Metrics is valid everywhere it's accepted: every recording method
// is a no-op on a nil receiver, so instrumentation can be wired in
// optionally without littering call sites with nil checks.
type Metrics struct {
	fetchTotal     metric.Int64Counter
	hitTotal       metric.Int64Counter
	missTotal      metric.Int64Counter
	evictTotal     metric.Int64Counter
	inheritTotal   metric.Int64Counter
	invariantTotal metric.Int64Counter
	currentEntries metric.Int64Gauge

	meterProvider *sdkmetric.MeterProvider
	promHandler   http.Handler
}

var (
	global   *Metrics
	initOnce sync.Once
	initErr  error
)

// Init builds the global Metrics instance and returns a shutdown function.
// Safe to call once per process; subsequent calls return the first result.
func Init(ctx context.Context, cfg Config) (m *Metrics, shutdown func(context.Context) error, err error) {
	initOnce.Do(func() {
		global, initErr = doInit(ctx, cfg)
	})
	if initErr != nil {
		return nil, nil, initErr
	}
	return global, shutdownFunc, nil
}

func doInit(ctx context.Context, cfg Config) (*Metrics, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "sslcache"
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("building resource: %w", err)
	}

	var readers []sdkmetric.Option
	var promHandler http.Handler

	if cfg.EnablePrometheus {
		exporter, err := promexporter.New()
		if err != nil {
			return nil, fmt.Errorf("creating prometheus exporter: %w", err)
		}
		readers = append(readers, sdkmetric.WithReader(exporter))
		promHandler = promHTTPHandler()
	}

	if cfg.OTLPEndpoint != "" {
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("creating otlp exporter: %w", err)
		}
		readers = append(readers, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.FlushInterval)),
		))
	}

	opts := append([]sdkmetric.Option{sdkmetric.WithResource(res)}, readers...)
	provider := sdkmetric.NewMeterProvider(opts...)
	meter := provider.Meter(meterName)

	m := &Metrics{meterProvider: provider, promHandler: promHandler}

	if m.fetchTotal, err = meter.Int64Counter("sslcache.fetch.total",
		metric.WithDescription("Total fetch calls by family and cache kind")); err != nil {
		return nil, err
	}
	if m.hitTotal, err = meter.Int64Counter("sslcache.hit.total",
		metric.WithDescription("Fetches satisfied from the index")); err != nil {
		return nil, err
	}
	if m.missTotal, err = meter.Int64Counter("sslcache.miss.total",
		metric.WithDescription("Fetches that invoked create")); err != nil {
		return nil, err
	}
	if m.evictTotal, err = meter.Int64Counter("sslcache.evict.total",
		metric.WithDescription("Entries evicted by capacity, inactivity, or validity failure")); err != nil {
		return nil, err
	}
	if m.inheritTotal, err = meter.Int64Counter("sslcache.inherit.total",
		metric.WithDescription("Fetches that adopted an object from the prior configuration generation")); err != nil {
		return nil, err
	}
	if m.invariantTotal, err = meter.Int64Counter("sslcache.teardown_invariant_violation.total",
		metric.WithDescription("Teardowns that found a non-zero current count or non-empty recency list")); err != nil {
		return nil, err
	}
	if m.currentEntries, err = meter.Int64Gauge("sslcache.current_entries",
		metric.WithDescription("Live entry count in a bounded connection cache")); err != nil {
		return nil, err
	}

	return m, nil
}

func shutdownFunc(ctx context.Context) error {
	if global == nil || global.meterProvider == nil {
		return nil
	}
	return global.meterProvider.Shutdown(ctx)
}

// PrometheusHandler returns the /metrics HTTP handler, or nil if
// Prometheus export wasn't enabled.
func (m *Metrics) PrometheusHandler() http.Handler {
	if m == nil {
		return nil
	}
	return m.promHandler
}

// RecordFetch records a fetch attempt for the given family/cache-kind pair.
func (m *Metrics) RecordFetch(ctx context.Context, family, cacheKind string) {
	if m == nil {
		return
	}
	m.fetchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("family", family),
		attribute.String("cache", cacheKind),
	))
}

// RecordHit records an index hit.
func (m *Metrics) RecordHit(ctx context.Context, family string) {
	if m == nil {
		return
	}
	m.hitTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("family", family)))
}

// RecordMiss records a create() invocation.
func (m *Metrics) RecordMiss(ctx context.Context, family string) {
	if m == nil {
		return
	}
	m.missTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("family", family)))
}

// RecordEvict records an eviction and its cause.
func (m *Metrics) RecordEvict(ctx context.Context, family, cause string) {
	if m == nil {
		return
	}
	m.evictTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("family", family),
		attribute.String("cause", cause),
	))
}

// RecordInherit records an adoption from the previous configuration
// generation.
func (m *Metrics) RecordInherit(ctx context.Context, family string) {
	if m == nil {
		return
	}
	m.inheritTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("family", family)))
}

// RecordInvariantViolation records a non-clean teardown.
func (m *Metrics) RecordInvariantViolation(ctx context.Context) {
	if m == nil {
		return
	}
	m.invariantTotal.Add(ctx, 1)
}

// RecordCurrentEntries records a bounded cache's live entry count.
func (m *Metrics) RecordCurrentEntries(ctx context.Context, n int64) {
	if m == nil {
		return
	}
	m.currentEntries.Record(ctx, n)
}
