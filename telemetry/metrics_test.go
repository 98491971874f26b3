package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := mp.Meter(meterName)

	m := &Metrics{meterProvider: mp}
	var err error
	m.fetchTotal, err = meter.Int64Counter("sslcache.fetch.total")
	require.NoError(t, err)
	m.hitTotal, err = meter.Int64Counter("sslcache.hit.total")
	require.NoError(t, err)
	m.missTotal, err = meter.Int64Counter("sslcache.miss.total")
	require.NoError(t, err)
	m.evictTotal, err = meter.Int64Counter("sslcache.evict.total")
	require.NoError(t, err)
	m.inheritTotal, err = meter.Int64Counter("sslcache.inherit.total")
	require.NoError(t, err)
	m.invariantTotal, err = meter.Int64Counter("sslcache.teardown_invariant_violation.total")
	require.NoError(t, err)
	m.currentEntries, err = meter.Int64Gauge("sslcache.current_entries")
	require.NoError(t, err)

	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	return m, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findCounter(rm metricdata.ResourceMetrics, name string) []metricdata.DataPoint[int64] {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
					return sum.DataPoints
				}
			}
		}
	}
	return nil
}

func hasAttr(attrs attribute.Set, key, value string) bool {
	v, ok := attrs.Value(attribute.Key(key))
	return ok && v.AsString() == value
}

func TestRecordHit(t *testing.T) {
	m, reader := setupTestMetrics(t)

	m.RecordHit(context.Background(), "cert")

	rm := collectMetrics(t, reader)
	dps := findCounter(rm, "sslcache.hit.total")
	require.Len(t, dps, 1)
	require.EqualValues(t, 1, dps[0].Value)
	require.True(t, hasAttr(dps[0].Attributes, "family", "cert"))
}

func TestRecordEvict(t *testing.T) {
	m, reader := setupTestMetrics(t)

	m.RecordEvict(context.Background(), "pkey", "inactive")
	m.RecordEvict(context.Background(), "pkey", "inactive")

	rm := collectMetrics(t, reader)
	dps := findCounter(rm, "sslcache.evict.total")
	require.Len(t, dps, 1)
	require.EqualValues(t, 2, dps[0].Value)
	require.True(t, hasAttr(dps[0].Attributes, "cause", "inactive"))
}

func TestRecordCurrentEntries(t *testing.T) {
	m, reader := setupTestMetrics(t)

	m.RecordCurrentEntries(context.Background(), 3)

	rm := collectMetrics(t, reader)
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name == "sslcache.current_entries" {
				gauge, ok := metric.Data.(metricdata.Gauge[int64])
				require.True(t, ok)
				require.Len(t, gauge.DataPoints, 1)
				require.EqualValues(t, 3, gauge.DataPoints[0].Value)
				return
			}
		}
	}
	t.Fatal("sslcache.current_entries not found")
}

func TestNilMetricsDoesNotPanic(t *testing.T) {
	var m *Metrics

	m.RecordFetch(context.Background(), "cert", "config")
	m.RecordHit(context.Background(), "cert")
	m.RecordMiss(context.Background(), "cert")
	m.RecordEvict(context.Background(), "cert", "capacity")
	m.RecordInherit(context.Background(), "cert")
	m.RecordInvariantViolation(context.Background())
	m.RecordCurrentEntries(context.Background(), 0)
	require.Nil(t, m.PrometheusHandler())
}
