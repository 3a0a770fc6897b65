package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newRecordingMetrics(t testing.TB) (*sdkmetric.ManualReader, *metricsImpl) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := newMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return reader, m
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// counterValue returns the summed value of an int64 counter, 0 when absent.
func counterValue(rm metricdata.ResourceMetrics, name string) int64 {
	m := findMetric(rm, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordExecution(t *testing.T) {
	reader, m := newRecordingMetrics(t)
	meta := ToolMeta{Name: "get_user", Intent: "resource"}
	ctx := context.Background()

	m.RecordExecution(ctx, meta, 100*time.Millisecond, nil)
	m.RecordExecution(ctx, meta, 50*time.Millisecond, errors.New("boom"))

	rm := collect(t, reader)
	if got := counterValue(rm, "tool.invoke.total"); got != 2 {
		t.Errorf("tool.invoke.total = %d, want 2", got)
	}
	if got := counterValue(rm, "tool.invoke.errors"); got != 1 {
		t.Errorf("tool.invoke.errors = %d, want 1", got)
	}

	hist := findMetric(rm, "tool.invoke.duration_ms")
	if hist == nil {
		t.Fatal("tool.invoke.duration_ms not found")
	}
	data, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", hist.Data)
	}
	if len(data.DataPoints) != 1 || data.DataPoints[0].Count != 2 {
		t.Fatalf("unexpected histogram points: %+v", data.DataPoints)
	}
	if data.DataPoints[0].Sum != 150 {
		t.Errorf("duration sum = %v, want 150", data.DataPoints[0].Sum)
	}
}

func TestMetrics_RecordCacheLookup(t *testing.T) {
	reader, m := newRecordingMetrics(t)
	meta := ToolMeta{Name: "get_user"}
	ctx := context.Background()

	m.RecordCacheLookup(ctx, meta, false)
	m.RecordCacheLookup(ctx, meta, true)
	m.RecordCacheLookup(ctx, meta, true)

	rm := collect(t, reader)
	if got := counterValue(rm, "tool.cache.hits"); got != 2 {
		t.Errorf("tool.cache.hits = %d, want 2", got)
	}
	if got := counterValue(rm, "tool.cache.misses"); got != 1 {
		t.Errorf("tool.cache.misses = %d, want 1", got)
	}
}

func TestNewMetrics_NilMeterIsNoop(t *testing.T) {
	m, err := NewMetrics(nil)
	if err != nil {
		t.Fatalf("NewMetrics(nil) error = %v", err)
	}
	m.RecordExecution(context.Background(), ToolMeta{Name: "x"}, time.Millisecond, nil)
	m.RecordCacheLookup(context.Background(), ToolMeta{Name: "x"}, true)
}
