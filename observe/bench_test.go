package observe

import (
	"context"
	"io"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func BenchmarkLogger_Info(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "benchmark message", Field{Key: "status", Value: 200})
	}
}

func BenchmarkLogger_LevelFiltering(b *testing.B) {
	logger := NewLoggerWithWriter("error", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug(ctx, "filtered")
	}
}

func BenchmarkLogger_WithTool(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	meta := ToolMeta{Name: "get_user", Intent: "resource", Dispatch: "http"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = logger.WithTool(meta)
	}
}

func BenchmarkTracer_StartEndSpan(b *testing.B) {
	tracer := NewTracer(sdktrace.NewTracerProvider().Tracer("bench"))
	ctx := context.Background()
	meta := ToolMeta{Name: "get_user"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, span := tracer.StartSpan(ctx, meta)
		tracer.EndSpan(span, nil)
	}
}

func BenchmarkMetrics_RecordExecution(b *testing.B) {
	_, m := newRecordingMetrics(b)
	ctx := context.Background()
	meta := ToolMeta{Name: "get_user"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordExecution(ctx, meta, time.Millisecond, nil)
	}
}

func BenchmarkMiddleware_Wrap(b *testing.B) {
	mp := sdkmetric.NewMeterProvider()
	metrics, _ := newMetrics(mp.Meter("bench"))
	mw := NewMiddleware(
		NewTracer(sdktrace.NewTracerProvider().Tracer("bench")),
		metrics,
		NewLoggerWithWriter("info", io.Discard),
	)
	wrapped := mw.Wrap(func(ctx context.Context, _ ToolMeta, in any) (any, error) {
		RecordCacheLookup(ctx, true)
		return in, nil
	})
	ctx := context.Background()
	meta := ToolMeta{Name: "get_user"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = wrapped(ctx, meta, i)
	}
}

func BenchmarkConfig_Validate(b *testing.B) {
	cfg := validConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cfg.Validate()
	}
}
