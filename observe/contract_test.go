package observe

import (
	"context"
	"testing"
	"time"
)

func TestLoggerContract_WithTool(t *testing.T) {
	for _, logger := range []Logger{NopLogger(), NewLoggerWithWriter("info", &discard{})} {
		if logger.WithTool(ToolMeta{Name: "noop"}) == nil {
			t.Fatalf("%T: WithTool should return non-nil logger", logger)
		}
	}
}

func TestMetricsContract_NoPanic(_ *testing.T) {
	metrics := &noopMetrics{}
	metrics.RecordExecution(context.Background(), ToolMeta{Name: "noop"}, 10*time.Millisecond, nil)
	metrics.RecordCacheLookup(context.Background(), ToolMeta{Name: "noop"}, false)
}

func TestTracerContract_NoPanic(_ *testing.T) {
	tracer := newNoopTracer()
	_, span := tracer.StartSpan(context.Background(), ToolMeta{Name: "noop"})
	tracer.EndSpan(span, nil)
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }
