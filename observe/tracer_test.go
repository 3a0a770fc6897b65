package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer() (*tracetest.SpanRecorder, Tracer) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return recorder, NewTracer(tp.Tracer("test"))
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestToolMeta_SpanName(t *testing.T) {
	if got := (ToolMeta{Name: "greet"}).SpanName(); got != "tool.invoke.greet" {
		t.Errorf("SpanName() = %q, want %q", got, "tool.invoke.greet")
	}
}

func TestToolMeta_Validate(t *testing.T) {
	if err := (ToolMeta{}).Validate(); !errors.Is(err, ErrMissingToolName) {
		t.Errorf("expected ErrMissingToolName, got %v", err)
	}
	if err := (ToolMeta{Name: "x"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestTracer_SpanAttributes verifies tool metadata lands on the span.
func TestTracer_SpanAttributes(t *testing.T) {
	recorder, tracer := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), ToolMeta{Name: "get_user", Intent: "resource", Dispatch: "http"})
	tracer.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	attrs := attrMap(spans[0].Attributes())
	if attrs["tool.name"].AsString() != "get_user" {
		t.Errorf("tool.name = %v", attrs["tool.name"])
	}
	if attrs["tool.intent"].AsString() != "resource" {
		t.Errorf("tool.intent = %v", attrs["tool.intent"])
	}
	if attrs["tool.dispatch"].AsString() != "http" {
		t.Errorf("tool.dispatch = %v", attrs["tool.dispatch"])
	}
	if attrs["tool.error"].AsBool() {
		t.Error("tool.error should be false")
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", spans[0].Status().Code)
	}
}

func TestTracer_OptionalAttributesOmitted(t *testing.T) {
	recorder, tracer := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), ToolMeta{Name: "bare"})
	tracer.EndSpan(span, nil)

	attrs := attrMap(recorder.Ended()[0].Attributes())
	if _, ok := attrs["tool.intent"]; ok {
		t.Error("tool.intent should be omitted when empty")
	}
	if _, ok := attrs["tool.dispatch"]; ok {
		t.Error("tool.dispatch should be omitted when empty")
	}
}

func TestTracer_ErrorStatus(t *testing.T) {
	recorder, tracer := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), ToolMeta{Name: "failing"})
	tracer.EndSpan(span, errors.New("upstream returned 502"))

	s := recorder.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}
	if s.Status().Description != "upstream returned 502" {
		t.Errorf("description = %q", s.Status().Description)
	}
	if !attrMap(s.Attributes())["tool.error"].AsBool() {
		t.Error("tool.error should be true")
	}
	if len(s.Events()) == 0 {
		t.Error("expected an exception event")
	}
}

func TestNewTracer_NilIsNoop(t *testing.T) {
	tracer := NewTracer(nil)
	_, span := tracer.StartSpan(context.Background(), ToolMeta{Name: "noop"})
	tracer.EndSpan(span, errors.New("ignored"))
}
