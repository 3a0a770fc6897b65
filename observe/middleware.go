package observe

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// ExecuteFunc is the signature for tool invocation functions.
// This is the standard function signature that Middleware wraps.
type ExecuteFunc func(ctx context.Context, tool ToolMeta, input any) (any, error)

// Middleware wraps tool invocation with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from wrapped function are recorded and propagated unchanged.
//   - Ownership: Input/output values are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
// Nil components are replaced with no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopMiddleware returns a Middleware that records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// cache lookup outcomes carried on the invocation context.
const (
	lookupNone int32 = iota
	lookupHit
	lookupMiss
)

type invocationKey struct{}

type invocation struct {
	lookup atomic.Int32
}

// RecordCacheLookup marks the invocation in ctx as a cache hit or miss.
// It is a no-op outside a wrapped invocation.
func RecordCacheLookup(ctx context.Context, hit bool) {
	inv, ok := ctx.Value(invocationKey{}).(*invocation)
	if !ok {
		return
	}
	if hit {
		inv.lookup.Store(lookupHit)
	} else {
		inv.lookup.Store(lookupMiss)
	}
}

// Wrap wraps an ExecuteFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, tool ToolMeta, input any) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, tool)

		inv := &invocation{}
		ctx = context.WithValue(ctx, invocationKey{}, inv)

		start := time.Now()
		result, err := fn(ctx, tool, input)
		duration := time.Since(start)

		toolLogger := m.logger.WithTool(tool)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
		}

		if lookup := inv.lookup.Load(); lookup != lookupNone {
			hit := lookup == lookupHit
			span.SetAttributes(attribute.Bool("cache.hit", hit))
			m.metrics.RecordCacheLookup(ctx, tool, hit)
			fields = append(fields, Field{Key: "cache.hit", Value: hit})
		}

		// End span (records error status if err != nil)
		m.tracer.EndSpan(span, err)

		m.metrics.RecordExecution(ctx, tool, duration, err)

		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			toolLogger.Error(ctx, "tool invocation failed", fields...)
		} else {
			toolLogger.Info(ctx, "tool invocation completed", fields...)
		}

		return result, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
