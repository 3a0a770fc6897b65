// Package observe provides observability primitives for tool invocation.
//
// It is a pure instrumentation library: no dispatch, no transport, no I/O
// beyond exporter setup. The tool package wraps every invocation with a
// Middleware; cache outcomes reach the span and metrics through
// RecordCacheLookup on the invocation context.
package observe
