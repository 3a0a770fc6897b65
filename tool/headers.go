package tool

import (
	"context"
	"net/http"
)

type headersKey struct{}

// WithHeaders returns a new context carrying inbound HTTP headers.
// Remote tools copy the headers named in HTTPEndpoint.ProxyHeaders from it.
func WithHeaders(ctx context.Context, h http.Header) context.Context {
	return context.WithValue(ctx, headersKey{}, h)
}

// HeadersFromContext retrieves the headers attached with WithHeaders.
// Returns nil if none are present.
func HeadersFromContext(ctx context.Context) http.Header {
	h, _ := ctx.Value(headersKey{}).(http.Header)
	return h
}

// CaptureHeaders is HTTP middleware that attaches the request headers to the
// request context, making them available to ProxyHeaders forwarding.
//
// Usage:
//
//	mux.Handle("/tools/", tool.CaptureHeaders(handler))
func CaptureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithHeaders(r.Context(), r.Header)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
