// Package gateway serves a tool.Toolbox over HTTP.
//
// Routes:
//
//	GET  /tools         list descriptors
//	GET  /tools/{name}  one descriptor
//	POST /tools/{name}  invoke; the request body is the JSON input
//	GET  /healthz, /readyz, /health
//	GET  /metrics       when WithMetrics is set
//
// Inbound headers are attached to the request context, so remote tools can
// forward the ones listed in their ProxyHeaders. Successful invocations of
// tools with a ClientCache carry a matching Cache-Control header.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonwraymond/toolinvoke/health"
	"github.com/jonwraymond/toolinvoke/observe"
	"github.com/jonwraymond/toolinvoke/schema"
	"github.com/jonwraymond/toolinvoke/tool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxBodyBytes bounds the size of an invocation request body.
const MaxBodyBytes = 1 << 20

// Server exposes a Toolbox over HTTP.
type Server struct {
	box     *tool.Toolbox
	health  *health.Aggregator
	log     observe.Logger
	metrics bool
}

// Option configures a Server.
type Option func(*Server)

// WithHealth replaces the default aggregator, which checks the toolbox and
// its shared store.
func WithHealth(agg *health.Aggregator) Option {
	return func(s *Server) {
		if agg != nil {
			s.health = agg
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics mounts the Prometheus handler at /metrics. Pair it with an
// observe.Config using the "prometheus" metrics exporter.
func WithMetrics() Option {
	return func(s *Server) {
		s.metrics = true
	}
}

// New creates a Server for box.
func New(box *tool.Toolbox, opts ...Option) *Server {
	s := &Server{box: box, log: observe.NopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	if s.health == nil {
		s.health = health.NewAggregator()
		s.health.Register(health.NewToolboxChecker(box))
		s.health.Register(health.NewStoreChecker("cache", box.Store()))
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(tool.CaptureHeaders)

	r.Get("/tools", s.listTools)
	r.Get("/tools/{name}", s.getTool)
	r.Post("/tools/{name}", s.invokeTool)

	r.Get("/healthz", health.LivenessHandler())
	r.Get("/readyz", health.ReadinessHandler(s.health))
	r.Get("/health", health.DetailedHandler(s.health))
	if s.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down,
// giving in-flight requests up to five seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "gateway listening", observe.Field{Key: "addr", Value: addr})
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("gateway: shutdown: %w", err)
		}
		return nil
	}
}

// ToolInfo is the listing form of a tool.
type ToolInfo struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Intent       tool.Intent    `json:"intent"`
	Dispatch     string         `json:"dispatch"`
	CacheMs      int64          `json:"cacheMs,omitempty"`
	CacheControl string         `json:"cacheControl,omitempty"`
	InputSchema  *schema.Schema `json:"inputSchema,omitempty"`
	ResultSchema *schema.Schema `json:"resultSchema,omitempty"`
}

// InvokeResponse is the body of a successful invocation.
type InvokeResponse struct {
	Result any `json:"result"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error      string             `json:"error"`
	Kind       string             `json:"kind"`
	Violations []schema.Violation `json:"violations,omitempty"`
	Upstream   int                `json:"upstreamStatus,omitempty"`
}

func (s *Server) listTools(w http.ResponseWriter, _ *http.Request) {
	tools := s.box.Tools()
	out := make([]ToolInfo, 0, len(tools))
	for _, t := range tools {
		out = append(out, info(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getTool(w http.ResponseWriter, r *http.Request) {
	t, err := s.box.Get(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, info(t))
}

func (s *Server) invokeTool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := s.box.Get(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	input, err := decodeInput(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "bad_request"})
		return
	}

	var opts []tool.CallOption
	if noCache(r) {
		opts = append(opts, tool.NoCache())
	}

	out, err := t.Invoke(ctx, input, opts...)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if cc := t.Descriptor().CacheControl(); cc != "" {
		w.Header().Set("Cache-Control", cc)
	}
	writeJSON(w, http.StatusOK, InvokeResponse{Result: out})
}

// decodeInput reads a JSON value. An empty body is a null input.
func decodeInput(body io.Reader) (any, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	input, err := schema.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("body is not JSON: %w", err)
	}
	return input, nil
}

// noCache honors "Cache-Control: no-cache" and "?nocache=true".
func noCache(r *http.Request) bool {
	if r.Header.Get("Cache-Control") == "no-cache" {
		return true
	}
	v := r.URL.Query().Get("nocache")
	return v == "1" || v == "true"
}

func info(t *tool.Tool) ToolInfo {
	d := t.Descriptor()
	return ToolInfo{
		Name:         d.Name,
		Description:  d.Description,
		Intent:       d.Intent,
		Dispatch:     d.Dispatch.Kind(),
		CacheMs:      d.Cache.Milliseconds(),
		CacheControl: d.CacheControl(),
		InputSchema:  t.InputSchema(),
		ResultSchema: t.ResultSchema(),
	}
}

// writeError maps pipeline errors to HTTP statuses.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var (
		verr *tool.ValidationError
		terr *tool.TransportError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status, resp.Kind = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, tool.ErrToolNotFound):
		status, resp.Kind = http.StatusNotFound, "not_found"
	case errors.As(err, &verr):
		resp.Kind, resp.Violations = "validation", verr.Violations
		status = http.StatusUnprocessableEntity
		if verr.Side == tool.SideResult {
			status = http.StatusBadGateway
		}
	case errors.As(err, &terr):
		resp.Kind, resp.Upstream = "transport", terr.StatusCode
		status = http.StatusBadGateway
	case errors.Is(err, tool.ErrUnsupportedContentType):
		status, resp.Kind = http.StatusBadGateway, "unsupported_content_type"
	case errors.Is(err, tool.ErrConfiguration):
		resp.Kind = "configuration"
	default:
		resp.Kind = "internal"
	}

	if status >= http.StatusInternalServerError {
		s.log.Error(ctx, "tool request failed",
			observe.Field{Key: "error", Value: err},
			observe.Field{Key: "request_id", Value: middleware.GetReqID(ctx)},
		)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
