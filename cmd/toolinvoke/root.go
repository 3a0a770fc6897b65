package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/toolinvoke/cache"
	"github.com/jonwraymond/toolinvoke/cache/rediscache"
	"github.com/jonwraymond/toolinvoke/manifest"
	"github.com/jonwraymond/toolinvoke/observe"
	"github.com/jonwraymond/toolinvoke/tool"
	"github.com/spf13/cobra"
)

const serviceName = "toolinvoke"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app holds the flags shared by every command.
type app struct {
	funcs manifest.Funcs

	manifestPath    string
	logLevel        string
	redisURL        string
	cacheMaxTTL     string
	traceExporter   string
	metricsExporter string
}

func newRootCmd(funcs manifest.Funcs) *cobra.Command {
	a := &app{funcs: funcs}

	root := &cobra.Command{
		Use:           "toolinvoke",
		Short:         "Validate, cache and dispatch tool invocations",
		Long:          `toolinvoke loads tool descriptors from a YAML or JSON manifest and runs them through the validation, caching and dispatch pipeline.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.manifestPath, "manifest", "m", "tools.yaml", "Tool manifest (.yaml, .yml or .json)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	flags.StringVar(&a.redisURL, "redis", "", "Redis URL for a shared cache, e.g. redis://localhost:6379/0 (default: in-memory)")
	flags.StringVar(&a.cacheMaxTTL, "cache-max-ttl", "24h", "Upper bound applied to every tool's cache TTL")
	flags.StringVar(&a.traceExporter, "trace-exporter", "", "Tracing exporter: otlp, jaeger, stdout or none (default: disabled)")
	flags.StringVar(&a.metricsExporter, "metrics-exporter", "", "Metrics exporter: otlp, prometheus, stdout or none (default: disabled)")

	root.AddCommand(a.listCmd(), a.invokeCmd(), a.serveCmd())
	return root
}

// session is everything a command needs to run tools.
type session struct {
	box      *tool.Toolbox
	logger   observe.Logger
	observer observe.Observer
	closers  []func() error
}

// Close flushes telemetry and releases the store. It runs after the command
// context may already be cancelled, so it uses its own deadline.
func (r *session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if r.observer != nil {
		_ = r.observer.Shutdown(ctx)
	}
	for _, c := range r.closers {
		_ = c()
	}
}

// setup loads the manifest and builds a Toolbox wired to the configured
// store and telemetry.
func (a *app) setup(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := observe.Config{
		ServiceName: serviceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   a.traceExporter != "",
			Exporter:  a.traceExporter,
			SamplePct: 1.0,
			Writer:    cmd.ErrOrStderr(),
		},
		Metrics: observe.MetricsConfig{
			Enabled:  a.metricsExporter != "",
			Exporter: a.metricsExporter,
			Writer:   cmd.ErrOrStderr(),
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   a.logLevel,
			Writer:  cmd.ErrOrStderr(),
		},
	}
	obs, err := observe.NewObserver(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt := &session{observer: obs, logger: obs.Logger()}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		rt.Close()
		return nil, err
	}

	maxTTL, err := time.ParseDuration(a.cacheMaxTTL)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("--cache-max-ttl: %w", err)
	}

	var store cache.Store
	if a.redisURL != "" {
		rs, err := rediscache.NewFromURL(a.redisURL, rediscache.WithLogger(rt.logger))
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, rs.Close)
		store = rs
	}

	m, err := manifest.Load(a.manifestPath)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.box, err = m.Toolbox(ctx, a.funcs, manifest.NewResolver(),
		tool.WithCacheStore(store),
		tool.WithObserver(mw),
		tool.WithLogger(rt.logger),
		tool.WithCachePolicy(cache.Policy{MaxTTL: maxTTL}),
		tool.WithCoalescing(),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}
