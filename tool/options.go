package tool

import (
	"net/http"

	"github.com/jonwraymond/toolinvoke/cache"
	"github.com/jonwraymond/toolinvoke/observe"
)

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type config struct {
	store    cache.Store
	client   Doer
	logger   observe.Logger
	observer *observe.Middleware
	keyer    cache.Keyer
	policy   cache.Policy
	coalesce bool
}

// Option configures Build.
type Option func(*config)

// WithCacheStore sets the store used when a call does not override it.
// Without it, Build gives the tool its own MemoryCache; a Toolbox shares one
// store across all of its tools.
func WithCacheStore(s cache.Store) Option {
	return func(c *config) {
		c.store = s
	}
}

// WithHTTPClient sets the transport for remote tools. The default is a
// dedicated *http.Client with no timeout; set deadlines on the context or on
// the client you pass.
func WithHTTPClient(d Doer) Option {
	return func(c *config) {
		c.client = d
	}
}

// WithLogger sets the logger for pipeline diagnostics. Nil discards them.
func WithLogger(l observe.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithObserver wraps every invocation with the given tracing, metrics and
// logging middleware.
func WithObserver(m *observe.Middleware) Option {
	return func(c *config) {
		c.observer = m
	}
}

// WithKeyer replaces the SHA-1 cache keyer.
func WithKeyer(k cache.Keyer) Option {
	return func(c *config) {
		c.keyer = k
	}
}

// WithCachePolicy bounds cache TTLs, typically with Policy.MaxTTL.
func WithCachePolicy(p cache.Policy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithCoalescing makes concurrent cache misses for the same input share one
// dispatch.
func WithCoalescing() Option {
	return func(c *config) {
		c.coalesce = true
	}
}

func newConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

type callOptions struct {
	noCache bool
	store   cache.Store
}

// CallOption configures a single Invoke.
type CallOption func(*callOptions)

// NoCache bypasses the cache for this call: no lookup, no population.
func NoCache() CallOption {
	return func(o *callOptions) {
		o.noCache = true
	}
}

// WithStore uses s instead of the tool's store for this call.
func WithStore(s cache.Store) CallOption {
	return func(o *callOptions) {
		o.store = s
	}
}
