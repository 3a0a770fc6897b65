package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// ExecutorFunc produces the serialized value for a cache miss.
type ExecutorFunc func(ctx context.Context) ([]byte, error)

// Request describes one cached execution.
type Request struct {
	// Namespace scopes the key, typically the tool name.
	Namespace string

	// Input is hashed into the key.
	Input any

	// TTL overrides the policy default. Zero uses the policy default.
	TTL time.Duration

	// Store overrides the middleware's store for this request.
	Store Store
}

// Result reports what the middleware did for a request.
type Result struct {
	// Value is the cached or freshly produced value.
	Value []byte

	// Key is the derived key, empty when key derivation failed or caching
	// did not apply.
	Key string

	// Hit is true when Value came from the store.
	Hit bool

	// Stored is true when Value was written to the store.
	Stored bool

	// WriteErr is the store failure on population, if any. The value is still
	// returned; callers decide whether to log it.
	WriteErr error

	store Store
}

// Middleware wraps execution with cache lookup and write-through population.
type Middleware struct {
	store    Store
	keyer    Keyer
	policy   Policy
	coalesce bool
	group    singleflight.Group
}

// MiddlewareOption configures a Middleware.
type MiddlewareOption func(*Middleware)

// WithKeyer replaces the DefaultKeyer.
func WithKeyer(k Keyer) MiddlewareOption {
	return func(m *Middleware) {
		if k != nil {
			m.keyer = k
		}
	}
}

// WithPolicy sets the TTL policy. The default is the zero Policy.
func WithPolicy(p Policy) MiddlewareOption {
	return func(m *Middleware) {
		m.policy = p
	}
}

// WithCoalescing makes concurrent misses for the same key share a single
// execution. Off by default.
//
// The shared execution keeps the starting caller's context values but not
// its cancellation or deadline. A caller whose context ends returns its
// context error at once while the others keep waiting.
func WithCoalescing() MiddlewareOption {
	return func(m *Middleware) {
		m.coalesce = true
	}
}

// NewMiddleware creates a cache middleware backed by store.
func NewMiddleware(store Store, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		store: store,
		keyer: NewDefaultKeyer(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the middleware's default store.
func (m *Middleware) Store() Store {
	return m.store
}

// Key derives the key for a request.
func (m *Middleware) Key(req Request) (string, error) {
	return m.keyer.Key(req.Namespace, req.Input)
}

// Execute runs exec with caching.
// On cache hit, returns the cached value without calling exec.
// On cache miss, calls exec and writes the value through.
// Errors are NOT cached, and a failed key derivation or store read degrades
// to an uncached execution.
func (m *Middleware) Execute(ctx context.Context, req Request, exec ExecutorFunc) (Result, error) {
	store := req.Store
	if store == nil {
		store = m.store
	}

	ttl := m.policy.EffectiveTTL(req.TTL)
	if store == nil || ttl <= 0 {
		value, err := exec(ctx)
		return Result{Value: value}, err
	}

	key, err := m.Key(req)
	if err != nil {
		value, err := exec(ctx)
		return Result{Value: value}, err
	}

	if cached, ok := store.Get(ctx, key); ok {
		return Result{Value: cached, Key: key, Hit: true, store: store}, nil
	}

	if !m.coalesce {
		return m.populate(ctx, store, key, ttl, exec)
	}

	// The flight is shared, so it must not die with whichever caller
	// started it. It keeps that caller's values but not its cancellation;
	// each caller still stops waiting when its own context ends.
	flightCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		// A flight that finished between our lookup and Do has already stored it.
		if cached, ok := store.Get(flightCtx, key); ok {
			return Result{Value: cached, Key: key, Hit: true, store: store}, nil
		}
		return m.populate(flightCtx, store, key, ttl, exec)
	})
	select {
	case r := <-ch:
		res, _ := r.Val.(Result)
		return res, r.Err
	case <-ctx.Done():
		return Result{Key: key, store: store}, ctx.Err()
	}
}

func (m *Middleware) populate(ctx context.Context, store Store, key string, ttl time.Duration, exec ExecutorFunc) (Result, error) {
	value, err := exec(ctx)
	if err != nil {
		return Result{Value: value, Key: key, store: store}, err
	}

	res := Result{Value: value, Key: key, store: store}
	if err := store.Set(ctx, key, value, ttl); err != nil {
		res.WriteErr = err
		return res, nil
	}
	res.Stored = true
	return res, nil
}

// Invalidate deletes the entry a previous Execute produced, in the store it
// was read from or written to. It is a no-op for uncached results.
func (m *Middleware) Invalidate(ctx context.Context, res Result) error {
	if res.Key == "" || res.store == nil {
		return nil
	}
	return res.store.Delete(ctx, res.Key)
}
