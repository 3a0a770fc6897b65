package cache

import "time"

// Policy configures TTL selection for the middleware.
type Policy struct {
	// DefaultTTL is the TTL to use when a request carries none.
	// If zero, requests without a TTL are not cached.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Request TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns a policy that only clamps TTLs to one day.
// Requests without a TTL are not cached.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 0,
		MaxTTL:     24 * time.Hour,
	}
}

// NoCachePolicy returns a policy that never supplies a TTL.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if requests without a TTL are cached.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	// Use default if no override (or negative override)
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}

	// Clamp to MaxTTL if set
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}

	return ttl
}
