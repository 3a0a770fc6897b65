// Package rediscache provides a cache.Store backed by Redis.
//
// Entries are stored as plain strings under a key prefix and expire through
// Redis' own TTLs, so every process sharing the server sees the same cache.
// Read failures are reported as misses: a degraded Redis makes tools slower,
// never broken.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/toolinvoke/cache"
	"github.com/jonwraymond/toolinvoke/observe"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix is prepended to every key unless WithPrefix is used.
const DefaultPrefix = "toolinvoke:"

// scanBatch is the COUNT hint for Clear's SCAN loop.
const scanBatch = 256

// Store implements cache.Store on a Redis client.
type Store struct {
	client backend.UniversalClient
	prefix string
	log    observe.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix. Clear only removes keys under it.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithLogger reports read failures that are otherwise treated as misses.
func WithLogger(l observe.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New connects to a single Redis server.
func New(addr, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromURL connects using a redis:// or rediss:// URL.
func NewFromURL(rawURL string, opts ...Option) (*Store, error) {
	o, err := backend.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("rediscache: %w", err)
	}
	return NewFromClient(backend.NewClient(o), opts...), nil
}

// NewFromClient wraps an existing client. Cluster and ring clients work too.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
		log:    observe.NopLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Get returns the value for key. Missing keys and read errors are misses.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	if cache.ValidateKey(key) != nil {
		return nil, false
	}
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, backend.Nil) {
			s.log.Warn(ctx, "redis get failed",
				observe.Field{Key: "cache.key", Value: key},
				observe.Field{Key: "error", Value: err},
			)
		}
		return nil, false
	}
	return val, true
}

// Set stores value for key. A non-positive TTL is a no-op.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("rediscache: set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("rediscache: delete %s: %w", key, err)
	}
	return nil
}

// Has reports whether key exists.
func (s *Store) Has(ctx context.Context, key string) bool {
	if cache.ValidateKey(key) != nil {
		return false
	}
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		s.log.Warn(ctx, "redis exists failed",
			observe.Field{Key: "cache.key", Value: key},
			observe.Field{Key: "error", Value: err},
		)
		return false
	}
	return n > 0
}

// Clear removes every key under the store's prefix. Keys written by others
// outside the prefix are left alone.
func (s *Store) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("rediscache: scan: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("rediscache: clear: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ensure Store implements cache.Store
var _ cache.Store = (*Store)(nil)
