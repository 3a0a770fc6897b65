package rediscache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonwraymond/toolinvoke/cache"
	"github.com/jonwraymond/toolinvoke/observe"
	backend "github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client, opts...), mr
}

func TestStore_GetSetDelete(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if _, ok := store.Get(ctx, "greet:abc"); ok {
		t.Fatal("Get on empty store should miss")
	}

	if err := store.Set(ctx, "greet:abc", []byte(`"Hello"`), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok := store.Get(ctx, "greet:abc")
	if !ok || string(got) != `"Hello"` {
		t.Fatalf("Get() = %q, %v", got, ok)
	}
	if !store.Has(ctx, "greet:abc") {
		t.Error("Has() = false after Set")
	}

	if !mr.Exists(DefaultPrefix + "greet:abc") {
		t.Errorf("expected key %q in redis, have %v", DefaultPrefix+"greet:abc", mr.Keys())
	}

	if err := store.Delete(ctx, "greet:abc"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.Has(ctx, "greet:abc") {
		t.Error("Has() = true after Delete")
	}
	if err := store.Delete(ctx, "greet:abc"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestStore_TTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), 30*time.Second); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL(DefaultPrefix + "k"); ttl != 30*time.Second {
		t.Errorf("TTL = %v, want 30s", ttl)
	}

	mr.FastForward(29 * time.Second)
	if _, ok := store.Get(ctx, "k"); !ok {
		t.Error("entry expired early")
	}
	mr.FastForward(time.Second)
	if _, ok := store.Get(ctx, "k"); ok {
		t.Error("entry should be expired")
	}
}

func TestStore_NonPositiveTTLIsNoop(t *testing.T) {
	store, mr := newTestStore(t)
	for _, ttl := range []time.Duration{0, -time.Second} {
		if err := store.Set(context.Background(), "k", []byte("v"), ttl); err != nil {
			t.Fatalf("Set(ttl=%v) error = %v", ttl, err)
		}
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("keys = %v, want none", keys)
	}
}

func TestStore_InvalidKeys(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	long := strings.Repeat("x", cache.MaxKeyLength+1)

	tests := []struct {
		key  string
		want error
	}{
		{"", cache.ErrInvalidKey},
		{long, cache.ErrKeyTooLong},
	}
	for _, tt := range tests {
		if err := store.Set(ctx, tt.key, []byte("v"), time.Minute); !errors.Is(err, tt.want) {
			t.Errorf("Set(%.10q) error = %v, want %v", tt.key, err, tt.want)
		}
		if err := store.Delete(ctx, tt.key); !errors.Is(err, tt.want) {
			t.Errorf("Delete(%.10q) error = %v, want %v", tt.key, err, tt.want)
		}
		if _, ok := store.Get(ctx, tt.key); ok {
			t.Errorf("Get(%.10q) should miss", tt.key)
		}
	}
}

func TestStore_ClearOnlyTouchesPrefix(t *testing.T) {
	store, mr := newTestStore(t, WithPrefix("app:"))
	ctx := context.Background()

	for i := 0; i < 600; i++ {
		if err := store.Set(ctx, fmt.Sprintf("tool:%d", i), []byte("v"), time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	if err := mr.Set("other:key", "keep"); err != nil {
		t.Fatal(err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != "other:key" {
		t.Errorf("keys after Clear = %v, want [other:key]", keys)
	}
}

func TestStore_ReadFailureIsMissAndLogged(t *testing.T) {
	var buf bytes.Buffer
	store, mr := newTestStore(t, WithLogger(observe.NewLoggerWithWriter("warn", &buf)))
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	mr.SetError("server down")

	if _, ok := store.Get(ctx, "k"); ok {
		t.Error("Get should miss while redis fails")
	}
	if store.Has(ctx, "k") {
		t.Error("Has should be false while redis fails")
	}
	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err == nil {
		t.Error("Set should surface redis errors")
	}
	if !strings.Contains(buf.String(), "redis get failed") {
		t.Errorf("expected a logged read failure, got %q", buf.String())
	}

	mr.SetError("")
	if _, ok := store.Get(ctx, "k"); !ok {
		t.Error("Get should recover once redis is back")
	}
}

func TestNewFromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewFromURL("redis://" + mr.Addr() + "/0")
	if err != nil {
		t.Fatalf("NewFromURL() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if _, err := NewFromURL("http://not-redis"); err == nil {
		t.Error("NewFromURL should reject non-redis URLs")
	}
}

func TestStore_WithMiddleware(t *testing.T) {
	store, _ := newTestStore(t)
	mw := cache.NewMiddleware(store)
	ctx := context.Background()
	calls := 0
	exec := func(context.Context) ([]byte, error) {
		calls++
		return []byte(`"pong"`), nil
	}
	req := cache.Request{Namespace: "ping", Input: nil, TTL: time.Minute}

	for i := 0; i < 2; i++ {
		res, err := mw.Execute(ctx, req, exec)
		if err != nil {
			t.Fatal(err)
		}
		if string(res.Value) != `"pong"` {
			t.Errorf("Value = %s", res.Value)
		}
	}
	if calls != 1 {
		t.Errorf("exec called %d times, want 1", calls)
	}
	if !store.Has(ctx, "ping:2be88ca4242c76e8253ac62474851065032d6833") {
		t.Error("expected the SHA-1 keyed entry in redis")
	}
}
