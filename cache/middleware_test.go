package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockExecutor tracks calls and returns configured results
type mockExecutor struct {
	calls  atomic.Int32
	result []byte
	err    error
}

func (m *mockExecutor) execute(_ context.Context) ([]byte, error) {
	m.calls.Add(1)
	return m.result, m.err
}

// failingStore accepts reads but rejects writes.
type failingStore struct {
	*MemoryCache
	setErr error
}

func (s *failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return s.setErr
}

func TestMiddleware_CacheHit(t *testing.T) {
	mw := NewMiddleware(NewMemoryCache())
	executor := &mockExecutor{result: []byte(`{"status":"ok"}`)}
	ctx := context.Background()
	req := Request{Namespace: "test-tool", Input: map[string]any{"query": "hello"}, TTL: time.Minute}

	first, err := mw.Execute(ctx, req, executor.execute)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if first.Hit || !first.Stored {
		t.Errorf("first call: Hit=%v Stored=%v, want miss and stored", first.Hit, first.Stored)
	}

	second, err := mw.Execute(ctx, req, executor.execute)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if !second.Hit {
		t.Error("second call should be a hit")
	}
	if executor.calls.Load() != 1 {
		t.Errorf("expected executor to run once, got %d calls", executor.calls.Load())
	}
	if string(second.Value) != `{"status":"ok"}` {
		t.Errorf("unexpected cached result: %s", second.Value)
	}
	if first.Key != second.Key {
		t.Errorf("keys differ: %s vs %s", first.Key, second.Key)
	}
}

func TestMiddleware_DifferentInputsMiss(t *testing.T) {
	mw := NewMiddleware(NewMemoryCache())
	executor := &mockExecutor{result: []byte(`1`)}
	ctx := context.Background()

	for _, q := range []string{"a", "b", "a"} {
		req := Request{Namespace: "t", Input: map[string]any{"q": q}, TTL: time.Minute}
		if _, err := mw.Execute(ctx, req, executor.execute); err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
	}
	if executor.calls.Load() != 2 {
		t.Errorf("expected 2 executions, got %d", executor.calls.Load())
	}
}

func TestMiddleware_NoTTLBypassesStore(t *testing.T) {
	store := NewMemoryCache()
	mw := NewMiddleware(store)
	executor := &mockExecutor{result: []byte(`1`)}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := mw.Execute(ctx, Request{Namespace: "t"}, executor.execute)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if res.Key != "" || res.Stored {
			t.Errorf("uncached result should carry no key: %+v", res)
		}
	}
	if executor.calls.Load() != 3 {
		t.Errorf("expected 3 executions, got %d", executor.calls.Load())
	}
	if store.Len() != 0 {
		t.Errorf("store should be empty, Len() = %d", store.Len())
	}
}

func TestMiddleware_ErrorsNotCached(t *testing.T) {
	store := NewMemoryCache()
	mw := NewMiddleware(store)
	wantErr := errors.New("boom")
	executor := &mockExecutor{err: wantErr}
	ctx := context.Background()
	req := Request{Namespace: "t", Input: 1, TTL: time.Minute}

	for i := 0; i < 2; i++ {
		if _, err := mw.Execute(ctx, req, executor.execute); !errors.Is(err, wantErr) {
			t.Fatalf("Execute() error = %v, want %v", err, wantErr)
		}
	}
	if executor.calls.Load() != 2 {
		t.Errorf("errors must not be cached, got %d calls", executor.calls.Load())
	}
	if store.Len() != 0 {
		t.Errorf("store should be empty, Len() = %d", store.Len())
	}
}

func TestMiddleware_WriteFailureReturnsValue(t *testing.T) {
	writeErr := errors.New("disk full")
	mw := NewMiddleware(&failingStore{MemoryCache: NewMemoryCache(), setErr: writeErr})
	executor := &mockExecutor{result: []byte(`"ok"`)}

	res, err := mw.Execute(context.Background(), Request{Namespace: "t", TTL: time.Minute}, executor.execute)
	if err != nil {
		t.Fatalf("write failure should not fail the call: %v", err)
	}
	if string(res.Value) != `"ok"` {
		t.Errorf("Value = %s", res.Value)
	}
	if !errors.Is(res.WriteErr, writeErr) || res.Stored {
		t.Errorf("WriteErr = %v, Stored = %v", res.WriteErr, res.Stored)
	}
}

func TestMiddleware_RequestStoreOverride(t *testing.T) {
	def, override := NewMemoryCache(), NewMemoryCache()
	mw := NewMiddleware(def)
	executor := &mockExecutor{result: []byte(`1`)}
	ctx := context.Background()

	res, err := mw.Execute(ctx, Request{Namespace: "t", TTL: time.Minute, Store: override}, executor.execute)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !override.Has(ctx, res.Key) {
		t.Error("value should be written to the request store")
	}
	if def.Len() != 0 {
		t.Error("default store should be untouched")
	}
}

func TestMiddleware_Invalidate(t *testing.T) {
	store := NewMemoryCache()
	mw := NewMiddleware(store)
	ctx := context.Background()

	res, err := mw.Execute(ctx, Request{Namespace: "t", TTL: time.Minute}, (&mockExecutor{result: []byte(`1`)}).execute)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if err := mw.Invalidate(ctx, res); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if store.Has(ctx, res.Key) {
		t.Error("entry should be removed after Invalidate")
	}

	// Uncached results are a no-op.
	if err := mw.Invalidate(ctx, Result{}); err != nil {
		t.Errorf("Invalidate(uncached) error = %v", err)
	}
}

func TestMiddleware_PolicyClampsTTL(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryCache(WithClock(clock.Now))
	mw := NewMiddleware(store, WithPolicy(Policy{MaxTTL: time.Second}))
	executor := &mockExecutor{result: []byte(`1`)}
	ctx := context.Background()
	req := Request{Namespace: "t", TTL: time.Hour}

	_, _ = mw.Execute(ctx, req, executor.execute)
	clock.Advance(2 * time.Second)
	_, _ = mw.Execute(ctx, req, executor.execute)

	if executor.calls.Load() != 2 {
		t.Errorf("entry should expire at MaxTTL, got %d calls", executor.calls.Load())
	}
}

// TestMiddleware_Coalescing verifies concurrent misses share one execution.
func TestMiddleware_Coalescing(t *testing.T) {
	mw := NewMiddleware(NewMemoryCache(), WithCoalescing())
	ctx := context.Background()
	req := Request{Namespace: "slow", Input: "x", TTL: time.Minute}

	release := make(chan struct{})
	var calls atomic.Int32
	exec := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte(`"done"`), nil
	}

	const n = 8
	var wg sync.WaitGroup
	var started sync.WaitGroup
	wg.Add(n)
	started.Add(n)
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			started.Done()
			results[i], _ = mw.Execute(ctx, req, exec)
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 execution, got %d", got)
	}
	for i, r := range results {
		if string(r.Value) != `"done"` {
			t.Errorf("result %d = %s", i, r.Value)
		}
	}
}

// TestMiddleware_CoalescedFlightOutlivesCaller verifies that cancelling the
// caller that started a shared execution neither aborts it nor fails the
// callers waiting on it.
func TestMiddleware_CoalescedFlightOutlivesCaller(t *testing.T) {
	store := NewMemoryCache()
	mw := NewMiddleware(store, WithCoalescing())
	req := Request{Namespace: "slow", Input: "x", TTL: time.Minute}

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	var execErr atomic.Value
	exec := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		close(entered)
		<-release
		if err := ctx.Err(); err != nil {
			execErr.Store(err)
			return nil, err
		}
		return []byte(`"done"`), nil
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := mw.Execute(firstCtx, req, exec)
		firstErr <- err
	}()
	<-entered

	type outcome struct {
		res Result
		err error
	}
	waiter := make(chan outcome, 1)
	go func() {
		res, err := mw.Execute(context.Background(), req, exec)
		waiter <- outcome{res, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller error = %v, want context.Canceled", err)
	}
	close(release)

	got := <-waiter
	if got.err != nil || string(got.res.Value) != `"done"` {
		t.Fatalf("waiter = %+v, %v", got.res, got.err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 execution, got %d", n)
	}
	if v := execErr.Load(); v != nil {
		t.Errorf("flight saw a cancelled context: %v", v)
	}
	key, err := mw.Key(req)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get(context.Background(), key); !ok {
		t.Error("the shared result should be stored")
	}
}

type brokenKeyer struct{}

func (brokenKeyer) Key(string, any) (string, error) { return "", ErrInvalidKey }

func TestMiddleware_KeyFailureRunsUncached(t *testing.T) {
	store := NewMemoryCache()
	mw := NewMiddleware(store, WithKeyer(brokenKeyer{}))
	executor := &mockExecutor{result: []byte(`1`)}

	res, err := mw.Execute(context.Background(), Request{Namespace: "t", TTL: time.Minute}, executor.execute)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if string(res.Value) != "1" || res.Stored {
		t.Errorf("unexpected result %+v", res)
	}
	if store.Len() != 0 {
		t.Error("nothing should be stored when the key cannot be derived")
	}
}
