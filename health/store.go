package health

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/toolinvoke/cache"
	"github.com/jonwraymond/toolinvoke/tool"
)

// probeTTL bounds how long a probe entry can outlive a failed cleanup.
const probeTTL = 30 * time.Second

// pinger is implemented by stores with a cheap connectivity check, such as
// rediscache.Store.
type pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker probes a cache.Store with a write, a read and a delete.
//
// A failed ping or write is Unhealthy. A write that cannot be read back is
// Degraded: the pipeline keeps working, but every call misses.
type StoreChecker struct {
	name  string
	store cache.Store
	key   string
}

// NewStoreChecker creates a checker for store. The probe key lives under
// the "health" namespace so it never collides with tool keys.
func NewStoreChecker(name string, store cache.Store) *StoreChecker {
	return &StoreChecker{name: name, store: store, key: "health:probe:" + name}
}

func (c *StoreChecker) Name() string { return c.name }

func (c *StoreChecker) Check(ctx context.Context) Result {
	if c.store == nil {
		return Unhealthy("no store configured", cache.ErrNilStore)
	}
	if p, ok := c.store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return Unhealthy("store unreachable", err)
		}
	}

	want := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	if err := c.store.Set(ctx, c.key, want, probeTTL); err != nil {
		return Unhealthy("store write failed", err)
	}
	got, ok := c.store.Get(ctx, c.key)
	_ = c.store.Delete(ctx, c.key)

	switch {
	case !ok:
		return Degraded("store write could not be read back")
	case !bytes.Equal(got, want):
		return Degraded(fmt.Sprintf("store returned %d bytes, wrote %d", len(got), len(want)))
	default:
		return Healthy("store read/write ok")
	}
}

// ToolboxChecker reports Degraded while a Toolbox has no tools.
type ToolboxChecker struct {
	box *tool.Toolbox
}

// NewToolboxChecker creates a checker for box.
func NewToolboxChecker(box *tool.Toolbox) *ToolboxChecker {
	return &ToolboxChecker{box: box}
}

func (c *ToolboxChecker) Name() string { return "tools" }

func (c *ToolboxChecker) Check(context.Context) Result {
	if c.box == nil {
		return Unhealthy("no toolbox configured", ErrCheckFailed)
	}
	names := c.box.Names()
	details := map[string]any{"count": len(names), "tools": names}
	if len(names) == 0 {
		return Degraded("no tools registered").WithDetails(details)
	}
	return Healthy(fmt.Sprintf("%d tools registered", len(names))).WithDetails(details)
}
