package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jonwraymond/toolinvoke/cache"
)

// Toolbox is an application-scoped registry of tools sharing one default
// cache store. Tool names are unique within a Toolbox.
type Toolbox struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	store cache.Store
	opts  []Option
}

// NewToolbox creates a Toolbox. opts apply to every tool it builds. Unless
// opts include WithCacheStore, the Toolbox creates one MemoryCache and shares
// it across its tools.
func NewToolbox(opts ...Option) *Toolbox {
	cfg := newConfig(opts)
	store := cfg.store
	if store == nil {
		store = cache.NewMemoryCache()
	}
	all := make([]Option, 0, len(opts)+1)
	all = append(all, opts...)
	all = append(all, WithCacheStore(store))

	return &Toolbox{
		tools: make(map[string]*Tool),
		store: store,
		opts:  all,
	}
}

// Store returns the shared default store.
func (b *Toolbox) Store() cache.Store {
	return b.store
}

// Build builds desc with the Toolbox options plus opts, and registers it.
func (b *Toolbox) Build(desc Descriptor, opts ...Option) (*Tool, error) {
	all := make([]Option, 0, len(b.opts)+len(opts))
	all = append(all, b.opts...)
	all = append(all, opts...)

	t, err := Build(desc, all...)
	if err != nil {
		return nil, err
	}
	if err := b.Register(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Register adds a tool built elsewhere. A duplicate name is a
// *ConfigurationError.
func (b *Toolbox) Register(t *Tool) error {
	if t == nil {
		return &ConfigurationError{Field: "tool", Reason: "is nil"}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.tools[t.Name()]; exists {
		return &ConfigurationError{Tool: t.Name(), Field: "name", Reason: "is already registered"}
	}
	b.tools[t.Name()] = t
	return nil
}

// Get returns the named tool or ErrToolNotFound.
func (b *Toolbox) Get(name string) (*Tool, error) {
	b.mu.RLock()
	t, ok := b.tools[name]
	b.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return t, nil
}

// Names returns the registered tool names in sorted order.
func (b *Toolbox) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.tools))
	for name := range b.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tools returns the registered tools sorted by name.
func (b *Toolbox) Tools() []*Tool {
	names := b.Names()
	out := make([]*Tool, 0, len(names))

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, name := range names {
		if t, ok := b.tools[name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Invoke invokes the named tool.
func (b *Toolbox) Invoke(ctx context.Context, name string, input any, opts ...CallOption) (any, error) {
	t, err := b.Get(name)
	if err != nil {
		return nil, err
	}
	return t.Invoke(ctx, input, opts...)
}
