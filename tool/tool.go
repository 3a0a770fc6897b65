package tool

import (
	"context"
	"encoding/json"

	"github.com/jonwraymond/toolinvoke/cache"
	"github.com/jonwraymond/toolinvoke/observe"
	"github.com/jonwraymond/toolinvoke/schema"
)

// dispatcher performs the work of a tool on a normalized input.
type dispatcher interface {
	call(ctx context.Context, input any) (any, error)
}

type funcDispatcher struct {
	fn Func
}

func (d funcDispatcher) call(ctx context.Context, input any) (any, error) {
	return d.fn(ctx, input)
}

// Tool is a Descriptor bound to its compiled schemas, dispatch strategy and
// cache. It is immutable and safe for concurrent use.
type Tool struct {
	desc   Descriptor
	intent Intent
	meta   observe.ToolMeta

	input  *schema.Schema // nil when input validation is disabled
	result *schema.Schema // nil when result validation is disabled

	dispatcher dispatcher
	cache      *cache.Middleware
	observer   *observe.Middleware
	log        observe.Logger
}

// Build validates desc, compiles its schemas once and returns the Tool.
// Every failure is a *ConfigurationError.
func Build(desc Descriptor, opts ...Option) (*Tool, error) {
	intent, err := desc.validate()
	if err != nil {
		return nil, err
	}
	desc = desc.clone()
	desc.Intent = intent
	cfg := newConfig(opts)

	t := &Tool{
		desc:   desc,
		intent: intent,
		meta: observe.ToolMeta{
			Name:     desc.Name,
			Intent:   string(intent),
			Dispatch: desc.Dispatch.Kind(),
		},
	}

	if !desc.DisableInputValidation {
		if t.input, err = schema.Compile(desc.InputSchema); err != nil {
			return nil, &ConfigurationError{Tool: desc.Name, Field: "inputSchema", Reason: "does not compile", Cause: err}
		}
	}
	if !desc.DisableResultValidation {
		if t.result, err = schema.Compile(desc.ResultSchema); err != nil {
			return nil, &ConfigurationError{Tool: desc.Name, Field: "resultSchema", Reason: "does not compile", Cause: err}
		}
	}

	switch d := desc.Dispatch.(type) {
	case localDispatch:
		t.dispatcher = funcDispatcher{fn: d.fn}
	case remoteDispatch:
		t.dispatcher = newHTTPDispatcher(desc.Name, intent, d.endpoint, cfg.client)
	}

	store := cfg.store
	if store == nil {
		store = cache.NewMemoryCache()
	}
	cacheOpts := []cache.MiddlewareOption{cache.WithKeyer(cfg.keyer), cache.WithPolicy(cfg.policy)}
	if cfg.coalesce {
		cacheOpts = append(cacheOpts, cache.WithCoalescing())
	}
	t.cache = cache.NewMiddleware(store, cacheOpts...)

	t.observer = cfg.observer
	if t.observer == nil {
		t.observer = observe.NewMiddleware(nil, nil, cfg.logger)
	}
	logger := cfg.logger
	if logger == nil {
		logger = t.observer.Logger()
	}
	t.log = logger.WithTool(t.meta)

	return t, nil
}

// MustBuild is like Build but panics on error.
func MustBuild(desc Descriptor, opts ...Option) *Tool {
	t, err := Build(desc, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Descriptor returns a copy of the tool's descriptor with Intent normalized.
func (t *Tool) Descriptor() Descriptor {
	return t.desc.clone()
}

// Name returns the tool name.
func (t *Tool) Name() string { return t.desc.Name }

// Description returns the tool description.
func (t *Tool) Description() string { return t.desc.Description }

// Intent returns the normalized intent.
func (t *Tool) Intent() Intent { return t.intent }

// InputSchema returns the compiled input schema, or nil when input
// validation is disabled.
func (t *Tool) InputSchema() *schema.Schema { return t.input }

// ResultSchema returns the compiled result schema, or nil when result
// validation is disabled.
func (t *Tool) ResultSchema() *schema.Schema { return t.result }

// Store returns the store used when a call does not override it.
func (t *Tool) Store() cache.Store { return t.cache.Store() }

// ValidateInput checks input against the input schema. It returns a
// *ValidationError listing every violation, or nil. It always passes when
// input validation is disabled.
func (t *Tool) ValidateInput(input any) error {
	_, err := t.checkInput(input)
	return err
}

// ValidateResult checks result against the result schema, like ValidateInput.
func (t *Tool) ValidateResult(result any) error {
	normalized, err := schema.Normalize(result)
	if err != nil {
		return t.unencodable(SideResult, err)
	}
	return t.checkResult(normalized)
}

// Invoke runs the pipeline for input:
//
//  1. validate input; no side effects happen on failure
//  2. decide whether the cache applies (resource intent, positive Cache, no NoCache option)
//  3. on a cache hit, return the stored value without dispatch or result validation
//  4. dispatch to the func or HTTP endpoint
//  5. write the result through to the store; write failures are logged only
//  6. validate the result; a rejected result is removed from the store
//
// The returned value is in its normalized JSON form.
func (t *Tool) Invoke(ctx context.Context, input any, opts ...CallOption) (any, error) {
	var call callOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&call)
		}
	}

	run := t.observer.Wrap(func(ctx context.Context, _ observe.ToolMeta, input any) (any, error) {
		return t.run(ctx, input, call)
	})
	return run(ctx, t.meta, input)
}

func (t *Tool) run(ctx context.Context, input any, call callOptions) (any, error) {
	normalized, err := t.checkInput(input)
	if err != nil {
		return nil, err
	}

	if !t.cacheable(call) {
		out, err := t.dispatch(ctx, normalized)
		if err != nil {
			return nil, err
		}
		if err := t.checkResult(out); err != nil {
			return nil, err
		}
		return out, nil
	}

	res, err := t.cache.Execute(ctx, cache.Request{
		Namespace: t.desc.Name,
		Input:     normalized,
		TTL:       t.desc.Cache,
		Store:     call.store,
	}, func(ctx context.Context) ([]byte, error) {
		out, err := t.dispatch(ctx, normalized)
		if err != nil {
			return nil, err
		}
		return json.Marshal(out)
	})
	if err != nil {
		return nil, err
	}

	out, err := schema.Unmarshal(res.Value)
	if err != nil {
		return nil, t.unencodable(SideResult, err)
	}

	if res.Key != "" {
		observe.RecordCacheLookup(ctx, res.Hit)
	}
	if res.Hit {
		t.log.Debug(ctx, "cache hit", observe.Field{Key: "cache.key", Value: res.Key})
		return out, nil
	}
	if res.Key != "" {
		t.log.Debug(ctx, "cache miss", observe.Field{Key: "cache.key", Value: res.Key})
	}
	if res.WriteErr != nil {
		werr := &CacheWriteError{Tool: t.desc.Name, Key: res.Key, Cause: res.WriteErr}
		t.log.Warn(ctx, "cache write failed", observe.Field{Key: "error", Value: werr})
	}

	if err := t.checkResult(out); err != nil {
		if res.Stored {
			if derr := t.cache.Invalidate(ctx, res); derr != nil {
				t.log.Warn(ctx, "cache invalidation failed",
					observe.Field{Key: "cache.key", Value: res.Key},
					observe.Field{Key: "error", Value: derr},
				)
			}
		}
		return nil, err
	}
	return out, nil
}

func (t *Tool) cacheable(call callOptions) bool {
	return !call.noCache && t.desc.Cache > 0 && t.intent == IntentResource
}

// dispatch calls the tool and normalizes what it returns.
func (t *Tool) dispatch(ctx context.Context, input any) (any, error) {
	out, err := t.dispatcher.call(ctx, input)
	if err != nil {
		return nil, err
	}
	normalized, err := schema.Normalize(out)
	if err != nil {
		return nil, t.unencodable(SideResult, err)
	}
	return normalized, nil
}

func (t *Tool) checkInput(input any) (any, error) {
	normalized, err := schema.Normalize(input)
	if err != nil {
		return nil, t.unencodable(SideInput, err)
	}
	if t.input == nil {
		return normalized, nil
	}
	if violations := t.input.Check(normalized); len(violations) > 0 {
		return nil, &ValidationError{Tool: t.desc.Name, Side: SideInput, Violations: violations}
	}
	return normalized, nil
}

func (t *Tool) checkResult(normalized any) error {
	if t.result == nil {
		return nil
	}
	if violations := t.result.Check(normalized); len(violations) > 0 {
		return &ValidationError{Tool: t.desc.Name, Side: SideResult, Violations: violations}
	}
	return nil
}

func (t *Tool) unencodable(side Side, err error) error {
	return &ValidationError{
		Tool:       t.desc.Name,
		Side:       side,
		Violations: []schema.Violation{{Message: err.Error()}},
	}
}
