package tool

import (
	"context"

	"github.com/jonwraymond/toolinvoke/schema"
)

// TypedFunc is a Func with Go types on both ends.
type TypedFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

// Typed is a Tool whose input and result are Go types.
type Typed[In, Out any] struct {
	tool *Tool
}

// NewTyped builds a tool from desc and fn. Schemas missing from desc are
// inferred from In and Out. When fn is nil, desc.Dispatch is used as is,
// which lets a remote tool be called with Go types; passing both fn and a
// Dispatch is a *ConfigurationError.
func NewTyped[In, Out any](desc Descriptor, fn TypedFunc[In, Out], opts ...Option) (*Typed[In, Out], error) {
	if fn != nil {
		if desc.Dispatch != nil {
			return nil, &ConfigurationError{Tool: desc.Name, Field: "dispatch", Reason: "exactly one of func or http endpoint is allowed"}
		}
		desc.Dispatch = Local(func(ctx context.Context, input any) (any, error) {
			in, err := schema.Decode[In](input)
			if err != nil {
				return nil, err
			}
			return fn(ctx, in)
		})
	}

	var err error
	if desc.InputSchema == nil && !desc.DisableInputValidation {
		if desc.InputSchema, err = schema.For[In](); err != nil {
			return nil, &ConfigurationError{Tool: desc.Name, Field: "inputSchema", Reason: "cannot be inferred", Cause: err}
		}
	}
	if desc.ResultSchema == nil && !desc.DisableResultValidation {
		if desc.ResultSchema, err = schema.For[Out](); err != nil {
			return nil, &ConfigurationError{Tool: desc.Name, Field: "resultSchema", Reason: "cannot be inferred", Cause: err}
		}
	}

	t, err := Build(desc, opts...)
	if err != nil {
		return nil, err
	}
	return &Typed[In, Out]{tool: t}, nil
}

// Tool returns the underlying untyped Tool, e.g. to register it in a Toolbox.
func (t *Typed[In, Out]) Tool() *Tool {
	return t.tool
}

// Invoke runs the pipeline and decodes the result into Out.
func (t *Typed[In, Out]) Invoke(ctx context.Context, in In, opts ...CallOption) (Out, error) {
	var zero Out
	out, err := t.tool.Invoke(ctx, in, opts...)
	if err != nil {
		return zero, err
	}
	decoded, err := schema.Decode[Out](out)
	if err != nil {
		return zero, t.tool.unencodable(SideResult, err)
	}
	return decoded, nil
}
