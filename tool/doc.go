// Package tool binds a Descriptor to compiled schemas, a dispatch strategy
// and a result cache, and invokes it through one pipeline:
//
//	validate input -> cache lookup -> dispatch -> cache populate -> validate result
//
// A Descriptor dispatches either to a local Func (Local) or to a remote HTTP
// endpoint (Remote). Only tools with resource intent and a positive Cache TTL
// are cached; action tools dispatch on every call. Cached values are served
// without re-validation, so a result that fails validation is removed from
// the store before the error is returned.
//
// Inputs and results are normalized to their JSON form (map[string]any,
// []any, float64, string, bool, nil) so that a cache hit and a fresh dispatch
// return identical values.
package tool
