// Package health reports whether the pieces a tool server depends on are
// usable: cache stores and the tool registry.
//
// A Checker reports a Result with a Status of Healthy, Degraded or
// Unhealthy. An Aggregator runs many checkers concurrently under one
// deadline, and the HTTP handlers expose the outcome as probes:
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewStoreChecker("cache", store))
//	agg.Register(health.NewToolboxChecker(box))
//	health.RegisterHandlers(mux, agg)
package health
