// Package cache provides deterministic caching for tool invocations.
//
// It provides a Store interface with an in-memory implementation, SHA-1
// key derivation over canonical JSON, TTL policies, and a Middleware that
// performs the lookup and write-through population around a dispatch.
//
// Keys are namespacing and sharding keys, not a security boundary. SHA-1 is
// part of the key format; collisions are accepted.
package cache
