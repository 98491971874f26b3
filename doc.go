// Package sslcache implements a process-wide cache that deduplicates and
// reuses parsed cryptographic objects — X.509 certificate chains, private
// keys, CRL chains, and CA trust chains — across configuration load and
// per-connection runtime.
//
// Two cache disciplines share the same indexed store and loader protocol:
// ConfigCache is unbounded and supports inheritance across configuration
// generations; ConnectionCache is bounded and evicts by capacity,
// inactivity, and validity. Both are reached through Loaders, which knows
// how to turn a classified Key into a refcounted object for each Family.
//
// Neither cache type is safe for concurrent use without external
// synchronization: both are designed to be reached only from a single
// owning goroutine (a configuration-load sequence, or one connection's
// handling goroutine), matching the single-threaded cooperative model
// they were modeled on. Build one per goroutine/cycle that needs one, not
// one shared across goroutines with a mutex bolted on.
package sslcache
