package sslcache

import (
	"time"

	"github.com/wolfeidau/sslcache/arena"
)

// InitConnectionCache builds a bounded cache and registers its teardown on
// ar, so the cache is released when the connection (or whatever scope ar
// represents) is torn down.
func InitConnectionCache(ar *arena.Arena, loaders *Loaders, max int, valid, inactive time.Duration, opts ...ConnectionOption) *ConnectionCache {
	cc := NewConnectionCache(loaders, max, valid, inactive, opts...)
	ar.OnTeardown(cc.Teardown)
	return cc
}

// InitConfigCache builds an unbounded, inheritance-aware cache and
// registers its teardown on ar. Pass inherit=true with a non-nil prev to
// let this generation adopt objects from the previous one; this is the
// configuration-load analogue of InitConnectionCache — init(0, 0, 0) with
// inherit defaulting to true in the external interface's terms.
func InitConfigCache(ar *arena.Arena, loaders *Loaders, inherit bool, prev *ConfigCache, opts ...ConfigOption) *ConfigCache {
	cc := NewConfigCache(loaders, inherit, prev, opts...)
	ar.OnTeardown(cc.Teardown)
	return cc
}
