package sslcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/sslcache/telemetry"
)

// ConfigCache is the unbounded cache populated during configuration load.
// It never evicts; it is destroyed wholesale when its owning cycle tears
// down. Not safe for concurrent use — like every cache in this package, it
// is reached only from the single-threaded cycle that owns it.
type ConfigCache struct {
	store   *store
	loaders *Loaders
	inherit bool
	prev    *ConfigCache

	generation uuid.UUID
	logger     *slog.Logger
	metrics    *telemetry.Metrics
	now        func() time.Time
}

// ConfigOption configures a ConfigCache at construction time.
type ConfigOption func(*ConfigCache)

// WithConfigLogger sets the logger used for reload and teardown diagnostics.
func WithConfigLogger(l *slog.Logger) ConfigOption {
	return func(c *ConfigCache) { c.logger = l }
}

// WithConfigMetrics wires a telemetry.Metrics sink. A nil Metrics is the
// default and every recording call becomes a no-op.
func WithConfigMetrics(m *telemetry.Metrics) ConfigOption {
	return func(c *ConfigCache) { c.metrics = m }
}

// WithConfigClock overrides the clock used for entry timestamps; intended
// for deterministic tests of the inheritance window.
func WithConfigClock(now func() time.Time) ConfigOption {
	return func(c *ConfigCache) { c.now = now }
}

// NewConfigCache builds a configuration cache with object_cache_inherit set
// per inherit, optionally chained to the previous generation's cache prev
// for adoption during the handoff window. prev may be nil (first
// generation, or inheritance never enabled).
func NewConfigCache(loaders *Loaders, inherit bool, prev *ConfigCache, opts ...ConfigOption) *ConfigCache {
	c := &ConfigCache{
		store:      newStore(),
		loaders:    loaders,
		inherit:    inherit,
		prev:       prev,
		generation: uuid.New(),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generation returns the id stamped on this cache at construction, used
// purely for log correlation across the inheritance handoff window.
func (c *ConfigCache) Generation() uuid.UUID { return c.generation }

// Fetch implements the configuration cache's lookup/adopt/create protocol.
// loaderData is family-specific: for PKEY, an ordered []string of
// passwords to try (possibly empty or nil).
func (c *ConfigCache) Fetch(family Family, reference string, loaderData any) (Handle, error) {
	ctx := context.Background()
	c.metrics.RecordFetch(ctx, family.String(), "config")

	key := classify(family, reference, c.loaders.PathPrefix)

	// PKEY with a non-empty password list bypasses the cache entirely: the
	// same key file under different passwords must not collide, and
	// passwords must not be retained in the cache key.
	if family == PKEY {
		if passwords, ok := loaderData.([]string); ok && len(passwords) > 0 {
			obj, err := c.loaders.create(family, key, loaderData)
			if err != nil {
				return nil, err
			}
			c.metrics.RecordMiss(ctx, family.String())
			return obj.(Handle), nil
		}
	}

	if existing, ok := c.store.get(family, key); ok {
		c.metrics.RecordHit(ctx, family.String())
		return existing.object.ref().(Handle), nil
	}

	now := c.now()
	e := &entry{key: key, family: family, created: now, accessed: now}
	e.prev, e.next = e, e

	if key.Kind == KindPath {
		if mtime, uniq, err := statFile(string(key.Bytes)); err == nil {
			e.mtime, e.uniq = mtime, uniq
		}
		// A missing file is not an error here — it surfaces when create
		// attempts to open it below.
	}

	adopted := false
	if c.inherit && c.prev != nil {
		if prevEntry, ok := c.prev.store.get(family, key); ok {
			switch key.Kind {
			case KindData:
				e.object = prevEntry.object.ref()
				adopted = true
			case KindPath:
				if prevEntry.mtime.Equal(e.mtime) && prevEntry.uniq == e.uniq {
					e.object = prevEntry.object.ref()
					adopted = true
				}
			}
		}
	}

	if adopted {
		c.logger.Debug("ssl cache inherited object from previous generation",
			"family", family, "generation", c.generation, "prior_generation", c.prev.generation)
		c.metrics.RecordInherit(ctx, family.String())
	} else {
		obj, err := c.loaders.create(family, key, loaderData)
		if err != nil {
			return nil, err
		}
		e.object = obj
		c.metrics.RecordMiss(ctx, family.String())
	}

	c.store.insert(e)
	return e.object.ref().(Handle), nil
}

// Teardown releases the cache's own reference to every entry's object. It
// does not check current/recency-list invariants — the configuration
// cache has neither concept, per the design note that queue_init on an
// unbounded cache's entries is vestigial.
func (c *ConfigCache) Teardown() {
	c.store.ascend(func(e *entry) bool {
		e.object.free()
		return true
	})
	c.store = newStore()
}
