package sslcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/wolfeidau/sslcache/telemetry"
)

// ConnectionCache is the bounded cache populated on the connection hot
// path. It enforces current ≤ max after every Fetch and reclaims idle or
// stale entries lazily — there is no background sweeper. Not safe for
// concurrent use; reached only from the owning worker's event loop.
type ConnectionCache struct {
	store *store
	list  *recencyList

	loaders  *Loaders
	max      int
	valid    time.Duration
	inactive time.Duration
	current  int

	logger  *slog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// ConnectionOption configures a ConnectionCache at construction time.
type ConnectionOption func(*ConnectionCache)

// WithConnectionLogger sets the logger used for revalidation and eviction
// diagnostics.
func WithConnectionLogger(l *slog.Logger) ConnectionOption {
	return func(c *ConnectionCache) { c.logger = l }
}

// WithConnectionMetrics wires a telemetry.Metrics sink.
func WithConnectionMetrics(m *telemetry.Metrics) ConnectionOption {
	return func(c *ConnectionCache) { c.metrics = m }
}

// WithConnectionClock overrides the clock used for age/idle comparisons;
// intended for deterministic eviction and revalidation tests.
func WithConnectionClock(now func() time.Time) ConnectionOption {
	return func(c *ConnectionCache) { c.now = now }
}

// NewConnectionCache builds a bounded cache holding at most max entries,
// re-checking PATH freshness after valid has elapsed and evicting entries
// idle longer than inactive.
func NewConnectionCache(loaders *Loaders, max int, valid, inactive time.Duration, opts ...ConnectionOption) *ConnectionCache {
	c := &ConnectionCache{
		store:    newStore(),
		list:     newRecencyList(),
		loaders:  loaders,
		max:      max,
		valid:    valid,
		inactive: inactive,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current reports the live entry count.
func (c *ConnectionCache) Current() int { return c.current }

// ConnectionFetch implements the external connection_fetch surface: cache
// may be nil, meaning "don't cache, just load" — the caller gets a
// directly-created handle with no cache bookkeeping at all.
func ConnectionFetch(cache *ConnectionCache, loaders *Loaders, family Family, reference string, loaderData any) (Handle, error) {
	if cache != nil {
		loaders = cache.loaders
	}
	key := classify(family, reference, loaders.PathPrefix)

	if family == PKEY {
		if passwords, ok := loaderData.([]string); ok && len(passwords) > 0 {
			obj, err := loaders.create(family, key, loaderData)
			if err != nil {
				return nil, err
			}
			return obj.(Handle), nil
		}
	}

	if cache == nil {
		obj, err := loaders.create(family, key, loaderData)
		if err != nil {
			return nil, err
		}
		return obj.(Handle), nil
	}

	return cache.fetch(key, family, loaderData)
}

func (c *ConnectionCache) fetch(key Key, family Family, loaderData any) (Handle, error) {
	ctx := context.Background()
	c.metrics.RecordFetch(ctx, family.String(), "connection")
	now := c.now()

	if e, ok := c.store.get(family, key); ok {
		idle := now.Sub(e.accessed)
		if idle > c.inactive {
			c.evictEntry(e, "inactive")
			return c.miss(key, family, loaderData, now)
		}

		c.metrics.RecordHit(ctx, family.String())
		e.detach()

		age := now.Sub(e.created)
		if age > c.valid {
			changed, statErr := c.stale(key, e)
			if changed || statErr != nil {
				c.logger.Debug("cached ssl file changed", "family", family, "path", string(key.Bytes))
				e.object.free()
				obj, err := c.loaders.create(family, key, loaderData)
				if err != nil {
					c.removeEntry(e)
					return nil, err
				}
				e.object = obj
				if mtime, uniq, statErr2 := statFile(string(key.Bytes)); statErr2 == nil {
					e.mtime, e.uniq = mtime, uniq
				}
				e.created = now
				c.metrics.RecordEvict(ctx, family.String(), "validity")
			}
		}

		e.accessed = now
		c.list.pushFront(e)
		return e.object.ref().(Handle), nil
	}

	return c.miss(key, family, loaderData, now)
}

// stale reports whether key's backing file has changed since e was
// recorded. Only PATH keys can go stale; DATA and ENGINE keys never
// require revalidation.
func (c *ConnectionCache) stale(key Key, e *entry) (changed bool, statErr error) {
	if key.Kind != KindPath {
		return false, nil
	}
	mtime, uniq, err := statFile(string(key.Bytes))
	if err != nil {
		return true, err // file vanished
	}
	if !mtime.Equal(e.mtime) || uniq != e.uniq {
		return true, nil
	}
	return false, nil
}

func (c *ConnectionCache) miss(key Key, family Family, loaderData any, now time.Time) (Handle, error) {
	e := &entry{key: key, family: family, created: now, accessed: now}
	e.prev, e.next = e, e

	if key.Kind == KindPath {
		if mtime, uniq, err := statFile(string(key.Bytes)); err == nil {
			e.mtime, e.uniq = mtime, uniq
		}
	}

	obj, err := c.loaders.create(family, key, loaderData)
	if err != nil {
		c.metrics.RecordMiss(context.Background(), family.String())
		return nil, err
	}
	e.object = obj
	c.metrics.RecordMiss(context.Background(), family.String())

	if c.current >= c.max {
		c.evictOpportunistic()
	}

	c.store.insert(e)
	c.current++
	c.list.pushFront(e)
	c.metrics.RecordCurrentEntries(context.Background(), int64(c.current))

	return e.object.ref().(Handle), nil
}

// evictOpportunistic inspects up to three tail entries of the recency
// list: the first is always evicted to make room; the 2nd and 3rd only if
// idle beyond inactive. It stops early once the list is empty.
func (c *ConnectionCache) evictOpportunistic() {
	for i := 0; i < 3; i++ {
		tail := c.list.tail()
		if tail == nil {
			return
		}
		if i > 0 {
			idle := c.now().Sub(tail.accessed)
			if idle <= c.inactive {
				return
			}
		}
		c.evictEntry(tail, "capacity")
	}
}

func (c *ConnectionCache) evictEntry(e *entry, cause string) {
	c.logger.Debug("delete cached ssl object", "family", e.family, "cause", cause)
	e.detach()
	c.store.delete(e)
	e.object.free()
	c.current--
	c.metrics.RecordEvict(context.Background(), e.family.String(), cause)
	c.metrics.RecordCurrentEntries(context.Background(), int64(c.current))
}

// removeEntry drops e from the index and recency list without freeing its
// object — used when a validity re-create has already failed and the
// entry's previous object was already released.
func (c *ConnectionCache) removeEntry(e *entry) {
	e.detach()
	c.store.delete(e)
	c.current--
	c.metrics.RecordCurrentEntries(context.Background(), int64(c.current))
}

// Teardown releases the cache's own reference to every live entry's
// object. If current is non-zero or the recency list non-empty after the
// walk, that's an invariant violation — logged at error level (the
// nearest slog equivalent of an alert) but teardown still completes.
func (c *ConnectionCache) Teardown() {
	c.store.ascend(func(e *entry) bool {
		e.object.free()
		e.detach()
		c.current--
		return true
	})

	if c.current != 0 || !c.list.empty() {
		c.logger.Error("ssl cache invariant violation on teardown",
			"current", c.current, "list_empty", c.list.empty())
		c.metrics.RecordInvariantViolation(context.Background())
	}

	c.store = newStore()
	c.list = newRecencyList()
	c.current = 0
}
