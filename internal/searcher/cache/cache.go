// Package cache stores complete search results keyed by the query
// fingerprint, so repeated searches skip the corpus scan.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/resilience"
)

const keyPrefix = "search:"

// Consecutive store failures that switch the cache off for breakerCooldown.
const (
	breakerThreshold = 5
	breakerCooldown  = 30 * time.Second
)

// Store is the byte store behind the cache. *pkgredis.Client implements it.
type Store interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// QueryCache is safe for concurrent use. A nil store disables storage but
// concurrent identical queries are still computed once. While the store keeps
// failing, searches skip it and run uncached.
type QueryCache struct {
	store   Store
	breaker *resilience.Breaker
	ttl     time.Duration
	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		breaker: resilience.NewBreaker("query-cache", breakerThreshold, breakerCooldown),
		ttl:     ttl,
		flights: make(map[string]*flight),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Enabled reports whether results are stored.
func (c *QueryCache) Enabled() bool {
	return c.store != nil
}

func (c *QueryCache) Get(ctx context.Context, q *parser.Query) (*executor.Result, bool) {
	if c.store == nil {
		return nil, false
	}
	key := BuildKey(q)
	var data []byte
	err := c.breaker.Do(func() error {
		var err error
		data, err = c.store.GetBytes(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if err != nil && !errors.Is(err, resilience.ErrOpen) {
		c.logger.Error("cache get failed", "key", key, "error", err)
	}
	if err != nil || data == nil {
		c.miss()
		return nil, false
	}
	var result executor.Result
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "query", q.Raw, "lang", q.Lang, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, q *parser.Query, result *executor.Result) {
	if c.store == nil {
		return
	}
	key := BuildKey(q)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(func() error {
		return c.store.SetBytes(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// flight is the context of one shared computation. It is cancelled when the
// last caller waiting on it leaves, not when the first one does.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// GetOrCompute returns the cached result for q or runs computeFn, sharing one
// run between concurrent callers with the same fingerprint. The bool reports
// a cache hit. A caller whose ctx ends gets ctx.Err() at once; the shared run
// keeps going for the others and stops only when nobody waits for it.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	q *parser.Query,
	computeFn func(ctx context.Context) (*executor.Result, error),
) (*executor.Result, bool, error) {
	if result, ok := c.Get(ctx, q); ok {
		return result, true, nil
	}
	key := BuildKey(q)
	f := c.join(ctx, key)
	defer c.leave(key, f)

	ch := c.group.DoChan(key, func() (any, error) {
		if result, ok := c.Get(f.ctx, q); ok {
			return result, nil
		}
		result, err := computeFn(f.ctx)
		if err != nil {
			return nil, err
		}
		c.Set(f.ctx, q, result)
		return result, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, false, r.Err
		}
		return r.Val.(*executor.Result), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (c *QueryCache) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

// leave drops one waiter. The last one out cancels the run and forgets the
// key so a later caller starts afresh instead of joining a cancelled run.
func (c *QueryCache) leave(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
	}
	c.group.Forget(key)
}

// Invalidate removes every stored result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

// BreakerState reports whether the store is currently being bypassed.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.State()
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey derives the storage key of q from its fingerprint.
func BuildKey(q *parser.Query) string {
	hash := sha256.Sum256([]byte(q.Fingerprint()))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
