package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/metrics"
)

// loadTimeout bounds a shared load, which no single caller's context owns.
const loadTimeout = 30 * time.Second

// Store keeps the most recently used corpora in memory. Concurrent requests
// for a language that is not cached share a single load.
type Store struct {
	registry *Registry
	load     func(ctx context.Context, lang string) (*Corpus, error)
	cache    *lru.Cache[string, *Corpus]
	group    singleflight.Group
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewStore creates a Store holding up to size corpora. m may be nil.
func NewStore(registry *Registry, size int, m *metrics.Metrics) (*Store, error) {
	if size <= 0 {
		size = 1
	}
	log := logger.WithComponent("corpus-store")
	cache, err := lru.NewWithEvict(size, func(lang string, _ *Corpus) {
		log.Debug("corpus evicted", "lang", lang)
	})
	if err != nil {
		return nil, fmt.Errorf("creating corpus cache: %w", err)
	}
	return &Store{
		registry: registry,
		load:     registry.Load,
		cache:    cache,
		metrics:  m,
		logger:   log,
	}, nil
}

// Registry returns the registry the store loads from.
func (s *Store) Registry() *Registry { return s.registry }

// Get returns the corpus of lang, loading it on first use. A caller that
// gives up returns ctx.Err() without aborting the load for the others.
func (s *Store) Get(ctx context.Context, lang string) (*Corpus, error) {
	if c, ok := s.cache.Get(lang); ok {
		return c, nil
	}
	ch := s.group.DoChan(lang, func() (any, error) {
		if c, ok := s.cache.Get(lang); ok {
			return c, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		c, err := s.load(lctx, lang)
		if err != nil {
			s.observe(lang, "error")
			return nil, err
		}
		s.cache.Add(lang, c)
		s.observe(lang, "ok")
		s.logger.Info("corpus loaded",
			"lang", lang,
			"documents", len(c.Documents),
			"verses", c.VerseCount(),
		)
		return c, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			s.logger.Debug("corpus load shared", "lang", lang)
		}
		return r.Val.(*Corpus), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops lang so the next Get reloads it from disk.
func (s *Store) Invalidate(lang string) {
	if s.cache.Remove(lang) {
		s.logger.Info("corpus invalidated", "lang", lang)
	}
}

// InvalidateAll drops every cached corpus.
func (s *Store) InvalidateAll() {
	s.cache.Purge()
	s.logger.Info("all corpora invalidated")
}

// Loaded lists the languages currently held in memory, least recent first.
func (s *Store) Loaded() []string {
	return s.cache.Keys()
}

func (s *Store) observe(lang, status string) {
	if s.metrics == nil {
		return
	}
	s.metrics.CorpusLoadsTotal.WithLabelValues(lang, status).Inc()
}
