// Package session tracks the search a reader is currently looking at. Each
// new query in a session supersedes the previous one: its context is
// cancelled and its result, should it still arrive, is discarded.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/pager"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/metrics"
)

// Batch is a slice of one category's results.
type Batch struct {
	Category  executor.Bucket `json:"category"`
	Items     []executor.Item `json:"items"`
	Shown     int             `json:"shown"`
	Total     int             `json:"total"`
	Remaining int             `json:"remaining"`
}

// View is what a session reveals right after a query commits.
type View struct {
	SessionID  string                     `json:"sessionId"`
	Generation uint64                     `json:"generation"`
	Batches    map[executor.Bucket]*Batch `json:"batches"`
}

type session struct {
	mu         sync.Mutex
	id         string
	generation uint64
	cancel     context.CancelFunc
	query      *parser.Query
	pagers     map[executor.Bucket]*pager.Pager[executor.Item]
}

// Ticket identifies one query started in a session.
type Ticket struct {
	SessionID  string
	Generation uint64
	s          *session
}

// Manager holds the most recently used sessions.
type Manager struct {
	sessions *lru.Cache[string, *session]
	create   sync.Mutex
	batch    int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewManager keeps up to capacity sessions and reveals results batch items
// at a time. m may be nil.
func NewManager(capacity, batch int, m *metrics.Metrics) (*Manager, error) {
	mgr := &Manager{
		batch:   batch,
		metrics: m,
		logger:  slog.Default().With("component", "search-sessions"),
	}
	cache, err := lru.NewWithEvict(capacity, func(_ string, s *session) {
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.mu.Unlock()
	})
	if err != nil {
		return nil, fmt.Errorf("creating session cache: %w", err)
	}
	mgr.sessions = cache
	return mgr, nil
}

// Begin starts a new query in session sid, creating the session when sid is
// empty or unknown. Any query still running in the session is cancelled.
// The returned context is cancelled when a later query begins.
func (m *Manager) Begin(parent context.Context, sid string) (context.Context, *Ticket) {
	s := m.lookupOrCreate(sid)
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	s.cancel = cancel
	return ctx, &Ticket{SessionID: s.id, Generation: s.generation, s: s}
}

func (m *Manager) lookupOrCreate(sid string) *session {
	m.create.Lock()
	defer m.create.Unlock()
	if sid != "" {
		if s, ok := m.sessions.Get(sid); ok {
			return s
		}
	} else {
		sid = uuid.NewString()
	}
	s := &session{id: sid}
	m.sessions.Add(sid, s)
	return s
}

// Commit installs res as the session's current result and returns the first
// batch of every category. It fails with ErrStaleQuery when a later query
// has begun since t was issued.
func (m *Manager) Commit(t *Ticket, q *parser.Query, res *executor.Result) (*View, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != t.Generation {
		m.stale(t)
		return nil, apperrors.Newf(apperrors.ErrStaleQuery, http.StatusConflict,
			"generation %d superseded by %d", t.Generation, s.generation)
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.query = q
	s.pagers = make(map[executor.Bucket]*pager.Pager[executor.Item], len(executor.Buckets))
	view := &View{
		SessionID:  s.id,
		Generation: s.generation,
		Batches:    make(map[executor.Bucket]*Batch, len(executor.Buckets)),
	}
	for _, b := range executor.Buckets {
		p := pager.New(res.Items[b], m.batch)
		s.pagers[b] = p
		view.Batches[b] = batchOf(b, p, p.Visible())
	}
	return view, nil
}

// Abandon releases t's context without installing a result. A newer query's
// context is left alone.
func (m *Manager) Abandon(t *Ticket) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == t.Generation && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// More reveals the next batch of category b in session sid, together with
// the query that produced it.
func (m *Manager) More(sid string, b executor.Bucket) (*Batch, *parser.Query, error) {
	s, ok := m.sessions.Get(sid)
	if !ok {
		return nil, nil, apperrors.Newf(apperrors.ErrSessionNotFound, http.StatusNotFound, "session %q", sid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pagers[b]
	if !ok {
		return nil, nil, apperrors.Newf(apperrors.ErrSessionNotFound, http.StatusNotFound,
			"session %q has no results yet", sid)
	}
	return batchOf(b, p, p.Next()), s.query, nil
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	return m.sessions.Len()
}

func (m *Manager) stale(t *Ticket) {
	if m.metrics != nil {
		m.metrics.StaleQueriesTotal.Inc()
	}
	m.logger.Debug("stale result discarded", "session", t.SessionID, "generation", t.Generation)
}

func batchOf(b executor.Bucket, p *pager.Pager[executor.Item], items []executor.Item) *Batch {
	if items == nil {
		items = []executor.Item{}
	}
	return &Batch{
		Category:  b,
		Items:     items,
		Shown:     len(p.Visible()),
		Total:     p.Total(),
		Remaining: p.Remaining(),
	}
}
