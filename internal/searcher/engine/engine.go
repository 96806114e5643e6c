// Package engine answers search requests: it resolves the language corpus,
// classifies the term, runs or reuses the scan, installs the result in the
// reader's session and highlights the batches it hands out.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/fold"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/runner"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/matcher"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/session"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/suggest"
	apperrors "github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/tracing"
)

// Request is one search as received from a reader.
type Request struct {
	Term      string
	Lang      string
	Options   parser.Options
	SessionID string
}

// HighlightedItem is a hit with its text split into plain and match spans.
type HighlightedItem struct {
	executor.Item
	Spans []matcher.Span `json:"spans"`
}

// Page is a highlighted batch of one category.
type Page struct {
	SessionID string            `json:"sessionId,omitempty"`
	Category  executor.Bucket   `json:"category"`
	Items     []HighlightedItem `json:"items"`
	Shown     int               `json:"shown"`
	Total     int               `json:"total"`
	Remaining int               `json:"remaining"`
}

// Response is the answer to a Request.
type Response struct {
	SessionID   string                    `json:"sessionId"`
	Generation  uint64                    `json:"generation"`
	Query       string                    `json:"query"`
	Lang        string                    `json:"lang"`
	Dir         string                    `json:"dir"`
	Mode        parser.Mode               `json:"mode"`
	Total       int                       `json:"total"`
	Pages       map[executor.Bucket]*Page `json:"pages"`
	HitCounts   [][]executor.KeywordHits  `json:"hitCounts,omitempty"`
	Themes      []executor.ThemeEntry     `json:"themes,omitempty"`
	Suggestions *suggest.Suggestions      `json:"suggestions,omitempty"`
	CacheHit    bool                      `json:"cacheHit"`
	LatencyMs   int64                     `json:"latencyMs"`
}

// LanguageInfo describes a searchable language.
type LanguageInfo struct {
	Code        string `json:"code"`
	Name        string `json:"name,omitempty"`
	Dir         string `json:"dir"`
	Suggestions bool   `json:"suggestions"`
}

// Engine is safe for concurrent use.
type Engine struct {
	store       *corpus.Store
	executor    *executor.Executor
	matcher     *matcher.Matcher
	cache       *cache.QueryCache
	sessions    *session.Manager
	suggest     *suggest.Manager
	events      []func(analytics.SearchEvent)
	metrics     *metrics.Metrics
	defaultLang string
	timeout     time.Duration
	logger      *slog.Logger
}

type Option func(*Engine)

// WithCache shares results between identical queries.
func WithCache(c *cache.QueryCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithSuggestions proposes did-you-mean terms when a search finds no verse.
func WithSuggestions(s *suggest.Manager) Option {
	return func(e *Engine) { e.suggest = s }
}

// WithEvents registers a receiver of analytics events.
func WithEvents(fn func(analytics.SearchEvent)) Option {
	return func(e *Engine) { e.events = append(e.events, fn) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithDefaultLanguage is used for requests that name no language.
func WithDefaultLanguage(lang string) Option {
	return func(e *Engine) { e.defaultLang = lang }
}

// WithQueryTimeout bounds a single scan.
func WithQueryTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func New(store *corpus.Store, m *matcher.Matcher, sessions *session.Manager, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		executor:    executor.New(m),
		matcher:     m,
		sessions:    sessions,
		defaultLang: store.Registry().Base(),
		logger:      slog.Default().With("component", "search-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = cache.New(nil, 0, e.metrics)
	}
	return e
}

// Search runs req and returns the first batch of every category.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	log := logger.FromContext(ctx)
	ctx, trace := tracing.Start(ctx, "search", logger.RequestID(ctx))
	defer func() {
		trace.End()
		trace.Log(ctx, log)
	}()

	_, span := tracing.Start(ctx, "corpus", "")
	c, err := e.corpus(ctx, req.Lang)
	span.End()
	if err != nil {
		return nil, err
	}
	q := parser.Parse(req.Term, c.Language, req.Options)
	trace.Set("lang", c.Language.Code, "mode", q.Mode)

	qctx, ticket := e.sessions.Begin(ctx, req.SessionID)
	if e.timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(qctx, e.timeout)
		defer cancel()
	}

	_, span = tracing.Start(ctx, "execute", "")
	res, cacheHit, err := e.cache.GetOrCompute(qctx, q, func(ctx context.Context) (*executor.Result, error) {
		return e.executor.Execute(ctx, c, q)
	})
	span.Set("cache_hit", cacheHit)
	span.End()
	if err != nil {
		e.sessions.Abandon(ticket)
		err = e.classify(ctx, qctx, err)
		e.countQuery(q, outcomeOf(err))
		if apperrors.Is(err, apperrors.ErrStaleQuery) {
			e.emit(e.event(ctx, analytics.EventStale, q, ticket.SessionID, nil, false, start))
		}
		log.Debug("search aborted", "query", req.Term, "lang", c.Language.Code, "error", err)
		return nil, err
	}

	view, err := e.sessions.Commit(ticket, q, res)
	if err != nil {
		e.countQuery(q, "stale")
		e.emit(e.event(ctx, analytics.EventStale, q, ticket.SessionID, nil, cacheHit, start))
		return nil, err
	}

	f := c.Language.Folder(q.Options.Fold)
	resp := &Response{
		SessionID:  view.SessionID,
		Generation: view.Generation,
		Query:      req.Term,
		Lang:       c.Language.Code,
		Dir:        direction(c.Language),
		Mode:       q.Mode,
		Total:      res.Total(),
		Pages:      make(map[executor.Bucket]*Page, len(view.Batches)),
		HitCounts:  res.HitCounts,
		Themes:     res.Themes,
		CacheHit:   cacheHit,
	}
	_, span = tracing.Start(ctx, "highlight", "")
	for b, batch := range view.Batches {
		resp.Pages[b] = e.page(batch, q, f)
	}
	span.End()
	if q.Mode == parser.ModeFull && len(res.Items[executor.BucketVerses]) == 0 && e.suggest != nil {
		_, span = tracing.Start(ctx, "suggest", "")
		resp.Suggestions = e.suggest.Suggest(c.Language, req.Term)
		span.End()
	}
	resp.LatencyMs = time.Since(start).Milliseconds()

	e.observe(q, res, cacheHit, time.Since(start))
	typ := analytics.EventSearch
	if q.Mode == parser.ModeLetter {
		typ = analytics.EventLetter
	}
	e.emit(e.event(ctx, typ, q, view.SessionID, res, cacheHit, start))

	log.Info("search completed",
		"query", req.Term,
		"lang", resp.Lang,
		"mode", q.Mode,
		"total", resp.Total,
		"cache_hit", cacheHit,
		"latency_ms", resp.LatencyMs,
	)
	return resp, nil
}

// More reveals the next batch of category in session sid.
func (e *Engine) More(ctx context.Context, sid, category string) (*Page, error) {
	b, ok := executor.ParseBucket(category)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown category %q", category)
	}
	if sid == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "session id is required")
	}
	batch, q, err := e.sessions.More(sid, b)
	if err != nil {
		return nil, err
	}
	f := e.store.Registry().Language(q.Lang).Folder(q.Options.Fold)
	p := e.page(batch, q, f)
	p.SessionID = sid
	logger.FromContext(ctx).Debug("batch served", "session", sid, "category", b, "shown", p.Shown)
	return p, nil
}

// Languages lists the searchable languages.
func (e *Engine) Languages() []LanguageInfo {
	reg := e.store.Registry()
	withTables := make(map[string]bool)
	if e.suggest != nil {
		for _, l := range e.suggest.Languages() {
			withTables[l] = true
		}
	}
	codes := reg.Codes()
	out := make([]LanguageInfo, 0, len(codes))
	for _, code := range codes {
		l := reg.Language(code)
		out = append(out, LanguageInfo{
			Code:        code,
			Name:        l.Name,
			Dir:         direction(l),
			Suggestions: withTables[code],
		})
	}
	return out
}

// Cache returns the result cache.
func (e *Engine) Cache() *cache.QueryCache { return e.cache }

// Invalidate drops cached results and folded corpus texts.
func (e *Engine) Invalidate(ctx context.Context) error {
	e.executor.Forget()
	return e.cache.Invalidate(ctx)
}

// CorpusChanged is the hook for corpus asset changes.
func (e *Engine) CorpusChanged(lang string) {
	if err := e.Invalidate(context.Background()); err != nil {
		e.logger.Error("invalidating after corpus change failed", "lang", lang, "error", err)
	}
}

// IndexReloaded is the hook for freshly loaded suggestion tables.
func (e *Engine) IndexReloaded(ctx context.Context, ev runner.IndexEvent) {
	if err := e.cache.Invalidate(ctx); err != nil {
		e.logger.Error("invalidating after index reload failed", "lang", ev.Lang, "error", err)
	}
}

func (e *Engine) corpus(ctx context.Context, lang string) (*corpus.Corpus, error) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = e.defaultLang
	}
	if !e.store.Registry().Has(lang) {
		return nil, apperrors.Newf(apperrors.ErrLanguageNotFound, http.StatusNotFound, "no corpus for language %q", lang)
	}
	c, err := e.store.Get(ctx, lang)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Newf(apperrors.ErrCorpusUnavailable, http.StatusServiceUnavailable, "loading %s: %v", lang, err)
	}
	return c, nil
}

// classify maps a failed scan to the error the reader sees. A query whose
// own context ended while the request's is still live was superseded, or
// ran out of time.
func (e *Engine) classify(reqCtx, qctx context.Context, err error) error {
	if reqCtx.Err() != nil {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(qctx.Err(), context.DeadlineExceeded):
		return apperrors.New(apperrors.ErrTimeout, http.StatusServiceUnavailable, "search took too long")
	case errors.Is(err, context.Canceled):
		if e.metrics != nil {
			e.metrics.StaleQueriesTotal.Inc()
		}
		return apperrors.New(apperrors.ErrStaleQuery, http.StatusConflict, "superseded by a newer query")
	}
	return apperrors.Newf(apperrors.ErrInternal, http.StatusInternalServerError, "search failed: %v", err)
}

func outcomeOf(err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrStaleQuery):
		return "stale"
	case apperrors.Is(err, apperrors.ErrTimeout):
		return "timeout"
	}
	return "error"
}

func (e *Engine) page(b *session.Batch, q *parser.Query, f *fold.Folder) *Page {
	items := make([]HighlightedItem, len(b.Items))
	for i, it := range b.Items {
		items[i] = HighlightedItem{
			Item:  it,
			Spans: matcher.HighlightAll(it.Text, q.Highlight, f, q.Options.Exact),
		}
	}
	return &Page{
		Category:  b.Category,
		Items:     items,
		Shown:     b.Shown,
		Total:     b.Total,
		Remaining: b.Remaining,
	}
}

func (e *Engine) countQuery(q *parser.Query, outcome string) {
	if e.metrics != nil {
		e.metrics.SearchQueriesTotal.WithLabelValues(string(q.Mode), outcome).Inc()
	}
}

func (e *Engine) observe(q *parser.Query, res *executor.Result, cacheHit bool, took time.Duration) {
	if e.metrics == nil {
		return
	}
	outcome := "hit"
	if res.Total() == 0 && len(res.Themes) == 0 {
		outcome = "zero_result"
	}
	e.countQuery(q, outcome)
	status := "miss"
	if cacheHit {
		status = "hit"
	}
	e.metrics.SearchLatency.WithLabelValues(status).Observe(took.Seconds())
	if q.Mode == parser.ModeFull {
		for _, b := range executor.Buckets {
			e.metrics.SearchResultsCount.WithLabelValues(string(b)).Observe(float64(len(res.Items[b])))
		}
	}
}

func (e *Engine) event(ctx context.Context, typ analytics.EventType, q *parser.Query, sid string, res *executor.Result, cacheHit bool, start time.Time) analytics.SearchEvent {
	ev := analytics.SearchEvent{
		Type:      typ,
		Query:     q.Raw,
		Lang:      q.Lang,
		Mode:      string(q.Mode),
		Exact:     q.Options.Exact,
		LatencyMs: time.Since(start).Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
		SessionID: sid,
	}
	if res != nil {
		ev.TotalHits = res.Total() + len(res.Themes)
		ev.Categories = make(map[string]int, len(res.Items))
		for b, items := range res.Items {
			ev.Categories[string(b)] = len(items)
		}
	}
	return ev
}

func (e *Engine) emit(ev analytics.SearchEvent) {
	for _, fn := range e.events {
		fn(ev)
	}
}

func direction(l corpus.Language) string {
	if l.RTL() {
		return "rtl"
	}
	return "ltr"
}
