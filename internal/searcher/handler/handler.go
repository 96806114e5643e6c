package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/logger"
)

type SearchEngine interface {
	Search(ctx context.Context, req engine.Request) (*engine.Response, error)
	More(ctx context.Context, sid, category string) (*engine.Page, error)
	Languages() []engine.LanguageInfo
	Invalidate(ctx context.Context) error
}

type Handler struct {
	engine SearchEngine
	cache  *cache.QueryCache
	logger *slog.Logger
}

func New(e SearchEngine, queryCache *cache.QueryCache) *Handler {
	return &Handler{
		engine: e,
		cache:  queryCache,
		logger: slog.Default().With("component", "search-handler"),
	}
}

// Search handles GET /api/v1/search?q=&lang=&sid=&exact=&normalize=&case=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	opts, err := parseOptions(params.Get("exact"), params.Get("normalize"), params.Get("case"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.engine.Search(r.Context(), engine.Request{
		Term:      params.Get("q"),
		Lang:      params.Get("lang"),
		Options:   opts,
		SessionID: params.Get("sid"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// More handles GET /api/v1/search/more?sid=&category=.
func (h *Handler) More(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	page, err := h.engine.More(r.Context(), params.Get("sid"), params.Get("category"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

func (h *Handler) Languages(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"languages": h.engine.Languages()})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil || !h.cache.Enabled() {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, r, apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError, "cache invalidation failed"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// parseOptions reads the toggles. Diacritics are ignored and case folded
// unless the request says otherwise.
func parseOptions(exact, normalize, caseSensitive string) (parser.Options, error) {
	opts := parser.DefaultOptions()
	var err error
	if exact != "" {
		if opts.Exact, err = strconv.ParseBool(exact); err != nil {
			return opts, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "exact must be a boolean, got %q", exact)
		}
	}
	if normalize != "" {
		if opts.Fold.Normalize, err = strconv.ParseBool(normalize); err != nil {
			return opts, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "normalize must be a boolean, got %q", normalize)
		}
	}
	if caseSensitive != "" {
		if opts.Fold.CaseSensitive, err = strconv.ParseBool(caseSensitive); err != nil {
			return opts, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "case must be a boolean, got %q", caseSensitive)
		}
	}
	return opts, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.FromContext(r.Context()).Error("search request failed", "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
