package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSummarize(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	m.SearchQueriesTotal.WithLabelValues("full", "hit").Add(3)
	m.CorpusLoadsTotal.WithLabelValues("en", "ok").Inc()
	m.CacheHitsTotal.Add(1)
	m.CacheMissesTotal.Add(3)
	m.SearchLatency.WithLabelValues("miss").Observe(0.01)
	m.HTTPRequestsInFlight.Set(2)

	s, err := Summarize(reg)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Families["search_queries_total"]["mode=full,outcome=hit"]; got != 3 {
		t.Errorf("search_queries_total = %v, want 3", got)
	}
	if got := s.Families["corpus_loads_total"]["lang=en,status=ok"]; got != 1 {
		t.Errorf("corpus_loads_total = %v, want 1", got)
	}
	if got := s.Families["search_latency_seconds"]["cache_status=miss"]; got != 1 {
		t.Errorf("search_latency_seconds count = %v, want 1", got)
	}
	if s.CacheHitRatio != 0.25 {
		t.Errorf("cache hit ratio = %v, want 0.25", s.CacheHitRatio)
	}
	if _, ok := s.Families["http_requests_in_flight"]; ok {
		t.Error("http families are left to /metrics")
	}
}

func TestServeMux(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	m.StaleQueriesTotal.Inc()
	mux := NewServeMux(reg)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/summary", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	var s Summary
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Families["search_stale_queries_total"][""] != 1 {
		t.Errorf("summary = %+v", s.Families)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "search_stale_queries_total 1") {
		t.Errorf("scrape output missing stale counter:\n%s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), "search_stale_queries_total") {
		t.Errorf("index page missing family:\n%s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d", rec.Code)
	}
}
