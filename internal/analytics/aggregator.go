package analytics

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/runner"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/kafka"
)

// maxLatencies bounds the latency window used for percentiles.
const maxLatencies = 10000

const topQueries = 10

type AggregatedStats struct {
	TotalSearches     int64             `json:"total_searches"`
	LetterLookups     int64             `json:"letter_lookups"`
	StaleQueries      int64             `json:"stale_queries"`
	CacheHits         int64             `json:"cache_hits"`
	CacheMisses       int64             `json:"cache_misses"`
	ZeroResultCount   int64             `json:"zero_result_count"`
	AvgLatencyMs      float64           `json:"avg_latency_ms"`
	P50LatencyMs      int64             `json:"p50_latency_ms"`
	P95LatencyMs      int64             `json:"p95_latency_ms"`
	P99LatencyMs      int64             `json:"p99_latency_ms"`
	TopQueries        []QueryCount      `json:"top_queries"`
	ZeroResultQueries []QueryCount      `json:"zero_result_queries"`
	SearchesByLang    map[string]int64  `json:"searches_by_lang"`
	HitsByCategory    map[string]int64  `json:"hits_by_category"`
	IndexBuilds       map[string]string `json:"index_builds,omitempty"`
	QueriesPerMinute  float64           `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Lang  string `json:"lang"`
	Count int64  `json:"count"`
}

type queryKey struct {
	lang  string
	query string
}

// Aggregator keeps running totals over search events. It is fed either by
// Record directly or by a Kafka consumer through HandleEvent.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     atomic.Int64
	letterLookups     atomic.Int64
	staleQueries      atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	zeroResults       atomic.Int64
	latencies         []int64
	queryCounts       map[queryKey]int64
	zeroResultQueries map[queryKey]int64
	byLang            map[string]int64
	byCategory        map[string]int64
	indexBuilds       map[string]string
	startTime         time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[queryKey]int64),
		zeroResultQueries: make(map[queryKey]int64),
		byLang:            make(map[string]int64),
		byCategory:        make(map[string]int64),
		indexBuilds:       make(map[string]string),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent returns a MessageHandler for the analytics topic.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// HandleIndexEvent returns a MessageHandler for the index-complete topic
// that remembers when each language was last built.
func HandleIndexEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[runner.IndexEvent](value)
		if err != nil || event.Lang == "" {
			agg.logger.Error("failed to decode index event", "error", err, "key", string(key))
			return nil
		}
		agg.mu.Lock()
		agg.indexBuilds[event.Lang] = event.GeneratedAt
		agg.mu.Unlock()
		return nil
	}
}

// Record adds one event to the totals.
func (a *Aggregator) Record(event SearchEvent) {
	switch event.Type {
	case EventStale:
		a.staleQueries.Add(1)
		return
	case EventLetter:
		a.letterLookups.Add(1)
	case EventSearch, "":
	default:
		return
	}
	a.totalSearches.Add(1)

	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	zero := event.TotalHits == 0 && event.Type != EventLetter
	if zero {
		a.zeroResults.Add(1)
	}

	key := queryKey{lang: event.Lang, query: normalizeQuery(event.Query)}
	a.mu.Lock()
	if len(a.latencies) >= maxLatencies {
		a.latencies = append(a.latencies[:0], a.latencies[maxLatencies/2:]...)
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	a.queryCounts[key]++
	if zero {
		a.zeroResultQueries[key]++
	}
	a.byLang[event.Lang]++
	for cat, n := range event.Categories {
		a.byCategory[cat] += int64(n)
	}
	a.mu.Unlock()
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches.Load(),
		LetterLookups:   a.letterLookups.Load(),
		StaleQueries:    a.staleQueries.Load(),
		CacheHits:       a.cacheHits.Load(),
		CacheMisses:     a.cacheMisses.Load(),
		ZeroResultCount: a.zeroResults.Load(),
		SearchesByLang:  copyMap(a.byLang),
		HitsByCategory:  copyMap(a.byCategory),
		IndexBuilds:     copyMap(a.indexBuilds),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, topQueries)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, topQueries)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}

	return stats
}

// ZeroResultQueries returns every query that found nothing, most frequent
// first.
func (a *Aggregator) ZeroResultQueries() []QueryCount {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return topN(a.zeroResultQueries, len(a.zeroResultQueries))
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[queryKey]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for k, count := range counts {
		result = append(result, QueryCount{Query: k.query, Lang: k.lang, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		if result[i].Query != result[j].Query {
			return result[i].Query < result[j].Query
		}
		return result[i].Lang < result[j].Lang
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
