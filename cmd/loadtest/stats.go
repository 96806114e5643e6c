package main

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"
	"unicode/utf8"
)

// Prefixes returns every prefix of term a reader produces while typing it,
// one rune at a time.
func Prefixes(term string) []string {
	out := make([]string, 0, utf8.RuneCountInString(term))
	for i := range term {
		if i > 0 {
			out = append(out, term[:i])
		}
	}
	if term != "" {
		out = append(out, term)
	}
	return out
}

// Stats is safe for concurrent use.
type Stats struct {
	mu        sync.Mutex
	total     int
	failures  int
	stale     int
	cacheHits int
	codes     map[int]int
	latencies map[string][]time.Duration
}

func NewStats() *Stats {
	return &Stats{
		codes:     make(map[int]int),
		latencies: make(map[string][]time.Duration),
	}
}

func (s *Stats) Record(kind string, d time.Duration, status int, cacheHit bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if err != nil {
		s.failures++
		return
	}
	s.codes[status]++
	switch {
	case status == http.StatusConflict:
		s.stale++
	case status >= 400:
		s.failures++
	}
	if cacheHit {
		s.cacheHits++
	}
	s.latencies[kind] = append(s.latencies[kind], d)
}

func (s *Stats) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *Stats) Print(w io.Writer, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", s.total)
	fmt.Fprintf(w, "Failures:        %d\n", s.failures)
	fmt.Fprintf(w, "Superseded:      %d\n", s.stale)
	fmt.Fprintf(w, "Cache Hits:      %d\n", s.cacheHits)
	if s.total > 0 && elapsed > 0 {
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(s.total)/elapsed.Seconds())
	}

	kinds := make([]string, 0, len(s.latencies))
	for k := range s.latencies {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		lat := append([]time.Duration(nil), s.latencies[k]...)
		sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
		fmt.Fprintf(w, "\n=== Latency (%s, %d) ===\n", k, len(lat))
		fmt.Fprintf(w, "P50:    %s\n", Percentile(lat, 50))
		fmt.Fprintf(w, "P90:    %s\n", Percentile(lat, 90))
		fmt.Fprintf(w, "P99:    %s\n", Percentile(lat, 99))
		fmt.Fprintf(w, "Max:    %s\n", lat[len(lat)-1])
	}

	fmt.Fprintln(w, "\n=== Status Codes ===")
	codes := make([]int, 0, len(s.codes))
	for c := range s.codes {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	for _, c := range codes {
		fmt.Fprintf(w, "  %d: %d\n", c, s.codes[c])
	}
}

// Percentile uses the nearest-rank method on sorted.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
