package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// summaryPrefixes selects the families shown by /summary and the index page.
var summaryPrefixes = []string{"search_", "cache_", "corpus_", "suggest_", "dym_build_"}

// Summary maps a metric family to its series, keyed by their label pairs
// ("lang=en,status=ok"; "" for unlabelled series). Histograms report their
// observation count.
type Summary struct {
	Families      map[string]map[string]float64 `json:"families"`
	CacheHitRatio float64                       `json:"cacheHitRatio"`
}

// Summarize gathers g and keeps the search, cache, corpus and suggestion
// families.
func Summarize(g prometheus.Gatherer) (Summary, error) {
	mfs, err := g.Gather()
	if err != nil {
		return Summary{}, fmt.Errorf("gathering metrics: %w", err)
	}
	s := Summary{Families: make(map[string]map[string]float64)}
	for _, mf := range mfs {
		if !summarized(mf.GetName()) {
			continue
		}
		series := make(map[string]float64, len(mf.GetMetric()))
		for _, m := range mf.GetMetric() {
			series[labelKey(m.GetLabel())] += value(mf.GetType(), m)
		}
		s.Families[mf.GetName()] = series
	}
	hits := s.Families["cache_hits_total"][""]
	if total := hits + s.Families["cache_misses_total"][""]; total > 0 {
		s.CacheHitRatio = hits / total
	}
	return s, nil
}

func summarized(name string) bool {
	for _, p := range summaryPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func labelKey(labels []*dto.LabelPair) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.GetName() + "=" + l.GetValue()
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func value(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	case dto.MetricType_SUMMARY:
		return float64(m.GetSummary().GetSampleCount())
	}
	return m.GetUntyped().GetValue()
}

var indexPage = template.Must(template.New("index").Parse(`<html><body>
<h1>Scripture Search Metrics</h1>
<p><a href="/metrics">/metrics</a> · <a href="/summary">/summary</a></p>
<p>cache hit ratio: {{printf "%.2f" .CacheHitRatio}}</p>
<table>{{range .Rows}}<tr><td>{{.Family}}</td><td>{{.Series}}</td><td>{{.Value}}</td></tr>{{end}}</table>
</body></html>`))

type indexRow struct {
	Family, Series string
	Value          float64
}

// NewServeMux serves g: the scrape endpoint, the JSON summary and an index
// page rendering that summary.
func NewServeMux(g prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /summary", func(w http.ResponseWriter, r *http.Request) {
		s, err := Summarize(g)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s)
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		s, err := Summarize(g)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		var rows []indexRow
		for fam, series := range s.Families {
			for k, v := range series {
				rows = append(rows, indexRow{Family: fam, Series: k, Value: v})
			}
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Family != rows[j].Family {
				return rows[i].Family < rows[j].Family
			}
			return rows[i].Series < rows[j].Series
		})
		w.Header().Set("Content-Type", "text/html")
		indexPage.Execute(w, struct {
			CacheHitRatio float64
			Rows          []indexRow
		}{s.CacheHitRatio, rows})
	})
	return mux
}

// StartServer serves the default registry on port in the background.
func StartServer(port int) (shutdown func(context.Context) error) {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewServeMux(prometheus.DefaultGatherer),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}
