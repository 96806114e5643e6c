package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// BuildMetrics collects statistics of one offline index build. The builder is
// a batch job, so the collectors live on a private registry that is written
// out once for a node_exporter textfile collector instead of being scraped.
type BuildMetrics struct {
	registry       *prometheus.Registry
	DocumentsTotal *prometheus.CounterVec
	TokensTotal    *prometheus.CounterVec
	ChunksTotal    *prometheus.CounterVec
	ChunkBytes     *prometheus.CounterVec
	BuildDuration  *prometheus.GaugeVec
	BuildStatus    *prometheus.GaugeVec
}

// NewBuildMetrics creates the builder collectors on a fresh registry.
func NewBuildMetrics() *BuildMetrics {
	m := &BuildMetrics{
		registry: prometheus.NewRegistry(),
		DocumentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dym_build_documents_total",
			Help: "Corpus documents walked per language.",
		}, []string{"lang"}),
		TokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dym_build_tokens_total",
			Help: "Word tokens recorded per language.",
		}, []string{"lang"}),
		ChunksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dym_build_chunks_total",
			Help: "Chunk files written per language and section.",
		}, []string{"lang", "section"}),
		ChunkBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dym_build_chunk_bytes_total",
			Help: "Bytes written to chunk files per language and section.",
		}, []string{"lang", "section"}),
		BuildDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dym_build_duration_seconds",
			Help: "Wall time of the last build per language.",
		}, []string{"lang"}),
		BuildStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dym_build_success",
			Help: "1 if the last build of the language succeeded, 0 otherwise.",
		}, []string{"lang"}),
	}
	m.registry.MustRegister(
		m.DocumentsTotal,
		m.TokensTotal,
		m.ChunksTotal,
		m.ChunkBytes,
		m.BuildDuration,
		m.BuildStatus,
	)
	return m
}

// Gatherer exposes the private registry, mainly for tests.
func (m *BuildMetrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the collected metrics in text exposition format.
func (m *BuildMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}
	return nil
}
