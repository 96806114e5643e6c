package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.SearchQueriesTotal.WithLabelValues("full", "hit").Inc()
	m.SearchQueriesTotal.WithLabelValues("full", "hit").Inc()
	if got := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("full", "hit")); got != 2 {
		t.Errorf("search_queries_total = %v, want 2", got)
	}
}

func TestBuildMetricsTextfile(t *testing.T) {
	m := NewBuildMetrics()
	m.ChunksTotal.WithLabelValues("en", "frequency").Add(3)
	m.BuildStatus.WithLabelValues("en").Set(1)

	path := filepath.Join(t.TempDir(), "dym.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, `dym_build_chunks_total{lang="en",section="frequency"} 3`) {
		t.Errorf("textfile missing chunk counter:\n%s", out)
	}
	if !strings.Contains(out, `dym_build_success{lang="en"} 1`) {
		t.Errorf("textfile missing status gauge:\n%s", out)
	}
}
