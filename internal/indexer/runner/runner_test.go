package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/resilience"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	// failures is the number of calls rejected before accepting any.
	failures int
	calls    int
}

func (p *recordingPublisher) Publish(_ context.Context, e kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return errors.New("broker not available")
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	for _, e := range events {
		_ = p.Publish(ctx, e)
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func setup(t *testing.T) (*corpus.Registry, string) {
	t.Helper()
	assets := t.TempDir()
	writeFile(t, filepath.Join(assets, "qurantft.json"),
		`{"1": {"sura": {"1": {"verses": {"1": "In the name of GOD, Most Gracious, Most Merciful."}}}}}`)
	writeFile(t, filepath.Join(assets, "application.json"), `{"search": "Search"}`)
	writeFile(t, filepath.Join(assets, "translations", "tr", "quran_tr.json"),
		`{"1": {"sura": {"1": {"verses": {"1": "Rahman, Rahim ALLAH'ın adıyla; kitapları"}}}}}`)
	// A folder without a quran file is not a language.
	writeFile(t, filepath.Join(assets, "translations", "de", "application_de.json"), `{}`)

	reg, err := corpus.NewRegistry(assets, "en", corpus.Languages{
		"en": {Dir: "ltr"},
		"tr": {Dir: "ltr"},
		"de": {Dir: "ltr"},
	})
	require.NoError(t, err)
	return reg, t.TempDir()
}

func TestRunBuildsEveryLanguage(t *testing.T) {
	reg, out := setup(t)
	pub := &recordingPublisher{}
	bm := metrics.NewBuildMetrics()
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	r := New(reg, segment.NewWriter(out, func(string) int { return 1000 }),
		WithWorkers(2),
		WithPublisher(pub),
		WithMetrics(bm),
		WithClock(func() time.Time { return fixed }),
	)
	report, err := r.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"en", "tr"}, report.Built())
	require.NotNil(t, report.Global)
	assert.Equal(t, "2025-01-02T03:04:05.000Z", report.Global.GeneratedAt)

	gm, err := segment.ReadGlobal(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "tr"}, gm.Languages)

	tables, m, err := segment.Load(filepath.Join(out, "tr"))
	require.NoError(t, err)
	assert.Equal(t, "tr", m.Lang)
	_, ok := tables.Frequency.Get("KİTAP")
	assert.True(t, ok, "Turkish stems are indexed")

	require.Len(t, pub.events, 2)
	langs := map[string]bool{}
	for _, e := range pub.events {
		ev, ok := e.Value.(IndexEvent)
		require.True(t, ok)
		assert.Equal(t, e.Key, ev.Lang)
		assert.Equal(t, segment.Version, ev.Version)
		assert.Contains(t, ev.Sections, index.SectionFrequency)
		langs[ev.Lang] = true
	}
	assert.Equal(t, map[string]bool{"en": true, "tr": true}, langs)

	assert.Equal(t, 1.0, testutil.ToFloat64(bm.BuildStatus.WithLabelValues("en")))
	assert.Equal(t, 2.0, testutil.ToFloat64(bm.DocumentsTotal.WithLabelValues("en")), "verse and application string")
}

func TestRunUnknownLanguageFails(t *testing.T) {
	reg, out := setup(t)
	r := New(reg, segment.NewWriter(out, func(string) int { return 1000 }))

	report, err := r.Run(context.Background(), []string{"en", "xx", "en"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xx")
	assert.Equal(t, []string{"en"}, report.Built())

	gm, err := segment.ReadGlobal(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"en"}, gm.Languages)
}

func TestRunCancelled(t *testing.T) {
	reg, out := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(reg, segment.NewWriter(out, func(string) int { return 1000 })).Run(ctx, []string{"en"})
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(out, segment.ManifestFile))
	assert.True(t, os.IsNotExist(statErr), "no global manifest after an interrupted run")
}

func TestRunRetriesAnnouncement(t *testing.T) {
	reg, out := setup(t)
	pub := &recordingPublisher{failures: 1}

	r := New(reg, segment.NewWriter(out, func(string) int { return 1000 }),
		WithPublisher(pub),
		WithPublishBackoff(resilience.Backoff{Attempts: 2, Initial: time.Millisecond}),
	)
	report, err := r.Run(context.Background(), []string{"en"})
	require.NoError(t, err)
	assert.Equal(t, []string{"en"}, report.Built())
	assert.Equal(t, 2, pub.calls)
	require.Len(t, pub.events, 1)
}

func TestRunSurvivesUnreachableBroker(t *testing.T) {
	reg, out := setup(t)
	pub := &recordingPublisher{failures: 10}

	r := New(reg, segment.NewWriter(out, func(string) int { return 1000 }),
		WithPublisher(pub),
		WithPublishBackoff(resilience.Backoff{Attempts: 2, Initial: time.Millisecond}),
	)
	report, err := r.Run(context.Background(), []string{"en"})
	require.NoError(t, err, "the index on disk is complete")
	assert.Equal(t, []string{"en"}, report.Built())
	assert.Empty(t, pub.events)
}
