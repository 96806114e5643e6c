// Package runner builds the suggestion index of every requested language in
// parallel, each language into its own output directory, and writes the
// global manifest once all of them are done.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/resilience"
)

// IndexEvent announces a freshly written language index on the
// index-complete topic.
type IndexEvent struct {
	Lang        string              `json:"lang"`
	Version     string              `json:"version"`
	GeneratedAt string              `json:"generatedAt"`
	Sections    map[string][]string `json:"sections"`
}

// LanguageReport is the outcome of one language build.
type LanguageReport struct {
	Lang     string
	Build    indexer.BuildStats
	Tables   index.Stats
	Sections map[string]segment.SectionStats
	Err      error
}

// Report is the outcome of a run.
type Report struct {
	Languages []LanguageReport
	Global    *segment.GlobalManifest
}

// Built lists the languages that were written successfully.
func (r *Report) Built() []string {
	var out []string
	for _, l := range r.Languages {
		if l.Err == nil {
			out = append(out, l.Lang)
		}
	}
	return out
}

// Runner drives a build.
type Runner struct {
	registry  *corpus.Registry
	writer    *segment.Writer
	workers   int
	publisher kafka.Publisher
	metrics   *metrics.BuildMetrics
	backoff   resilience.Backoff
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithPublisher(p kafka.Publisher) Option {
	return func(r *Runner) {
		if p != nil {
			r.publisher = p
		}
	}
}

// WithPublishBackoff bounds the retries of an index-complete announcement.
func WithPublishBackoff(b resilience.Backoff) Option {
	return func(r *Runner) { r.backoff = b }
}

func WithMetrics(m *metrics.BuildMetrics) Option {
	return func(r *Runner) { r.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func New(registry *corpus.Registry, writer *segment.Writer, opts ...Option) *Runner {
	r := &Runner{
		registry:  registry,
		writer:    writer,
		workers:   1,
		publisher: kafka.NopPublisher{},
		backoff:   resilience.DefaultBackoff(),
		logger:    slog.Default().With("component", "index-runner"),
		now:       time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run builds langs, or every available language when langs is empty. A
// language whose build fails is left out of the global manifest and the
// other languages still complete; the returned error joins every language
// failure.
func (r *Runner) Run(ctx context.Context, langs []string) (*Report, error) {
	if len(langs) == 0 {
		langs = r.registry.Codes()
	}
	langs = dedupSorted(langs)

	if err := r.writer.Prepare(); err != nil {
		return nil, err
	}

	reports := make([]LanguageReport, len(langs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	var mu sync.Mutex
	var failures []error

	for i, lang := range langs {
		g.Go(func() error {
			rep := r.buildLanguage(gctx, lang)
			reports[i] = rep
			if rep.Err == nil {
				return nil
			}
			if gctx.Err() != nil {
				return gctx.Err()
			}
			mu.Lock()
			failures = append(failures, fmt.Errorf("%s: %w", lang, rep.Err))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &Report{Languages: reports}, fmt.Errorf("index build interrupted: %w", err)
	}

	report := &Report{Languages: reports}
	built := report.Built()
	gm, err := r.writer.WriteGlobal(built, r.now())
	if err != nil {
		return report, err
	}
	report.Global = gm

	r.logger.Info("index build finished",
		"built", len(built),
		"failed", len(failures),
		"languages", built,
	)
	return report, errors.Join(failures...)
}

func (r *Runner) buildLanguage(ctx context.Context, lang string) LanguageReport {
	rep := LanguageReport{Lang: lang}
	log := r.logger.With("lang", lang)
	start := r.now()

	defer func() {
		if r.metrics == nil {
			return
		}
		status := 1.0
		if rep.Err != nil {
			status = 0
		}
		r.metrics.BuildStatus.WithLabelValues(lang).Set(status)
		r.metrics.BuildDuration.WithLabelValues(lang).Set(r.now().Sub(start).Seconds())
	}()

	c, err := r.registry.Load(ctx, lang)
	if err != nil {
		log.Error("loading corpus failed", "error", err)
		rep.Err = err
		return rep
	}

	tables, stats, err := indexer.NewEngine(c.Language).Build(ctx, c.Documents)
	if err != nil {
		rep.Err = err
		return rep
	}
	rep.Build = stats
	rep.Tables = tables.Stats()

	res, err := r.writer.WriteLanguage(lang, tables)
	if err != nil {
		log.Error("writing index failed", "error", err)
		rep.Err = err
		return rep
	}
	rep.Sections = res.Sections

	if r.metrics != nil {
		r.metrics.DocumentsTotal.WithLabelValues(lang).Add(float64(stats.Documents))
		r.metrics.TokensTotal.WithLabelValues(lang).Add(float64(stats.Tokens))
		for section, s := range res.Sections {
			r.metrics.ChunksTotal.WithLabelValues(lang, section).Add(float64(s.Chunks))
			r.metrics.ChunkBytes.WithLabelValues(lang, section).Add(float64(s.Bytes))
		}
	}

	event := IndexEvent{
		Lang:        lang,
		Version:     res.Manifest.Version,
		GeneratedAt: r.now().UTC().Format(segment.TimeFormat),
		Sections:    res.Manifest.Sections,
	}
	err = resilience.Retry(ctx, "publish index-complete "+lang, r.backoff, func(ctx context.Context) error {
		return r.publisher.Publish(ctx, kafka.Event{Key: lang, Value: event})
	})
	if err != nil {
		// The index on disk is complete; searchers pick it up on restart.
		log.Warn("publishing index-complete event failed", "error", err)
	}

	log.Info("language built",
		"documents", stats.Documents,
		"tokens", rep.Tables.Tokens,
		"searchable_texts", rep.Tables.SearchableTexts,
	)
	return rep
}

func dedupSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
