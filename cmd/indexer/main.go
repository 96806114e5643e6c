// Command indexer builds the did-you-mean suggestion index of every corpus
// language and inspects the result.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/runner"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/metrics"
)

var cli struct {
	Config string `help:"Path to config file." default:"configs/development.yaml" type:"path"`

	Build   BuildCmd   `cmd:"" help:"Build the suggestion index of every available language."`
	Inspect InspectCmd `cmd:"" help:"Load a built language directory and print its table sizes."`
}

// BuildCmd overrides the index and corpus sections of the config.
type BuildCmd struct {
	Assets          string   `help:"Corpus assets directory." type:"path"`
	Out             string   `help:"Index output directory." type:"path"`
	Lang            []string `help:"Languages to build (default: all available)." sep:","`
	Workers         int      `help:"Languages built in parallel."`
	MetricsTextfile string   `name:"metrics-textfile" help:"Write build metrics in Prometheus text format to this file." type:"path"`
	Publish         bool     `help:"Announce built languages on the index-complete topic." default:"true" negatable:""`
}

func (c *BuildCmd) Run(cfg *config.Config) error {
	if c.Assets != "" {
		cfg.Corpus.AssetsDir = c.Assets
	}
	if c.Out != "" {
		cfg.Index.OutputDir = c.Out
	}
	if c.Workers > 0 {
		cfg.Index.Workers = c.Workers
	}
	if c.MetricsTextfile != "" {
		cfg.Index.MetricsTextfile = c.MetricsTextfile
	}

	registry, err := corpus.OpenRegistry(cfg.Corpus)
	if err != nil {
		return fmt.Errorf("opening corpus: %w", err)
	}

	var publisher kafka.Publisher = kafka.NopPublisher{}
	if c.Publish {
		publisher = kafka.NewPublisher(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	}
	defer publisher.Close()

	bm := metrics.NewBuildMetrics()
	writer := segment.NewWriter(cfg.Index.OutputDir, cfg.Index.MaxBytes)
	r := runner.New(registry, writer,
		runner.WithWorkers(cfg.Index.Workers),
		runner.WithPublisher(publisher),
		runner.WithMetrics(bm),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting index build",
		"assets", cfg.Corpus.AssetsDir,
		"out", cfg.Index.OutputDir,
		"workers", cfg.Index.Workers,
	)
	report, runErr := r.Run(ctx, c.Lang)
	if report != nil {
		printReport(os.Stdout, report)
	}

	if cfg.Index.MetricsTextfile != "" {
		if err := bm.WriteTextfile(cfg.Index.MetricsTextfile); err != nil {
			slog.Error("writing metrics textfile failed", "path", cfg.Index.MetricsTextfile, "error", err)
		}
	}
	return runErr
}

func printReport(out *os.File, report *runner.Report) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LANG\tDOCS\tTOKENS\tSEARCHABLE\tCHUNKS\tSTATUS")
	for _, l := range report.Languages {
		status := "ok"
		if l.Err != nil {
			status = l.Err.Error()
		}
		chunks := 0
		for _, s := range l.Sections {
			chunks += s.Chunks
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n",
			l.Lang, l.Build.Documents, l.Tables.Tokens, l.Tables.SearchableTexts, chunks, status)
	}
	tw.Flush()
	if report.Global != nil {
		fmt.Fprintf(out, "generated %s: %s\n", report.Global.GeneratedAt, strings.Join(report.Global.Languages, ", "))
	}
}

type InspectCmd struct {
	Dir string `help:"Language directory of a built index." required:"" type:"existingdir"`
	Top int    `help:"Number of most frequent tokens to list." default:"10"`
}

func (c *InspectCmd) Run(_ *config.Config) error {
	t, m, err := segment.Load(c.Dir)
	if err != nil {
		return fmt.Errorf("loading %s: %w", c.Dir, err)
	}
	stats := t.Stats()
	fmt.Printf("lang %s, version %s\n", m.Lang, m.Version)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tCHUNKS")
	sections := make([]string, 0, len(m.Sections))
	for s := range m.Sections {
		sections = append(sections, s)
	}
	sort.Strings(sections)
	for _, s := range sections {
		fmt.Fprintf(tw, "%s\t%d\n", s, len(m.Sections[s]))
	}
	tw.Flush()

	fmt.Printf("tokens %d, lengths %d, surface forms %d, searchable texts %d, bigrams %d, trigrams %d\n",
		stats.Tokens, stats.Lengths, stats.SurfaceForms, stats.SearchableTexts, stats.Bigrams, stats.Trigrams)
	if c.Top > 0 {
		fmt.Printf("top tokens: %s\n", strings.Join(t.TopTokens(c.Top), " "))
	}
	return nil
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("indexer"),
		kong.Description("Offline did-you-mean index builder."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	kctx.FatalIfErrorf(kctx.Run(cfg))
}
