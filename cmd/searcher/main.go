package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/matcher"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/reload"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/session"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/suggest"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "assets", cfg.Corpus.AssetsDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	registry, err := corpus.OpenRegistry(cfg.Corpus)
	if err != nil {
		slog.Error("failed to open corpus", "error", err)
		os.Exit(1)
	}
	store, err := corpus.NewStore(registry, cfg.Corpus.CachedLanguages, m)
	if err != nil {
		slog.Error("failed to create corpus store", "error", err)
		os.Exit(1)
	}
	if _, err := store.Get(ctx, registry.Base()); err != nil {
		slog.Error("failed to load base corpus", "lang", registry.Base(), "error", err)
		os.Exit(1)
	}
	slog.Info("corpus registry ready", "languages", registry.Codes())

	caps := matcher.Probe()
	slog.Info("matcher capabilities", "lookaround", caps.Lookaround)

	var redisClient *pkgredis.Client
	queryCache := cache.New(nil, 0, m)
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis, "scripture")
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			slog.Info("search cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
			)
		}
	}

	sessions, err := session.NewManager(cfg.Search.SessionCapacity, cfg.Search.BatchSize, m)
	if err != nil {
		slog.Error("failed to create session manager", "error", err)
		os.Exit(1)
	}

	suggestions := suggest.NewManager(cfg.Search.IndexDir, cfg.Search.SuggestionLimit, m)
	if err := suggestions.LoadAll(); err != nil {
		slog.Warn("no suggestion index loaded, did-you-mean disabled until the next build", "error", err)
	}

	agg := analytics.NewAggregator()
	collector := analytics.NewCollector(kafka.NewPublisher(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents), 0, 0, 0)
	collector.Start(ctx)
	defer collector.Close()

	eng := engine.New(store, matcher.New(caps), sessions,
		engine.WithCache(queryCache),
		engine.WithSuggestions(suggestions),
		engine.WithMetrics(m),
		engine.WithDefaultLanguage(cfg.Search.DefaultLanguage),
		engine.WithQueryTimeout(cfg.Search.QueryTimeout),
		engine.WithEvents(agg.Record),
		engine.WithEvents(collector.Track),
	)

	if cfg.Corpus.Watch {
		watcher, err := corpus.NewWatcher(store, 0)
		if err != nil {
			slog.Warn("corpus watcher unavailable", "error", err)
		} else {
			watcher.OnChange(eng.CorpusChanged)
			go watcher.Run(ctx)
			slog.Info("corpus watcher started", "dir", registry.Dir())
		}
	}

	if cfg.Kafka.Enabled() {
		indexConsumer := reload.New(kafka.NewConsumer(
			cfg.Kafka,
			cfg.Kafka.Topics.IndexComplete,
			"searcher",
			reload.HandleMessage(suggestions, eng.IndexReloaded),
		))
		go func() {
			if err := indexConsumer.Start(ctx); err != nil {
				slog.Error("index reload consumer error", "error", err)
			}
		}()
	}

	checker := health.NewChecker(0)
	checker.Register("corpus", func(ctx context.Context) (string, error) {
		if _, err := store.Get(ctx, registry.Base()); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d languages, %d loaded", len(registry.Codes()), len(store.Loaded())), nil
	})
	checker.RegisterOptional("suggestions", func(ctx context.Context) (string, error) {
		langs := suggestions.Languages()
		if len(langs) == 0 {
			return "", errors.New("no index loaded")
		}
		return fmt.Sprintf("%d languages", len(langs)), nil
	})
	checker.RegisterOptional("redis", func(ctx context.Context) (string, error) {
		if redisClient == nil {
			return "", health.ErrNotConfigured
		}
		if err := redisClient.Ping(ctx); err != nil {
			return "", err
		}
		return "breaker " + queryCache.BreakerState().String(), nil
	})

	h := handler.New(eng, queryCache)
	analyticsH := analytics.NewHandler(agg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/search/more", h.More)
	mux.HandleFunc("GET /api/v1/languages", h.Languages)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /api/v1/analytics/zero-results", analyticsH.ZeroResults)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)
		go limiter.Run(ctx)
		chain = middleware.RateLimit(limiter)(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(cfg.Server.AllowOrigins)(chain)
	chain = middleware.RequestID(chain)

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
