// Command analytics starts the standalone analytics aggregation service.
//
// It consumes search events and index-complete notifications from Kafka,
// aggregates them in memory (searches per language, latency percentiles,
// cache hit rate, top and zero-result queries, last index build per
// language), snapshots them to PostgreSQL when it is reachable and serves
// the totals at GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/postgres"
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
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator()
	checker := health.NewChecker(0)

	if cfg.Kafka.Enabled() {
		events := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, "analytics", analytics.HandleEvent(agg))
		builds := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, "analytics", analytics.HandleIndexEvent(agg))

		go func() {
			if err := events.Start(ctx); err != nil {
				slog.Error("analytics consumer error", "error", err)
			}
		}()
		go func() {
			if err := builds.Start(ctx); err != nil {
				slog.Error("index event consumer error", "error", err)
			}
		}()
		slog.Info("analytics consumers started",
			"events_topic", cfg.Kafka.Topics.AnalyticsEvents,
			"index_topic", cfg.Kafka.Topics.IndexComplete,
		)
		checker.RegisterOptional("kafka", func(ctx context.Context) (string, error) {
			return "consumers active", nil
		})
	} else {
		slog.Warn("kafka disabled, analytics service receives no events")
		checker.RegisterOptional("kafka", func(ctx context.Context) (string, error) {
			return "", health.ErrNotConfigured
		})
	}

	var store *aggregator.Store
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, snapshots disabled", "error", err)
	} else {
		defer db.Close()
		store = aggregator.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			slog.Error("analytics schema migration failed", "error", err)
			os.Exit(1)
		}
		if latest, err := store.LatestSnapshot(ctx); err != nil {
			slog.Warn("reading latest snapshot failed", "error", err)
		} else if latest != nil {
			slog.Info("previous snapshot found", "total_searches", latest.TotalSearches)
		}
		store.StartPeriodicSave(ctx, agg, cfg.Postgres.SnapshotEvery)
	}
	checker.RegisterOptional("postgres", func(ctx context.Context) (string, error) {
		if db == nil {
			return "", health.ErrNotConfigured
		}
		return "", db.Ping(ctx)
	})

	analyticsHandler := analytics.NewHandler(agg)
	m := metrics.New()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /api/v1/analytics/zero-results", analyticsHandler.ZeroResults)
	mux.HandleFunc("GET /api/v1/analytics/zero-results/history", zeroResultHistory(store))
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}

// zeroResultHistory serves the persisted zero-result counts, which survive
// restarts of the in-memory aggregator.
func zeroResultHistory(store *aggregator.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if store == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"error": "snapshots are disabled"})
			return
		}
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}
		queries, err := store.ZeroResultQueries(r.Context(), r.URL.Query().Get("lang"), limit)
		if err != nil {
			logger.FromContext(r.Context()).Error("listing zero-result queries failed", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "listing zero-result queries failed"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"queries": queries})
	}
}
