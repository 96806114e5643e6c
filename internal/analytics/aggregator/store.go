// Package aggregator persists analytics snapshots and zero-result queries to
// PostgreSQL. Zero-result queries are what editors mine for missing
// spellings and theme map entries.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/postgres"
)

// Schema creates the tables the store writes to.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS search_snapshots (
	    id          BIGSERIAL PRIMARY KEY,
	    data        JSONB NOT NULL,
	    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS zero_result_queries (
	    lang       TEXT NOT NULL,
	    query      TEXT NOT NULL,
	    count      BIGINT NOT NULL,
	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	    PRIMARY KEY (lang, query)
	)`,
}

const upsertZeroResult = `INSERT INTO zero_result_queries (lang, query, count, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (lang, query) DO UPDATE SET count = EXCLUDED.count, updated_at = EXCLUDED.updated_at`

// Store persists aggregated analytics in PostgreSQL.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a new analytics persistence store.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
		now:    time.Now,
	}
}

// Migrate creates the store's tables if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.Migrate(ctx, Schema...)
}

// SaveSnapshot persists a stats snapshot together with the current
// zero-result counts, in one transaction.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats, zero []analytics.QueryCount) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	at := s.now().UTC()
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO search_snapshots (data, captured_at) VALUES ($1, $2)`,
			data, at,
		); err != nil {
			return fmt.Errorf("saving search snapshot: %w", err)
		}
		for _, q := range zero {
			if _, err := tx.ExecContext(ctx, upsertZeroResult, q.Lang, q.Query, q.Count, at); err != nil {
				return fmt.Errorf("saving zero-result query %q: %w", q.Query, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("analytics snapshot saved",
		"total_searches", stats.TotalSearches,
		"zero_result_queries", len(zero),
	)
	return nil
}

// LatestSnapshot loads the most recent snapshot from the database.
// Returns nil, nil if no snapshots exist yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.AggregatedStats, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM search_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}

	var stats analytics.AggregatedStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &stats, nil
}

// ZeroResultQueries returns the most frequent zero-result queries of lang,
// or of every language when lang is empty.
func (s *Store) ZeroResultQueries(ctx context.Context, lang string, limit int) ([]analytics.QueryCount, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT lang, query, count FROM zero_result_queries
		 WHERE $1 = '' OR lang = $1
		 ORDER BY count DESC, query LIMIT $2`,
		lang, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing zero-result queries: %w", err)
	}
	defer rows.Close()

	var out []analytics.QueryCount
	for rows.Next() {
		var q analytics.QueryCount
		if err := rows.Scan(&q.Lang, &q.Query, &q.Count); err != nil {
			return nil, fmt.Errorf("scanning zero-result row: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// StartPeriodicSave launches a goroutine that periodically snapshots
// the aggregator's current stats to the database.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.SaveSnapshot(ctx, agg.Stats(), agg.ZeroResultQueries()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				// Final snapshot on shutdown.
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.SaveSnapshot(shutdownCtx, agg.Stats(), agg.ZeroResultQueries()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
}
