// Package reload listens for index-complete notifications from the index
// builder and swaps in the freshly written suggestion tables.
package reload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/runner"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/kafka"
)

// TableLoader reloads the suggestion tables of one language.
type TableLoader interface {
	Load(lang string) error
}

// Hook runs after a language's tables were reloaded.
type Hook func(ctx context.Context, ev runner.IndexEvent)

// IndexConsumer wraps a Kafka consumer of the index-complete topic.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-reload"),
	}
}

// Start consumes notifications until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index reload consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a MessageHandler that reloads the announced
// language and then runs hooks. Undecodable messages and foreign index
// versions are logged and acknowledged; a failed reload is returned so the
// message is not committed.
func HandleMessage(loader TableLoader, hooks ...Hook) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-reload")
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[runner.IndexEvent](value)
		if err != nil {
			logger.Error("failed to decode index event", "error", err, "key", string(key))
			return nil
		}
		if ev.Lang == "" {
			ev.Lang = string(key)
		}
		if ev.Lang == "" {
			logger.Warn("index event without language")
			return nil
		}
		if ev.Version != "" && ev.Version != segment.Version {
			logger.Warn("ignoring index of unsupported version", "lang", ev.Lang, "version", ev.Version)
			return nil
		}

		if err := loader.Load(ev.Lang); err != nil {
			return fmt.Errorf("reloading %s: %w", ev.Lang, err)
		}
		for _, h := range hooks {
			h(ctx, ev)
		}
		logger.Info("suggestion tables reloaded", "lang", ev.Lang, "generated_at", ev.GeneratedAt)
		return nil
	}
}
