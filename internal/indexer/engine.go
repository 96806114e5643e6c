// Package indexer builds the did-you-mean suggestion tables of one language
// from its corpus.
package indexer

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/fold"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/stemmer"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/logger"
)

// ctxCheckEvery is how many documents are walked between context checks.
const ctxCheckEvery = 512

// Engine accumulates suggestion tables for one language. The build always
// folds with normalization on and case folding on.
type Engine struct {
	lang      corpus.Language
	tokenizer *tokenizer.Tokenizer
	stem      bool
	logger    *slog.Logger
}

// BuildStats summarizes one build.
type BuildStats struct {
	Documents int
	Tokens    int
	Skipped   int
	Duration  time.Duration
}

func NewEngine(lang corpus.Language) *Engine {
	return &Engine{
		lang:      lang,
		tokenizer: lang.Tokenizer(fold.DefaultOptions()),
		stem:      stemmer.Applies(lang.Code),
		logger:    logger.ForLanguage("indexer", lang.Code),
	}
}

// Build walks docs in order and returns the filled tables. Documents that are
// not Indexed (picture captions, evidence blocks) are counted as skipped.
func (e *Engine) Build(ctx context.Context, docs []corpus.Document) (*index.Tables, BuildStats, error) {
	start := time.Now()
	t := index.NewTables()
	var stats BuildStats

	for i, d := range docs {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}
		if !d.Indexed() {
			stats.Skipped++
			continue
		}
		stats.Tokens += e.AddText(t, d.Text, d.Searchable)
		stats.Documents++
	}

	stats.Duration = time.Since(start)
	e.logger.Info("suggestion tables built",
		"documents", stats.Documents,
		"tokens", stats.Tokens,
		"distinct_tokens", t.Frequency.Len(),
		"duration", stats.Duration,
	)
	return t, stats, nil
}

// AddText records one document text and returns the number of word tokens
// recorded. Digit-bearing tokens are skipped entirely and do not break the
// n-gram sequence.
func (e *Engine) AddText(t *index.Tables, text string, searchable bool) int {
	folder := e.tokenizer.Folder()
	if searchable {
		t.AddSearchable(folder.Fold(text))
	}

	var seq []string
	for _, tok := range e.tokenizer.Tokenize(text) {
		if tok.HasDigit || utf8.RuneCountInString(tok.Folded) < 2 {
			continue
		}
		t.AddToken(tok.Folded, 1)
		t.AddSurfaceForm(tok.Folded, tok.Raw, 1)
		if e.stem {
			for _, s := range stemmer.Stem(tok.Folded, e.lang.Code) {
				t.AddToken(s, stemmer.StemWeight)
				t.AddSurfaceForm(s, tok.Raw, stemmer.StemWeight)
			}
		}
		seq = append(seq, tok.Folded)
	}
	t.AddSequence(seq)
	return len(seq)
}
