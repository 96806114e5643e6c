// Package executor runs a parsed query over one language's corpus and
// collects the matching documents per result category, in reading order.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/fold"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/matcher"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/parser"
)

// Bucket is a result category as shown to the reader.
type Bucket string

const (
	BucketTitles       Bucket = "titles"
	BucketVerses       Bucket = "verses"
	BucketNotes        Bucket = "notes"
	BucketIntroduction Bucket = "introduction"
	BucketAppendices   Bucket = "appendices"
)

// Buckets lists every category in display order.
var Buckets = []Bucket{BucketTitles, BucketVerses, BucketNotes, BucketIntroduction, BucketAppendices}

// ParseBucket validates a category name from a request.
func ParseBucket(s string) (Bucket, bool) {
	for _, b := range Buckets {
		if string(b) == s {
			return b, true
		}
	}
	return "", false
}

// BucketOf returns the result category of a document category. Application
// strings are never search results.
func BucketOf(c corpus.Category) (Bucket, bool) {
	switch c {
	case corpus.CategoryVerse:
		return BucketVerses, true
	case corpus.CategoryTitle:
		return BucketTitles, true
	case corpus.CategoryNote:
		return BucketNotes, true
	case corpus.CategoryIntroParagraph:
		return BucketIntroduction, true
	}
	if c.IsAppendix() {
		return BucketAppendices, true
	}
	return "", false
}

// Item is one search hit.
type Item struct {
	Category corpus.Category `json:"category"`
	Key      string          `json:"key"`
	Text     string          `json:"text"`
	Page     int             `json:"page,omitempty"`
	Sura     int             `json:"sura,omitempty"`
	Verse    int             `json:"verse,omitempty"`
	Title    int             `json:"title,omitempty"`
	Appendix int             `json:"appendix,omitempty"`
	Order    int             `json:"order,omitempty"`
	Inferred bool            `json:"inferred,omitempty"`
}

func itemOf(d corpus.Document) Item {
	return Item{
		Category: d.Category,
		Key:      d.Key,
		Text:     d.Text,
		Page:     d.Page,
		Sura:     d.Sura,
		Verse:    d.Verse,
		Title:    d.Title,
		Appendix: d.Appendix,
		Order:    d.Order,
		Inferred: d.Inferred,
	}
}

// KeywordHits is the number of occurrences of one keyword in the matching
// verses.
type KeywordHits struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// ThemeEntry is a theme map expression with its references resolved.
type ThemeEntry struct {
	Expression string             `json:"expression"`
	Ref        string             `json:"ref,omitempty"`
	Verses     []corpus.VerseRef  `json:"verses,omitempty"`
	SubThemes  []ResolvedSubTheme `json:"subThemes,omitempty"`
}

type ResolvedSubTheme struct {
	Name   string            `json:"name"`
	Ref    string            `json:"ref"`
	Verses []corpus.VerseRef `json:"verses,omitempty"`
}

// Result is the complete outcome of one query.
type Result struct {
	Query string            `json:"query"`
	Lang  string            `json:"lang"`
	Mode  parser.Mode       `json:"mode"`
	Items map[Bucket][]Item `json:"items"`

	// HitCounts has one entry per OR-group. Formula tokens are not counted.
	HitCounts [][]KeywordHits `json:"hitCounts,omitempty"`

	Themes []ThemeEntry `json:"themes,omitempty"`
}

// Total is the number of items over all categories.
func (r *Result) Total() int {
	n := 0
	for _, items := range r.Items {
		n += len(items)
	}
	return n
}

type foldKey struct {
	corpus *corpus.Corpus
	opts   fold.Options
}

// Executor scans corpora. It keeps the folded document texts of the most
// recently searched corpus/option pairs.
type Executor struct {
	matcher *matcher.Matcher
	folded  *lru.Cache[foldKey, []string]
	logger  *slog.Logger
}

const foldedCacheSize = 16

// ctxCheckEvery bounds how many documents are scanned between cancellation
// checks.
const ctxCheckEvery = 256

func New(m *matcher.Matcher) *Executor {
	folded, err := lru.New[foldKey, []string](foldedCacheSize)
	if err != nil {
		panic(err)
	}
	return &Executor{
		matcher: m,
		folded:  folded,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Execute runs q over c. It stops early with ctx.Err() when ctx is done.
func (e *Executor) Execute(ctx context.Context, c *corpus.Corpus, q *parser.Query) (*Result, error) {
	start := time.Now()
	res := &Result{
		Query: q.Raw,
		Lang:  c.Language.Code,
		Mode:  q.Mode,
		Items: make(map[Bucket][]Item, len(Buckets)),
	}

	switch q.Mode {
	case parser.ModeEmpty:
		return res, nil
	case parser.ModeLetter:
		res.Themes = resolveThemes(c, c.ThemesFor(q.Letter))
		return res, nil
	}

	texts, err := e.foldedTexts(ctx, c, q.Options.Fold)
	if err != nil {
		return nil, err
	}

	var verseTexts []string
	for i, d := range c.Documents {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		bucket, ok := BucketOf(d.Category)
		if !ok || !e.matches(d, texts[i], q) {
			continue
		}
		res.Items[bucket] = append(res.Items[bucket], itemOf(d))
		if bucket == BucketVerses {
			verseTexts = append(verseTexts, texts[i])
		}
	}

	res.HitCounts = make([][]KeywordHits, len(q.Groups))
	for i, g := range q.Groups {
		hits := make([]KeywordHits, 0, len(g.Keywords))
		for _, kw := range g.Keywords {
			hits = append(hits, KeywordHits{
				Keyword: kw,
				Count:   e.matcher.HitCount(kw, verseTexts, q.Options.Exact),
			})
		}
		res.HitCounts[i] = hits
	}

	e.logger.Debug("query executed",
		"query", q.Raw,
		"lang", res.Lang,
		"groups", len(q.Groups),
		"results", res.Total(),
		"duration", time.Since(start),
	)
	return res, nil
}

// matches reports whether any group accepts the document: all of its
// keywords are found, or the document's location satisfies its formula.
func (e *Executor) matches(d corpus.Document, text string, q *parser.Query) bool {
	for _, g := range q.Groups {
		if len(g.Keywords) > 0 && e.containsAll(text, g.Keywords, q.Options.Exact) {
			return true
		}
		if g.HasFormula() {
			if sura, verse, ok := location(d); ok && g.Formula.Matches(sura, verse) {
				return true
			}
		}
	}
	return false
}

func (e *Executor) containsAll(text string, keywords []string, exact bool) bool {
	for _, kw := range keywords {
		if !e.matcher.Contains(text, kw, exact) {
			return false
		}
	}
	return true
}

// location is the sura/verse a formula is tested against. Titles use the
// number of the verse they head; notes use their attributed verse.
func location(d corpus.Document) (sura, verse int, ok bool) {
	switch d.Category {
	case corpus.CategoryVerse:
		return d.Sura, d.Verse, true
	case corpus.CategoryTitle:
		return d.Sura, d.Title, true
	case corpus.CategoryNote:
		if d.Key != "" {
			return d.Sura, d.Verse, true
		}
	}
	return 0, 0, false
}

func (e *Executor) foldedTexts(ctx context.Context, c *corpus.Corpus, opts fold.Options) ([]string, error) {
	key := foldKey{corpus: c, opts: opts}
	if texts, ok := e.folded.Get(key); ok {
		return texts, nil
	}
	f := c.Language.Folder(opts)
	texts := make([]string, len(c.Documents))
	for i, d := range c.Documents {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("folding corpus %s: %w", c.Language.Code, err)
			}
		}
		texts[i] = f.Fold(d.Text)
	}
	e.folded.Add(key, texts)
	return texts, nil
}

// Forget drops the folded texts of every corpus. Called when corpora are
// reloaded so stale ones can be collected.
func (e *Executor) Forget() {
	e.folded.Purge()
}

func resolveThemes(c *corpus.Corpus, themes []corpus.Theme) []ThemeEntry {
	out := make([]ThemeEntry, 0, len(themes))
	for _, t := range themes {
		entry := ThemeEntry{Expression: t.Expression, Ref: t.Ref}
		if t.Ref != "" {
			entry.Verses = c.ResolveRef(t.Ref)
		}
		for _, st := range t.SubThemes {
			entry.SubThemes = append(entry.SubThemes, ResolvedSubTheme{
				Name:   st.Name,
				Ref:    st.Ref,
				Verses: c.ResolveRef(st.Ref),
			})
		}
		out = append(out, entry)
	}
	return out
}
