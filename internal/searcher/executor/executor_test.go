package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/corpus/corpustest"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/matcher"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/parser"
)

func newExecutor() *Executor {
	return New(matcher.New(matcher.Capabilities{}))
}

func run(t *testing.T, c *corpus.Corpus, raw string, opts parser.Options) *Result {
	t.Helper()
	res, err := newExecutor().Execute(context.Background(), c, parser.Parse(raw, c.Language, opts))
	require.NoError(t, err)
	return res
}

func keys(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Key)
	}
	return out
}

func TestExecuteNormalMode(t *testing.T) {
	c := corpustest.Load(t, "en")
	res := run(t, c, "god", parser.DefaultOptions())

	assert.Equal(t, parser.ModeFull, res.Mode)
	assert.Equal(t, []string{"1:1", "1:2", "2:255"}, keys(res.Items[BucketVerses]))
	assert.Empty(t, res.Items[BucketTitles])

	notes := res.Items[BucketNotes]
	require.Len(t, notes, 1, "GODLY contains GOD")
	assert.True(t, notes[0].Inferred)
	assert.Equal(t, "1:1", notes[0].Key)

	assert.Len(t, res.Items[BucketIntroduction], 1)
	appx := res.Items[BucketAppendices]
	require.Len(t, appx, 2)
	assert.Equal(t, corpus.CategoryAppendixText, appx[0].Category)
	assert.Equal(t, corpus.CategoryAppendixPicture, appx[1].Category)
	assert.Equal(t, 7, res.Total())

	require.Len(t, res.HitCounts, 1)
	assert.Equal(t, []KeywordHits{{Keyword: "GOD", Count: 4}}, res.HitCounts[0])
}

func TestExecuteExactMode(t *testing.T) {
	c := corpustest.Load(t, "en")
	opts := parser.DefaultOptions()
	opts.Exact = true
	res := run(t, c, "god", opts)

	assert.Equal(t, []string{"1:1", "1:2", "2:255"}, keys(res.Items[BucketVerses]))
	assert.Empty(t, res.Items[BucketNotes], "GODLY is not the word GOD")
	assert.Equal(t, []KeywordHits{{Keyword: "GOD", Count: 4}}, res.HitCounts[0])

	res = run(t, c, "most merciful", opts)
	assert.Equal(t, []string{"1:1", "1:3"}, keys(res.Items[BucketVerses]))
	res = run(t, c, "merciful most", opts)
	assert.Empty(t, res.Items[BucketVerses])
}

func TestExecuteAllKeywordsRequired(t *testing.T) {
	c := corpustest.Load(t, "en")
	res := run(t, c, "god lord", parser.DefaultOptions())
	assert.Equal(t, []string{"1:2"}, keys(res.Items[BucketVerses]))
}

func TestExecuteFormulaAndGroups(t *testing.T) {
	c := corpustest.Load(t, "en")
	res := run(t, c, "2:1-2 | most merciful", parser.DefaultOptions())

	assert.Equal(t, []string{"1:1", "1:3", "2:1", "2:2"}, keys(res.Items[BucketVerses]))
	assert.Equal(t, []string{"2:1"}, keys(res.Items[BucketTitles]), "title heading 2:1")
	assert.Empty(t, res.Items[BucketNotes])

	require.Len(t, res.HitCounts, 2)
	assert.Empty(t, res.HitCounts[0], "formula groups have no keywords")
	assert.Equal(t, []KeywordHits{
		{Keyword: "MOST", Count: 4},
		{Keyword: "MERCIFUL", Count: 2},
	}, res.HitCounts[1])
}

func TestExecuteFormulaSelectsNotes(t *testing.T) {
	c := corpustest.Load(t, "en")
	res := run(t, c, "1:1", parser.DefaultOptions())

	assert.Equal(t, []string{"1:1"}, keys(res.Items[BucketVerses]))
	assert.Equal(t, []string{"1:1"}, keys(res.Items[BucketTitles]))
	assert.Len(t, res.Items[BucketNotes], 2, "explicit and inferred notes of 1:1")
	assert.Empty(t, res.Items[BucketIntroduction])
}

func TestExecuteSuraWildcard(t *testing.T) {
	c := corpustest.Load(t, "en")
	res := run(t, c, "2:", parser.DefaultOptions())
	assert.Equal(t, []string{"2:1", "2:2", "2:255"}, keys(res.Items[BucketVerses]))
}

func TestExecuteLetterMode(t *testing.T) {
	c := corpustest.Load(t, "en")
	res := run(t, c, "g", parser.DefaultOptions())

	assert.Equal(t, parser.ModeLetter, res.Mode)
	assert.Zero(t, res.Total())
	require.Len(t, res.Themes, 2)

	god := res.Themes[0]
	assert.Equal(t, "God", god.Expression)
	require.Len(t, god.Verses, 2)
	assert.Equal(t, 255, god.Verses[1].Verse)

	gratitude := res.Themes[1]
	require.Len(t, gratitude.SubThemes, 1)
	assert.Equal(t, "Praise", gratitude.SubThemes[0].Name)
	require.Len(t, gratitude.SubThemes[0].Verses, 1)
	assert.Equal(t, "Praise be to GOD, Lord of the universe.", gratitude.SubThemes[0].Verses[0].Text)

	res = run(t, c, "z", parser.DefaultOptions())
	assert.Empty(t, res.Themes)
}

func TestExecuteEmpty(t *testing.T) {
	c := corpustest.Load(t, "en")
	res := run(t, c, "  ", parser.DefaultOptions())
	assert.Equal(t, parser.ModeEmpty, res.Mode)
	assert.Zero(t, res.Total())
}

func TestExecuteApplicationStringsNeverMatch(t *testing.T) {
	c := corpustest.Load(t, "en")
	res := run(t, c, "search", parser.DefaultOptions())
	assert.Zero(t, res.Total())
}

func TestExecuteDiacriticFolding(t *testing.T) {
	c := corpustest.Load(t, "ar")
	res := run(t, c, "الله", parser.DefaultOptions())
	assert.Equal(t, []string{"1:1"}, keys(res.Items[BucketVerses]))

	opts := parser.DefaultOptions()
	opts.Fold.Normalize = false
	res = run(t, c, "الله", opts)
	assert.Empty(t, res.Items[BucketVerses], "marks kept without normalization")
}

func TestExecuteCancelled(t *testing.T) {
	c := corpustest.Load(t, "en")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newExecutor().Execute(ctx, c, parser.Parse("god", c.Language, parser.DefaultOptions()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFoldedTextsCached(t *testing.T) {
	c := corpustest.Load(t, "en")
	e := newExecutor()
	ctx := context.Background()

	_, err := e.Execute(ctx, c, parser.Parse("god", c.Language, parser.DefaultOptions()))
	require.NoError(t, err)
	assert.Equal(t, 1, e.folded.Len())

	e.Forget()
	assert.Zero(t, e.folded.Len())
}

func TestBucketOf(t *testing.T) {
	b, ok := BucketOf(corpus.CategoryAppendixTableRef)
	assert.True(t, ok)
	assert.Equal(t, BucketAppendices, b)

	_, ok = BucketOf(corpus.CategoryApplicationString)
	assert.False(t, ok)

	_, ok = ParseBucket("verses")
	assert.True(t, ok)
	_, ok = ParseBucket("pictures")
	assert.False(t, ok)
}
