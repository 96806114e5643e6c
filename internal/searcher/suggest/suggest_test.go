package suggest

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/metrics"
)

var en = corpus.Language{Code: "en", Dir: "ltr"}

func tables() *index.Tables {
	t := index.NewTables()
	add := func(tok, raw string, n int) {
		for range n {
			t.AddToken(tok, 1)
			t.AddSurfaceForm(tok, raw, 1)
		}
	}
	add("GOD", "GOD", 5)
	add("GOOD", "good", 2)
	add("MERCY", "mercy", 3)
	add("MERCIFUL", "Merciful", 4)
	add("GOLD", "gold", 2)
	add("LORD", "Lord", 1)
	t.AddSurfaceForm("MERCIFUL", "MERCIFUL", 1)
	t.AddSearchable("IN THE NAME OF GOD, MOST GRACIOUS, MOST MERCIFUL.")
	return t
}

func TestWithinOneEdit(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"GOD", "GOOD", true},
		{"GOOD", "GOD", true},
		{"GOD", "GOT", true},
		{"GOD", "GOD", false},
		{"GOD", "DOG", false},
		{"GOD", "GOLDEN", false},
		{"ŞEY", "SEY", true},
		{"", "A", true},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, withinOneEdit([]rune(tt.a), []rune(tt.b)))
		})
	}
}

func TestCandidatesRankedByFrequency(t *testing.T) {
	got := Candidates(tables(), "MERCI")
	assert.Equal(t, []string{"MERCY"}, got)

	got = Candidates(tables(), "GOED")
	assert.Equal(t, []string{"GOD", "GOLD", "GOOD"}, got, "ties ordered by token")

	got = Candidates(tables(), "GOLD")
	assert.Equal(t, []string{"GOD", "GOOD"}, got, "GOD outweighs GOOD")

	got = Candidates(tables(), "LORE")
	assert.Equal(t, []string{"LORD"}, got)
}

func TestSuggest(t *testing.T) {
	m := NewManager(t.TempDir(), 5, nil)
	assert.Nil(t, m.Suggest(en, "gd"), "no tables")

	m.Set("en", tables())
	s := m.Suggest(en, "merciful mercyy")
	require.NotNil(t, s)
	require.Len(t, s.Terms, 1)
	assert.Equal(t, Suggestion{For: "mercyy", Token: "MERCY", Text: "mercy", Weight: 3}, s.Terms[0])
	assert.Equal(t, "merciful mercy", s.Phrase)
	assert.False(t, s.Contained)

	s = m.Suggest(en, "most merciful")
	assert.Empty(t, s.Terms, "no indexed token is one edit from MOST")
	assert.Empty(t, s.Phrase)
	assert.True(t, s.Contained)
}

func TestSuggestLimitAndDigits(t *testing.T) {
	m := NewManager(t.TempDir(), 1, nil)
	m.Set("en", tables())
	s := m.Suggest(en, "gxd 2:255")
	require.Len(t, s.Terms, 1)
	assert.Equal(t, "GOD", s.Terms[0].Token)
}

func TestLoadFromSegments(t *testing.T) {
	root := t.TempDir()
	w := segment.NewWriter(root, func(string) int { return 64 })
	require.NoError(t, w.Prepare())
	_, err := w.WriteLanguage("en", tables())
	require.NoError(t, err)
	_, err = w.WriteGlobal([]string{"en", "tr"}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	met := metrics.NewWithRegistry(reg)
	m := NewManager(root, 5, met)
	require.NoError(t, m.LoadAll())
	assert.Equal(t, []string{"en"}, m.Languages(), "tr is listed but missing")
	assert.Equal(t, 1.0, testutil.ToFloat64(met.IndexReloadsTotal.WithLabelValues("en", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.IndexReloadsTotal.WithLabelValues("tr", "error")))

	s := m.Suggest(en, "mercyy")
	require.Len(t, s.Terms, 1)
	assert.Equal(t, "mercy", s.Terms[0].Text)

	s = m.Suggest(en, "merciful")
	assert.True(t, s.Contained)
}

func TestLoadAllWithoutIndex(t *testing.T) {
	m := NewManager(t.TempDir(), 5, nil)
	assert.Error(t, m.LoadAll())
	assert.Empty(t, m.Languages())
}
