package corpus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeThemesKeepsOrder(t *testing.T) {
	tm, err := decodeThemes([]byte(`{"Z": {"zeta": "1:1", "alpha": "1:2", "mid": {"b": "1:3", "a": "1:4"}}}`))
	require.NoError(t, err)

	z := tm["Z"]
	require.Len(t, z, 3)
	assert.Equal(t, "zeta", z[0].Expression)
	assert.Equal(t, "alpha", z[1].Expression)
	assert.Equal(t, []SubTheme{{Name: "b", Ref: "1:3"}, {Name: "a", Ref: "1:4"}}, z[2].SubThemes)
}

func TestDecodeThemesRejectsNonObject(t *testing.T) {
	_, err := decodeThemes([]byte(`["G"]`))
	assert.Error(t, err)
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		ref  string
		want [][2]int
	}{
		{"2:255", [][2]int{{2, 255}}},
		{"3:1-3", [][2]int{{3, 1}, {3, 2}, {3, 3}}},
		{"1:1;2:5,7", [][2]int{{1, 1}, {2, 5}, {2, 7}}},
		{" 4 : 2 - 3 ", [][2]int{{4, 2}, {4, 3}}},
		{"garbage", nil},
		{"5:x,6", [][2]int{{5, 6}}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRef(tt.ref))
		})
	}
}

func TestCorpusThemes(t *testing.T) {
	c := loadEnglish(t)

	g := c.ThemesFor("g")
	require.Len(t, g, 2)
	assert.Equal(t, "God", g[0].Expression)

	verses := c.ResolveRef(g[0].Ref)
	require.Len(t, verses, 2)
	assert.Equal(t, VerseRef{Sura: 2, Verse: 255, Text: "GOD: there is no other god besides Him."}, verses[1])

	thanks := c.ResolveRef(g[1].SubThemes[1].Ref)
	assert.Len(t, thanks, 1, "2:2 does not exist")

	assert.Nil(t, c.ThemesFor("q"))
}

func TestStoreSharesLoads(t *testing.T) {
	reg, err := NewRegistry(writeAssets(t), "en", testLanguages())
	require.NoError(t, err)
	store, err := NewStore(reg, 1, nil)
	require.NoError(t, err)

	ctx := context.Background()
	a, err := store.Get(ctx, "en")
	require.NoError(t, err)
	b, err := store.Get(ctx, "en")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = store.Get(ctx, "tr")
	require.NoError(t, err)
	assert.Equal(t, []string{"tr"}, store.Loaded(), "capacity one evicts en")

	store.Invalidate("tr")
	assert.Empty(t, store.Loaded())
}
