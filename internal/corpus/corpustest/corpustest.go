// Package corpustest writes a small three-language asset tree for tests of
// the packages that consume corpora.
package corpustest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/corpus"
)

const quran = `{
  "1": {
    "sura": {
      "1": {
        "verses": {
          "1": "In the name of GOD, Most Gracious, Most Merciful.",
          "2": "Praise be to GOD, Lord of the universe.",
          "3": "Most Gracious, Most Merciful."
        },
        "titles": {"1": "The Key"}
      }
    },
    "notes": {"data": ["*1:1 The first verse consists of 19 letters.", "Godly people note."]}
  },
  "2": {
    "sura": {
      "2": {
        "verses": {
          "1": "A.L.M.",
          "2": "This scripture is infallible; a beacon for the righteous.",
          "255": "GOD: there is no other god besides Him, the Living, the Eternal."
        },
        "titles": {"1": "The Heifer"}
      }
    },
    "notes": {"data": ["*2:255 The throne verse."]}
  }
}`

const introduction = `[
  {"page": 1, "titles": {"1": "Table of Contents"}},
  {"page": 5, "titles": {"1": "Introduction"}, "text": {"2": "This is the final testament of GOD."}}
]`

const appendices = `[
  {"page": 397, "titles": {"1": "Appendix 1"}, "text": {"2": "One of the great miracles of GOD."}, "table": {"3": {"ref": "74:30"}}},
  {"page": 398, "picture": {"1": {"no": 1, "text": "Caption of GOD"}}}
]`

const themes = `{
  "G": {"God": "1:1;2:255", "Gratitude": {"Praise": "1:2"}},
  "M": {"Mercy": "1:3"}
}`

// Files maps asset paths, relative to the assets root, to their contents.
var Files = map[string]string{
	"qurantft.json":     quran,
	"introduction.json": introduction,
	"appendices.json":   appendices,
	"application.json":  `{"appendix": "Appendix", "search": "Search GOD"}`,
	"map.json":          themes,
	"translations/tr/quran_tr.json": `{"1": {"sura": {"1": {"verses": {
		"1": "Rahman, Rahim ALLAH'ın adıyla.",
		"2": "Övgü, evrenlerin Rabbi ALLAH'adır."}}}}}`,
	"translations/ar/quran_ar.json": `{"1": {"sura": {"1": {"verses": {
		"1": "بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ"}}}}}`,
}

// Languages returns the languages.json entries of the fixture.
func Languages() corpus.Languages {
	return corpus.Languages{
		"en": {Code: "en", Name: "English", Dir: "ltr"},
		"tr": {Code: "tr", Name: "Türkçe", Dir: "ltr"},
		"ar": {Code: "ar", Name: "العربية", Dir: "rtl", Nums: "٠ ١ ٢ ٣ ٤ ٥ ٦ ٧ ٨ ٩"},
	}
}

// WriteAssets writes Files under a fresh temporary directory and returns it.
func WriteAssets(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range Files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return dir
}

// Registry returns a registry over a fresh copy of the fixture with "en" as
// the base language.
func Registry(t testing.TB) *corpus.Registry {
	t.Helper()
	reg, err := corpus.NewRegistry(WriteAssets(t), "en", Languages())
	require.NoError(t, err)
	return reg
}

// Load returns the flattened fixture corpus of lang.
func Load(t testing.TB, lang string) *corpus.Corpus {
	t.Helper()
	c, err := Registry(t).Load(context.Background(), lang)
	require.NoError(t, err)
	return c
}
