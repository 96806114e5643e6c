package segment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/index"
)

func TestEncodeDoesNotEscapeHTML(t *testing.T) {
	b, err := Encode([]any{"A<B>&C", 0.42})
	require.NoError(t, err)
	assert.Equal(t, `["A<B>&C",0.42]`, string(b))
}

func TestPack(t *testing.T) {
	entries := [][]byte{
		[]byte(`"aaaa"`), // 6
		[]byte(`"bbbb"`),
		[]byte(`"cccc"`),
	}
	// [e1,e2] = 2 + 6 + 1 + 6 = 15
	chunks := Pack(entries, 15)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 2)
	assert.Len(t, chunks[1], 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, ChunkSize(c), 15)
	}

	chunks = Pack(entries, 14)
	assert.Len(t, chunks, 3)

	assert.Nil(t, Pack(nil, 10))
}

func TestPackOversizedEntry(t *testing.T) {
	big := []byte(`"` + strings.Repeat("x", 50) + `"`)
	small := []byte(`"y"`)
	chunks := Pack([][]byte{small, big, small}, 20)
	require.Len(t, chunks, 3)
	assert.Equal(t, [][]byte{big}, chunks[1])
}

func TestPackNeverExceedsBudget(t *testing.T) {
	var entries [][]byte
	for i := 0; i < 500; i++ {
		entries = append(entries, []byte(fmt.Sprintf(`["TOKEN%d",%d]`, i, i%7)))
	}
	for _, budget := range []int{20, 64, 100, 1000} {
		total := 0
		for _, c := range Pack(entries, budget) {
			total += len(c)
			if len(c) > 1 {
				assert.LessOrEqual(t, ChunkSize(c), budget)
			}
		}
		assert.Equal(t, len(entries), total)
	}
}

func sampleTables() *index.Tables {
	t := index.NewTables()
	words := []string{"PRAISE", "GOD", "LORD", "UNIVERSE", "MERCIFUL", "GRACIOUS", "MOST", "NAME"}
	for i := 0; i < 200; i++ {
		w := fmt.Sprintf("%s%d", words[i%len(words)], i)
		t.AddToken(w, 1)
		t.AddSurfaceForm(w, strings.ToLower(w), 1)
	}
	t.AddSearchable("IN THE NAME OF GOD, MOST GRACIOUS, MOST MERCIFUL")
	t.AddSequence(words)
	return t
}

func TestWriteAndLoad(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, func(string) int { return 256 })
	require.NoError(t, w.Prepare())

	src := sampleTables()
	res, err := w.WriteLanguage("en", src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "en"), res.Dir)
	assert.Greater(t, res.Sections[index.SectionFrequency].Chunks, 1)

	for _, section := range index.SectionNames {
		names := res.Manifest.Sections[section]
		for i, name := range names {
			assert.Equal(t, ChunkName(section, i), name)
			data, err := os.ReadFile(filepath.Join(res.Dir, name))
			require.NoError(t, err)
			var entries []json.RawMessage
			require.NoError(t, json.Unmarshal(data, &entries))
			if len(entries) > 1 {
				assert.LessOrEqual(t, len(data), 256, name)
			}
		}
	}

	loaded, m, err := Load(res.Dir)
	require.NoError(t, err)
	assert.Equal(t, "en", m.Lang)
	assert.Equal(t, Version, m.Version)
	assert.Equal(t, src.Stats(), loaded.Stats())
	assert.Equal(t, src.Frequency.Keys(), loaded.Frequency.Keys())
}

func TestWriteLanguageReplacesDirectory(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, func(string) int { return 1 << 20 })
	require.NoError(t, w.Prepare())

	stale := filepath.Join(root, "en", "frequency.7.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("[]"), 0o644))

	_, err := w.WriteLanguage("en", sampleTables())
	require.NoError(t, err)
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "old chunks are removed")

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), tmpPrefix), "temp dir left behind: %s", e.Name())
	}
}

func TestEmptySectionsProduceEmptyLists(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, func(string) int { return 1000 })
	require.NoError(t, w.Prepare())

	res, err := w.WriteLanguage("xx", index.NewTables())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(res.Dir, ManifestFile))
	require.NoError(t, err)
	assert.True(t, bytes.Contains(data, []byte(`"frequency":[]`)), string(data))
}

func TestWriteGlobal(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, func(string) int { return 1000 })
	require.NoError(t, w.Prepare())
	for _, lang := range []string{"en", "tr", "old"} {
		_, err := w.WriteLanguage(lang, sampleTables())
		require.NoError(t, err)
	}

	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("X", 3600))
	gm, err := w.WriteGlobal([]string{"en", "tr"}, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T11:30:00.000Z", gm.GeneratedAt)

	_, err = os.Stat(filepath.Join(root, "old"))
	assert.True(t, os.IsNotExist(err))

	read, err := ReadGlobal(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "tr"}, read.Languages)
	assert.Equal(t, Version, read.Version)
}

func TestPrepareRemovesStaleTemp(t *testing.T) {
	root := t.TempDir()
	stale := filepath.Join(root, tmpPrefix+"en-123")
	require.NoError(t, os.MkdirAll(stale, 0o755))

	require.NoError(t, NewWriter(root, func(string) int { return 10 }).Prepare())
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestReadManifestRejectsVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(`{"version":"v0","lang":"en"}`), 0o644))
	_, err := ReadManifest(dir)
	assert.Error(t, err)
}
