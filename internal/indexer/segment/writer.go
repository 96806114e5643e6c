package segment

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/errors"
)

// Version identifies the chunked manifest format.
const Version = "dym-prebuilt-v1"

// ManifestFile is the manifest name, both per language and at the root.
const ManifestFile = "manifest.json"

const tmpPrefix = ".tmp-"

// TimeFormat is the UTC timestamp layout of GeneratedAt.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Manifest describes one language directory.
type Manifest struct {
	Version  string              `json:"version"`
	Lang     string              `json:"lang"`
	Sections map[string][]string `json:"sections"`
}

// GlobalManifest lists the languages of a build.
type GlobalManifest struct {
	Version     string   `json:"version"`
	GeneratedAt string   `json:"generatedAt"`
	Languages   []string `json:"languages"`
}

// SectionStats reports what was written for one section.
type SectionStats struct {
	Entries int
	Chunks  int
	Bytes   int64
}

// Result is the outcome of writing one language.
type Result struct {
	Lang     string
	Dir      string
	Manifest Manifest
	Sections map[string]SectionStats
}

// Writer writes language directories under a root directory.
type Writer struct {
	root     string
	maxBytes func(section string) int
	logger   *slog.Logger
}

// NewWriter creates a Writer. maxBytes returns the chunk cap of a section.
func NewWriter(root string, maxBytes func(section string) int) *Writer {
	return &Writer{
		root:     root,
		maxBytes: maxBytes,
		logger:   slog.Default().With("component", "segment-writer"),
	}
}

// Root returns the output root.
func (w *Writer) Root() string { return w.root }

// Prepare creates the root and removes temporary directories left behind
// by an interrupted run.
func (w *Writer) Prepare() error {
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return fmt.Errorf("%w: creating output root: %v", apperrors.ErrIndexWrite, err)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("%w: reading output root: %v", apperrors.ErrIndexWrite, err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), tmpPrefix) {
			if err := os.RemoveAll(filepath.Join(w.root, e.Name())); err != nil {
				return fmt.Errorf("%w: removing stale %s: %v", apperrors.ErrIndexWrite, e.Name(), err)
			}
		}
	}
	return nil
}

// WriteLanguage writes every section of t into a temporary directory and
// then swaps it in place of <root>/<lang>. On error the previous directory,
// if any, is left untouched.
func (w *Writer) WriteLanguage(lang string, t *index.Tables) (*Result, error) {
	tmp, err := os.MkdirTemp(w.root, tmpPrefix+lang+"-")
	if err != nil {
		return nil, fmt.Errorf("%w: creating temp dir: %v", apperrors.ErrIndexWrite, err)
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(tmp)
		}
	}()

	res := &Result{
		Lang: lang,
		Dir:  filepath.Join(w.root, lang),
		Manifest: Manifest{
			Version:  Version,
			Lang:     lang,
			Sections: make(map[string][]string, len(index.SectionNames)),
		},
		Sections: make(map[string]SectionStats, len(index.SectionNames)),
	}

	for _, section := range index.SectionNames {
		items, err := t.Entries(section)
		if err != nil {
			return nil, err
		}
		encoded := make([][]byte, 0, len(items))
		for _, item := range items {
			b, err := Encode(item)
			if err != nil {
				return nil, fmt.Errorf("section %s: %w", section, err)
			}
			encoded = append(encoded, b)
		}

		stats := SectionStats{Entries: len(encoded)}
		names := []string{}
		for i, chunk := range Pack(encoded, w.maxBytes(section)) {
			name := ChunkName(section, i)
			n, err := writeChunk(filepath.Join(tmp, name), chunk)
			if err != nil {
				return nil, fmt.Errorf("%w: writing %s/%s: %v", apperrors.ErrIndexWrite, lang, name, err)
			}
			names = append(names, name)
			stats.Chunks++
			stats.Bytes += n
		}
		res.Manifest.Sections[section] = names
		res.Sections[section] = stats
	}

	if err := writeJSONFile(filepath.Join(tmp, ManifestFile), res.Manifest); err != nil {
		return nil, fmt.Errorf("%w: writing %s manifest: %v", apperrors.ErrIndexWrite, lang, err)
	}
	if err := os.RemoveAll(res.Dir); err != nil {
		return nil, fmt.Errorf("%w: removing old %s: %v", apperrors.ErrIndexWrite, lang, err)
	}
	if err := os.Rename(tmp, res.Dir); err != nil {
		return nil, fmt.Errorf("%w: replacing %s: %v", apperrors.ErrIndexWrite, lang, err)
	}
	committed = true

	w.logger.Info("language index written",
		"lang", lang,
		"dir", res.Dir,
		"tokens", t.Frequency.Len(),
	)
	return res, nil
}

// WriteGlobal writes the root manifest and removes language directories
// that are not part of this build.
func (w *Writer) WriteGlobal(langs []string, now time.Time) (*GlobalManifest, error) {
	keep := make(map[string]bool, len(langs))
	for _, l := range langs {
		keep[l] = true
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return nil, fmt.Errorf("%w: reading output root: %v", apperrors.ErrIndexWrite, err)
	}
	for _, e := range entries {
		if !e.IsDir() || keep[e.Name()] || strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(w.root, e.Name())); err != nil {
			return nil, fmt.Errorf("%w: pruning %s: %v", apperrors.ErrIndexWrite, e.Name(), err)
		}
		w.logger.Info("pruned stale language output", "lang", e.Name())
	}

	gm := &GlobalManifest{
		Version:     Version,
		GeneratedAt: now.UTC().Format(TimeFormat),
		Languages:   append([]string{}, langs...),
	}
	path := filepath.Join(w.root, ManifestFile)
	tmp := filepath.Join(w.root, tmpPrefix+ManifestFile)
	if err := writeJSONFile(tmp, gm); err != nil {
		return nil, fmt.Errorf("%w: writing global manifest: %v", apperrors.ErrIndexWrite, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("%w: replacing global manifest: %v", apperrors.ErrIndexWrite, err)
	}
	return gm, nil
}

func writeChunk(path string, chunk [][]byte) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	var n int64
	write := func(b []byte) error {
		m, err := bw.Write(b)
		n += int64(m)
		return err
	}
	if err := write([]byte("[")); err != nil {
		return n, err
	}
	for i, e := range chunk {
		if i > 0 {
			if err := write([]byte(",")); err != nil {
				return n, err
			}
		}
		if err := write(e); err != nil {
			return n, err
		}
	}
	if err := write([]byte("]")); err != nil {
		return n, err
	}
	if err := bw.Flush(); err != nil {
		return n, err
	}
	if err := f.Sync(); err != nil {
		return n, err
	}
	return n, f.Close()
}

func writeJSONFile(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
