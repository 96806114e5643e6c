// Package suggest serves did-you-mean proposals from the prebuilt suggestion
// index. Tables are loaded per language from the index output directory and
// swapped atomically when a new build is announced.
package suggest

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/fold"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/metrics"
)

// Suggestion is one proposed replacement token.
type Suggestion struct {
	For    string  `json:"for"`
	Token  string  `json:"token"`
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// Suggestions is the did-you-mean answer for one term.
type Suggestions struct {
	Terms []Suggestion `json:"terms,omitempty"`

	// Phrase is the term with every unknown word replaced by its best
	// proposal. Empty when nothing was replaced.
	Phrase string `json:"phrase,omitempty"`

	// Contained reports whether the whole folded term occurs in some
	// indexed text.
	Contained bool `json:"contained"`
}

// Manager holds the loaded tables of every language.
type Manager struct {
	dir     string
	limit   int
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.RWMutex
	tables map[string]*index.Tables
}

// NewManager reads indexes under dir and proposes at most limit tokens per
// term. m may be nil.
func NewManager(dir string, limit int, m *metrics.Metrics) *Manager {
	if limit <= 0 {
		limit = 5
	}
	return &Manager{
		dir:     dir,
		limit:   limit,
		metrics: m,
		tables:  make(map[string]*index.Tables),
		logger:  slog.Default().With("component", "suggest"),
	}
}

// LoadAll loads every language listed by the global manifest. Languages
// that fail to load are logged and skipped.
func (m *Manager) LoadAll() error {
	gm, err := segment.ReadGlobal(m.dir)
	if err != nil {
		return fmt.Errorf("reading suggestion index: %w", err)
	}
	for _, lang := range gm.Languages {
		if err := m.Load(lang); err != nil {
			m.logger.Warn("suggestion tables not loaded", "lang", lang, "error", err)
		}
	}
	m.logger.Info("suggestion index loaded",
		"generated_at", gm.GeneratedAt,
		"languages", m.Languages(),
	)
	return nil
}

// Load (re)reads the tables of lang and replaces the current ones.
func (m *Manager) Load(lang string) error {
	t, manifest, err := segment.Load(filepath.Join(m.dir, lang))
	if err != nil {
		m.observe(lang, "error")
		return fmt.Errorf("loading suggestion tables for %s: %w", lang, err)
	}
	if manifest.Lang != "" && manifest.Lang != lang {
		m.observe(lang, "error")
		return fmt.Errorf("suggestion tables in %s belong to %q", lang, manifest.Lang)
	}
	m.Set(lang, t)
	m.observe(lang, "success")
	m.logger.Debug("suggestion tables loaded", "lang", lang, "tokens", t.Frequency.Len())
	return nil
}

// Set installs t as the tables of lang.
func (m *Manager) Set(lang string, t *index.Tables) {
	m.mu.Lock()
	m.tables[lang] = t
	m.mu.Unlock()
}

// Languages lists the languages with loaded tables, sorted.
func (m *Manager) Languages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.tables))
	for lang := range m.tables {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) get(lang string) (*index.Tables, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[lang]
	return t, ok
}

// Suggest proposes replacements for the words of term that the index does
// not know. It returns nil when lang has no tables.
func (m *Manager) Suggest(lang corpus.Language, term string) *Suggestions {
	t, ok := m.get(lang.Code)
	if !ok {
		return nil
	}
	tok := lang.Tokenizer(fold.DefaultOptions())
	out := &Suggestions{
		Contained: containedIn(t, tok.Folder().Fold(strings.TrimSpace(term))),
	}

	replaced := false
	seen := make(map[string]bool)
	phrase := make([]string, 0, 4)
	for _, token := range tok.Tokenize(term) {
		phrase = append(phrase, token.Raw)
		if token.HasDigit || utf8.RuneCountInString(token.Folded) < 2 {
			continue
		}
		if _, known := t.Frequency.Get(token.Folded); known {
			continue
		}
		candidates := Candidates(t, token.Folded)
		if len(candidates) == 0 {
			continue
		}
		for i, c := range candidates {
			text, ok := t.BestSurfaceForm(c)
			if !ok {
				text = c
			}
			if i == 0 {
				phrase[len(phrase)-1] = text
				replaced = true
			}
			if seen[c] || len(out.Terms) >= m.limit {
				continue
			}
			seen[c] = true
			w, _ := t.Frequency.Get(c)
			out.Terms = append(out.Terms, Suggestion{For: token.Raw, Token: c, Text: text, Weight: w})
		}
	}
	if replaced {
		out.Phrase = strings.Join(phrase, " ")
	}
	return out
}

// Candidates returns the indexed tokens one edit away from folded, most
// frequent first.
func Candidates(t *index.Tables, folded string) []string {
	target := []rune(folded)
	n := len(target)
	var out []string
	for l := n - 1; l <= n+1; l++ {
		for _, tok := range t.TokensOfLength(l) {
			if withinOneEdit(target, []rune(tok)) {
				out = append(out, tok)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := t.Frequency.Get(out[i])
		b, _ := t.Frequency.Get(out[j])
		if a != b {
			return a > b
		}
		return out[i] < out[j]
	})
	return out
}

// withinOneEdit reports whether a and b differ by exactly one insertion,
// deletion or substitution.
func withinOneEdit(a, b []rune) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(b)-len(a) > 1 {
		return false
	}
	i := 0
	for i < len(a) && a[i] == b[i] {
		i++
	}
	if i == len(a) {
		return len(a) != len(b)
	}
	if len(a) == len(b) {
		return string(a[i+1:]) == string(b[i+1:])
	}
	return string(a[i:]) == string(b[i+1:])
}

func containedIn(t *index.Tables, folded string) bool {
	if utf8.RuneCountInString(folded) <= 1 {
		return false
	}
	if _, ok := t.Searchable.Get(folded); ok {
		return true
	}
	for _, text := range t.Searchable.Keys() {
		if strings.Contains(text, folded) {
			return true
		}
	}
	return false
}

func (m *Manager) observe(lang, status string) {
	if m.metrics != nil {
		m.metrics.IndexReloadsTotal.WithLabelValues(lang, status).Inc()
	}
}
