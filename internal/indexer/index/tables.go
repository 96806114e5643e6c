// Package index holds the in-memory did-you-mean tables built for one
// language: token frequencies, surface forms, n-gram counts and the set of
// searchable texts. It also converts them to and from the section entry
// lists persisted by the segment package.
package index

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// Section names, in the order they are written.
const (
	SectionFrequency       = "frequency"
	SectionByLength        = "byLength"
	SectionSurfaceForms    = "surfaceForms"
	SectionSearchableTexts = "searchableTexts"
	SectionBigrams         = "bigramFrequency"
	SectionTrigrams        = "trigramFrequency"
)

// SectionNames lists every section in write order.
var SectionNames = []string{
	SectionFrequency,
	SectionByLength,
	SectionSurfaceForms,
	SectionSearchableTexts,
	SectionBigrams,
	SectionTrigrams,
}

const minTokenLen = 2

// Tables is the full set of suggestion tables for one language. Tables is
// not safe for concurrent mutation; once built it is read-only.
type Tables struct {
	Frequency    *Ordered[float64]
	SurfaceForms *Ordered[*Ordered[float64]]
	Searchable   *Ordered[struct{}]
	Bigrams      *Ordered[int]
	Trigrams     *Ordered[int]

	mu       sync.Mutex
	byLength map[int][]string
}

func NewTables() *Tables {
	return &Tables{
		Frequency:    NewOrdered[float64](),
		SurfaceForms: NewOrdered[*Ordered[float64]](),
		Searchable:   NewOrdered[struct{}](),
		Bigrams:      NewOrdered[int](),
		Trigrams:     NewOrdered[int](),
	}
}

// AddToken adds weight to a folded token. Tokens shorter than two
// characters are ignored.
func (t *Tables) AddToken(token string, weight float64) {
	if utf8.RuneCountInString(token) < minTokenLen {
		return
	}
	w, _ := t.Frequency.Get(token)
	t.Frequency.Set(token, w+weight)
	t.byLength = nil
}

// AddSurfaceForm records raw as a spelling of the folded token.
func (t *Tables) AddSurfaceForm(token, raw string, weight float64) {
	if utf8.RuneCountInString(token) < minTokenLen || raw == "" {
		return
	}
	forms, ok := t.SurfaceForms.Get(token)
	if !ok {
		forms = NewOrdered[float64]()
		t.SurfaceForms.Set(token, forms)
	}
	w, _ := forms.Get(raw)
	forms.Set(raw, w+weight)
}

// AddSearchable records a folded document text. Text is trimmed; texts of
// one character or less are ignored.
func (t *Tables) AddSearchable(folded string) {
	folded = strings.TrimSpace(folded)
	if utf8.RuneCountInString(folded) <= 1 {
		return
	}
	t.Searchable.Set(folded, struct{}{})
}

// AddSequence counts the bigrams and trigrams of one document's tokens.
func (t *Tables) AddSequence(tokens []string) {
	for i := 0; i+1 < len(tokens); i++ {
		key := tokens[i] + " " + tokens[i+1]
		n, _ := t.Bigrams.Get(key)
		t.Bigrams.Set(key, n+1)
	}
	for i := 0; i+2 < len(tokens); i++ {
		key := tokens[i] + " " + tokens[i+1] + " " + tokens[i+2]
		n, _ := t.Trigrams.Get(key)
		t.Trigrams.Set(key, n+1)
	}
}

// LengthGroup is one entry of the length index.
type LengthGroup struct {
	Length int
	Tokens []string
}

// ByLength groups the frequency keys by character count. Groups appear in
// the order their first token was added.
func (t *Tables) ByLength() []LengthGroup {
	groups := make(map[int]int)
	var out []LengthGroup
	for _, tok := range t.Frequency.Keys() {
		n := utf8.RuneCountInString(tok)
		i, ok := groups[n]
		if !ok {
			i = len(out)
			groups[n] = i
			out = append(out, LengthGroup{Length: n})
		}
		out[i].Tokens = append(out[i].Tokens, tok)
	}
	return out
}

// TokensOfLength returns the frequency keys with n characters.
func (t *Tables) TokensOfLength(n int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.byLength == nil {
		t.byLength = make(map[int][]string)
		for _, g := range t.ByLength() {
			t.byLength[g.Length] = g.Tokens
		}
	}
	return t.byLength[n]
}

// BestSurfaceForm returns the most frequent spelling recorded for token.
// Ties keep the spelling seen first.
func (t *Tables) BestSurfaceForm(token string) (string, bool) {
	forms, ok := t.SurfaceForms.Get(token)
	if !ok || forms.Len() == 0 {
		return "", false
	}
	best, bestW := "", -1.0
	for _, raw := range forms.Keys() {
		if w, _ := forms.Get(raw); w > bestW {
			best, bestW = raw, w
		}
	}
	return best, true
}

// Stats summarizes table sizes.
type Stats struct {
	Tokens          int `json:"tokens"`
	Lengths         int `json:"lengths"`
	SurfaceForms    int `json:"surfaceForms"`
	SearchableTexts int `json:"searchableTexts"`
	Bigrams         int `json:"bigrams"`
	Trigrams        int `json:"trigrams"`
}

func (t *Tables) Stats() Stats {
	return Stats{
		Tokens:          t.Frequency.Len(),
		Lengths:         len(t.ByLength()),
		SurfaceForms:    t.SurfaceForms.Len(),
		SearchableTexts: t.Searchable.Len(),
		Bigrams:         t.Bigrams.Len(),
		Trigrams:        t.Trigrams.Len(),
	}
}

// Entries returns the serializable entries of a section, in table order.
func (t *Tables) Entries(section string) ([]any, error) {
	var out []any
	switch section {
	case SectionFrequency:
		for _, k := range t.Frequency.Keys() {
			w, _ := t.Frequency.Get(k)
			out = append(out, []any{k, w})
		}
	case SectionByLength:
		for _, g := range t.ByLength() {
			out = append(out, []any{g.Length, g.Tokens})
		}
	case SectionSurfaceForms:
		for _, k := range t.SurfaceForms.Keys() {
			forms, _ := t.SurfaceForms.Get(k)
			pairs := make([]any, 0, forms.Len())
			for _, raw := range forms.Keys() {
				w, _ := forms.Get(raw)
				pairs = append(pairs, []any{raw, w})
			}
			out = append(out, []any{k, pairs})
		}
	case SectionSearchableTexts:
		for _, k := range t.Searchable.Keys() {
			out = append(out, k)
		}
	case SectionBigrams, SectionTrigrams:
		table := t.Bigrams
		if section == SectionTrigrams {
			table = t.Trigrams
		}
		for _, k := range table.Keys() {
			n, _ := table.Get(k)
			out = append(out, []any{k, n})
		}
	default:
		return nil, fmt.Errorf("unknown section %q", section)
	}
	return out, nil
}

// LoadEntry adds one serialized entry of section to the tables. byLength
// entries are validated but not stored; the length index is derived from
// the frequency table.
func (t *Tables) LoadEntry(section string, raw json.RawMessage) error {
	switch section {
	case SectionFrequency:
		var key string
		var w float64
		if err := decodePair(raw, &key, &w); err != nil {
			return err
		}
		t.Frequency.Set(key, w)
		t.byLength = nil
	case SectionByLength:
		var n int
		var tokens []string
		if err := decodePair(raw, &n, &tokens); err != nil {
			return err
		}
	case SectionSurfaceForms:
		var key string
		var pairs []json.RawMessage
		if err := decodePair(raw, &key, &pairs); err != nil {
			return err
		}
		forms := NewOrdered[float64]()
		for _, p := range pairs {
			var form string
			var w float64
			if err := decodePair(p, &form, &w); err != nil {
				return err
			}
			forms.Set(form, w)
		}
		t.SurfaceForms.Set(key, forms)
	case SectionSearchableTexts:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("decoding searchable text: %w", err)
		}
		t.Searchable.Set(s, struct{}{})
	case SectionBigrams, SectionTrigrams:
		var key string
		var n int
		if err := decodePair(raw, &key, &n); err != nil {
			return err
		}
		if section == SectionBigrams {
			t.Bigrams.Set(key, n)
		} else {
			t.Trigrams.Set(key, n)
		}
	default:
		return fmt.Errorf("unknown section %q", section)
	}
	return nil
}

func decodePair(raw json.RawMessage, first, second any) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil {
		return fmt.Errorf("decoding entry: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decoding entry: want 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], first); err != nil {
		return fmt.Errorf("decoding entry key: %w", err)
	}
	if err := json.Unmarshal(pair[1], second); err != nil {
		return fmt.Errorf("decoding entry value: %w", err)
	}
	return nil
}

// TopTokens returns up to n tokens with the highest weight, ties broken by
// insertion order.
func (t *Tables) TopTokens(n int) []string {
	keys := append([]string(nil), t.Frequency.Keys()...)
	sort.SliceStable(keys, func(i, j int) bool {
		a, _ := t.Frequency.Get(keys[i])
		b, _ := t.Frequency.Get(keys[j])
		return a > b
	})
	if n < len(keys) {
		keys = keys[:n]
	}
	return keys
}
