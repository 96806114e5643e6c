// Package parser classifies a search term and turns it into OR-groups of
// folded keywords and verse-reference formulas.
package parser

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/fold"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/searcher/formula"
)

type Mode string

const (
	ModeEmpty  Mode = "empty"
	ModeLetter Mode = "letter"
	ModeFull   Mode = "full"
)

// Options are the per-query toggles.
type Options struct {
	Exact bool         `json:"exact"`
	Fold  fold.Options `json:"fold"`
}

// DefaultOptions searches in normal mode with diacritics and case ignored.
func DefaultOptions() Options {
	return Options{Fold: fold.DefaultOptions()}
}

// Group is one "|"-separated alternative. A document matches it when every
// keyword is found or when its sura/verse satisfies the formula. In exact mode
// Keywords holds a single phrase.
type Group struct {
	Raw      string          `json:"raw"`
	Keywords []string        `json:"keywords,omitempty"`
	Formula  formula.Formula `json:"formula,omitempty"`
}

// HasFormula reports whether the group names any verse.
func (g Group) HasFormula() bool {
	return !g.Formula.Empty()
}

// Query is a classified search term.
type Query struct {
	Raw     string  `json:"raw"`
	Lang    string  `json:"lang"`
	Mode    Mode    `json:"mode"`
	Options Options `json:"options"`

	// Letter is set in letter mode.
	Letter string `json:"letter,omitempty"`

	Groups []Group `json:"groups,omitempty"`

	// Highlight lists the folded keywords to mark in result texts: one phrase
	// per group in exact mode, every text keyword otherwise.
	Highlight []string `json:"highlight,omitempty"`
}

// Parse classifies raw for lang. A single non-digit character is a letter
// lookup; anything else is a full search. Native digits are read as ASCII.
// A group that yields neither keywords nor a formula falls back to its own
// text as a literal keyword, so no input is rejected.
func Parse(raw string, lang corpus.Language, opts Options) *Query {
	q := &Query{Raw: raw, Lang: lang.Code, Mode: ModeEmpty, Options: opts}
	term := strings.TrimSpace(tokenizer.ToASCIIDigits(raw, lang.Digits()))
	if term == "" {
		return q
	}

	if utf8.RuneCountInString(term) == 1 && !hasDigit(term) {
		q.Mode = ModeLetter
		q.Letter = term
		return q
	}

	f := lang.Folder(opts.Fold)
	seen := make(map[string]bool)
	for _, part := range strings.Split(term, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		g := parseGroup(part, f, opts.Exact)
		if len(g.Keywords) == 0 && !g.HasFormula() {
			if kw := strings.TrimSpace(f.Fold(part)); kw != "" {
				g.Keywords = []string{kw}
			}
		}
		if len(g.Keywords) == 0 && !g.HasFormula() {
			continue
		}
		q.Groups = append(q.Groups, g)
		for _, kw := range g.Keywords {
			if !seen[kw] {
				seen[kw] = true
				q.Highlight = append(q.Highlight, kw)
			}
		}
	}
	if len(q.Groups) > 0 {
		q.Mode = ModeFull
	}
	return q
}

func parseGroup(part string, f *fold.Folder, exact bool) Group {
	g := Group{Raw: part}
	var text, refs []string
	for _, tok := range strings.Fields(part) {
		if hasDigit(tok) {
			refs = append(refs, tok)
			continue
		}
		text = append(text, tok)
	}
	if len(refs) > 0 {
		g.Formula = formula.Parse(strings.Join(refs, " "))
	}
	if len(text) == 0 {
		return g
	}
	if exact {
		if phrase := strings.TrimSpace(f.Fold(strings.Join(text, " "))); phrase != "" {
			g.Keywords = []string{phrase}
		}
		return g
	}
	for _, tok := range text {
		if kw := strings.TrimSpace(f.Fold(tok)); kw != "" {
			g.Keywords = append(g.Keywords, kw)
		}
	}
	return g
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

// Fingerprint identifies the query for result caching: two queries with the
// same fingerprint produce the same result.
func (q *Query) Fingerprint() string {
	var b strings.Builder
	b.WriteString(q.Lang)
	b.WriteString("|" + string(q.Mode))
	b.WriteString("|exact=" + strconv.FormatBool(q.Options.Exact))
	b.WriteString("|norm=" + strconv.FormatBool(q.Options.Fold.Normalize))
	b.WriteString("|case=" + strconv.FormatBool(q.Options.Fold.CaseSensitive))
	if q.Mode == ModeLetter {
		b.WriteString("|letter=" + q.Letter)
	}
	for _, g := range q.Groups {
		b.WriteString("|g=")
		b.WriteString(strings.Join(g.Keywords, "\x1f"))
		b.WriteString("#")
		b.WriteString(g.Formula.String())
	}
	return b.String()
}
