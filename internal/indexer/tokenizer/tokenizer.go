// Package tokenizer splits corpus text into script-aware word tokens. Word
// boundaries come from code-point classes (see IsWordChar) instead of
// whitespace, so Arabic, CJK and Thai text segments the same way Latin does.
package tokenizer

import (
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/fold"
)

// Token is one word span of the input with its folded form. Position counts
// word spans, starting at 0.
type Token struct {
	Raw      string
	Folded   string
	Position int
	HasDigit bool
}

// Tokenizer folds word spans for one language and recognises its native
// digit glyphs in addition to ASCII digits.
type Tokenizer struct {
	folder *fold.Folder
	digits map[rune]struct{}
}

// New returns a Tokenizer. nativeDigits may be empty.
func New(folder *fold.Folder, nativeDigits []string) *Tokenizer {
	t := &Tokenizer{
		folder: folder,
		digits: make(map[rune]struct{}, len(nativeDigits)),
	}
	for _, d := range nativeDigits {
		for _, r := range d {
			t.digits[r] = struct{}{}
		}
	}
	return t
}

func (t *Tokenizer) Folder() *fold.Folder { return t.folder }

// Tokenize returns every word span of text, digit-bearing ones flagged.
func (t *Tokenizer) Tokenize(text string) []Token {
	spans := Segment(text)
	tokens := make([]Token, 0, len(spans)/2+1)
	pos := 0
	for _, s := range spans {
		if s.Kind != Word {
			continue
		}
		tokens = append(tokens, Token{
			Raw:      s.Value,
			Folded:   t.folder.Fold(s.Value),
			Position: pos,
			HasDigit: t.HasDigit(s.Value),
		})
		pos++
	}
	return tokens
}

// HasDigit reports whether s contains an ASCII digit or a native digit glyph.
func (t *Tokenizer) HasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
		if _, ok := t.digits[r]; ok {
			return true
		}
	}
	return false
}

// ToASCIIDigits rewrites native digit glyphs to ASCII using their position in
// nativeDigits (glyph i is digit i).
func ToASCIIDigits(s string, nativeDigits []string) string {
	if len(nativeDigits) == 0 {
		return s
	}
	repl := make([]string, 0, 2*len(nativeDigits))
	for i, d := range nativeDigits {
		if i > 9 {
			break
		}
		if r, _ := utf8.DecodeRuneInString(d); r >= '0' && r <= '9' {
			continue
		}
		repl = append(repl, d, string(rune('0'+i)))
	}
	if len(repl) == 0 {
		return s
	}
	return strings.NewReplacer(repl...).Replace(s)
}
