// Package matcher finds query keywords inside folded corpus text: plain
// substring containment, boundary-exact phrase matching, highlight spans over
// the original text and hit counts.
package matcher

import (
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/tokenizer"
)

// ExactIndexOf returns the byte offset of the first occurrence of phrase in
// hay at or after from whose edges sit on a string edge or a non-word
// character, or -1. Words of a multi-word phrase may be separated in hay by
// any run of non-word characters, but by at least one.
func ExactIndexOf(hay, phrase string, from int) int {
	words := splitPhrase(phrase)
	if len(words) == 0 || from < 0 || from > len(hay) {
		return -1
	}
	runes := []rune(hay)
	start, _ := indexRunes(runes, words, utf8.RuneCountInString(hay[:from]))
	if start < 0 {
		return -1
	}
	return len(string(runes[:start]))
}

// ContainsExact reports whether hay holds phrase as a boundary-exact match.
func ContainsExact(hay, phrase string) bool {
	return ExactIndexOf(hay, phrase, 0) >= 0
}

func splitPhrase(phrase string) [][]rune {
	fields := strings.Fields(phrase)
	words := make([][]rune, len(fields))
	for i, f := range fields {
		words[i] = []rune(f)
	}
	return words
}

// indexRunes is ExactIndexOf over runes. It returns the rune index of the
// match and the index just past its last word. After a failed candidate the
// scan resumes one rune after that candidate's start.
func indexRunes(hay []rune, words [][]rune, from int) (start, end int) {
	if len(words) == 0 || len(words[0]) == 0 {
		return -1, -1
	}
	for pos := from; pos < len(hay); {
		idx := indexAt(hay, words[0], pos)
		if idx < 0 {
			return -1, -1
		}
		pos = idx + 1
		if idx > 0 && tokenizer.IsWordChar(hay[idx-1]) {
			continue
		}

		cursor := idx + len(words[0])
		ok := true
		for _, w := range words[1:] {
			if cursor >= len(hay) || tokenizer.IsWordChar(hay[cursor]) {
				ok = false
				break
			}
			for cursor < len(hay) && !tokenizer.IsWordChar(hay[cursor]) {
				cursor++
			}
			if !hasPrefixAt(hay, w, cursor) {
				ok = false
				break
			}
			cursor += len(w)
		}
		if !ok {
			continue
		}
		if cursor < len(hay) && tokenizer.IsWordChar(hay[cursor]) {
			continue
		}
		return idx, cursor
	}
	return -1, -1
}

// indexAt is strings.Index for rune slices, starting at from.
func indexAt(hay, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(hay); i++ {
		if hay[i] == needle[0] && hasPrefixAt(hay, needle, i) {
			return i
		}
	}
	return -1
}

func hasPrefixAt(hay, needle []rune, at int) bool {
	if at+len(needle) > len(hay) {
		return false
	}
	for j, r := range needle {
		if hay[at+j] != r {
			return false
		}
	}
	return true
}
