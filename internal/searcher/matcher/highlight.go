package matcher

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/fold"
)

// Kind tells highlighted spans from plain ones.
type Kind string

const (
	Plain Kind = "plain"
	Match Kind = "match"
)

// Span is a piece of the original text.
type Span struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// Join concatenates the span texts, which gives back the highlighted text.
func Join(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Highlight splits text into plain and match spans for keyword. Matching runs
// on the folded text; offsets are mapped back through the per-rune origin
// table so the spans always cut the original text, even where folding
// changed its length.
func Highlight(text, keyword string, f *fold.Folder, exact bool) []Span {
	if text == "" {
		return nil
	}
	key := []rune(f.Fold(keyword))
	if strings.TrimSpace(string(key)) == "" {
		return []Span{{Kind: Plain, Text: text}}
	}

	orig := []rune(text)
	folded, origin := f.FoldRunes(text)
	var words [][]rune
	if exact {
		words = splitPhrase(string(key))
	}

	var spans []Span
	last := 0
	for pos := 0; pos < len(folded); {
		var start, end int
		if exact {
			start, end = indexRunes(folded, words, pos)
		} else {
			start = indexAt(folded, key, pos)
			end = start + len(key)
		}
		if start < 0 {
			break
		}
		pos = end

		oStart := origin[start]
		oEnd := len(orig)
		if end < len(origin) {
			oEnd = origin[end]
		}
		if oEnd <= oStart {
			oEnd = oStart + 1
		}
		// Two folded matches inside one original rune (ß as SS).
		if oStart < last {
			continue
		}
		if oStart > last {
			spans = append(spans, Span{Kind: Plain, Text: string(orig[last:oStart])})
		}
		spans = append(spans, Span{Kind: Match, Text: string(orig[oStart:oEnd])})
		last = oEnd
	}
	if last < len(orig) {
		spans = append(spans, Span{Kind: Plain, Text: string(orig[last:])})
	}
	return spans
}

// HighlightAll applies keywords one after another. Later keywords only split
// spans that are still plain.
func HighlightAll(text string, keywords []string, f *fold.Folder, exact bool) []Span {
	if text == "" {
		return nil
	}
	spans := []Span{{Kind: Plain, Text: text}}
	for _, kw := range keywords {
		next := make([]Span, 0, len(spans))
		for _, s := range spans {
			if s.Kind != Plain {
				next = append(next, s)
				continue
			}
			next = append(next, Highlight(s.Text, kw, f, exact)...)
		}
		spans = next
	}
	return spans
}
