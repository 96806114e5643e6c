// Package stemmer derives candidate stems for Turkish and Azerbaijani tokens
// by stripping inflectional suffixes. It works on folded (uppercased) tokens.
package stemmer

import (
	"strings"
	"unicode/utf8"
)

// StemWeight is the frequency weight recorded for a derived stem, against 1
// for a token seen verbatim.
const StemWeight = 0.42

const (
	minTokenLen = 5
	minStemLen  = 4
	minVowelLen = 7
	maxDepth    = 2
)

// suffixes is tried in order: plural, genitive, ablative, accusative,
// possessive and first-person endings, longest first.
var suffixes = []string{
	"LERİ", "LARI", "LERI", "LARİ",
	"LER", "LAR",
	"NIN", "NİN", "NUN", "NÜN",
	"DAN", "DEN", "TAN", "TEN",
	"YI", "Yİ", "YU", "YÜ",
	"NI", "Nİ", "NU", "NÜ",
	"IN", "İN", "UN", "ÜN",
	"SI", "Sİ", "SU", "SÜ",
	"IM", "İM", "UM", "ÜM",
	"M",
}

// vowelSuffixes are single case vowels, only stripped from long values.
var vowelSuffixes = []string{"I", "İ", "U", "Ü", "A", "E"}

// Applies reports whether lang has stemming rules.
func Applies(lang string) bool {
	return lang == "tr" || lang == "az"
}

// Stem returns the distinct stems derivable from token in breadth-first
// order. It returns nil for other languages and for tokens shorter than five
// characters. Every stem is at least four characters long and differs from
// token.
func Stem(token, lang string) []string {
	if !Applies(lang) || utf8.RuneCountInString(token) < minTokenLen {
		return nil
	}

	type item struct {
		value string
		depth int
	}
	var stems []string
	seen := map[string]struct{}{token: {}}
	queue := []item{{token, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		n := utf8.RuneCountInString(cur.value)
		try := func(suffix string) {
			if !strings.HasSuffix(cur.value, suffix) {
				return
			}
			stem := strings.TrimSuffix(cur.value, suffix)
			if utf8.RuneCountInString(stem) < minStemLen {
				return
			}
			if _, dup := seen[stem]; dup {
				return
			}
			seen[stem] = struct{}{}
			stems = append(stems, stem)
			queue = append(queue, item{stem, cur.depth + 1})
		}
		for _, s := range suffixes {
			try(s)
		}
		if n >= minVowelLen {
			for _, s := range vowelSuffixes {
				try(s)
			}
		}
	}
	return stems
}
