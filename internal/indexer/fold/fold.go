// Package fold canonicalizes text so that spellings a reader considers equal
// compare equal: Turkic dotted/dotless i merge, Arabic-script letter
// unification, diacritic stripping and locale-aware uppercasing.
package fold

import (
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Options are the per-query toggles. The offline builder always folds with
// DefaultOptions.
type Options struct {
	// Normalize strips diacritics, merges Turkic i variants and, for RTL
	// languages, canonicalizes Arabic-script letters.
	Normalize bool
	// CaseSensitive skips the uppercase step.
	CaseSensitive bool
}

// DefaultOptions normalizes and ignores case.
func DefaultOptions() Options {
	return Options{Normalize: true}
}

// Folder folds text for one language. It is safe for concurrent use.
type Folder struct {
	lang   string
	rtl    bool
	turkic bool
	opts   Options
	casers sync.Pool
}

// New returns a Folder for the language code. rtl enables Arabic-script
// canonicalization.
func New(lang string, rtl bool, opts Options) *Folder {
	tag := language.Make(lang)
	f := &Folder{
		lang:   lang,
		rtl:    rtl,
		turkic: IsTurkic(lang),
		opts:   opts,
	}
	f.casers.New = func() any {
		return cases.Upper(tag)
	}
	return f
}

// IsTurkic reports whether lang uses the Turkic dotted/dotless i rules.
func IsTurkic(lang string) bool {
	return lang == "tr" || lang == "az"
}

func (f *Folder) Language() string { return f.lang }

func (f *Folder) Options() Options { return f.opts }

// WithOptions returns a Folder for the same language with other toggles.
func (f *Folder) WithOptions(opts Options) *Folder {
	if opts == f.opts {
		return f
	}
	return New(f.lang, f.rtl, opts)
}

// Fold applies, in order: RTL canonicalization, NFD with combining-mark
// removal, Turkic i merge, uppercase. The result is stable under a second
// Fold.
func (f *Folder) Fold(s string) string {
	if s == "" {
		return s
	}
	if f.opts.Normalize {
		if f.rtl {
			s = strings.Map(canonicalArabic, s)
		}
		s = stripMarks(s, f.rtl)
		// After stripping, so that Ì and Í also land on i.
		if f.turkic {
			s = strings.Map(turkicI, s)
		}
	}
	if !f.opts.CaseSensitive {
		s = f.upper(s)
		if f.turkic && f.opts.Normalize {
			// Ligatures such as U+FB01 uppercase to a bare I.
			s = strings.ReplaceAll(s, "I", "İ")
		}
	}
	return s
}

// upper uppercases s. Some uppercase forms carry combining marks that a
// second pass would drop (Greek ΐ), so those are settled here: stripped when
// normalizing, otherwise uppercased again until nothing changes.
func (f *Folder) upper(s string) string {
	c := f.casers.Get().(cases.Caser)
	defer f.casers.Put(c)
	s = c.String(s)
	if !hasCombining(s) {
		return s
	}
	if f.opts.Normalize {
		return stripMarks(s, f.rtl)
	}
	for range 3 {
		next := c.String(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// FoldRunes folds each rune of s on its own and returns the folded string
// together with, for every folded rune, the index of the original rune it
// came from. Folding may change length (ß becomes SS, marks vanish), so the
// map is how match offsets get back to the original text.
func (f *Folder) FoldRunes(s string) (folded []rune, origin []int) {
	folded = make([]rune, 0, utf8.RuneCountInString(s))
	origin = make([]int, 0, cap(folded))
	i := 0
	for _, r := range s {
		for _, fr := range f.Fold(string(r)) {
			folded = append(folded, fr)
			origin = append(origin, i)
		}
		i++
	}
	return folded, origin
}

func turkicI(r rune) rune {
	switch r {
	case 'İ', 'I', 'ı', 'i':
		return 'i'
	}
	return r
}

func hasCombining(s string) bool {
	for _, r := range s {
		if r >= 0x0300 && r <= 0x036F {
			return true
		}
	}
	return false
}

func stripMarks(s string, rtl bool) string {
	if isASCII(s) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r >= 0x0300 && r <= 0x036F {
			return -1
		}
		if rtl && isArabicMark(r) {
			return -1
		}
		return r
	}, norm.NFD.String(s))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
