// Package formula parses verse-reference formulas such as "2:1-5, 7; :12"
// and tests sura/verse pairs against them.
package formula

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// AnySura keys the ranges of a formula token with an empty sura (":12").
const AnySura = 0

// Unbounded is the end of a whole-sura range ("2:").
const Unbounded = math.MaxInt

// Range is an inclusive verse range.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r Range) contains(verse int) bool {
	return verse >= r.Start && verse <= r.End
}

// Formula maps a sura number, or AnySura, to its verse ranges.
type Formula map[int][]Range

// Parse never fails; tokens it cannot read are left out of the result.
// Tokens are separated by commas, semicolons or whitespace. A token with a
// colon sets the current sura, a bare token adds a range to it, and a bare
// token before any sura is dropped.
func Parse(s string) Formula {
	f := Formula{}
	current, haveSura := 0, false

	for _, tok := range strings.FieldsFunc(s, isSeparator) {
		sRaw, vRaw, hasColon := strings.Cut(tok, ":")
		if !hasColon {
			if haveSura {
				f.push(current, tok)
			}
			continue
		}
		// "2:5:7" reads as "2:5".
		vRaw, _, _ = strings.Cut(vRaw, ":")

		if sRaw == "" {
			current, haveSura = AnySura, true
		} else {
			n, err := strconv.Atoi(sRaw)
			if err != nil || n <= 0 {
				haveSura = false
				continue
			}
			current, haveSura = n, true
		}
		if vRaw == "" {
			f[current] = append(f[current], Range{Start: 1, End: Unbounded})
			continue
		}
		f.push(current, vRaw)
	}
	return f
}

func isSeparator(r rune) bool {
	return r == ',' || r == ';' || unicode.IsSpace(r)
}

// push adds the range "a" or "a-b". A missing, unreadable or smaller b
// collapses the range to a single verse.
func (f Formula) push(sura int, part string) {
	aRaw, bRaw, _ := strings.Cut(part, "-")
	bRaw, _, _ = strings.Cut(bRaw, "-")
	a, err := strconv.Atoi(aRaw)
	if err != nil {
		return
	}
	r := Range{Start: a, End: a}
	if b, err := strconv.Atoi(bRaw); err == nil && b >= a {
		r.End = b
	}
	f[sura] = append(f[sura], r)
}

// Empty reports whether the formula names no verse at all.
func (f Formula) Empty() bool {
	for _, rs := range f {
		if len(rs) > 0 {
			return false
		}
	}
	return true
}

// Matches reports whether sura:verse is covered by the wildcard ranges or by
// the ranges of that sura.
func (f Formula) Matches(sura, verse int) bool {
	for _, r := range f[AnySura] {
		if r.contains(verse) {
			return true
		}
	}
	if sura == AnySura {
		return false
	}
	for _, r := range f[sura] {
		if r.contains(verse) {
			return true
		}
	}
	return false
}

// String renders the formula canonically, suras ascending with the wildcard
// first. It keys cached results.
func (f Formula) String() string {
	suras := make([]int, 0, len(f))
	for s, rs := range f {
		if len(rs) > 0 {
			suras = append(suras, s)
		}
	}
	sort.Ints(suras)

	var b strings.Builder
	for i, s := range suras {
		if i > 0 {
			b.WriteByte(';')
		}
		if s != AnySura {
			b.WriteString(strconv.Itoa(s))
		}
		b.WriteByte(':')
		for j, r := range f[s] {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(r.Start))
			switch {
			case r.End == Unbounded:
				b.WriteString("-")
			case r.End != r.Start:
				b.WriteString("-" + strconv.Itoa(r.End))
			}
		}
	}
	return b.String()
}
