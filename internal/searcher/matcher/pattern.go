package matcher

import (
	"log/slog"
	"regexp"
	"strings"
)

// wordClass mirrors tokenizer.IsWordChar as a regexp class body. Cased
// letters stand in for "has a case pair".
const wordClass = `0-9\p{Lu}\p{Ll}\p{Lt}` +
	`\x{0621}-\x{064A}\x{066E}-\x{06D3}\x{05D0}-\x{05EA}` +
	`\x{4E00}-\x{9FFF}\x{0900}-\x{0DFF}\x{0E00}-\x{0E7F}`

const lookbehindCheck = `(?<![a])b`

// Capabilities records what the regexp engine supports. It is resolved once
// at startup by Probe and handed to New.
type Capabilities struct {
	Lookaround bool
}

// Probe checks whether the regexp engine accepts lookbehind. RE2 does not,
// so in practice exact matching runs on the rune scanner.
func Probe() Capabilities {
	_, err := regexp.Compile(lookbehindCheck)
	return Capabilities{Lookaround: err == nil}
}

// Matcher tests keywords against folded text.
type Matcher struct {
	caps Capabilities
}

// New returns a Matcher for caps. A claimed lookaround capability that the
// engine rejects is dropped here, once.
func New(caps Capabilities) *Matcher {
	if caps.Lookaround {
		if _, err := regexp.Compile(lookbehindCheck); err != nil {
			slog.Warn("regexp engine has no lookaround, using rune scanner", "error", err)
			caps.Lookaround = false
		}
	}
	return &Matcher{caps: caps}
}

func (m *Matcher) Capabilities() Capabilities { return m.caps }

// Contains reports whether the folded text holds the folded keyword, as a
// boundary-exact phrase in exact mode and as a plain substring otherwise.
func (m *Matcher) Contains(text, keyword string, exact bool) bool {
	if exact {
		return ContainsExact(text, keyword)
	}
	return keyword != "" && strings.Contains(text, keyword)
}

// lookaroundPattern compiles phrase into a whole-word pattern with
// zero-width boundaries. Only valid when caps.Lookaround is set.
func lookaroundPattern(phrase string) (*regexp.Regexp, error) {
	fields := strings.Fields(phrase)
	for i, f := range fields {
		fields[i] = regexp.QuoteMeta(f)
	}
	body := strings.Join(fields, "[^"+wordClass+"]+")
	return regexp.Compile("(?<![" + wordClass + "])" + body + "(?![" + wordClass + "])")
}

// HitCount counts the non-overlapping occurrences of keyword over texts.
// Both sides are expected folded.
func (m *Matcher) HitCount(keyword string, texts []string, exact bool) int {
	if strings.TrimSpace(keyword) == "" {
		return 0
	}
	n := 0
	if !exact {
		for _, t := range texts {
			n += strings.Count(t, keyword)
		}
		return n
	}
	if m.caps.Lookaround {
		if re, err := lookaroundPattern(keyword); err == nil {
			for _, t := range texts {
				n += len(re.FindAllStringIndex(t, -1))
			}
			return n
		}
	}
	words := splitPhrase(keyword)
	for _, t := range texts {
		n += countExact([]rune(t), words)
	}
	return n
}

func countExact(hay []rune, words [][]rune) int {
	n := 0
	for pos := 0; pos < len(hay); {
		start, end := indexRunes(hay, words, pos)
		if start < 0 {
			break
		}
		n++
		pos = end
	}
	return n
}
