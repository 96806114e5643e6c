package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/fold"
)

func TestExactIndexOf(t *testing.T) {
	tests := []struct {
		name   string
		hay    string
		phrase string
		from   int
		want   int
	}{
		{"word boundary", "PRAISE GOD, THE ALMIGHTY", "GOD", 0, 7},
		{"end of string", "IN THE NAME OF GOD", "GOD", 0, 15},
		{"start of string", "GOD IS GREAT", "GOD", 0, 0},
		{"prefix of a longer word", "GODLY PEOPLE", "GOD", 0, -1},
		{"suffix of a longer word", "A DEMIGOD", "GOD", 0, -1},
		{"whitespace gap", "GOD  MOST   GRACIOUS", "MOST GRACIOUS", 0, 5},
		{"punctuation gap", "MOST, GRACIOUS", "MOST GRACIOUS", 0, 0},
		{"dash gap", "MOST - GRACIOUS", "MOST GRACIOUS", 0, 0},
		{"newline gap", "MOST\nGRACIOUS", "MOST GRACIOUS", 0, 0},
		{"gap required", "MOSTGRACIOUS", "MOST GRACIOUS", 0, -1},
		{"words must be adjacent", "MOST VERY GRACIOUS", "MOST GRACIOUS", 0, -1},
		{"three words", "THE MOST GRACIOUS ONE", "THE MOST GRACIOUS", 0, 0},
		{"parentheses", "(GOD)", "GOD", 0, 1},
		{"asterisks", "*GOD*", "GOD", 0, 1},
		{"nbsp", "GOD MOST", "GOD MOST", 0, 0},
		{"smart quotes", "“GOD”", "GOD", 0, 3},
		{"em dash", "—GOD—", "GOD", 0, 3},
		{"multibyte prefix", "ÉCOLE GOD", "GOD", 0, 7},
		{"arabic comma", "الله،", "الله", 0, 0},
		{"retries after failed start", "GODGOD GOD", "GOD", 0, 7},
		{"from skips earlier match", "GOD AND GOD", "GOD", 1, 8},
		{"empty phrase", "GOD", "  ", 0, -1},
		{"empty haystack", "", "GOD", 0, -1},
		{"phrase longer than haystack", "GO", "GOD", 0, -1},
		{"from out of range", "GOD", "GOD", 9, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExactIndexOf(tt.hay, tt.phrase, tt.from))
		})
	}
}

func english() *fold.Folder { return fold.New("en", false, fold.DefaultOptions()) }

func matches(spans []Span) []string {
	var out []string
	for _, s := range spans {
		if s.Kind == Match {
			out = append(out, s.Text)
		}
	}
	return out
}

func TestHighlight(t *testing.T) {
	spans := Highlight("In the name of God, Most Gracious", "god", english(), false)
	assert.Equal(t, []Span{
		{Kind: Plain, Text: "In the name of "},
		{Kind: Match, Text: "God"},
		{Kind: Plain, Text: ", Most Gracious"},
	}, spans)

	assert.Equal(t, []string{"God", "god"}, matches(Highlight("God and god", "GOD", english(), false)))
	assert.Nil(t, matches(Highlight("nothing here", "god", english(), false)))
	assert.Equal(t, []Span{{Kind: Plain, Text: "text"}}, Highlight("text", "  ", english(), false))
	assert.Nil(t, Highlight("", "god", english(), false))
}

func TestHighlightFolding(t *testing.T) {
	tests := []struct {
		name    string
		folder  *fold.Folder
		text    string
		keyword string
		want    []string
	}{
		{"accents", english(), "l'école", "ecole", []string{"école"}},
		{"sharp s expands", fold.New("de", false, fold.DefaultOptions()), "die Straße hier", "strasse", []string{"Straße"}},
		{"turkish dotted capital", fold.New("tr", false, fold.DefaultOptions()), "İstanbul'a", "istanbul", []string{"İstanbul"}},
		{"case sensitive", fold.New("en", false, fold.Options{Normalize: true, CaseSensitive: true}), "God and god", "god", []string{"god"}},
		{"regexp metacharacters are literal", english(), "what? (yes)", "(yes)", []string{"(yes)"}},
		{"arabic marks stay with the word", fold.New("ar", true, fold.DefaultOptions()),
			"بِسْمِ اللّهِ", "الله",
			[]string{"اللّهِ"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := Highlight(tt.text, tt.keyword, tt.folder, false)
			assert.Equal(t, tt.want, matches(spans))
			assert.Equal(t, tt.text, Join(spans))
		})
	}
}

func TestHighlightExact(t *testing.T) {
	spans := Highlight("Godly people praise God; most  gracious", "god", english(), true)
	assert.Equal(t, []string{"God"}, matches(spans))

	spans = Highlight("the Most, Gracious and most gracious", "MOST GRACIOUS", english(), true)
	assert.Equal(t, []string{"Most, Gracious", "most gracious"}, matches(spans))
	assert.Equal(t, "the Most, Gracious and most gracious", Join(spans))
}

func TestHighlightReconstructsText(t *testing.T) {
	texts := []string{
		"In the name of GOD, Most Gracious, Most Merciful.",
		"Straße ß ßs SS",
		"ﬁnal ﬁle",
		"اَلْحَمْدُ لِلَّهِ",
		"emoji 🎉 text",
	}
	keywords := []string{"s", "ss", "fi", "god", "most", "ل", "🎉", "e"}
	for _, text := range texts {
		for _, kw := range keywords {
			for _, exact := range []bool{false, true} {
				spans := Highlight(text, kw, fold.New("de", false, fold.DefaultOptions()), exact)
				require.Equal(t, text, Join(spans), "text=%q keyword=%q exact=%v", text, kw, exact)
			}
		}
	}
}

func TestHighlightAll(t *testing.T) {
	spans := HighlightAll("Most Gracious, Most Merciful", []string{"MOST", "MERCIFUL", "MOST MERCIFUL"}, english(), false)
	assert.Equal(t, []string{"Most", "Most", "Merciful"}, matches(spans))
	assert.Equal(t, "Most Gracious, Most Merciful", Join(spans))

	// Once "GRACIOUS" is highlighted a later keyword cannot reach into it.
	spans = HighlightAll("Most Gracious", []string{"GRACIOUS", "MOST GRACIOUS"}, english(), true)
	assert.Equal(t, []string{"Gracious"}, matches(spans))
}

func TestProbe(t *testing.T) {
	assert.False(t, Probe().Lookaround, "RE2 has no lookbehind")
}

func TestContains(t *testing.T) {
	m := New(Probe())
	assert.True(t, m.Contains("GODLY PEOPLE", "GOD", false))
	assert.False(t, m.Contains("GODLY PEOPLE", "GOD", true))
	assert.True(t, m.Contains("PRAISE GOD", "GOD", true))
	assert.False(t, m.Contains("PRAISE GOD", "", false))
}

func TestHitCount(t *testing.T) {
	texts := []string{"GOD AND GOD", "GODLY", "GOD, GOD", "DEMIGOD", "GOD GOD IS ONE"}
	m := New(Probe())
	assert.Equal(t, 8, m.HitCount("GOD", texts, false))
	assert.Equal(t, 6, m.HitCount("GOD", texts, true))
	assert.Equal(t, 1, m.HitCount("AND GOD", texts, true))
	assert.Equal(t, 0, m.HitCount(" ", texts, true))
}

func TestHitCountSingleSeparator(t *testing.T) {
	m := New(Capabilities{})
	text := "GOD GOD IS ONE"
	assert.Equal(t, 2, m.HitCount("GOD", []string{text}, true))

	n := 0
	for from := 0; ; {
		i := ExactIndexOf(text, "GOD", from)
		if i < 0 {
			break
		}
		n++
		from = i + len("GOD")
	}
	assert.Equal(t, n, m.HitCount("GOD", []string{text}, true))
	assert.Equal(t, 2, m.HitCount("A B", []string{"A B A B", "A BA B"}, true))
}

func TestNewDropsUnsupportedLookaround(t *testing.T) {
	m := New(Capabilities{Lookaround: true})
	assert.False(t, m.Capabilities().Lookaround)
	assert.Equal(t, 2, m.HitCount("GOD", []string{"GOD GOD"}, true))
}
