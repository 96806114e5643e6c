package tokenizer

// Kind tells word runs from separator runs.
type Kind uint8

const (
	Separator Kind = iota
	Word
)

func (k Kind) String() string {
	if k == Word {
		return "word"
	}
	return "separator"
}

// Span is a maximal run of characters of the same Kind. Start is the byte
// offset of Value in the segmented string.
type Span struct {
	Kind  Kind
	Value string
	Start int
}

// Segment splits text into alternating word and separator spans in a single
// left-to-right pass. Concatenating the span values reproduces text.
func Segment(text string) []Span {
	if text == "" {
		return nil
	}
	spans := make([]Span, 0, 8)
	start := 0
	var cur Kind
	first := true
	for i, r := range text {
		k := Separator
		if IsWordChar(r) {
			k = Word
		}
		if first {
			cur, first = k, false
			continue
		}
		if k != cur {
			spans = append(spans, Span{Kind: cur, Value: text[start:i], Start: start})
			start, cur = i, k
		}
	}
	return append(spans, Span{Kind: cur, Value: text[start:], Start: start})
}

// Words returns only the word spans of text.
func Words(text string) []string {
	var words []string
	for _, s := range Segment(text) {
		if s.Kind == Word {
			words = append(words, s.Value)
		}
	}
	return words
}
