package tokenizer

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/fold"
)

func TestIsWordChar(t *testing.T) {
	tests := []struct {
		r    rune
		want bool
	}{
		{'a', true}, {'Z', true}, {'7', true}, {'ß', true}, {'ı', true}, {'İ', true},
		{'ж', true}, {'ά', true},
		{'ب', true}, {'ی', true}, {'ۀ', true}, {'א', true}, {'中', true},
		{'क', true}, {'ก', true},
		{' ', false}, {',', false}, {'-', false}, {'*', false}, {':', false},
		{'ً', false}, {'ـ', true}, {'٣', false}, {'‌', false},
	}
	for _, tt := range tests {
		if got := IsWordChar(tt.r); got != tt.want {
			t.Errorf("IsWordChar(%q U+%04X) = %v, want %v", tt.r, tt.r, got, tt.want)
		}
	}
}

func TestSegment(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"word", []string{"word"}},
		{"  ", []string{"  "}},
		{"In the name, GOD", []string{"In", " ", "the", " ", "name", ", ", "GOD"}},
		{"*2:255 Note", []string{"*", "2", ":", "255", " ", "Note"}},
		{"بسم الله", []string{"بسم", " ", "الله"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			spans := Segment(tt.in)
			if len(spans) != len(tt.want) {
				t.Fatalf("Segment(%q) = %d spans %v, want %d", tt.in, len(spans), spans, len(tt.want))
			}
			var sb strings.Builder
			for i, s := range spans {
				if s.Value != tt.want[i] {
					t.Errorf("span %d = %q, want %q", i, s.Value, tt.want[i])
				}
				if i > 0 && s.Kind == spans[i-1].Kind {
					t.Errorf("spans %d and %d share kind %s", i-1, i, s.Kind)
				}
				if tt.in[s.Start:s.Start+len(s.Value)] != s.Value {
					t.Errorf("span %d offset %d does not point at %q", i, s.Start, s.Value)
				}
				sb.WriteString(s.Value)
			}
			if sb.String() != tt.in {
				t.Errorf("spans do not reconstruct input: %q", sb.String())
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	tk := New(fold.New("en", false, fold.DefaultOptions()), nil)
	tokens := tk.Tokenize("Praise GOD, Lord of 2 universes")
	wantFolded := []string{"PRAISE", "GOD", "LORD", "OF", "2", "UNIVERSES"}
	if len(tokens) != len(wantFolded) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(wantFolded))
	}
	for i, tok := range tokens {
		if tok.Folded != wantFolded[i] {
			t.Errorf("token %d folded = %q, want %q", i, tok.Folded, wantFolded[i])
		}
		if tok.Position != i {
			t.Errorf("token %d position = %d", i, tok.Position)
		}
		if tok.HasDigit != (tok.Raw == "2") {
			t.Errorf("token %q HasDigit = %v", tok.Raw, tok.HasDigit)
		}
	}
}

func TestNativeDigits(t *testing.T) {
	arabicIndic := strings.Fields("٠ ١ ٢ ٣ ٤ ٥ ٦ ٧ ٨ ٩")
	tk := New(fold.New("ar", true, fold.DefaultOptions()), arabicIndic)
	if !tk.HasDigit("آية٢") {
		t.Error("native digit not detected")
	}
	if tk.HasDigit("آية") {
		t.Error("false digit detection")
	}
	if got := ToASCIIDigits("٢:٢٥٥", arabicIndic); got != "2:255" {
		t.Errorf("ToASCIIDigits = %q", got)
	}
	if got := ToASCIIDigits("2:5", strings.Fields("0 1 2 3 4 5 6 7 8 9")); got != "2:5" {
		t.Errorf("ASCII digits changed: %q", got)
	}
}
