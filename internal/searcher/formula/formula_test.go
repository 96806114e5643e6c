package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Formula
	}{
		{"single verse", "2:5", Formula{2: {{5, 5}}}},
		{"range", "2:1-5", Formula{2: {{1, 5}}}},
		{"list", "2:1-5, 7, 10-15", Formula{2: {{1, 5}, {7, 7}, {10, 15}}}},
		{"whole sura", "2:", Formula{2: {{1, Unbounded}}}},
		{"two suras", "2:5, 3:10", Formula{2: {{5, 5}}, 3: {{10, 10}}}},
		{"semicolons", "2:5; 3:10", Formula{2: {{5, 5}}, 3: {{10, 10}}}},
		{"wildcard", ":12", Formula{AnySura: {{12, 12}}}},
		{"combined", "2:1-5; :12", Formula{2: {{1, 5}}, AnySura: {{12, 12}}}},
		{"inverted range", "2:5-3", Formula{2: {{5, 5}}}},
		{"empty", "", Formula{}},
		{"no sura context", "abc 5 7-9", Formula{}},
		{"bad sura drops following bare tokens", "x:5 6, 2:1", Formula{2: {{1, 1}}}},
		{"unreadable range part", "2:a-3, 4", Formula{2: {{4, 4}}}},
		{"extra colon", "2:5:7", Formula{2: {{5, 5}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestMatches(t *testing.T) {
	refs := Parse("2:1-5, 7, 10-15")
	assert.True(t, refs.Matches(2, 3))
	assert.True(t, refs.Matches(2, 1))
	assert.True(t, refs.Matches(2, 5))
	assert.True(t, refs.Matches(2, 7))
	assert.False(t, refs.Matches(2, 6))
	assert.False(t, refs.Matches(2, 16))
	assert.False(t, refs.Matches(3, 3), "other sura")

	wild := Parse(":12")
	assert.True(t, wild.Matches(1, 12))
	assert.True(t, wild.Matches(114, 12))
	assert.False(t, wild.Matches(1, 13))

	whole := Parse("2:")
	assert.True(t, whole.Matches(2, 1))
	assert.True(t, whole.Matches(2, 286))
	assert.False(t, whole.Matches(3, 1))
}

func TestEmpty(t *testing.T) {
	assert.True(t, Parse("").Empty())
	assert.True(t, Parse("7").Empty())
	assert.False(t, Parse("7:").Empty())
}

func TestString(t *testing.T) {
	assert.Equal(t, ":12;2:1-5,7", Parse("2:1-5,7 ; :12").String())
	assert.Equal(t, "2:5;3:1-", Parse("3: 2:5").String())
	assert.Equal(t, "", Parse("").String())
}
