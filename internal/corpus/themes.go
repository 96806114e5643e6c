package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Theme is one expression of the theme map. It either references verses
// directly or splits into named sub-themes, each with its own reference.
type Theme struct {
	Expression string     `json:"expression"`
	Ref        string     `json:"ref,omitempty"`
	SubThemes  []SubTheme `json:"subThemes,omitempty"`
}

type SubTheme struct {
	Name string `json:"name"`
	Ref  string `json:"ref"`
}

// ThemeMap is keyed by the folded initial letter. Expressions keep the order
// in which they appear in the asset file.
type ThemeMap map[string][]Theme

// VerseRef is a resolved verse reference.
type VerseRef struct {
	Sura  int    `json:"sura"`
	Verse int    `json:"verse"`
	Text  string `json:"text"`
}

func decodeThemes(data []byte) (ThemeMap, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	out := make(ThemeMap)
	for dec.More() {
		letter, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		themes, err := decodeLetter(dec)
		if err != nil {
			return nil, fmt.Errorf("letter %q: %w", letter, err)
		}
		out[letter] = themes
	}
	return out, nil
}

func decodeLetter(dec *json.Decoder) ([]Theme, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var themes []Theme
	for dec.More() {
		expr, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		t := Theme{Expression: expr}
		if ref, ok := decodeString(raw); ok {
			t.Ref = ref
		} else {
			subs, err := decodeSubThemes(raw)
			if err != nil {
				continue
			}
			t.SubThemes = subs
		}
		themes = append(themes, t)
	}
	return themes, expectDelim(dec, '}')
}

func decodeSubThemes(raw json.RawMessage) ([]SubTheme, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var subs []SubTheme
	for dec.More() {
		name, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		if ref, ok := decodeString(v); ok {
			subs = append(subs, SubTheme{Name: name, Ref: ref})
		}
	}
	return subs, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return s, nil
}

// ParseRef expands a reference such as "2:255;3:1-3,7" into sura and verse
// pairs. Malformed parts are skipped.
func ParseRef(ref string) [][2]int {
	var out [][2]int
	for _, part := range strings.Split(ref, ";") {
		suraStr, verses, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		sura, err := strconv.Atoi(strings.TrimSpace(suraStr))
		if err != nil {
			continue
		}
		for _, v := range strings.Split(verses, ",") {
			v = strings.TrimSpace(v)
			if from, to, isRange := strings.Cut(v, "-"); isRange {
				start, err1 := strconv.Atoi(strings.TrimSpace(from))
				end, err2 := strconv.Atoi(strings.TrimSpace(to))
				if err1 != nil || err2 != nil {
					continue
				}
				for i := start; i <= end; i++ {
					out = append(out, [2]int{sura, i})
				}
				continue
			}
			if n, err := strconv.Atoi(v); err == nil {
				out = append(out, [2]int{sura, n})
			}
		}
	}
	return out
}
