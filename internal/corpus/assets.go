package corpus

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// The asset files are produced externally and not always consistent across
// translations. Every decoder here is lenient: values of an unexpected type
// are dropped instead of failing the whole file.

// Quran is the decoded quran_<lang>.json: page number to page.
type Quran map[string]QuranPage

// QuranPage holds the suras that appear on one printed page and its notes.
type QuranPage struct {
	Sura  map[string]Sura `json:"sura"`
	Notes struct {
		Data TextList `json:"data"`
	} `json:"notes"`
}

// Sura is the part of a sura printed on one page.
type Sura struct {
	Verses TextMap `json:"verses"`
	Titles TextMap `json:"titles"`
}

// Section is one page of the introduction or the appendices.
type Section struct {
	Page     int        `json:"page"`
	Titles   TextMap    `json:"titles"`
	Text     TextMap    `json:"text"`
	Evidence TextMap    `json:"evidence"`
	Table    RefMap     `json:"table"`
	Picture  CaptionMap `json:"picture"`
}

// TextMap maps a numeric key to a text. Non-string values are dropped.
type TextMap map[string]string

func (m *TextMap) UnmarshalJSON(data []byte) error {
	raw := decodeObject(data)
	out := make(TextMap, len(raw))
	for k, v := range raw {
		if s, ok := decodeString(v); ok {
			out[k] = s
		}
	}
	*m = out
	return nil
}

// TextList is a list of texts, accepting either a JSON array or an object.
type TextList []string

func (l *TextList) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		obj := decodeObject(data)
		for _, k := range SortedKeys(obj) {
			items = append(items, obj[k])
		}
	}
	out := make(TextList, 0, len(items))
	for _, v := range items {
		if s, ok := decodeString(v); ok {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// RefMap keeps the "ref" column of table rows. Rows without a usable ref are
// kept with an empty value so they still occupy a position in the page.
type RefMap map[string]string

func (m *RefMap) UnmarshalJSON(data []byte) error {
	raw := decodeObject(data)
	out := make(RefMap, len(raw))
	for k, v := range raw {
		var row struct {
			Ref json.RawMessage `json:"ref"`
		}
		if err := json.Unmarshal(v, &row); err != nil {
			continue
		}
		ref, _ := decodeString(row.Ref)
		out[k] = ref
	}
	*m = out
	return nil
}

// CaptionMap keeps the caption of picture entries.
type CaptionMap map[string]string

func (m *CaptionMap) UnmarshalJSON(data []byte) error {
	raw := decodeObject(data)
	out := make(CaptionMap, len(raw))
	for k, v := range raw {
		var pic struct {
			Text json.RawMessage `json:"text"`
		}
		if err := json.Unmarshal(v, &pic); err != nil {
			continue
		}
		caption, _ := decodeString(pic.Text)
		out[k] = caption
	}
	*m = out
	return nil
}

func decodeObject(data []byte) map[string]json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	return obj
}

// decodeString accepts JSON strings and numbers.
func decodeString(v json.RawMessage) (string, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// decodeSections decodes an array of pages one element at a time so a
// malformed page does not hide the others.
func decodeSections(data []byte) []Section {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		obj := decodeObject(data)
		for _, k := range SortedKeys(obj) {
			raw = append(raw, obj[k])
		}
	}
	out := make([]Section, 0, len(raw))
	for _, r := range raw {
		var s Section
		if err := json.Unmarshal(r, &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

func decodeQuran(data []byte) Quran {
	raw := decodeObject(data)
	q := make(Quran, len(raw))
	for page, r := range raw {
		var p QuranPage
		if err := json.Unmarshal(r, &p); err != nil {
			continue
		}
		q[page] = p
	}
	return q
}

// decodeApplication keeps the string entries of application.json.
func decodeApplication(data []byte) map[string]string {
	raw := decodeObject(data)
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
		}
	}
	return out
}

// SortedKeys orders map keys the way the assets are meant to be read:
// integer keys ascending, then the remaining keys in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, aErr := strconv.Atoi(keys[i])
		b, bErr := strconv.Atoi(keys[j])
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}
