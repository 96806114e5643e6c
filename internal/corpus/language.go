package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/fold"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/tokenizer"
)

const defaultDigits = "0 1 2 3 4 5 6 7 8 9"

// Language is one entry of languages.json.
type Language struct {
	Code string `json:"-"`
	Name string `json:"name,omitempty"`
	Dir  string `json:"dir,omitempty"`
	Nums string `json:"nums,omitempty"`
}

// RTL reports whether the language is written right to left.
func (l Language) RTL() bool {
	return l.Dir == "rtl"
}

// Digits returns the language's digit glyphs, 0 through 9.
func (l Language) Digits() []string {
	if strings.TrimSpace(l.Nums) == "" {
		return strings.Fields(defaultDigits)
	}
	return strings.Fields(l.Nums)
}

// Folder returns a text folder for the language.
func (l Language) Folder(opts fold.Options) *fold.Folder {
	return fold.New(l.Code, l.RTL(), opts)
}

// Tokenizer returns a tokenizer folding with opts.
func (l Language) Tokenizer(opts fold.Options) *tokenizer.Tokenizer {
	return tokenizer.New(l.Folder(opts), l.Digits())
}

// Languages is the decoded languages.json, keyed by language code.
type Languages map[string]Language

// LoadLanguages reads languages.json.
func LoadLanguages(path string) (Languages, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading languages file %s: %w", path, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing languages file %s: %w", path, err)
	}
	langs := make(Languages, len(raw))
	for code, msg := range raw {
		var l Language
		// Entries with unexpected shapes still register the code.
		_ = json.Unmarshal(msg, &l)
		l.Code = code
		langs[code] = l
	}
	return langs, nil
}

// Get returns the configuration for code. Unknown codes borrow the settings
// of fallback (the base language) but keep their own code.
func (ls Languages) Get(code, fallback string) Language {
	l, ok := ls[code]
	if !ok {
		l = ls[fallback]
	}
	l.Code = code
	return l
}

// Codes returns the configured language codes, sorted.
func (ls Languages) Codes() []string {
	codes := make([]string, 0, len(ls))
	for c := range ls {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
