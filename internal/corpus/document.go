package corpus

import (
	"fmt"
	"strconv"
)

// Category classifies a searchable unit of text.
type Category string

const (
	CategoryVerse             Category = "verse"
	CategoryTitle             Category = "title"
	CategoryNote              Category = "note"
	CategoryIntroParagraph    Category = "introParagraph"
	CategoryAppendixTitle     Category = "appendixTitle"
	CategoryAppendixText      Category = "appendixText"
	CategoryAppendixTableRef  Category = "appendixTableRef"
	CategoryAppendixPicture   Category = "appendixPicture"
	CategoryApplicationString Category = "applicationString"
)

// IsAppendix reports whether c belongs to the appendices.
func (c Category) IsAppendix() bool {
	switch c {
	case CategoryAppendixTitle, CategoryAppendixText, CategoryAppendixTableRef, CategoryAppendixPicture:
		return true
	}
	return false
}

// Document is one searchable unit of text. Which location fields are set
// depends on the category.
type Document struct {
	Language string   `json:"language"`
	Category Category `json:"category"`
	Key      string   `json:"key"`
	Text     string   `json:"text"`
	Page     int      `json:"page,omitempty"`
	Sura     int      `json:"sura,omitempty"`
	Verse    int      `json:"verse,omitempty"`
	Title    int      `json:"title,omitempty"`
	Appendix int      `json:"appendix,omitempty"`
	Order    int      `json:"order,omitempty"`

	// Inferred marks a note whose verse reference was borrowed from the
	// previous note because its own text carries none.
	Inferred bool `json:"inferred,omitempty"`

	// Evidence marks appendix text that came from an evidence block.
	Evidence bool `json:"evidence,omitempty"`

	// Searchable is false for texts that feed the token tables but are not
	// candidates for phrase containment checks.
	Searchable bool `json:"-"`
}

// Indexed reports whether the text goes into the suggestion tables. Appendix
// pictures and evidence blocks are searched but never indexed.
func (d Document) Indexed() bool {
	return d.Category != CategoryAppendixPicture && !d.Evidence
}

func verseKey(sura, verse int) string {
	return strconv.Itoa(sura) + ":" + strconv.Itoa(verse)
}

func appendixKey(number, order int) string {
	return fmt.Sprintf("appx:%d-%d", number, order)
}

func introKey(page int, key string) string {
	return fmt.Sprintf("intro:%d-%s", page, key)
}
