// Package corpus loads the per-language scripture assets and flattens them
// into an ordered list of documents shared by the index builder and the
// search engine.
package corpus

import (
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/fold"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/tokenizer"
)

// Introduction pages that carry the table of contents and the index; they
// are not prose.
var skippedIntroPages = map[int]bool{1: true, 22: true}

// Bundle is the decoded asset set of one language.
type Bundle struct {
	Quran        Quran
	Introduction []Section
	Appendices   []Section
	Application  map[string]string
	Themes       ThemeMap
}

// Corpus is the flattened, read-only view of one language.
type Corpus struct {
	Language    Language
	Documents   []Document
	Appendices  []Appendix
	Themes      ThemeMap
	Application map[string]string

	verses  map[int]map[int]string
	letters map[string]string
}

// New walks b in reading order: quran pages with their verses, titles and
// notes; introduction pages; appendices; then application strings.
func New(lang Language, b *Bundle) *Corpus {
	c := &Corpus{
		Language:    lang,
		Themes:      b.Themes,
		Application: b.Application,
		verses:      make(map[int]map[int]string),
	}
	if c.Themes == nil {
		c.Themes = ThemeMap{}
	}
	c.letters = make(map[string]string, len(c.Themes))
	f := lang.Folder(fold.DefaultOptions())
	for letter := range c.Themes {
		c.letters[f.Fold(letter)] = letter
	}
	c.walkQuran(b.Quran)
	c.walkIntroduction(b.Introduction)
	c.Appendices = MapAppendices(b.Appendices, b.Application["appendix"])
	c.walkAppendices()
	for _, k := range SortedKeys(b.Application) {
		c.add(Document{
			Category: CategoryApplicationString,
			Key:      "app:" + k,
			Text:     b.Application[k],
		}, false)
	}
	return c
}

func (c *Corpus) add(d Document, searchable bool) {
	d.Language = c.Language.Code
	d.Searchable = searchable
	c.Documents = append(c.Documents, d)
}

func (c *Corpus) walkQuran(q Quran) {
	digits := c.Language.Digits()
	lastSura, lastVerse := 0, 0

	for _, pageKey := range SortedKeys(q) {
		page := q[pageKey]
		pageNo, _ := strconv.Atoi(pageKey)

		for _, suraKey := range SortedKeys(page.Sura) {
			sura, err := strconv.Atoi(suraKey)
			if err != nil {
				continue
			}
			s := page.Sura[suraKey]
			for _, vk := range SortedKeys(s.Verses) {
				verse, err := strconv.Atoi(vk)
				if err != nil {
					continue
				}
				text := s.Verses[vk]
				if c.verses[sura] == nil {
					c.verses[sura] = make(map[int]string)
				}
				c.verses[sura][verse] = text
				c.add(Document{
					Category: CategoryVerse,
					Key:      verseKey(sura, verse),
					Text:     text,
					Page:     pageNo,
					Sura:     sura,
					Verse:    verse,
				}, true)
			}
			for _, tk := range SortedKeys(s.Titles) {
				title, err := strconv.Atoi(tk)
				if err != nil {
					continue
				}
				c.add(Document{
					Category: CategoryTitle,
					Key:      verseKey(sura, title),
					Text:     s.Titles[tk],
					Page:     pageNo,
					Sura:     sura,
					Title:    title,
				}, true)
			}
		}

		for _, note := range page.Notes.Data {
			d := Document{Category: CategoryNote, Text: note, Page: pageNo}
			if sura, verse, ok := NoteRef(tokenizer.ToASCIIDigits(note, digits)); ok {
				lastSura, lastVerse = sura, verse
			} else if lastSura != 0 {
				d.Inferred = true
			}
			if lastSura != 0 {
				d.Sura, d.Verse = lastSura, lastVerse
				d.Key = verseKey(lastSura, lastVerse)
			}
			c.add(d, true)
		}
	}
}

func (c *Corpus) walkIntroduction(pages []Section) {
	for _, page := range pages {
		if skippedIntroPages[page.Page] {
			continue
		}
		for _, item := range pageItems(page) {
			if item.Text == "" {
				continue
			}
			c.add(Document{
				Category: CategoryIntroParagraph,
				Key:      introKey(page.Page, strconv.Itoa(item.Key)),
				Text:     item.Text,
				Page:     page.Page,
			}, true)
		}
	}
}

func (c *Corpus) walkAppendices() {
	for _, appx := range c.Appendices {
		for _, item := range appx.Items {
			var cat Category
			switch item.Type {
			case ItemTitle:
				cat = CategoryAppendixTitle
			case ItemText, ItemEvidence:
				cat = CategoryAppendixText
			case ItemTable:
				cat = CategoryAppendixTableRef
			case ItemPicture:
				cat = CategoryAppendixPicture
			}
			if item.Type != ItemTitle && strings.TrimSpace(item.Text) == "" {
				continue
			}
			c.add(Document{
				Category: cat,
				Key:      appendixKey(appx.Number, item.Order),
				Text:     item.Text,
				Page:     item.Page,
				Appendix: appx.Number,
				Order:    item.Order,
				Evidence: item.Type == ItemEvidence,
			}, true)
		}
	}
}

// Verse returns the text of sura:verse.
func (c *Corpus) Verse(sura, verse int) (string, bool) {
	text, ok := c.verses[sura][verse]
	return text, ok
}

// ResolveRef expands a verse reference into the verses that exist.
func (c *Corpus) ResolveRef(ref string) []VerseRef {
	var out []VerseRef
	for _, sv := range ParseRef(ref) {
		if text, ok := c.Verse(sv[0], sv[1]); ok && text != "" {
			out = append(out, VerseRef{Sura: sv[0], Verse: sv[1], Text: text})
		}
	}
	return out
}

// ThemesFor returns the theme entries filed under letter. Letters compare
// folded, so "a", "A" and "Á" find the same entries.
func (c *Corpus) ThemesFor(letter string) []Theme {
	f := c.Language.Folder(fold.DefaultOptions())
	key, ok := c.letters[f.Fold(letter)]
	if !ok {
		return nil
	}
	return c.Themes[key]
}

// VerseCount is the number of verses in the corpus.
func (c *Corpus) VerseCount() int {
	n := 0
	for _, vs := range c.verses {
		n += len(vs)
	}
	return n
}
