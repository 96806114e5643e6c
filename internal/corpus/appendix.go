package corpus

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// FirstAppendixPage is the first printed page of the appendices; earlier
// pages in appendices.json belong to the front matter.
const FirstAppendixPage = 397

// DefaultAppendixLabel is used when application.json has no "appendix" entry.
const DefaultAppendixLabel = "Appendix"

var anyDigit = regexp.MustCompile(`\d`)

// ItemType is the field of an appendix page an item was read from.
type ItemType string

const (
	ItemTitle    ItemType = "title"
	ItemText     ItemType = "text"
	ItemEvidence ItemType = "evidence"
	ItemTable    ItemType = "table"
	ItemPicture  ItemType = "picture"
)

// AppendixItem is one element of an appendix in reading order.
type AppendixItem struct {
	Type  ItemType
	Text  string
	Page  int
	Key   int
	Order int
}

// Appendix groups the items that belong to one numbered appendix.
type Appendix struct {
	Number int
	Items  []AppendixItem
}

// MapAppendices assigns every item of the appendix pages to its appendix.
// Items are read page by page in key order and receive a running order
// starting at 1. A title that reads "<label> N" opens appendix N; items
// before the first such title belong to appendix 1.
func MapAppendices(pages []Section, label string) []Appendix {
	if strings.TrimSpace(label) == "" {
		label = DefaultAppendixLabel
	}
	heading := regexp.MustCompile(regexp.QuoteMeta(label) + `\s*(\d+)`)

	groups := make(map[int][]AppendixItem)
	current := 1
	order := 0

	for _, page := range pages {
		if page.Page < FirstAppendixPage {
			continue
		}
		for _, item := range pageItems(page) {
			order++
			item.Order = order
			if item.Type == ItemTitle && anyDigit.MatchString(item.Text) {
				if m := heading.FindStringSubmatch(item.Text); m != nil {
					if n, err := strconv.Atoi(m[1]); err == nil {
						current = n
					}
				}
			}
			groups[current] = append(groups[current], item)
		}
	}

	numbers := make([]int, 0, len(groups))
	for n := range groups {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	out := make([]Appendix, 0, len(numbers))
	for _, n := range numbers {
		items := groups[n]
		sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
		out = append(out, Appendix{Number: n, Items: items})
	}
	return out
}

// pageItems lists a page's items sorted by their numeric key. Empty texts and
// evidence are skipped; titles, table rows and pictures always take a slot.
func pageItems(page Section) []AppendixItem {
	var items []AppendixItem
	add := func(typ ItemType, key, text string, skipEmpty bool) {
		if skipEmpty && text == "" {
			return
		}
		k, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return
		}
		items = append(items, AppendixItem{Type: typ, Text: text, Page: page.Page, Key: k})
	}
	for _, k := range SortedKeys(page.Titles) {
		add(ItemTitle, k, page.Titles[k], false)
	}
	for _, k := range SortedKeys(page.Text) {
		add(ItemText, k, page.Text[k], true)
	}
	for _, k := range SortedKeys(page.Evidence) {
		add(ItemEvidence, k, page.Evidence[k], true)
	}
	for _, k := range SortedKeys(page.Table) {
		add(ItemTable, k, page.Table[k], false)
	}
	for _, k := range SortedKeys(page.Picture) {
		add(ItemPicture, k, page.Picture[k], false)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items
}
