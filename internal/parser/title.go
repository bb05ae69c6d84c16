package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pokerjest/showshelf/internal/model"
)

// Item is one parsed input line: "Title (Year) [type]"
type Item struct {
	Title     string          `json:"title"`
	Year      *int            `json:"year"`
	MediaType model.MediaType `json:"media_type"`
}

var lineRe = regexp.MustCompile(`^(.*?)\s*(?:\((\d{4})\))?\s*(?:\[(?i:(tv|movie))\])?$`)

// ParseLine turns a free-text line into an Item. Blank and #-comment lines are skipped.
// Anything that does not fit the pattern degrades to the raw text as title.
func ParseLine(line string) (Item, bool) {
	s := strings.TrimSpace(line)
	if s == "" || strings.HasPrefix(s, "#") {
		return Item{}, false
	}

	fallback := Item{Title: s, MediaType: model.MediaTV}

	m := lineRe.FindStringSubmatch(s)
	if m == nil {
		return fallback, true
	}
	title := strings.TrimSpace(m[1])
	if title == "" {
		return fallback, true
	}

	item := Item{Title: title, MediaType: model.MediaTV}
	if m[2] != "" {
		if y, err := strconv.Atoi(m[2]); err == nil {
			item.Year = &y
		}
	}
	if mt, ok := model.ParseMediaType(m[3]); ok {
		item.MediaType = mt
	}
	return item, true
}

// ParseLines parses a whole pasted list, one show per line.
func ParseLines(text string) []Item {
	var items []Item
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if item, ok := ParseLine(line); ok {
			items = append(items, item)
		}
	}
	return items
}

// String formats the item back into the input syntax.
func (i Item) String() string {
	var b strings.Builder
	b.WriteString(i.Title)
	if i.Year != nil {
		fmt.Fprintf(&b, " (%d)", *i.Year)
	}
	mt := i.MediaType
	if !mt.Valid() {
		mt = model.MediaTV
	}
	fmt.Fprintf(&b, " [%s]", mt)
	return b.String()
}
