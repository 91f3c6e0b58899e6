package structure

import (
	"regexp"
	"slices"
	"strings"
)

var (
	// ![alt](link "optional title")
	markdownImageRegex = regexp.MustCompile(`!\[([^\]\r\n]*)\]\(\s*([^)\s]+)(?:\s+"[^"\r\n]*")?\s*\)`)
	// ![[link|alt]]
	wikiImageRegex = regexp.MustCompile(`!\[\[([^\]|\r\n]+)(?:\|([^\]\r\n]*))?\]\]`)
)

// Image is an embedded image link.
type Image struct {
	Start int
	End   int
	Alt   string
	Link  string
	Wiki  bool
}

// FindImages returns the markdown and wiki image links of text ordered by
// offset.
func FindImages(text string) []Image {
	var out []Image
	for m := range matches(markdownImageRegex, text) {
		out = append(out, Image{
			Start: m.start(),
			End:   m.end(),
			Alt:   m.group(1),
			Link:  m.group(2),
		})
	}
	for m := range matches(wikiImageRegex, text) {
		link := strings.TrimSpace(m.group(1))
		out = append(out, Image{
			Start: m.start(),
			End:   m.end(),
			Alt:   strings.TrimSpace(m.group(2)),
			Link:  link,
			Wiki:  true,
		})
	}
	slices.SortFunc(out, func(a, b Image) int {
		return a.Start - b.Start
	})
	return out
}

// CountImages returns the number of image links in text.
func CountImages(text string) int {
	if !strings.Contains(text, "![") {
		return 0
	}
	return len(FindImages(text))
}
