package reader

import (
	"strings"

	"github.com/metcalfc/leaf/internal/doc"
	"github.com/metcalfc/leaf/internal/paginate"
	"github.com/metcalfc/leaf/internal/structure"
)

const previewWords = 10

// TOCEntry represents a single entry in a table of contents
type TOCEntry struct {
	Number  string
	Title   string
	Preview string
	Level   int
	Offset  int
	Page    int
	Marker  *doc.SectionMarker
	Heading int
}

// TOC returns the numbered table of contents of the session.
func (s *Session) TOC() []TOCEntry {
	entries := make([]TOCEntry, 0, len(s.Model.Headings))
	for i, h := range s.Model.Headings {
		entries = append(entries, TOCEntry{
			Number:  s.numbers[i],
			Title:   h.Text,
			Preview: s.preview(i),
			Level:   h.Level,
			Offset:  h.Offset,
			Page:    paginate.PageAt(s.Pages, h.Offset),
			Marker:  h.Marker,
			Heading: i,
		})
	}
	return entries
}

// preview returns the first words following heading i, up to the next
// heading.
func (s *Session) preview(i int) string {
	h := s.Model.Headings[i]
	end := len(s.Text)
	if i+1 < len(s.Model.Headings) {
		end = s.Model.Headings[i+1].Offset
	}
	body := s.Text[h.Offset:end]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		return ""
	}

	var words []string
	for l := range strings.Lines(body) {
		if structure.IsMarkerLine(strings.TrimRight(l, "\r\n")) {
			continue
		}
		for _, w := range strings.Fields(l) {
			if len(words) == previewWords {
				return strings.Join(words, " ") + "..."
			}
			words = append(words, w)
		}
	}
	return strings.Join(words, " ")
}
