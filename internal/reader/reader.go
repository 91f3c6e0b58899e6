// Package reader hosts a paged reading session: it loads documents, builds
// their structural model and keeps the navigation state over the pages.
package reader

import (
	"iter"

	"go.uber.org/zap"

	"github.com/metcalfc/leaf/internal/doc"
	"github.com/metcalfc/leaf/internal/fragment"
	"github.com/metcalfc/leaf/internal/paginate"
	"github.com/metcalfc/leaf/internal/structure"
)

// Session holds the state of a paged reading session.
type Session struct {
	Text        string
	Model       doc.Model
	Pages       []doc.Page
	CurrentPage int

	numbers []string
	log     *zap.Logger
}

// NewSession parses text and paginates it with strategy.
func NewSession(text string, parser *structure.Parser, strategy paginate.Strategy, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	model := parser.Parse(text)
	s := &Session{
		Text:    text,
		Model:   model,
		numbers: structure.Number(model.Headings),
		log:     log,
	}
	s.paginate(strategy)
	return s
}

func (s *Session) paginate(strategy paginate.Strategy) {
	s.Pages = paginate.Attach(strategy.Paginate(s.Text), s.Model.Headings, s.Model.Annotations)
	s.log.Debug("Session paginated", zap.Int("pages", len(s.Pages)), zap.Int("headings", len(s.Model.Headings)))
}

// Repaginate splits the document again, for a new layout say, and keeps the
// page holding the current offset.
func (s *Session) Repaginate(strategy paginate.Strategy) {
	offset := s.Offset()
	s.paginate(strategy)
	s.JumpToOffset(offset)
}

// Page returns the current page, a zero page for an empty document.
func (s *Session) Page() doc.Page {
	if s.CurrentPage >= 0 && s.CurrentPage < len(s.Pages) {
		return s.Pages[s.CurrentPage]
	}
	return doc.Page{}
}

// Fragments returns the fragment stream of the current page.
func (s *Session) Fragments() iter.Seq[doc.Fragment] {
	return fragment.Tokenize(s.Page())
}

// Overview returns the whole document as a single page.
func (s *Session) Overview() doc.Page {
	pages := paginate.Attach(paginate.Continuous{}.Paginate(s.Text), s.Model.Headings, s.Model.Annotations)
	if len(pages) == 0 {
		return doc.Page{}
	}
	return pages[0]
}

// Offset returns the offset of the first word of the current page.
func (s *Session) Offset() int {
	return s.Page().Start
}

// Next moves to the next page. Returns false at the last page.
func (s *Session) Next() bool {
	if s.CurrentPage < len(s.Pages)-1 {
		s.CurrentPage++
		return true
	}
	return false
}

// Prev moves to the previous page. Returns false at the first page.
func (s *Session) Prev() bool {
	if s.CurrentPage > 0 {
		s.CurrentPage--
		return true
	}
	return false
}

// JumpToPage moves to page n, clamped to the document.
func (s *Session) JumpToPage(n int) {
	s.CurrentPage = max(min(n, len(s.Pages)-1), 0)
}

// JumpToOffset moves to the page containing offset.
func (s *Session) JumpToOffset(offset int) {
	s.CurrentPage = paginate.PageAt(s.Pages, offset)
}

// JumpToHeading moves to the page holding heading i.
func (s *Session) JumpToHeading(i int) bool {
	if i < 0 || i >= len(s.Model.Headings) {
		return false
	}
	s.JumpToOffset(s.Model.Headings[i].Offset)
	return true
}

// Progress returns the current page number (1 based) and the page count.
func (s *Session) Progress() (current, total int) {
	return s.CurrentPage + 1, len(s.Pages)
}

// AtEnd returns true if the session is at the last page.
func (s *Session) AtEnd() bool {
	return s.CurrentPage >= len(s.Pages)-1
}

// CurrentHeading returns the index of the last heading starting before the
// end of the current page, -1 when there is none.
func (s *Session) CurrentHeading() int {
	end := s.Page().End
	current := -1
	for i, h := range s.Model.Headings {
		if h.Offset >= end {
			break
		}
		current = i
	}
	return current
}

// CurrentTitle returns the numbered title of the current heading.
func (s *Session) CurrentTitle() string {
	if i := s.CurrentHeading(); i >= 0 {
		return s.numbers[i] + " " + s.Model.Headings[i].Text
	}
	return ""
}

// Sections returns the section markers open at the current heading,
// outermost first.
func (s *Session) Sections() []doc.StackEntry {
	if i := s.CurrentHeading(); i >= 0 {
		return s.Model.Stacks[s.Model.Headings[i].Offset]
	}
	return nil
}
