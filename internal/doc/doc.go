// Package doc defines the value records shared by the parser, the paginator
// and the fragment tokenizer.
//
// All offsets are absolute byte offsets into the original UTF-8 document,
// never relative to a page, so a position reported by a renderer maps back to
// the source the same way on every page.
package doc

import "strings"

// SectionMarker is a callout line ("> [!type] title") attached to a heading.
// It tints the region until a heading of the same or a shallower level.
type SectionMarker struct {
	Type   string
	Title  string
	Color  string
	Offset int
	Folded string // "+", "-" or empty
}

// Heading is a markup heading line.
type Heading struct {
	Level  int
	Text   string
	Offset int
	Marker *SectionMarker
}

// CommentType is the fixed annotation type of the %% comment %% form.
const CommentType = "COMMENT"

// Annotation is an inline flag (==TYPE: message==) or comment (%% message %%).
type Annotation struct {
	Type     string
	Message  string
	Offset   int
	End      int // exclusive end of the matched span
	Color    string
	LineText string // full source line containing the match
}

// ShortMessage returns the part of the message before the first pipe.
func (a Annotation) ShortMessage() string {
	short, _, found := strings.Cut(a.Message, "|")
	if !found {
		return a.Message
	}
	return strings.TrimSpace(short)
}

// LongMessage returns the part of the message after the first pipe, or the
// whole message when there is none.
func (a Annotation) LongMessage() string {
	_, long, found := strings.Cut(a.Message, "|")
	if !found {
		return a.Message
	}
	return strings.TrimSpace(long)
}

// StackEntry is one open section marker.
type StackEntry struct {
	Type  string
	Color string
}

// Stacks maps a heading offset to the section markers open at that heading,
// outermost first.
type Stacks map[int][]StackEntry

// Model is the structural model of one document parse.
type Model struct {
	Headings    []Heading
	Annotations []Annotation
	Stacks      Stacks
}

// Page is a contiguous word-aligned slice of the document.
type Page struct {
	Content     string
	WordCount   int
	Start       int
	End         int
	Number      int
	Headings    []Heading
	Annotations []Annotation
}

// Contains reports whether offset falls inside the page.
func (p Page) Contains(offset int) bool {
	return offset >= p.Start && offset < p.End
}

// FragmentKind tags a Fragment.
type FragmentKind int

const (
	FragmentText FragmentKind = iota
	FragmentHeading
	FragmentImage
	FragmentAnnotation
)

func (k FragmentKind) String() string {
	switch k {
	case FragmentText:
		return "text"
	case FragmentHeading:
		return "heading"
	case FragmentImage:
		return "image"
	case FragmentAnnotation:
		return "annotation"
	}
	return "unknown"
}

// Fragment is one typed unit of the stream a renderer consumes. Start and End
// delimit the source span the unit accounts for.
type Fragment struct {
	Kind  FragmentKind
	Start int
	End   int

	// Text is the display text of text and heading fragments.
	Text string

	// Alt and Link are set on image fragments.
	Alt  string
	Link string

	Heading    *Heading
	Annotation *Annotation
}
