// Package structure extracts headings, section markers and inline annotations
// from markdown-dialect text and derives section stacks and heading numbers.
package structure

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/metcalfc/leaf/internal/doc"
)

// FallbackColor is used for markers and annotations when no resolver is set.
const FallbackColor = "#808080"

// MaxTypeLength caps the identifier of a ==TYPE: message== flag.
const MaxTypeLength = 32

// ColorResolver maps an annotation or marker type name to a display color.
type ColorResolver interface {
	ColorOf(typeName string) string
}

var (
	// "> [!type]" with optional fold indicator and title
	markerRegex = regexp.MustCompile(`^\s*>\s*\[!([^\]\s]+)\]([+-]?)\s*(.*)$`)

	flagRegex    = regexp.MustCompile(`==([A-Za-z][A-Za-z0-9_-]{0,31}):([^\r\n]*?)==`)
	commentRegex = regexp.MustCompile(`%%([^\r\n]+?)%%`)
)

// Parser turns raw document text into the structural model.
type Parser struct {
	colors ColorResolver
	log    *zap.Logger
}

// NewParser creates a parser resolving colors with colors (may be nil).
func NewParser(colors ColorResolver, log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{colors: colors, log: log}
}

func (p *Parser) colorOf(typeName string) string {
	if p.colors == nil {
		return FallbackColor
	}
	return p.colors.ColorOf(typeName)
}

// Parse runs the heading, annotation and section stack passes.
func (p *Parser) Parse(text string) doc.Model {
	headings := p.ParseHeadings(text)
	annotations := p.ParseAnnotations(text)
	p.log.Debug("Parsed document structure",
		zap.Int("bytes", len(text)),
		zap.Int("headings", len(headings)),
		zap.Int("annotations", len(annotations)))
	return doc.Model{
		Headings:    headings,
		Annotations: annotations,
		Stacks:      ComputeStacks(headings),
	}
}

// ParseHeadings returns the headings of text in document order.
//
// A section marker attaches to a heading when it is the first non-blank line
// after the heading line. A marker line not claimed that way attaches to the
// heading on the line directly below it.
func (p *Parser) ParseHeadings(text string) []doc.Heading {
	var all []line
	for l := range lines(text) {
		all = append(all, l)
	}

	var (
		headings []doc.Heading
		claimed  = make(map[int]bool)
	)
	for i, l := range all {
		level, title, ok := headingOf(l.text)
		if !ok {
			continue
		}
		h := doc.Heading{Level: level, Text: title, Offset: l.start}

		j := i + 1
		for j < len(all) && all[j].blank() {
			j++
		}
		if j < len(all) {
			if m := p.markerOf(all[j]); m != nil {
				h.Marker = m
				claimed[j] = true
			}
		}
		if h.Marker == nil && i > 0 && !claimed[i-1] {
			if m := p.markerOf(all[i-1]); m != nil {
				h.Marker = m
				claimed[i-1] = true
			}
		}
		headings = append(headings, h)
	}
	return headings
}

// headingOf recognizes "#{1,6}<whitespace>text".
func headingOf(s string) (level int, title string, ok bool) {
	for level < len(s) && s[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level == len(s) {
		return 0, "", false
	}
	if s[level] != ' ' && s[level] != '\t' {
		return 0, "", false
	}
	title = strings.TrimSpace(s[level:])
	if title == "" {
		return 0, "", false
	}
	return level, title, true
}

// IsHeadingLine reports whether s is a heading line.
func IsHeadingLine(s string) bool {
	_, _, ok := headingOf(s)
	return ok
}

// IsMarkerLine reports whether s is a section marker line.
func IsMarkerLine(s string) bool {
	return markerRegex.MatchString(s)
}

func (p *Parser) markerOf(l line) *doc.SectionMarker {
	m := markerRegex.FindStringSubmatch(l.text)
	if m == nil {
		return nil
	}
	title := strings.TrimSpace(m[3])
	if title == "" {
		title = capitalize(m[1])
	}
	return &doc.SectionMarker{
		Type:   m[1],
		Title:  title,
		Color:  p.colorOf(m[1]),
		Offset: l.start,
		Folded: m[2],
	}
}

// MarkerTitle returns the display title of a marker line, or s unchanged.
func MarkerTitle(s string) string {
	m := markerRegex.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	if title := strings.TrimSpace(m[3]); title != "" {
		return title
	}
	return capitalize(m[1])
}

// HeadingTitle returns the text of a heading line, or s unchanged.
func HeadingTitle(s string) string {
	if _, title, ok := headingOf(s); ok {
		return title
	}
	return s
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// ParseAnnotations returns the flags and comments of text ordered by offset.
// The two syntaxes are matched independently, so a flag inside a comment is
// reported as well.
func (p *Parser) ParseAnnotations(text string) []doc.Annotation {
	var out []doc.Annotation
	for m := range matches(flagRegex, text) {
		typ := m.group(1)
		out = append(out, doc.Annotation{
			Type:     typ,
			Message:  strings.TrimSpace(m.group(2)),
			Offset:   m.start(),
			End:      m.end(),
			Color:    p.colorOf(typ),
			LineText: lineAround(text, m.start()),
		})
	}
	for m := range matches(commentRegex, text) {
		msg := strings.TrimSpace(m.group(1))
		if msg == "" {
			continue
		}
		out = append(out, doc.Annotation{
			Type:     doc.CommentType,
			Message:  msg,
			Offset:   m.start(),
			End:      m.end(),
			Color:    p.colorOf(doc.CommentType),
			LineText: lineAround(text, m.start()),
		})
	}
	slices.SortStableFunc(out, func(a, b doc.Annotation) int {
		return a.Offset - b.Offset
	})
	return out
}
