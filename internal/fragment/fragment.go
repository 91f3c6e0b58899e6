// Package fragment turns a page into the ordered stream of typed fragments a
// renderer consumes.
package fragment

import (
	"iter"
	"slices"
	"strings"

	"github.com/metcalfc/leaf/internal/doc"
	"github.com/metcalfc/leaf/internal/structure"
)

// item is a heading or an annotation attached to the page.
type item struct {
	offset     int
	heading    *doc.Heading
	annotation *doc.Annotation
}

// Tokenize returns the fragments of page in source order. The sequence is
// computed from the page alone, so it can be ranged over any number of times.
//
// Fragments never overlap and together cover every non-whitespace character
// of the page exactly once. Blank lines produce no fragment. An attached item
// starting inside a span already covered (a flag inside a comment, say) is
// not emitted separately. A heading consumes its line unless an annotation
// starts on that line: the heading fragment then ends where the annotation
// begins and carries only the title before it.
func Tokenize(page doc.Page) iter.Seq[doc.Fragment] {
	return func(yield func(doc.Fragment) bool) {
		t := tokenizer{text: page.Content, base: page.Start, yield: yield}
		t.run(merge(page))
	}
}

// Collect returns all fragments of page.
func Collect(page doc.Page) []doc.Fragment {
	return slices.Collect(Tokenize(page))
}

func merge(page doc.Page) []item {
	items := make([]item, 0, len(page.Headings)+len(page.Annotations))
	for i := range page.Headings {
		items = append(items, item{offset: page.Headings[i].Offset, heading: &page.Headings[i]})
	}
	for i := range page.Annotations {
		items = append(items, item{offset: page.Annotations[i].Offset, annotation: &page.Annotations[i]})
	}
	// headings were appended first, a stable sort keeps them first on ties
	slices.SortStableFunc(items, func(a, b item) int {
		return a.offset - b.offset
	})
	return items
}

type tokenizer struct {
	text  string
	base  int
	yield func(doc.Fragment) bool
	done  bool
}

func (t *tokenizer) emit(f doc.Fragment) {
	if !t.done && !t.yield(f) {
		t.done = true
	}
}

func (t *tokenizer) run(items []item) {
	cursor := 0
	for k, it := range items {
		if t.done {
			return
		}
		p := it.offset - t.base
		if p < cursor || p >= len(t.text) {
			continue
		}
		t.gap(cursor, p)

		switch {
		case it.heading != nil:
			h := *it.heading
			end, text := t.pastHeading(p), h.Text
			// an annotation on the heading line ends the heading fragment
			if k+1 < len(items) {
				if q := items[k+1].offset - t.base; q > p && q < t.lineEnd(p) {
					end, text = q, headingText(t.text[p:q])
				}
			}
			t.emit(doc.Fragment{
				Kind:    doc.FragmentHeading,
				Start:   t.base + p,
				End:     t.base + end,
				Text:    text,
				Heading: &h,
			})
			cursor = end
		case it.annotation != nil:
			a := *it.annotation
			end := min(max(a.End-t.base, p), len(t.text))
			t.emit(doc.Fragment{
				Kind:       doc.FragmentAnnotation,
				Start:      t.base + p,
				End:        t.base + end,
				Text:       a.Message,
				Annotation: &a,
			})
			cursor = end
		}
	}
	t.gap(cursor, len(t.text))
}

// lineEnd returns the offset of the line break ending the line at p.
func (t *tokenizer) lineEnd(p int) int {
	if i := strings.IndexByte(t.text[p:], '\n'); i >= 0 {
		return p + i
	}
	return len(t.text)
}

// headingText returns the title in the part of a heading line before an
// annotation, empty when only the markup precedes it.
func headingText(prefix string) string {
	prefix = strings.TrimRight(prefix, " \t")
	if !structure.IsHeadingLine(prefix) {
		return ""
	}
	return structure.HeadingTitle(prefix)
}

// pastHeading returns the offset after the heading line starting at p and
// any blank lines that immediately follow it.
func (t *tokenizer) pastHeading(p int) int {
	pos := t.lineEnd(p)
	for pos < len(t.text) {
		next := pos + 1
		end := len(t.text)
		if i := strings.IndexByte(t.text[next:], '\n'); i >= 0 {
			end = next + i
		}
		if strings.TrimSpace(t.text[next:end]) != "" {
			return next
		}
		pos = end
	}
	return pos
}

// gap splits text[from:to] into image fragments and text lines.
func (t *tokenizer) gap(from, to int) {
	if from >= to {
		return
	}
	seg := t.text[from:to]
	c := 0
	for _, img := range structure.FindImages(seg) {
		t.lines(from+c, from+img.Start)
		t.emit(doc.Fragment{
			Kind:  doc.FragmentImage,
			Start: t.base + from + img.Start,
			End:   t.base + from + img.End,
			Alt:   img.Alt,
			Link:  img.Link,
		})
		c = img.End
	}
	t.lines(from+c, to)
}

// lines emits one text fragment per non-blank line of text[from:to].
func (t *tokenizer) lines(from, to int) {
	for start := from; start < to; {
		end, next := to, to
		if i := strings.IndexByte(t.text[start:to], '\n'); i >= 0 {
			end, next = start+i, start+i+1
		}
		body := strings.TrimSuffix(t.text[start:end], "\r")
		if strings.TrimSpace(body) != "" {
			t.emit(doc.Fragment{
				Kind:  doc.FragmentText,
				Start: t.base + start,
				End:   t.base + start + len(body),
				Text:  display(body),
			})
		}
		start = next
	}
}

// display strips heading and section marker markup from a line.
func display(line string) string {
	switch {
	case structure.IsMarkerLine(line):
		return structure.MarkerTitle(line)
	case structure.IsHeadingLine(line):
		return structure.HeadingTitle(line)
	}
	return line
}
