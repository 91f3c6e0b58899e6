package structure

import (
	"iter"
	"regexp"
	"strings"
)

// line is one source line without its terminator.
type line struct {
	start int
	end   int
	text  string
}

func (l line) blank() bool {
	return strings.TrimSpace(l.text) == ""
}

// lines returns a fresh iterator over the lines of text. Both "\n" and
// "\r\n" terminators are accepted; offsets exclude the terminator.
func lines(text string) iter.Seq[line] {
	return func(yield func(line) bool) {
		for start := 0; start < len(text); {
			end, next := len(text), len(text)
			if i := strings.IndexByte(text[start:], '\n'); i >= 0 {
				end, next = start+i, start+i+1
			}
			body := strings.TrimSuffix(text[start:end], "\r")
			if !yield(line{start: start, end: start + len(body), text: body}) {
				return
			}
			start = next
		}
	}
}

// match is one regular expression hit: groups holds [start, end) pairs for
// the whole match followed by each capture group, -1 when a group is unset.
type match struct {
	groups []int
	text   string
}

func (m match) start() int { return m.groups[0] }
func (m match) end() int   { return m.groups[1] }

func (m match) group(n int) string {
	if 2*n+1 >= len(m.groups) || m.groups[2*n] < 0 {
		return ""
	}
	return m.text[m.groups[2*n]:m.groups[2*n+1]]
}

// matches returns a fresh iterator over the non-overlapping matches of re in
// text. Nothing is carried between calls.
func matches(re *regexp.Regexp, text string) iter.Seq[match] {
	return func(yield func(match) bool) {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			if !yield(match{groups: loc, text: text}) {
				return
			}
		}
	}
}

// lineAround returns the full line of text containing offset.
func lineAround(text string, offset int) string {
	start := strings.LastIndexByte(text[:offset], '\n') + 1
	end := len(text)
	if i := strings.IndexByte(text[offset:], '\n'); i >= 0 {
		end = offset + i
	}
	return strings.TrimSuffix(text[start:end], "\r")
}
