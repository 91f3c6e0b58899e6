package structure

import (
	"strconv"
	"strings"

	"github.com/metcalfc/leaf/internal/doc"
)

// ComputeStacks returns, for every heading, the section markers open at that
// heading. A heading at level L closes every open section at level >= L.
func ComputeStacks(headings []doc.Heading) doc.Stacks {
	type open struct {
		level int
		entry doc.StackEntry
	}

	stacks := make(doc.Stacks, len(headings))
	var stack []open
	for _, h := range headings {
		for len(stack) > 0 && stack[len(stack)-1].level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		if h.Marker != nil {
			stack = append(stack, open{
				level: h.Level,
				entry: doc.StackEntry{Type: h.Marker.Type, Color: h.Marker.Color},
			})
		}
		// snapshot by value, the shared stack keeps changing
		snap := make([]doc.StackEntry, len(stack))
		for i, o := range stack {
			snap[i] = o.entry
		}
		stacks[h.Offset] = snap
	}
	return stacks
}

// Number returns dotted numbering for headings ("1", "1.1", "1.2", "2").
// Numbers follow the nesting of the headings rather than raw levels, so a
// level 3 heading directly under a level 1 heading is numbered "1.1".
func Number(headings []doc.Heading) []string {
	type counter struct {
		level int
		count int
	}

	out := make([]string, len(headings))
	var stack []counter
	for i, h := range headings {
		popped := 0
		for len(stack) > 0 && stack[len(stack)-1].level > h.Level {
			popped = stack[len(stack)-1].count
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 && stack[len(stack)-1].level == h.Level {
			stack[len(stack)-1].count++
		} else {
			stack = append(stack, counter{level: h.Level, count: popped + 1})
		}

		parts := make([]string, len(stack))
		for j, c := range stack {
			parts[j] = strconv.Itoa(c.count)
		}
		out[i] = strings.Join(parts, ".")
	}
	return out
}
