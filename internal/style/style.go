// Package style maps section and annotation types to colors.
package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/leaf/internal/structure"
)

// Resolver looks up type colors in a palette. Lookups ignore case.
type Resolver struct {
	palette  map[string]string
	fallback string
}

// New returns a resolver over palette. An empty fallback selects
// structure.FallbackColor.
func New(palette map[string]string, fallback string) *Resolver {
	if fallback == "" {
		fallback = structure.FallbackColor
	}
	r := &Resolver{palette: make(map[string]string, len(palette)), fallback: fallback}
	for name, color := range palette {
		if color = strings.TrimSpace(color); color != "" {
			r.palette[strings.ToLower(strings.TrimSpace(name))] = color
		}
	}
	return r
}

// ColorOf returns the color of typeName or the fallback.
func (r *Resolver) ColorOf(typeName string) string {
	if c, ok := r.palette[strings.ToLower(typeName)]; ok {
		return c
	}
	return r.fallback
}

// Fallback returns the color used for unknown types.
func (r *Resolver) Fallback() string {
	return r.fallback
}

// Style returns a terminal style rendering typeName in its color.
func (r *Resolver) Style(typeName string) lipgloss.Style {
	return Color(r.ColorOf(typeName))
}

// Color returns a bold terminal style in color.
func Color(color string) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
}
