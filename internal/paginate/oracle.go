package paginate

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/metcalfc/leaf/internal/structure"
)

// Box is the content area a page must fit into, padding already removed.
// Units are whatever the oracle measures in: pixels for a window, cells for
// a terminal.
type Box struct {
	Width      float64
	Height     float64
	FontSize   float64
	CharWidth  float64
	LineHeight float64
}

// Metrics is what an oracle reports for one measured fragment.
type Metrics struct {
	Height       float64
	ImageCount   int
	ImageHeights []float64
	WordCount    int
}

// Oracle renders and measures markdown. Measurements go through a Scratch
// area which must be acquired before use and released afterwards.
type Oracle interface {
	Acquire() (Scratch, error)
}

// Scratch is an acquired off-screen measuring area. It is used serially.
type Scratch interface {
	Measure(markdown string, box Box) (Metrics, error)
	Release()
}

// Layout is the page geometry the adaptive strategy fits content into.
type Layout struct {
	Width    float64
	Height   float64
	PaddingX float64
	PaddingY float64
	FontSize float64

	// CharWidth and LineHeight override the values derived from FontSize.
	CharWidth  float64
	LineHeight float64
}

// Box returns the content area of the layout.
func (l Layout) Box() Box {
	fs := l.FontSize
	if fs <= 0 {
		fs = 16
	}
	cw := l.CharWidth
	if cw <= 0 {
		cw = fs * 0.55
	}
	lh := l.LineHeight
	if lh <= 0 {
		lh = fs * 1.5
	}
	return Box{
		Width:      math.Max(l.Width-2*l.PaddingX, cw),
		Height:     math.Max(l.Height-2*l.PaddingY, lh),
		FontSize:   fs,
		CharWidth:  cw,
		LineHeight: lh,
	}
}

// averageWordLength includes the separating space.
const averageWordLength = 6.0

// EstimateWords guesses how many words fill box from font metrics alone.
func EstimateWords(box Box) int {
	charsPerLine := math.Floor(box.Width / box.CharWidth)
	linesPerPage := math.Floor(box.Height / box.LineHeight)
	return int(charsPerLine * linesPerPage / averageWordLength)
}

// imageLines is how many text lines an image is assumed to occupy when no
// oracle measurement is available.
const imageLines = 8

// EstimateHeight approximates the rendered height of markdown proportionally
// to its length. It stands in for the oracle when measuring fails.
func EstimateHeight(markdown string, box Box) float64 {
	cols := max(int(box.Width/box.CharWidth), 1)
	rows := 0
	for l := range strings.SplitSeq(markdown, "\n") {
		n := utf8.RuneCountInString(l)
		rows += max((n+cols-1)/cols, 1)
	}
	rows += structure.CountImages(markdown) * imageLines
	return float64(rows) * box.LineHeight
}
