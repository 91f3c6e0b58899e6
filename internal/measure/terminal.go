// Package measure provides measurement oracles for adaptive pagination.
package measure

import (
	"errors"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/metcalfc/leaf/internal/paginate"
	"github.com/metcalfc/leaf/internal/structure"
)

// DefaultImageRows is how many rows an image placeholder occupies.
const DefaultImageRows = 8

var errReleased = errors.New("measurement area already released")

// Terminal measures markdown as the terminal viewer renders it: lines are
// word wrapped to the box width by lipgloss, every image occupies ImageRows
// rows. Box units are cells.
type Terminal struct {
	ImageRows int
	Log       *zap.Logger
}

// Acquire returns a measuring area with an empty memo.
func (t *Terminal) Acquire() (paginate.Scratch, error) {
	rows := t.ImageRows
	if rows <= 0 {
		rows = DefaultImageRows
	}
	log := t.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &terminalScratch{
		imageRows: rows,
		memo:      gocache.New(gocache.NoExpiration, 0),
		log:       log,
	}, nil
}

type terminalScratch struct {
	imageRows int
	memo      *gocache.Cache
	log       *zap.Logger
	hits      int
}

func (s *terminalScratch) Measure(markdown string, box paginate.Box) (paginate.Metrics, error) {
	if s.memo == nil {
		return paginate.Metrics{}, errReleased
	}
	cols := max(int(box.Width/max(box.CharWidth, 1)), 1)
	key := strconv.Itoa(cols) + ":" + markdown

	var m paginate.Metrics
	if v, ok := s.memo.Get(key); ok {
		s.hits++
		m = v.(paginate.Metrics)
	} else {
		m = s.measure(markdown, cols)
		s.memo.Set(key, m, gocache.NoExpiration)
	}

	lh := max(box.LineHeight, 1)
	out := paginate.Metrics{
		Height:     m.Height * lh,
		ImageCount: m.ImageCount,
		WordCount:  m.WordCount,
	}
	for range m.ImageCount {
		out.ImageHeights = append(out.ImageHeights, float64(s.imageRows)*lh)
	}
	return out, nil
}

// measure returns the height in rows.
func (s *terminalScratch) measure(markdown string, cols int) paginate.Metrics {
	images := structure.FindImages(markdown)
	text := markdown
	if len(images) > 0 {
		b := make([]byte, 0, len(markdown))
		prev := 0
		for _, img := range images {
			b = append(b, markdown[prev:img.Start]...)
			prev = img.End
		}
		text = string(append(b, markdown[prev:]...))
	}
	rendered := lipgloss.NewStyle().Width(cols).Render(text)
	return paginate.Metrics{
		Height:     float64(lipgloss.Height(rendered) + len(images)*s.imageRows),
		ImageCount: len(images),
		WordCount:  paginate.CountWords(markdown),
	}
}

func (s *terminalScratch) Release() {
	if s.memo == nil {
		return
	}
	s.log.Debug("Released measurement area", zap.Int("entries", s.memo.ItemCount()), zap.Int("hits", s.hits))
	s.memo.Flush()
	s.memo = nil
}
