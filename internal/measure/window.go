//go:build gui

package measure

import (
	"math"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/metcalfc/leaf/internal/paginate"
	"github.com/metcalfc/leaf/internal/structure"
)

// headingScale is the text size multiplier of heading levels 1-6.
var headingScale = [...]float32{1, 1.8, 1.5, 1.3, 1.15, 1.05, 1}

// DefaultImageShare is the part of the box height an image takes.
const DefaultImageShare = 0.4

// Window measures markdown with the fonts of the running fyne application.
// Lines are wrapped word by word using fyne.MeasureText, headings are set
// bold and larger, every image takes ImageShare of the box height.
type Window struct {
	ImageShare float64
	Log        *zap.Logger
}

// Acquire returns a measuring area with an empty word width memo.
func (w *Window) Acquire() (paginate.Scratch, error) {
	share := w.ImageShare
	if share <= 0 || share > 1 {
		share = DefaultImageShare
	}
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &windowScratch{
		share: share,
		memo:  gocache.New(gocache.NoExpiration, 0),
		log:   log,
	}, nil
}

type windowScratch struct {
	share float64
	memo  *gocache.Cache
	log   *zap.Logger
}

func (s *windowScratch) Release() {
	if s.memo == nil {
		return
	}
	s.log.Debug("Released measurement area", zap.Int("entries", s.memo.ItemCount()))
	s.memo.Flush()
	s.memo = nil
}

func (s *windowScratch) width(word string, size float32, bold bool) float32 {
	key := strconv.FormatFloat(float64(size), 'f', 2, 32) + ":" + strconv.FormatBool(bold) + ":" + word
	if v, ok := s.memo.Get(key); ok {
		return v.(float32)
	}
	w := fyne.MeasureText(word, size, fyne.TextStyle{Bold: bold}).Width
	s.memo.Set(key, w, gocache.NoExpiration)
	return w
}

func (s *windowScratch) Measure(markdown string, box paginate.Box) (paginate.Metrics, error) {
	if s.memo == nil {
		return paginate.Metrics{}, errReleased
	}
	images := structure.FindImages(markdown)
	text := markdown
	if len(images) > 0 {
		var b strings.Builder
		prev := 0
		for _, img := range images {
			b.WriteString(markdown[prev:img.Start])
			prev = img.End
		}
		b.WriteString(markdown[prev:])
		text = b.String()
	}

	base := float32(box.FontSize)
	lineRatio := box.LineHeight / box.FontSize
	height := 0.0
	for l := range strings.SplitSeq(text, "\n") {
		l = strings.TrimRight(l, "\r")
		size, bold := base, false
		if structure.IsHeadingLine(l) {
			level := 0
			for level < len(l) && l[level] == '#' {
				level++
			}
			size, bold = base*headingScale[min(level, 6)], true
			l = structure.HeadingTitle(l)
		} else if structure.IsMarkerLine(l) {
			l = structure.MarkerTitle(l)
		}
		rows := s.rows(l, float32(box.Width), size, bold)
		height += float64(rows) * float64(size) * lineRatio
	}

	m := paginate.Metrics{
		ImageCount: len(images),
		WordCount:  paginate.CountWords(markdown),
	}
	for range images {
		h := math.Floor(box.Height * s.share)
		m.ImageHeights = append(m.ImageHeights, h)
		height += h
	}
	m.Height = height
	return m, nil
}

// rows returns the wrapped line count of one source line.
func (s *windowScratch) rows(line string, width, size float32, bold bool) int {
	words := strings.Fields(line)
	if len(words) == 0 {
		return 1
	}
	space := s.width(" ", size, bold)
	rows, cur := 1, float32(0)
	for _, w := range words {
		ww := s.width(w, size, bold)
		switch {
		case cur == 0:
			cur = ww
		case cur+space+ww <= width:
			cur += space + ww
		default:
			rows++
			cur = ww
		}
		// a word wider than the box takes several rows
		for cur > width && width > 0 {
			rows++
			cur -= width
		}
	}
	return rows
}
