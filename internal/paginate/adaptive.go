package paginate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/metcalfc/leaf/internal/doc"
	"github.com/metcalfc/leaf/internal/structure"
)

// Adaptive fits each page to the layout box. It starts from a font metric
// estimate and binary searches the word count in [MinWords, 2*estimate],
// asking the oracle to measure each candidate. A page for which nothing fits
// within MaxIterations falls back to MinWords words. Like FixedWords, a page
// boundary that would fall inside an image link moves past the link.
//
// Oracle errors and panics are replaced with EstimateHeight, so pagination
// always completes. Without an oracle every measurement is an estimate.
type Adaptive struct {
	Layout        Layout
	Oracle        Oracle
	MaxIterations int
	MinWords      int
	MaxPages      int
	Log           *zap.Logger
}

// fitting is the state of one Paginate call.
type fitting struct {
	text     string
	box      Box
	scratch  Scratch
	log      *zap.Logger
	failures int
	measured int
}

func (a *Adaptive) Paginate(text string) []doc.Page {
	var (
		maxIter  = orDefault(a.MaxIterations, DefaultMaxIterations)
		minWords = orDefault(a.MinWords, DefaultFitMinWords)
		maxPages = orDefault(a.MaxPages, DefaultMaxPages)
		log      = logger(a.Log)
	)

	words := wordSpans(text)
	if len(words) == 0 {
		return nil
	}

	f := &fitting{text: text, box: a.Layout.Box(), log: log}
	if a.Oracle != nil {
		scratch, err := a.Oracle.Acquire()
		if err != nil {
			log.Warn("Unable to acquire measurement area, estimating page heights", zap.Error(err))
		} else {
			f.scratch = scratch
			defer scratch.Release()
		}
	}

	estimate := max(EstimateWords(f.box), minWords)
	images := structure.FindImages(text)

	var pages []doc.Page
	for i := 0; i < len(words); {
		if len(pages) >= maxPages {
			log.Warn("Page limit reached, pagination truncated",
				zap.Int("pages", len(pages)),
				zap.Int("words", len(words)),
				zap.Int("remaining", len(words)-i))
			break
		}
		j := pastImage(words, i+f.fit(words[i:], estimate, minWords, maxIter), images)
		pages = append(pages, newPage(text, words[i:j], len(pages)))
		i = j
	}

	if f.failures > 0 {
		log.Warn("Measurement oracle failed, used estimated heights",
			zap.Int("failures", f.failures),
			zap.Int("measurements", f.measured))
	}
	log.Debug("Paginated by layout",
		zap.Int("pages", len(pages)),
		zap.Int("words", len(words)),
		zap.Int("estimate", estimate),
		zap.Float64("height", f.box.Height))
	return pages
}

// fit returns how many of words go on the next page.
func (f *fitting) fit(words []span, estimate, minWords, maxIter int) int {
	hi := min(2*estimate, len(words))
	lo := min(minWords, hi)
	best := 0
	for iter := 0; iter < maxIter && lo <= hi; iter++ {
		mid := (lo + hi) / 2
		if f.height(words[0].start, words[mid-1].end) <= f.box.Height {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best == 0 {
		best = min(minWords, len(words))
	}
	return best
}

func (f *fitting) height(start, end int) (h float64) {
	markdown := f.text[start:end]
	f.measured++
	if f.scratch == nil {
		return EstimateHeight(markdown, f.box)
	}

	defer func() {
		if r := recover(); r != nil {
			f.failures++
			f.log.Debug("Measurement oracle panicked", zap.String("panic", fmt.Sprint(r)))
			h = EstimateHeight(markdown, f.box)
		}
	}()

	m, err := f.scratch.Measure(markdown, f.box)
	if err != nil {
		f.failures++
		f.log.Debug("Measurement oracle failed", zap.Error(err))
		return EstimateHeight(markdown, f.box)
	}
	return m.Height
}
