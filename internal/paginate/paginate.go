// Package paginate partitions a document into pages.
//
// Two strategies share the Strategy contract: FixedWords (the default) cuts
// pages by word count, Adaptive fits each page to a layout box with the help
// of a measurement Oracle. Continuous returns the whole document as a single
// page for the overview mode.
package paginate

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/metcalfc/leaf/internal/doc"
)

// Strategy names accepted by New.
const (
	StrategyFixed      = "fixed"
	StrategyAdaptive   = "adaptive"
	StrategyContinuous = "continuous"
)

// Defaults.
const (
	DefaultWordsPerPage  = 450
	DefaultImagePenalty  = 100
	DefaultMinWords      = 50
	DefaultMaxPages      = 10000
	DefaultMaxIterations = 10
	DefaultFitMinWords   = 10
)

// Strategy partitions text into pages. Pages are ordered, never overlap,
// never split a word and carry their content verbatim. Empty or
// whitespace-only text yields no pages.
type Strategy interface {
	Paginate(text string) []doc.Page
}

// Options selects and tunes a strategy.
type Options struct {
	Strategy string

	// fixed
	WordsPerPage int
	ImagePenalty int
	MinWords     int

	// adaptive
	Layout        Layout
	MaxIterations int
	FitMinWords   int

	MaxPages int
}

// New returns the strategy named by opts. The oracle is only used by the
// adaptive strategy and may be nil.
func New(opts Options, oracle Oracle, log *zap.Logger) (Strategy, error) {
	switch opts.Strategy {
	case "", StrategyFixed:
		return &FixedWords{
			WordsPerPage: opts.WordsPerPage,
			ImagePenalty: opts.ImagePenalty,
			MinWords:     opts.MinWords,
			MaxPages:     opts.MaxPages,
			Log:          log,
		}, nil
	case StrategyAdaptive:
		return &Adaptive{
			Layout:        opts.Layout,
			Oracle:        oracle,
			MaxIterations: opts.MaxIterations,
			MinWords:      opts.FitMinWords,
			MaxPages:      opts.MaxPages,
			Log:           log,
		}, nil
	case StrategyContinuous:
		return Continuous{}, nil
	}
	return nil, fmt.Errorf("unknown pagination strategy %q", opts.Strategy)
}

// span is a word: a maximal run of non-whitespace.
type span struct {
	start int
	end   int
}

func wordSpans(text string) []span {
	var (
		words  []span
		inWord bool
		start  int
	)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			if inWord {
				words = append(words, span{start: start, end: i})
				inWord = false
			}
		} else if !inWord {
			start = i
			inWord = true
		}
		i += size
	}
	if inWord {
		words = append(words, span{start: start, end: len(text)})
	}
	return words
}

// CountWords returns the number of whitespace-delimited words in text.
func CountWords(text string) int {
	return len(wordSpans(text))
}

func newPage(text string, words []span, number int) doc.Page {
	start, end := words[0].start, words[len(words)-1].end
	return doc.Page{
		Content:   text[start:end],
		WordCount: len(words),
		Start:     start,
		End:       end,
		Number:    number,
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func logger(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// Attach returns copies of pages with the headings and annotations whose
// offsets fall inside each page. Inputs must be sorted by offset.
func Attach(pages []doc.Page, headings []doc.Heading, annotations []doc.Annotation) []doc.Page {
	out := make([]doc.Page, len(pages))
	h, a := 0, 0
	for i, p := range pages {
		p.Headings, p.Annotations = nil, nil
		for h < len(headings) && headings[h].Offset < p.Start {
			h++
		}
		for h < len(headings) && headings[h].Offset < p.End {
			p.Headings = append(p.Headings, headings[h])
			h++
		}
		for a < len(annotations) && annotations[a].Offset < p.Start {
			a++
		}
		for a < len(annotations) && annotations[a].Offset < p.End {
			p.Annotations = append(p.Annotations, annotations[a])
			a++
		}
		out[i] = p
	}
	return out
}

// PageAt returns the index of the page containing offset. Offsets between
// pages belong to the following page; offsets past the end to the last one.
func PageAt(pages []doc.Page, offset int) int {
	for i, p := range pages {
		if offset < p.End {
			return i
		}
	}
	return max(len(pages)-1, 0)
}

// Continuous is the overview mode: one page covering every word.
type Continuous struct{}

func (Continuous) Paginate(text string) []doc.Page {
	words := wordSpans(text)
	if len(words) == 0 {
		return nil
	}
	return []doc.Page{newPage(text, words, 0)}
}
