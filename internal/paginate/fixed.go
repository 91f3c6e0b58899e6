package paginate

import (
	"sort"

	"go.uber.org/zap"

	"github.com/metcalfc/leaf/internal/doc"
	"github.com/metcalfc/leaf/internal/structure"
)

// FixedWords cuts pages by word count. Every image link inside a candidate
// page lowers that page's budget by ImagePenalty words, never below MinWords.
// Zero values select the defaults; a negative ImagePenalty disables the
// penalty.
type FixedWords struct {
	WordsPerPage int
	ImagePenalty int
	MinWords     int
	MaxPages     int
	Log          *zap.Logger
}

func (f *FixedWords) Paginate(text string) []doc.Page {
	var (
		target   = orDefault(f.WordsPerPage, DefaultWordsPerPage)
		penalty  = max(f.ImagePenalty, 0)
		minWords = min(orDefault(f.MinWords, DefaultMinWords), target)
		maxPages = orDefault(f.MaxPages, DefaultMaxPages)
		log      = logger(f.Log)
	)
	if f.ImagePenalty == 0 {
		penalty = DefaultImagePenalty
	}

	words := wordSpans(text)
	if len(words) == 0 {
		return nil
	}
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

		j := min(i+target, len(words))
		if n := imagesWithin(images, words[i].start, words[j-1].end); n > 0 {
			budget := max(target-penalty*n, minWords)
			j = min(i+budget, len(words))
		}
		j = pastImage(words, j, images)

		pages = append(pages, newPage(text, words[i:j], len(pages)))
		i = j
	}

	log.Debug("Paginated by word count",
		zap.Int("pages", len(pages)),
		zap.Int("words", len(words)),
		zap.Int("images", len(images)))
	return pages
}

// imagesWithin counts image links overlapping [start, end).
func imagesWithin(images []structure.Image, start, end int) int {
	n := 0
	for k := sort.Search(len(images), func(k int) bool { return images[k].End > start }); k < len(images) && images[k].Start < end; k++ {
		n++
	}
	return n
}

// pastImage moves a page boundary after words[j-1] so that it does not fall
// inside an image link containing spaces.
func pastImage(words []span, j int, images []structure.Image) int {
	for j < len(words) {
		b := words[j-1].end
		k := sort.Search(len(images), func(k int) bool { return images[k].End > b })
		if k == len(images) || images[k].Start >= b {
			return j
		}
		for j < len(words) && words[j-1].end < images[k].End {
			j++
		}
	}
	return j
}
