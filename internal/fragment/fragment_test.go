package fragment

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcalfc/leaf/internal/doc"
	"github.com/metcalfc/leaf/internal/paginate"
	"github.com/metcalfc/leaf/internal/structure"
)

func pagesOf(text string, s paginate.Strategy) []doc.Page {
	m := structure.NewParser(nil, nil).Parse(text)
	return paginate.Attach(s.Paginate(text), m.Headings, m.Annotations)
}

func kinds(fs []doc.Fragment) []doc.FragmentKind {
	out := make([]doc.FragmentKind, len(fs))
	for i, f := range fs {
		out[i] = f.Kind
	}
	return out
}

func texts(fs []doc.Fragment) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Text
	}
	return out
}

// checkCoverage verifies ordering and that every non-whitespace byte of the
// page is covered by exactly one fragment.
func checkCoverage(t *testing.T, text string, page doc.Page, fs []doc.Fragment) {
	t.Helper()
	covered := make([]int, len(text))
	prevEnd := page.Start
	for _, f := range fs {
		require.GreaterOrEqual(t, f.Start, prevEnd, "fragment %+v overlaps", f)
		require.LessOrEqual(t, f.End, page.End)
		require.Less(t, f.Start, f.End)
		for i := f.Start; i < f.End; i++ {
			covered[i]++
		}
		prevEnd = f.End
	}
	for i := page.Start; i < page.End; i++ {
		switch text[i] {
		case ' ', '\t', '\n', '\r':
			assert.LessOrEqual(t, covered[i], 1)
		default:
			assert.Equal(t, 1, covered[i], "byte %d (%q) covered %d times", i, text[i], covered[i])
		}
	}
}

func TestTokenizeEndToEnd(t *testing.T) {
	text := "# Title\n\nBody.\n\n> [!note] Info\n## Sub\nWork ==TODO: fix==."
	pages := pagesOf(text, paginate.Continuous{})
	require.Len(t, pages, 1)

	fs := Collect(pages[0])
	assert.Equal(t, []doc.FragmentKind{
		doc.FragmentHeading,
		doc.FragmentText,
		doc.FragmentText,
		doc.FragmentHeading,
		doc.FragmentText,
		doc.FragmentAnnotation,
		doc.FragmentText,
	}, kinds(fs))
	assert.Equal(t, []string{"Title", "Body.", "Info", "Sub", "Work ", "fix", "."}, texts(fs))

	assert.Equal(t, 0, fs[0].Start)
	assert.Equal(t, strings.Index(text, "Body."), fs[0].End, "heading consumes trailing blank lines")
	assert.Equal(t, 1, fs[0].Heading.Level)
	require.NotNil(t, fs[3].Heading.Marker)
	assert.Equal(t, "note", fs[3].Heading.Marker.Type)
	assert.Equal(t, strings.Index(text, "=="), fs[5].Start)
	assert.Equal(t, "TODO", fs[5].Annotation.Type)
	assert.Equal(t, len(text)-1, fs[6].Start)

	checkCoverage(t, text, pages[0], fs)
}

func TestTokenizeImages(t *testing.T) {
	text := "see ![alt](a.png) and ![[b.png|B]]\n\n![](c.png)"
	pages := pagesOf(text, paginate.Continuous{})
	fs := Collect(pages[0])

	assert.Equal(t, []doc.FragmentKind{
		doc.FragmentText,
		doc.FragmentImage,
		doc.FragmentText,
		doc.FragmentImage,
		doc.FragmentImage,
	}, kinds(fs))
	assert.Equal(t, "alt", fs[1].Alt)
	assert.Equal(t, "a.png", fs[1].Link)
	assert.Equal(t, "B", fs[3].Alt)
	assert.Equal(t, "b.png", fs[3].Link)
	assert.Equal(t, "c.png", fs[4].Link)
	assert.Equal(t, strings.Index(text, "![alt"), fs[1].Start)
	checkCoverage(t, text, pages[0], fs)
}

func TestTokenizeOverlappingAnnotations(t *testing.T) {
	text := "before %% see ==TODO: x== later %% after"
	pages := pagesOf(text, paginate.Continuous{})
	require.Len(t, pages[0].Annotations, 2)

	fs := Collect(pages[0])
	assert.Equal(t, []doc.FragmentKind{doc.FragmentText, doc.FragmentAnnotation, doc.FragmentText}, kinds(fs))
	assert.Equal(t, doc.CommentType, fs[1].Annotation.Type)
	checkCoverage(t, text, pages[0], fs)
}

func TestTokenizeStripsMarkup(t *testing.T) {
	// no attached headings: heading syntax still loses its markup
	page := doc.Page{Content: "## Loose heading\n> [!tip]\nplain", Start: 0, End: 32}
	assert.Equal(t, []string{"Loose heading", "Tip", "plain"}, texts(Collect(page)))
}

func TestTokenizeCRLF(t *testing.T) {
	text := "# A\r\n\r\nline one\r\nline two"
	pages := pagesOf(text, paginate.Continuous{})
	fs := Collect(pages[0])
	assert.Equal(t, []string{"A", "line one", "line two"}, texts(fs))
	assert.Equal(t, strings.Index(text, "line one"), fs[0].End)
	checkCoverage(t, text, pages[0], fs)
}

func TestTokenizeRestartable(t *testing.T) {
	text := "# A\nx ==T: y== z\n![i](p.png)\n## B\nw"
	page := pagesOf(text, paginate.Continuous{})[0]
	seq := Tokenize(page)

	var first, second []doc.Fragment
	for f := range seq {
		first = append(first, f)
	}
	for f := range seq {
		second = append(second, f)
	}
	assert.Equal(t, first, second)

	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestTokenizePagedDocuments(t *testing.T) {
	r := rand.New(rand.NewPCG(17, 19))
	pieces := []string{
		"word", "## Heading here", "# Top", "> [!note] Title", "==TODO: a b==", "%% note %%",
		"![alt text](img.png)", "![[wiki.png]]", "tail.", "%% x ==Y: z== %%",
	}
	seps := []string{" ", "\n", "\n\n", " \n", "\r\n"}
	for n := 0; n < 25; n++ {
		var sb strings.Builder
		for i := r.IntN(400); i > 0; i-- {
			sb.WriteString(pieces[r.IntN(len(pieces))])
			sb.WriteString(seps[r.IntN(len(seps))])
		}
		text := sb.String()
		for _, page := range pagesOf(text, &paginate.FixedWords{WordsPerPage: 10 + r.IntN(60), MinWords: 5}) {
			checkCoverage(t, text, page, Collect(page))
		}
	}
}

func TestTokenizeAnnotatedHeading(t *testing.T) {
	text := "# Title ==TODO: fix== tail\n\nbody"
	pages := pagesOf(text, paginate.Continuous{})
	require.Len(t, pages[0].Headings, 1)
	require.Len(t, pages[0].Annotations, 1)

	fs := Collect(pages[0])
	assert.Equal(t, []doc.FragmentKind{
		doc.FragmentHeading,
		doc.FragmentAnnotation,
		doc.FragmentText,
		doc.FragmentText,
	}, kinds(fs))
	assert.Equal(t, []string{"Title", "fix", " tail", "body"}, texts(fs))
	assert.Equal(t, strings.Index(text, "=="), fs[0].End)
	assert.Equal(t, "Title ==TODO: fix== tail", fs[0].Heading.Text, "the model keeps the full heading text")
	assert.Equal(t, "TODO", fs[1].Annotation.Type)
	checkCoverage(t, text, pages[0], fs)

	text = "## %% only a comment %%\nbody"
	pages = pagesOf(text, paginate.Continuous{})
	fs = Collect(pages[0])
	require.Len(t, fs, 3)
	assert.Equal(t, doc.FragmentHeading, fs[0].Kind)
	assert.Empty(t, fs[0].Text)
	assert.Equal(t, doc.CommentType, fs[1].Annotation.Type)
	checkCoverage(t, text, pages[0], fs)
}
