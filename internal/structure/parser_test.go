package structure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcalfc/leaf/internal/doc"
)

type mapColors map[string]string

func (m mapColors) ColorOf(name string) string {
	if c, ok := m[name]; ok {
		return c
	}
	return "fallback"
}

func TestParseHeadings(t *testing.T) {
	p := NewParser(nil, nil)

	t.Run("levels and text", func(t *testing.T) {
		text := "# One\ntext\n## Two  \n###Three\n####### Seven\n###### Six\n#\n# \n"
		hs := p.ParseHeadings(text)
		require.Len(t, hs, 3)
		assert.Equal(t, 1, hs[0].Level)
		assert.Equal(t, "One", hs[0].Text)
		assert.Equal(t, 0, hs[0].Offset)
		assert.Equal(t, 2, hs[1].Level)
		assert.Equal(t, "Two", hs[1].Text)
		assert.Equal(t, strings.Index(text, "## Two"), hs[1].Offset)
		assert.Equal(t, 6, hs[2].Level)
		assert.Equal(t, "Six", hs[2].Text)
	})

	t.Run("crlf line endings", func(t *testing.T) {
		hs := p.ParseHeadings("# A\r\nbody\r\n## B\r\n")
		require.Len(t, hs, 2)
		assert.Equal(t, "A", hs[0].Text)
		assert.Equal(t, "B", hs[1].Text)
		assert.Equal(t, 11, hs[1].Offset)
	})

	t.Run("heading must start the line", func(t *testing.T) {
		assert.Empty(t, p.ParseHeadings("  # indented\ntext # not heading\n"))
	})

	t.Run("offsets strictly increasing", func(t *testing.T) {
		hs := p.ParseHeadings("# a\n# b\n## c\n# d\n")
		for i := 1; i < len(hs); i++ {
			assert.Greater(t, hs[i].Offset, hs[i-1].Offset)
		}
	})
}

func TestParseHeadingsMarkers(t *testing.T) {
	p := NewParser(mapColors{"note": "#0000ff"}, nil)

	t.Run("zero gap", func(t *testing.T) {
		text := "# Title\n> [!note] Info\nbody\n"
		hs := p.ParseHeadings(text)
		require.Len(t, hs, 1)
		require.NotNil(t, hs[0].Marker)
		assert.Equal(t, "note", hs[0].Marker.Type)
		assert.Equal(t, "Info", hs[0].Marker.Title)
		assert.Equal(t, "#0000ff", hs[0].Marker.Color)
		assert.Equal(t, strings.Index(text, ">"), hs[0].Marker.Offset)
	})

	t.Run("one blank line", func(t *testing.T) {
		hs := p.ParseHeadings("# Title\n\n> [!note] Info\nbody\n")
		require.Len(t, hs, 1)
		require.NotNil(t, hs[0].Marker)
		assert.Equal(t, "Info", hs[0].Marker.Title)
	})

	t.Run("several blank lines", func(t *testing.T) {
		hs := p.ParseHeadings("# Title\n\n  \n\n> [!tip]\n")
		require.Len(t, hs, 1)
		require.NotNil(t, hs[0].Marker)
		assert.Equal(t, "Tip", hs[0].Marker.Title)
		assert.Equal(t, "fallback", hs[0].Marker.Color)
	})

	t.Run("content line in between", func(t *testing.T) {
		hs := p.ParseHeadings("# Title\nbody\n> [!note] Info\nmore\n")
		require.Len(t, hs, 1)
		assert.Nil(t, hs[0].Marker)
	})

	t.Run("fold indicator", func(t *testing.T) {
		hs := p.ParseHeadings("## T\n> [!warning]- Careful now\n")
		require.NotNil(t, hs[0].Marker)
		assert.Equal(t, "warning", hs[0].Marker.Type)
		assert.Equal(t, "-", hs[0].Marker.Folded)
		assert.Equal(t, "Careful now", hs[0].Marker.Title)
	})

	t.Run("marker directly above heading", func(t *testing.T) {
		hs := p.ParseHeadings("intro\n> [!note] Info\n## Sub\n")
		require.Len(t, hs, 1)
		require.NotNil(t, hs[0].Marker)
		assert.Equal(t, "Info", hs[0].Marker.Title)
	})

	t.Run("marker claimed by preceding heading", func(t *testing.T) {
		hs := p.ParseHeadings("# A\n> [!note] Info\n## B\n")
		require.Len(t, hs, 2)
		require.NotNil(t, hs[0].Marker)
		assert.Nil(t, hs[1].Marker)
	})

	t.Run("next heading is content", func(t *testing.T) {
		hs := p.ParseHeadings("# A\n## B\n> [!note]\n")
		require.Len(t, hs, 2)
		assert.Nil(t, hs[0].Marker)
		require.NotNil(t, hs[1].Marker)
	})

	t.Run("plain blockquote", func(t *testing.T) {
		hs := p.ParseHeadings("# A\n> just a quote\n")
		assert.Nil(t, hs[0].Marker)
	})
}

func TestParseAnnotations(t *testing.T) {
	p := NewParser(mapColors{"TODO": "#ff0000", doc.CommentType: "#999999"}, nil)

	t.Run("flag", func(t *testing.T) {
		as := p.ParseAnnotations("==TODO: Buy milk==")
		require.Len(t, as, 1)
		assert.Equal(t, "TODO", as[0].Type)
		assert.Equal(t, "Buy milk", as[0].Message)
		assert.Equal(t, 0, as[0].Offset)
		assert.Equal(t, len("==TODO: Buy milk=="), as[0].End)
		assert.Equal(t, "#ff0000", as[0].Color)
	})

	t.Run("pipe kept whole", func(t *testing.T) {
		as := p.ParseAnnotations("==TODO: short | long form==")
		require.Len(t, as, 1)
		assert.Equal(t, "short | long form", as[0].Message)
		assert.Equal(t, "short", as[0].ShortMessage())
		assert.Equal(t, "long form", as[0].LongMessage())
	})

	t.Run("comment", func(t *testing.T) {
		as := p.ParseAnnotations("%% just a note %%")
		require.Len(t, as, 1)
		assert.Equal(t, doc.CommentType, as[0].Type)
		assert.Equal(t, "just a note", as[0].Message)
		assert.Equal(t, "#999999", as[0].Color)
	})

	t.Run("inert markup", func(t *testing.T) {
		for _, text := range []string{
			"==3x: oops==",
			"==TODO: unterminated",
			"%% unterminated",
			"==TODO missing colon==",
			"==" + strings.Repeat("A", MaxTypeLength+1) + ": too long==",
			"==TODO: split\nacross lines==",
			"%%   %%",
		} {
			assert.Empty(t, p.ParseAnnotations(text), text)
		}
	})

	t.Run("type length cap", func(t *testing.T) {
		typ := "A" + strings.Repeat("b", MaxTypeLength-1)
		as := p.ParseAnnotations("==" + typ + ": ok==")
		require.Len(t, as, 1)
		assert.Equal(t, typ, as[0].Type)
	})

	t.Run("merged by offset with line text", func(t *testing.T) {
		text := "first %% c1 %% then\nsecond ==FIXME: f1== and ==TODO: t1==\n"
		as := p.ParseAnnotations(text)
		require.Len(t, as, 3)
		assert.Equal(t, []string{doc.CommentType, "FIXME", "TODO"}, []string{as[0].Type, as[1].Type, as[2].Type})
		assert.Equal(t, "first %% c1 %% then", as[0].LineText)
		assert.Equal(t, "second ==FIXME: f1== and ==TODO: t1==", as[2].LineText)
		for i := 1; i < len(as); i++ {
			assert.LessOrEqual(t, as[i-1].Offset, as[i].Offset)
		}
	})

	t.Run("flag inside comment matches both", func(t *testing.T) {
		text := "%% see ==TODO: x== later %%"
		as := p.ParseAnnotations(text)
		require.Len(t, as, 2)
		assert.Equal(t, doc.CommentType, as[0].Type)
		assert.Equal(t, "see ==TODO: x== later", as[0].Message)
		assert.Equal(t, "TODO", as[1].Type)
		assert.Equal(t, "x", as[1].Message)
		assert.Greater(t, as[1].Offset, as[0].Offset)
		assert.Less(t, as[1].End, as[0].End)
	})

	t.Run("independent calls", func(t *testing.T) {
		a := p.ParseAnnotations("==A: one== ==B: two==")
		b := p.ParseAnnotations("==A: one== ==B: two==")
		assert.Equal(t, a, b)
	})
}

func TestParseEndToEnd(t *testing.T) {
	text := "# Title\n\nBody.\n\n> [!note] Info\n## Sub\nWork ==TODO: fix==."
	m := NewParser(nil, nil).Parse(text)

	require.Len(t, m.Headings, 2)
	assert.Equal(t, 1, m.Headings[0].Level)
	assert.Equal(t, "Title", m.Headings[0].Text)
	assert.Nil(t, m.Headings[0].Marker)

	assert.Equal(t, 2, m.Headings[1].Level)
	assert.Equal(t, "Sub", m.Headings[1].Text)
	require.NotNil(t, m.Headings[1].Marker)
	assert.Equal(t, "note", m.Headings[1].Marker.Type)
	assert.Equal(t, "Info", m.Headings[1].Marker.Title)

	require.Len(t, m.Annotations, 1)
	assert.Equal(t, "TODO", m.Annotations[0].Type)
	assert.Equal(t, "fix", m.Annotations[0].Message)

	assert.Empty(t, m.Stacks[m.Headings[0].Offset])
	assert.Equal(t, []doc.StackEntry{{Type: "note", Color: FallbackColor}}, m.Stacks[m.Headings[1].Offset])
}

func TestLineHelpers(t *testing.T) {
	assert.True(t, IsHeadingLine("## x"))
	assert.False(t, IsHeadingLine("##x"))
	assert.True(t, IsMarkerLine("> [!note] x"))
	assert.Equal(t, "x", HeadingTitle("## x"))
	assert.Equal(t, "plain", HeadingTitle("plain"))
	assert.Equal(t, "Info", MarkerTitle("> [!note]+ Info"))
	assert.Equal(t, "Note", MarkerTitle("> [!note]"))
	assert.Equal(t, "> quote", MarkerTitle("> quote"))
}
