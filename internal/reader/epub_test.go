package reader

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/metcalfc/leaf/internal/structure"
)

func TestExtractMarkdownFromHTML(t *testing.T) {
	htmlContent := `
	<html>
		<head><title>Test</title><style>p { color: red }</style></head>
		<body>
			<h1>Chapter   1</h1>
			<p>This is the <b>fi</b>rst paragraph.</p>
			<p>
				This is the second paragraph
				with a newline.
			</p>
			<div>Some <span>nested</span> text.<br/>After break.</div>
			<h3>Deep <em>heading</em></h3>
			<p>See <img src="images/a b.png" alt="a [fig]"/> here.</p>
			<h2></h2>
		</body>
	</html>
	`

	blocks := extractMarkdownFromHTML(htmlContent)
	assert.Equal(t, []string{
		"# Chapter 1",
		"This is the first paragraph.",
		"This is the second paragraph with a newline.",
		"Some nested text.",
		"After break.",
		"### Deep heading",
		"See ![a fig](images/a%20b.png) here.",
	}, blocks)
}

func TestExtractMarkdownImagesParse(t *testing.T) {
	blocks := extractMarkdownFromHTML(`<p><img src="x y.png" alt="one ] two"/></p>`)
	require.Len(t, blocks, 1)
	imgs := structure.FindImages(blocks[0])
	require.Len(t, imgs, 1)
	assert.Equal(t, "x%20y.png", imgs[0].Link)
	assert.Equal(t, "one two", imgs[0].Alt)
}

func writeEPUB(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.epub")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write([]byte("application/epub+zip"))
	require.NoError(t, err)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

const (
	containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

	contentOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Sample</dc:title>
    <dc:identifier id="id">sample</dc:identifier>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="c1" href="text/c1.xhtml" media-type="application/xhtml+xml"/>
    <item id="c2" href="text/c2.xhtml" media-type="application/xhtml+xml"/>
    <item id="c3" href="text/c3.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="c1"/>
    <itemref idref="c2"/>
    <itemref idref="c3"/>
  </spine>
</package>`

	tocNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="n1" playOrder="1">
      <navLabel><text>Part One</text></navLabel>
      <content src="text/c1.xhtml"/>
      <navPoint id="n2" playOrder="2">
        <navLabel><text>Untitled   Chapter</text></navLabel>
        <content src="text/c2.xhtml#start"/>
      </navPoint>
    </navPoint>
  </navMap>
</ncx>`
)

func TestExtractMarkdownFromEPUB(t *testing.T) {
	path := writeEPUB(t, map[string]string{
		"META-INF/container.xml": containerXML,
		"OEBPS/content.opf":      contentOPF,
		"OEBPS/toc.ncx":          tocNCX,
		"OEBPS/text/c1.xhtml":    `<html><body><h1>Opening</h1><p>First words.</p></body></html>`,
		"OEBPS/text/c2.xhtml":    `<html><body><p>No heading here.</p></body></html>`,
		"OEBPS/text/c3.xhtml":    `<html><body><p>Not in the map.</p></body></html>`,
	})

	text, err := ExtractText(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "# Opening\n\nFirst words.\n\n## Untitled Chapter\n\nNo heading here.\n\nNot in the map.", text)

	headings := structure.NewParser(nil, nil).ParseHeadings(text)
	require.Len(t, headings, 2)
	assert.Equal(t, 2, headings[1].Level)
}

func TestDecodeNavMap(t *testing.T) {
	titles, err := decodeNavMap([]byte(tocNCX))
	require.NoError(t, err)

	assert.Equal(t, navTitle{title: "Part One", depth: 0}, titles["text/c1.xhtml"])
	assert.Equal(t, navTitle{title: "Untitled Chapter", depth: 1}, titles["text/c2.xhtml#start"])
	assert.Equal(t, navTitle{title: "Untitled Chapter", depth: 1}, titles["text/c2.xhtml"])
	assert.Equal(t, navTitle{title: "Untitled Chapter", depth: 1}, titles["c2.xhtml"])

	t.Run("malformed", func(t *testing.T) {
		titles, err := decodeNavMap([]byte("<ncx><navMap>"))
		assert.ErrorContains(t, err, "navigation map")
		assert.Empty(t, titles)
	})
}

func TestExtractMarkdownFromEPUBBrokenNavMap(t *testing.T) {
	path := writeEPUB(t, map[string]string{
		"META-INF/container.xml": containerXML,
		"OEBPS/content.opf":      contentOPF,
		"OEBPS/toc.ncx":          "<ncx><navMap>",
		"OEBPS/text/c1.xhtml":    `<html><body><h1>Opening</h1></body></html>`,
		"OEBPS/text/c2.xhtml":    `<html><body><p>No heading here.</p></body></html>`,
		"OEBPS/text/c3.xhtml":    `<html><body></body></html>`,
	})

	core, logs := observer.New(zapcore.DebugLevel)
	text, err := ExtractText(path, zap.New(core))
	require.NoError(t, err, "a broken navigation map is not fatal")
	assert.Equal(t, "# Opening\n\nNo heading here.", text)
	assert.Equal(t, 1, logs.FilterMessage("EPUB navigation map not used").Len())
}
