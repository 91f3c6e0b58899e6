package reader

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EPUBFormat implements Format for EPUB files. Spine documents are converted
// to markdown-dialect text: h1-h6 become "#" headings, images become image
// links, block elements become paragraphs.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }
func (f *EPUBFormat) Extract(filename string, log *zap.Logger) (string, error) {
	return ExtractMarkdownFromEPUB(filename, log)
}

// ExtractMarkdownFromEPUB converts the spine of an EPUB file to markdown. A
// spine document without a heading of its own gets one from the navigation
// map when the map names it.
func ExtractMarkdownFromEPUB(filename string, log *zap.Logger) (string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return "", fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return "", fmt.Errorf("no rootfiles found in epub")
	}

	book := rc.Rootfiles[0]
	titles, err := navTitles(book)
	if err != nil {
		log.Debug("EPUB navigation map not used", zap.String("file", filename), zap.Error(err))
	}

	var parts []string
	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			continue
		}

		blocks := extractMarkdownFromHTML(string(data))
		if len(blocks) == 0 {
			continue
		}
		if !strings.HasPrefix(blocks[0], "#") {
			if t, ok := lookupTitle(titles, ref.Item.HREF); ok {
				blocks = append([]string{strings.Repeat("#", min(t.depth+1, 6)) + " " + t.title}, blocks...)
			}
		}
		parts = append(parts, strings.Join(blocks, "\n\n"))
	}

	return strings.Join(parts, "\n\n"), nil
}

func lookupTitle(titles map[string]navTitle, href string) (navTitle, bool) {
	if href == "" {
		return navTitle{}, false
	}
	if t, ok := titles[href]; ok {
		return t, true
	}
	t, ok := titles[path.Base(href)]
	return t, ok
}

// blockElements end the paragraph they appear in.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Blockquote: true,
	atom.Br: true, atom.Tr: true, atom.Section: true, atom.Article: true,
	atom.Pre: true, atom.Hr: true, atom.Dd: true, atom.Dt: true,
	atom.Figure: true, atom.Figcaption: true, atom.Table: true,
}

var altCleaner = strings.NewReplacer("[", "", "]", "")

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// extractMarkdownFromHTML returns the markdown blocks of an XHTML document,
// one paragraph or heading each.
func extractMarkdownFromHTML(s string) []string {
	root, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return nil
	}

	var (
		blocks []string
		cur    strings.Builder
	)
	flush := func() string {
		text := strings.Join(strings.Fields(cur.String()), " ")
		cur.Reset()
		return text
	}
	paragraph := func() {
		if text := flush(); text != "" {
			blocks = append(blocks, text)
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Head, atom.Script, atom.Style:
				return
			case atom.Img, atom.Image:
				if src := attr(n, "src", "href", "xlink:href"); src != "" {
					alt := strings.Join(strings.Fields(altCleaner.Replace(attr(n, "alt"))), " ")
					cur.WriteString(" ![" + alt + "](" + strings.ReplaceAll(src, " ", "%20") + ") ")
				}
				return
			}
			if level, ok := headingLevels[n.DataAtom]; ok {
				paragraph()
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				if text := flush(); text != "" {
					blocks = append(blocks, strings.Repeat("#", level)+" "+text)
				}
				return
			}
			if blockElements[n.DataAtom] {
				paragraph()
				defer paragraph()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	paragraph()
	return blocks
}

func attr(n *html.Node, keys ...string) string {
	for _, k := range keys {
		for _, a := range n.Attr {
			if a.Key == k || (a.Namespace != "" && a.Namespace+":"+a.Key == k) {
				return a.Val
			}
		}
	}
	return ""
}
