package reader

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
)

const ncxMediaType = "application/x-dtbncx+xml"

// ncx is the part of toc.ncx read here: the nested navigation points.
type ncx struct {
	Points []navPoint `xml:"navMap>navPoint"`
}

type navPoint struct {
	Label    string     `xml:"navLabel>text"`
	Content  navContent `xml:"content"`
	Children []navPoint `xml:"navPoint"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}

// navTitle is a navigation map label and its nesting depth.
type navTitle struct {
	title string
	depth int
}

var errNoNCX = errors.New("no navigation map in manifest")

// navTitles returns the navigation map labels of book keyed by document
// href, with and without fragment, and by base name. The first point naming
// a document wins. The titles are empty when the map is missing or cannot
// be decoded.
func navTitles(book *epub.Rootfile) (map[string]navTitle, error) {
	data, err := readNCX(book)
	if err != nil {
		return map[string]navTitle{}, err
	}
	return decodeNavMap(data)
}

func decodeNavMap(data []byte) (map[string]navTitle, error) {
	titles := make(map[string]navTitle)

	var toc ncx
	if err := xml.Unmarshal(data, &toc); err != nil {
		return titles, fmt.Errorf("unable to decode navigation map: %w", err)
	}

	add := func(href string, t navTitle) {
		if _, ok := titles[href]; !ok {
			titles[href] = t
		}
	}
	var walk func(points []navPoint, depth int)
	walk = func(points []navPoint, depth int) {
		for _, p := range points {
			if t := (navTitle{title: strings.Join(strings.Fields(p.Label), " "), depth: depth}); t.title != "" {
				doc, _, _ := strings.Cut(p.Content.Src, "#")
				add(p.Content.Src, t)
				add(doc, t)
				add(path.Base(doc), t)
			}
			walk(p.Children, depth+1)
		}
	}
	walk(toc.Points, 0)
	return titles, nil
}

// readNCX reads the navigation map named by the manifest, by media type or
// by extension.
func readNCX(book *epub.Rootfile) ([]byte, error) {
	for i := range book.Manifest.Items {
		item := &book.Manifest.Items[i]
		if item.MediaType != ncxMediaType && !strings.EqualFold(path.Ext(item.HREF), ".ncx") {
			continue
		}
		r, err := item.Open()
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}
	return nil, errNoNCX
}
