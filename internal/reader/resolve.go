package reader

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FileResolver resolves image links of a document to loadable locations.
type FileResolver struct {
	// Dir is the directory relative links are resolved against.
	Dir string
}

// NewFileResolver resolves links of the document at docPath. An empty path,
// a document read from stdin, resolves against the working directory.
func NewFileResolver(docPath string) *FileResolver {
	if docPath == "" {
		return &FileResolver{Dir: "."}
	}
	return &FileResolver{Dir: filepath.Dir(docPath)}
}

var errFound = errors.New("found")

// Resolve returns the location of link. Remote URLs are returned unchanged,
// local links must name an existing file. A bare file name not present next
// to the document is searched for below Dir, the way wiki embeds refer to
// attachments by name.
func (r *FileResolver) Resolve(link string) (string, bool) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", false
	}
	if u, err := url.Parse(link); err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return link, true
		case "file":
			link = u.Path
		}
	}
	if unescaped, err := url.PathUnescape(link); err == nil {
		link = unescaped
	}

	candidate := link
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(r.Dir, filepath.FromSlash(link))
	}
	if isFile(candidate) {
		return candidate, true
	}
	if filepath.IsAbs(link) || strings.ContainsAny(link, `/\`) {
		return "", false
	}

	var found string
	_ = filepath.WalkDir(r.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && p != r.Dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if !d.IsDir() && d.Name() == link {
			found = p
			return errFound
		}
		return nil
	})
	return found, found != ""
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}
