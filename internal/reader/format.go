package reader

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Format converts a file into markdown-dialect text. Offsets reported for the
// text refer to the converted text, for markdown that is the file itself.
type Format interface {
	Name() string
	Extensions() []string
	Extract(filename string, log *zap.Logger) (string, error)
}

// formats maps a lower case extension to its reader.
var formats = map[string]Format{}

// Register makes f available for its extensions, replacing earlier readers
// of the same extensions.
func Register(f Format) {
	for _, ext := range f.Extensions() {
		formats[strings.ToLower(ext)] = f
	}
}

// FormatOf returns the reader for filename. Unknown extensions are read as
// plain text.
func FormatOf(filename string) Format {
	if f, ok := formats[strings.ToLower(filepath.Ext(filename))]; ok {
		return f
	}
	return plainText
}

// ExtractText reads filename with the reader of its format. A nil log
// discards conversion diagnostics.
func ExtractText(filename string, log *zap.Logger) (string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	f := FormatOf(filename)
	text, err := f.Extract(filename, log)
	if err != nil {
		return "", fmt.Errorf("unable to read %s document: %w", f.Name(), err)
	}
	return text, nil
}

// SupportedFormats lists registered formats as "Name (.ext, ...)", sorted by
// name.
func SupportedFormats() []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range formats {
		if seen[f.Name()] {
			continue
		}
		seen[f.Name()] = true
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	slices.Sort(out)
	return out
}
