package reader

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

const byteOrderMark = "\ufeff"

// TextFormat reads markdown and plain text files verbatim, so offsets match
// the file. Only a leading byte order mark is dropped.
type TextFormat struct {
	name       string
	extensions []string
}

var plainText = &TextFormat{name: "Text", extensions: []string{".txt"}}

func init() {
	Register(&TextFormat{name: "Markdown", extensions: []string{".md", ".markdown"}})
	Register(plainText)
}

func (f *TextFormat) Name() string         { return f.name }
func (f *TextFormat) Extensions() []string { return f.extensions }

func (f *TextFormat) Extract(filename string, _ *zap.Logger) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(string(data), byteOrderMark), nil
}
