package reader

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("plain text", func(t *testing.T) {
		content := "Hello world this is a test."
		path := filepath.Join(tmpDir, "test.txt")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		got, err := ExtractText(path, nil)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("markdown verbatim", func(t *testing.T) {
		content := "# Title\r\n\r\n> [!note]\r\nSome ==TODO: x== content\n"
		path := filepath.Join(tmpDir, "test.md")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		got, err := ExtractText(path, nil)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("markdown byte order mark", func(t *testing.T) {
		path := filepath.Join(tmpDir, "bom.markdown")
		require.NoError(t, os.WriteFile(path, []byte("\xef\xbb\xbf# Title"), 0644))

		got, err := ExtractText(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "# Title", got)
	})

	t.Run("nonexistent file", func(t *testing.T) {
		_, err := ExtractText(filepath.Join(tmpDir, "nonexistent.txt"), nil)
		assert.Error(t, err)
		_, err = ExtractText(filepath.Join(tmpDir, "nonexistent.md"), nil)
		assert.Error(t, err)
	})

	t.Run("broken epub", func(t *testing.T) {
		path := filepath.Join(tmpDir, "broken.epub")
		require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0644))
		_, err := ExtractText(path, nil)
		assert.ErrorContains(t, err, "EPUB")
	})
}

func TestFormats(t *testing.T) {
	f := &EPUBFormat{}
	assert.Equal(t, "EPUB", f.Name())
	assert.Equal(t, []string{".epub"}, f.Extensions())

	formats := SupportedFormats()
	assert.True(t, slices.Contains(formats, "EPUB (.epub)"), "EPUB not registered: %v", formats)
	assert.True(t, slices.Contains(formats, "Markdown (.md, .markdown)"), "Markdown not registered: %v", formats)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, "Markdown", FormatOf("notes/Book.MD").Name())
	assert.Equal(t, "EPUB", FormatOf("book.epub").Name())
	assert.Equal(t, "Text", FormatOf("README").Name())
	assert.Equal(t, "Text", FormatOf("log.txt").Name())

	formats := SupportedFormats()
	assert.True(t, slices.IsSorted(formats))
	assert.Contains(t, formats, "Text (.txt)")
}
