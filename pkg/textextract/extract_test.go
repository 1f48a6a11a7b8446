package textextract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDOCX(t *testing.T, documentXML string, media map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)

	for name, blob := range media {
		mw, err := zw.Create("word/media/" + name)
		require.NoError(t, err)
		_, err = mw.Write(blob)
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractPages_UnsupportedType(t *testing.T) {
	_, err := ExtractPages("notes.txt", []byte("hello"), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = ExtractPages("archive.zip", []byte{0x50, 0x4b}, Options{})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractPages_DOCX(t *testing.T) {
	t.Run("single page text", func(t *testing.T) {
		data := buildDOCX(t, "<w:document><w:body><w:p><w:t>Hello World</w:t></w:p></w:body></w:document>", nil)
		pages, err := ExtractPages("doc.docx", data, Options{})
		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Equal(t, 1, pages[0].PageNum)
		assert.Equal(t, "Hello World", pages[0].Text)
	})

	t.Run("embedded media carried along", func(t *testing.T) {
		data := buildDOCX(t, "<w:t>with image</w:t>", map[string][]byte{
			"image1.png": {0x89, 0x50, 0x4e, 0x47},
		})
		pages, err := ExtractPages("doc.docx", data, Options{})
		require.NoError(t, err)
		require.Len(t, pages, 1)
		require.Len(t, pages[0].Images, 1)
	})

	t.Run("corrupt bytes produce placeholder page", func(t *testing.T) {
		pages, err := ExtractPages("broken.docx", []byte("not a zip"), Options{})
		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Contains(t, pages[0].Text, "DOCX Content")
		assert.Contains(t, pages[0].Text, "Parse error")
	})
}

func TestExtractPages_PDFScan(t *testing.T) {
	t.Run("single page literals", func(t *testing.T) {
		data := []byte("%PDF-1.4\n<< /Type /Page >>\nstream\nBT (Hello) Tj (World) Tj ET\nendstream")
		pages, err := ExtractPages("doc.pdf", data, Options{})
		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Equal(t, "Hello World", pages[0].Text)
	})

	t.Run("escaped parentheses", func(t *testing.T) {
		data := []byte("%PDF-1.4\n<< /Type /Page >>\nBT (a \\( b) Tj ET")
		pages, err := ExtractPages("doc.pdf", data, Options{})
		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Equal(t, "a ( b", pages[0].Text)
	})

	t.Run("multi page proportional split", func(t *testing.T) {
		data := []byte("%PDF-1.4\n<< /Type /Pages >>\n<< /Type /Page >>\n<< /Type /Page >>\n" +
			"BT (one two) Tj ET\nBT (three four) Tj ET")
		pages, err := ExtractPages("doc.pdf", data, Options{})
		require.NoError(t, err)
		require.Len(t, pages, 2)
		assert.Equal(t, "one two", pages[0].Text)
		assert.Equal(t, "three four", pages[1].Text)
		assert.Equal(t, 1, pages[0].PageNum)
		assert.Equal(t, 2, pages[1].PageNum)
	})

	t.Run("missing header produces placeholder page", func(t *testing.T) {
		pages, err := ExtractPages("bad.pdf", []byte("garbage"), Options{})
		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Contains(t, pages[0].Text, "PDF Content")
		assert.Contains(t, pages[0].Text, "Parse error")
	})

	t.Run("no text objects yields empty page", func(t *testing.T) {
		pages, err := ExtractPages("empty.pdf", []byte("%PDF-1.4\n<< /Type /Page >>"), Options{})
		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Empty(t, pages[0].Text)
	})
}

func TestCountPDFPages(t *testing.T) {
	assert.Equal(t, 1, countPDFPages([]byte("no markers at all")))
	assert.Equal(t, 2, countPDFPages([]byte("/Type /Pages /Type /Page /Type /Page")))
}
