package textextract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	ledongpdf "github.com/ledongthuc/pdf"
)

// ErrUnsupportedType is returned for anything that is not a PDF or DOCX.
var ErrUnsupportedType = errors.New("unsupported file type")

// Page is one extracted unit of a source document.
type Page struct {
	PageNum int
	Text    string
	Images  [][]byte
}

type Options struct {
	// UseRichPDF gates the heavy PDF library; when off, the lightweight
	// content-stream scan is used directly.
	UseRichPDF bool
}

func SupportedTypes() []string {
	return []string{".pdf", ".docx"}
}

// ExtractPages extracts per-page text (and, for DOCX, embedded images)
// from raw file bytes. Parse failures yield a single placeholder page with
// a diagnostic text instead of an error, so ingestion can still record the
// file; only an unsupported type is an error.
func ExtractPages(filename string, data []byte, opts Options) ([]Page, error) {
	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf":
		return extractPDF(data, opts), nil
	case ".docx":
		return extractDOCX(data), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filename)
	}
}

func placeholderPage(kind string, size int, err error) []Page {
	return []Page{{
		PageNum: 1,
		Text:    fmt.Sprintf("[%s Content - %d bytes - Parse error: %v]", kind, size, err),
	}}
}

// ── PDF ────────────────────────────────────────────────────────────────────

func extractPDF(data []byte, opts Options) []Page {
	if opts.UseRichPDF {
		if pages, err := richPDF(data); err == nil {
			return pages
		}
	}
	pages, err := scanPDF(data)
	if err != nil {
		return placeholderPage("PDF", len(data), err)
	}
	return pages
}

// richPDF enumerates pages with the PDF library and extracts text runs
// joined with single spaces. The library panics on some malformed inputs,
// so the whole pass runs under recover.
func richPDF(data []byte) (pages []Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := ledongpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, Page{PageNum: i, Text: ""})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		pages = append(pages, Page{PageNum: i, Text: collapse(text)})
	}
	if len(pages) == 0 {
		pages = []Page{{PageNum: 1, Text: ""}}
	}
	return pages, nil
}

// scanPDF is the lightweight fallback: it pulls string literals out of
// BT..ET text objects and, when the document has several pages, splits the
// text proportionally across them. Page boundaries are approximate here.
func scanPDF(data []byte) ([]Page, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, errors.New("not a PDF header")
	}

	var sb strings.Builder
	rest := data
	for {
		bt := bytes.Index(rest, []byte("BT"))
		if bt < 0 {
			break
		}
		et := bytes.Index(rest[bt:], []byte("ET"))
		if et < 0 {
			break
		}
		block := rest[bt : bt+et]
		for _, lit := range pdfStringLiterals(block) {
			sb.WriteString(lit)
			sb.WriteByte(' ')
		}
		rest = rest[bt+et+2:]
	}

	text := collapse(sb.String())
	numPages := countPDFPages(data)
	if numPages <= 1 || text == "" {
		return []Page{{PageNum: 1, Text: text}}, nil
	}

	words := strings.Fields(text)
	per := (len(words) + numPages - 1) / numPages
	pages := make([]Page, 0, numPages)
	for i := 0; i < numPages; i++ {
		start := i * per
		if start >= len(words) {
			pages = append(pages, Page{PageNum: i + 1, Text: ""})
			continue
		}
		end := start + per
		if end > len(words) {
			end = len(words)
		}
		pages = append(pages, Page{PageNum: i + 1, Text: strings.Join(words[start:end], " ")})
	}
	return pages, nil
}

// pdfStringLiterals extracts ( ... ) literals from a content-stream block,
// honoring \( \) \\ escapes.
func pdfStringLiterals(block []byte) []string {
	var out []string
	for i := 0; i < len(block); i++ {
		if block[i] != '(' {
			continue
		}
		var lit strings.Builder
		depth := 1
		j := i + 1
		for ; j < len(block) && depth > 0; j++ {
			c := block[j]
			switch {
			case c == '\\' && j+1 < len(block):
				j++
				switch block[j] {
				case 'n':
					lit.WriteByte('\n')
				case 't':
					lit.WriteByte('\t')
				default:
					lit.WriteByte(block[j])
				}
			case c == '(':
				depth++
				lit.WriteByte(c)
			case c == ')':
				depth--
				if depth > 0 {
					lit.WriteByte(c)
				}
			default:
				lit.WriteByte(c)
			}
		}
		if lit.Len() > 0 {
			out = append(out, lit.String())
		}
		i = j - 1
	}
	return out
}

func countPDFPages(data []byte) int {
	// "/Type /Pages" nodes also match the "/Type /Page" prefix.
	n := bytes.Count(data, []byte("/Type /Page")) - bytes.Count(data, []byte("/Type /Pages"))
	if n < 1 {
		n = 1
	}
	return n
}

// ── DOCX ───────────────────────────────────────────────────────────────────

// extractDOCX reads word/document.xml and strips markup; the whole body
// becomes a single page. Embedded media under word/media/ is carried along
// for best-effort captioning.
func extractDOCX(data []byte) []Page {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return placeholderPage("DOCX", len(data), err)
	}

	var text string
	var images [][]byte
	for _, f := range reader.File {
		switch {
		case f.Name == "word/document.xml":
			content, err := readZipFile(f)
			if err != nil {
				return placeholderPage("DOCX", len(data), err)
			}
			text = stripXMLTags(string(content))
		case strings.HasPrefix(f.Name, "word/media/"):
			if blob, err := readZipFile(f); err == nil && len(blob) > 0 {
				images = append(images, blob)
			}
		}
	}

	return []Page{{PageNum: 1, Text: text, Images: images}}
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func stripXMLTags(s string) string {
	var result strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			result.WriteRune(' ')
		case !inTag:
			result.WriteRune(r)
		}
	}
	return collapse(result.String())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
