package document

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-redactor/internal/matcher"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func buildPackage(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func readMember(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(content)
	}
	t.Fatalf("member %s not found", name)
	return ""
}

func wordDoc(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`
}

func newTestMatcher(t *testing.T, terms ...string) *matcher.Matcher {
	t.Helper()
	return matcher.New(terms, "[REDACTED]")
}

func TestDocxRedactsTextSplitAcrossRuns(t *testing.T) {
	body := `<w:p><w:pPr><w:jc w:val="both"/></w:pPr>` +
		`<w:r><w:rPr><w:b/><w:color w:val="FF0000"/></w:rPr><w:t>Dear Jo</w:t></w:r>` +
		`<w:r><w:t>hn Doe,</w:t></w:r></w:p>`
	data := buildPackage(t, map[string]string{
		"word/document.xml": wordDoc(body),
		"word/styles.xml":   "<w:styles/>",
	})

	a := NewDocxAdapter(Options{})
	out, n, err := a.Redact(context.Background(), data, newTestMatcher(t, "John Doe"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NotNil(t, out)

	doc := readMember(t, out, "word/document.xml")
	assert.Contains(t, doc, "Dear [REDACTED],")
	assert.NotContains(t, doc, "John")
	assert.Contains(t, doc, `<w:b/>`, "first run formatting must survive")
	assert.Contains(t, doc, `<w:color w:val="FF0000"/>`)
	assert.Contains(t, doc, `<w:jc w:val="both"/>`, "paragraph properties must survive")
}

func TestDocxUntouchedPartsStayIdentical(t *testing.T) {
	match := `<w:p><w:r><w:t>John Doe was here.</w:t></w:r></w:p>`
	clean := `<w:p><w:r><w:t>Nothing to see.</w:t></w:r></w:p>`
	styles := `<w:styles><w:style w:styleId="Normal"/></w:styles>`
	data := buildPackage(t, map[string]string{
		"word/document.xml": wordDoc(match + clean),
		"word/styles.xml":   styles,
	})

	a := NewDocxAdapter(Options{})
	out, n, err := a.Redact(context.Background(), data, newTestMatcher(t, "John Doe"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, styles, readMember(t, out, "word/styles.xml"))
	assert.Contains(t, readMember(t, out, "word/document.xml"), clean,
		"paragraphs without matches stay byte-identical")
}

func TestDocxRedactsHeadersAndFooters(t *testing.T) {
	header := `<w:hdr ` + wordNS + `><w:p><w:r><w:t>Case of John Doe</w:t></w:r></w:p></w:hdr>`
	footer := `<w:ftr ` + wordNS + `><w:p><w:r><w:t>John Doe, page 1</w:t></w:r></w:p></w:ftr>`
	data := buildPackage(t, map[string]string{
		"word/document.xml": wordDoc(`<w:p><w:r><w:t>Body text.</w:t></w:r></w:p>`),
		"word/header1.xml":  header,
		"word/footer1.xml":  footer,
	})

	a := NewDocxAdapter(Options{})
	out, n, err := a.Redact(context.Background(), data, newTestMatcher(t, "John Doe"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, readMember(t, out, "word/header1.xml"), "Case of [REDACTED]")
	assert.Contains(t, readMember(t, out, "word/footer1.xml"), "[REDACTED], page 1")
}

func TestDocxTableCellParagraphs(t *testing.T) {
	body := `<w:tbl><w:tr><w:tc>` +
		`<w:p><w:r><w:t>Witness: John Doe</w:t></w:r></w:p>` +
		`</w:tc></w:tr></w:tbl>`
	data := buildPackage(t, map[string]string{
		"word/document.xml": wordDoc(body),
	})

	a := NewDocxAdapter(Options{})
	out, n, err := a.Redact(context.Background(), data, newTestMatcher(t, "John Doe"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	doc := readMember(t, out, "word/document.xml")
	assert.Contains(t, doc, "Witness: [REDACTED]")
	assert.Contains(t, doc, "<w:tbl>")
	assert.Contains(t, doc, "</w:tc>")
}

func TestDocxHyperlinkParagraphKeepsStructure(t *testing.T) {
	body := `<w:p><w:hyperlink r:id="rId4">` +
		`<w:r><w:t>Mail John Doe</w:t></w:r>` +
		`</w:hyperlink></w:p>`
	data := buildPackage(t, map[string]string{
		"word/document.xml": wordDoc(body),
	})

	a := NewDocxAdapter(Options{})
	out, n, err := a.Redact(context.Background(), data, newTestMatcher(t, "John Doe"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	doc := readMember(t, out, "word/document.xml")
	assert.Contains(t, doc, `<w:hyperlink r:id="rId4">`, "hyperlink wrapper must survive")
	assert.Contains(t, doc, "Mail [REDACTED]")
}

func TestDocxTextBoxParagraphKeepsNesting(t *testing.T) {
	// a text box nests full paragraphs inside the outer one; rebuilding
	// the outer block would flatten them away
	inner := `<w:p><w:r><w:t>Signed, John Doe</w:t></w:r></w:p>`
	body := `<w:p><w:r><w:t>Before box.</w:t></w:r>` +
		`<w:pict><w:txbxContent>` + inner + `</w:txbxContent></w:pict></w:p>`
	data := buildPackage(t, map[string]string{
		"word/document.xml": wordDoc(body),
	})

	a := NewDocxAdapter(Options{})
	out, n, err := a.Redact(context.Background(), data, newTestMatcher(t, "John Doe"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	doc := readMember(t, out, "word/document.xml")
	assert.Contains(t, doc, "Signed, [REDACTED]")
	assert.Contains(t, doc, "<w:txbxContent>", "text box structure must survive")
	assert.Contains(t, doc, "Before box.")
}

func TestDocxNumericCharacterReferences(t *testing.T) {
	body := `<w:p><w:r><w:t>John Doe&#8217;s estate &#x2014; probate</w:t></w:r></w:p>`
	data := buildPackage(t, map[string]string{
		"word/document.xml": wordDoc(body),
	})

	a := NewDocxAdapter(Options{})
	out, n, err := a.Redact(context.Background(), data, newTestMatcher(t, "John Doe"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	doc := readMember(t, out, "word/document.xml")
	assert.Contains(t, doc, "[REDACTED]’s estate — probate")
	assert.NotContains(t, doc, "&amp;#")
	assert.NotContains(t, doc, "&#8217;")
}

func TestDocxEscapedCharacters(t *testing.T) {
	body := `<w:p><w:r><w:t>Smith &amp; John Doe &lt;partners&gt;</w:t></w:r></w:p>`
	data := buildPackage(t, map[string]string{
		"word/document.xml": wordDoc(body),
	})

	a := NewDocxAdapter(Options{})
	out, n, err := a.Redact(context.Background(), data, newTestMatcher(t, "John Doe"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	doc := readMember(t, out, "word/document.xml")
	assert.Contains(t, doc, "Smith &amp; [REDACTED] &lt;partners&gt;")
}

func TestDocxNoMatchReturnsNil(t *testing.T) {
	data := buildPackage(t, map[string]string{
		"word/document.xml": wordDoc(`<w:p><w:r><w:t>Nobody here.</w:t></w:r></w:p>`),
	})

	a := NewDocxAdapter(Options{})
	out, n, err := a.Redact(context.Background(), data, newTestMatcher(t, "John Doe"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Nil(t, out)
}

func TestDocxRejectsNonZipInput(t *testing.T) {
	a := NewDocxAdapter(Options{})
	_, _, err := a.Redact(context.Background(), []byte("plain text"), newTestMatcher(t, "John Doe"))
	require.Error(t, err)
}
