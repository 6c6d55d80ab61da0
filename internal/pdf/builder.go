package pdf

import (
	"bytes"
	"fmt"
)

// Builder assembles small single-font documents. It exists for
// fixtures and smoke checks; real inputs come from arbitrary
// producers.
type Builder struct {
	pages [][]string
}

// NewBuilder creates an empty document builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddPage appends a page showing the given lines top to bottom.
func (b *Builder) AddPage(lines ...string) *Builder {
	b.pages = append(b.pages, lines)
	return b
}

// Bytes renders the document. Object layout: catalog, page tree, font,
// then one page and one content stream per page.
func (b *Builder) Bytes() []byte {
	numPages := len(b.pages)
	firstPageObj := 4
	var kids bytes.Buffer
	for i := 0; i < numPages; i++ {
		if i > 0 {
			kids.WriteByte(' ')
		}
		fmt.Fprintf(&kids, "%d 0 R", firstPageObj+2*i)
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), numPages),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	for i, lines := range b.pages {
		content := renderPageContent(lines)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", firstPageObj+2*i+1),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xrefOff := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f\r\n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n\r\n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefOff)
	return buf.Bytes()
}

func renderPageContent(lines []string) string {
	var buf bytes.Buffer
	buf.WriteString("BT\n/F1 12 Tf\n72 720 Td\n")
	for i, line := range lines {
		if i > 0 {
			buf.WriteString("0 -16 Td\n")
		}
		buf.Write(encodeStringLiteral([]byte(line), false))
		buf.WriteString(" Tj\n")
	}
	buf.WriteString("ET")
	return buf.String()
}
