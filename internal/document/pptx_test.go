package document

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const drawNS = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"`

func slideXML(paragraphs string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<p:sld ` + drawNS + `><p:cSld><p:spTree><p:sp><p:txBody>` +
		paragraphs + `</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
}

func TestPptxRedactsTextSplitAcrossRuns(t *testing.T) {
	paras := `<a:p><a:pPr algn="ctr"/>` +
		`<a:r><a:rPr lang="en-US" b="1"/><a:t>Presented by Jo</a:t></a:r>` +
		`<a:r><a:rPr lang="en-US"/><a:t>hn Doe</a:t></a:r>` +
		`<a:endParaRPr lang="en-US"/></a:p>`
	data := buildPackage(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML(paras),
	})

	a := NewPptxAdapter(Options{})
	out, n, err := a.Redact(context.Background(), data, newTestMatcher(t, "John Doe"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	slide := readMember(t, out, "ppt/slides/slide1.xml")
	assert.Contains(t, slide, "Presented by [REDACTED]")
	assert.NotContains(t, slide, "John")
	assert.Contains(t, slide, `<a:rPr lang="en-US" b="1"/>`, "first run properties must survive")
	assert.Contains(t, slide, `<a:pPr algn="ctr"/>`)
	assert.Contains(t, slide, `<a:endParaRPr lang="en-US"/>`)
}

func TestPptxRedactsNotesSlides(t *testing.T) {
	notes := `<?xml version="1.0"?><p:notes ` + drawNS + `>` +
		`<a:p><a:r><a:t>Remind John Doe about the deadline.</a:t></a:r></a:p></p:notes>`
	data := buildPackage(t, map[string]string{
		"ppt/slides/slide1.xml":           slideXML(`<a:p><a:r><a:t>Agenda</a:t></a:r></a:p>`),
		"ppt/notesSlides/notesSlide1.xml": notes,
	})

	a := NewPptxAdapter(Options{})
	out, n, err := a.Redact(context.Background(), data, newTestMatcher(t, "John Doe"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, readMember(t, out, "ppt/notesSlides/notesSlide1.xml"),
		"Remind [REDACTED] about the deadline.")
}

func TestPptxHonorsSlideRange(t *testing.T) {
	mk := func(s string) string { return slideXML(`<a:p><a:r><a:t>` + s + `</a:t></a:r></a:p>`) }
	data := buildPackage(t, map[string]string{
		"ppt/slides/slide1.xml": mk("John Doe opens."),
		"ppt/slides/slide2.xml": mk("John Doe continues."),
		"ppt/slides/slide3.xml": mk("John Doe closes."),
	})

	a := NewPptxAdapter(Options{FirstPage: 2, LastPage: 2})
	out, n, err := a.Redact(context.Background(), data, newTestMatcher(t, "John Doe"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Contains(t, readMember(t, out, "ppt/slides/slide1.xml"), "John Doe opens.")
	assert.Contains(t, readMember(t, out, "ppt/slides/slide2.xml"), "[REDACTED] continues.")
	assert.Contains(t, readMember(t, out, "ppt/slides/slide3.xml"), "John Doe closes.")
}

func TestPptxRedactsTableCells(t *testing.T) {
	tbl := `<?xml version="1.0"?><p:sld ` + drawNS + `><p:cSld><p:spTree>` +
		`<p:graphicFrame><a:graphic><a:graphicData><a:tbl><a:tr><a:tc><a:txBody>` +
		`<a:p><a:r><a:t>Owner: John Doe</a:t></a:r></a:p>` +
		`</a:txBody></a:tc></a:tr></a:tbl></a:graphicData></a:graphic></p:graphicFrame>` +
		`</p:spTree></p:cSld></p:sld>`
	data := buildPackage(t, map[string]string{
		"ppt/slides/slide1.xml": tbl,
	})

	a := NewPptxAdapter(Options{})
	out, n, err := a.Redact(context.Background(), data, newTestMatcher(t, "John Doe"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	slide := readMember(t, out, "ppt/slides/slide1.xml")
	assert.Contains(t, slide, "Owner: [REDACTED]")
	assert.Contains(t, slide, "<a:tbl>")
	assert.Contains(t, slide, "</a:tc>")
}

func TestPptxIgnoresNonSlideParts(t *testing.T) {
	layout := `<p:sldLayout ` + drawNS + `><a:p><a:r><a:t>John Doe template</a:t></a:r></a:p></p:sldLayout>`
	data := buildPackage(t, map[string]string{
		"ppt/slides/slide1.xml":             slideXML(`<a:p><a:r><a:t>John Doe</a:t></a:r></a:p>`),
		"ppt/slideLayouts/slideLayout1.xml": layout,
	})

	a := NewPptxAdapter(Options{})
	out, n, err := a.Redact(context.Background(), data, newTestMatcher(t, "John Doe"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, layout, readMember(t, out, "ppt/slideLayouts/slideLayout1.xml"))
}

func TestPptxNoMatchReturnsNil(t *testing.T) {
	data := buildPackage(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML(`<a:p><a:r><a:t>Quarterly numbers</a:t></a:r></a:p>`),
	})

	a := NewPptxAdapter(Options{})
	out, n, err := a.Redact(context.Background(), data, newTestMatcher(t, "John Doe"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Nil(t, out)
}
