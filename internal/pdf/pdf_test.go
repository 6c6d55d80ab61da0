package pdf

import (
	"bytes"
	"strings"
	"testing"

	ltpdf "github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func parseFixture(t *testing.T, data []byte) *Document {
	t.Helper()
	doc, err := Parse(data, zap.NewNop())
	require.NoError(t, err)
	return doc
}

func TestParseAndExtract(t *testing.T) {
	data := NewBuilder().
		AddPage("Dear John Doe,", "your case has been scheduled.").
		AddPage("Second page body.").
		Bytes()

	doc := parseFixture(t, data)
	assert.Equal(t, 2, doc.PageCount())

	first, err := doc.PageText(1)
	require.NoError(t, err)
	assert.Contains(t, first, "Dear John Doe,")
	assert.Contains(t, first, "your case has been scheduled.")

	second, err := doc.PageText(2)
	require.NoError(t, err)
	assert.Contains(t, second, "Second page body.")
}

func TestRedactRemovesTextPhysically(t *testing.T) {
	data := NewBuilder().
		AddPage("Dear John Doe,", "your case has been scheduled.").
		Bytes()

	doc := parseFixture(t, data)
	n, err := doc.Redact([]string{"John Doe"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var buf bytes.Buffer
	require.NoError(t, doc.Write(&buf))

	out := parseFixture(t, buf.Bytes())
	text, err := out.Text()
	require.NoError(t, err)
	assert.NotContains(t, strings.ToLower(text), "john")
	assert.NotContains(t, strings.ToLower(text), "doe")
	assert.Contains(t, text, "Dear")
	assert.Contains(t, text, "your case has been scheduled.")

	content, err := out.pageContent(out.pages[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "re", "blackout rectangle ops missing")
	assert.Contains(t, string(content), "0 g")
}

func TestRedactIsCaseInsensitiveAndWholeWord(t *testing.T) {
	data := NewBuilder().
		AddPage("Johnson spoke, then JOHN DOE left.").
		Bytes()

	doc := parseFixture(t, data)
	n, err := doc.Redact([]string{"John Doe", "John"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var buf bytes.Buffer
	require.NoError(t, doc.Write(&buf))
	text, err := parseFixture(t, buf.Bytes()).Text()
	require.NoError(t, err)
	assert.Contains(t, text, "Johnson")
	assert.NotContains(t, text, "JOHN")
	assert.NotContains(t, text, "DOE")
}

func TestRedactHonorsPageRange(t *testing.T) {
	data := NewBuilder().
		AddPage("John Doe on page one.").
		AddPage("John Doe on page two.").
		Bytes()

	doc := parseFixture(t, data)
	n, err := doc.Redact([]string{"John Doe"}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var buf bytes.Buffer
	require.NoError(t, doc.Write(&buf))
	out := parseFixture(t, buf.Bytes())

	first, err := out.PageText(1)
	require.NoError(t, err)
	assert.Contains(t, first, "John Doe")

	second, err := out.PageText(2)
	require.NoError(t, err)
	assert.NotContains(t, second, "John")
}

func TestRedactCountsAllOccurrences(t *testing.T) {
	data := NewBuilder().
		AddPage("John Doe met John Doe.", "Then John Doe left.").
		Bytes()

	doc := parseFixture(t, data)
	n, err := doc.Redact([]string{"John Doe"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRedactNoMatch(t *testing.T) {
	data := NewBuilder().AddPage("Nothing sensitive here.").Bytes()

	doc := parseFixture(t, data)
	n, err := doc.Redact([]string{"John Doe"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRedactKeepsSurroundingEscapes(t *testing.T) {
	data := NewBuilder().
		AddPage(`Call (John Doe) at the office \ today.`).
		Bytes()

	doc := parseFixture(t, data)
	n, err := doc.Redact([]string{"John Doe"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var buf bytes.Buffer
	require.NoError(t, doc.Write(&buf))
	text, err := parseFixture(t, buf.Bytes()).Text()
	require.NoError(t, err)
	assert.Contains(t, text, "Call (")
	assert.Contains(t, text, `office \ today.`)
	assert.NotContains(t, text, "John")
}

func TestParseRejectsEncrypted(t *testing.T) {
	data := NewBuilder().AddPage("body").Bytes()
	data = bytes.Replace(data,
		[]byte("/Root 1 0 R"),
		[]byte("/Root 1 0 R /Encrypt 3 0 R"), 1)

	_, err := Parse(data, zap.NewNop())
	require.ErrorIs(t, err, ErrEncrypted)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("this is not a PDF"), zap.NewNop())
	require.Error(t, err)
}

// Independent check with a second implementation: the redacted output
// must yield no trace of the removed name through ledongthuc/pdf
// either.
func TestRedactedOutputVerifiedByExternalReader(t *testing.T) {
	data := NewBuilder().
		AddPage("Dear John Doe,", "your case has been scheduled.").
		Bytes()

	doc := parseFixture(t, data)
	n, err := doc.Redact([]string{"John Doe"}, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var buf bytes.Buffer
	require.NoError(t, doc.Write(&buf))
	out := buf.Bytes()

	reader, err := ltpdf.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, item := range page.Content().Text {
			b.WriteString(item.S)
		}
	}
	extracted := strings.ToLower(b.String())
	assert.NotContains(t, extracted, "john")
	assert.NotContains(t, extracted, "doe")
	assert.Contains(t, extracted, "scheduled")
}
