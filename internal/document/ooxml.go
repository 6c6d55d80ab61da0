package document

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-redactor/internal/matcher"
)

// ooxmlDialect captures the element names of one OOXML text dialect:
// WordprocessingML (w:) for DOCX, DrawingML (a:) for PPTX. The
// rewriter works on raw part bytes so untouched paragraphs stay
// byte-identical.
type ooxmlDialect struct {
	name      string
	paragraph *regexp.Regexp
	openTag   *regexp.Regexp
	run       *regexp.Regexp
	runProps  *regexp.Regexp
	paraProps *regexp.Regexp
	text      *regexp.Regexp
	endProps  *regexp.Regexp // DrawingML a:endParaRPr; nil for WordprocessingML
	nested    *regexp.Regexp

	// fallbackMarks lists elements whose presence makes a clear-and-
	// rebuild unsafe (tabs, breaks, drawings, fields, hyperlinks);
	// such paragraphs get in-place per-run replacement instead.
	fallbackMarks []string

	closeTag  string
	runOpen   string
	runClose  string
	textOpen  string
	textClose string
}

var wordDialect = &ooxmlDialect{
	name:      "wordprocessingml",
	paragraph: regexp.MustCompile(`(?s)<w:p(?:\s[^>]*)?>.*?</w:p>`),
	openTag:   regexp.MustCompile(`^<w:p(?:\s[^>]*)?>`),
	run:       regexp.MustCompile(`(?s)<w:r(?:\s[^>]*)?>.*?</w:r>`),
	runProps:  regexp.MustCompile(`(?s)<w:rPr(?:\s[^>]*)?(?:/>|>.*?</w:rPr>)`),
	paraProps: regexp.MustCompile(`(?s)<w:pPr(?:\s[^>]*)?(?:/>|>.*?</w:pPr>)`),
	text:      regexp.MustCompile(`(?s)<w:t(?:\s[^>]*)?>(.*?)</w:t>`),
	nested:    regexp.MustCompile(`<w:p[\s>]`),
	fallbackMarks: []string{
		"<w:tab", "<w:br", "<w:drawing", "<w:pict", "<w:object",
		"<w:hyperlink", "<w:fldChar", "<w:instrText",
	},
	closeTag:  "</w:p>",
	runOpen:   "<w:r>",
	runClose:  "</w:r>",
	textOpen:  `<w:t xml:space="preserve">`,
	textClose: "</w:t>",
}

var drawingDialect = &ooxmlDialect{
	name:      "drawingml",
	paragraph: regexp.MustCompile(`(?s)<a:p(?:\s[^>]*)?>.*?</a:p>`),
	openTag:   regexp.MustCompile(`^<a:p(?:\s[^>]*)?>`),
	run:       regexp.MustCompile(`(?s)<a:r(?:\s[^>]*)?>.*?</a:r>`),
	runProps:  regexp.MustCompile(`(?s)<a:rPr(?:\s[^>]*)?(?:/>|>.*?</a:rPr>)`),
	paraProps: regexp.MustCompile(`(?s)<a:pPr(?:\s[^>]*)?(?:/>|>.*?</a:pPr>)`),
	text:      regexp.MustCompile(`(?s)<a:t(?:\s[^>]*)?>(.*?)</a:t>`),
	endProps:  regexp.MustCompile(`(?s)<a:endParaRPr(?:\s[^>]*)?(?:/>|>.*?</a:endParaRPr>)`),
	nested:    regexp.MustCompile(`<a:p[\s>]`),
	fallbackMarks: []string{
		"<a:br", "<a:fld",
	},
	closeTag:  "</a:p>",
	runOpen:   "<a:r>",
	runClose:  "</a:r>",
	textOpen:  "<a:t>",
	textClose: "</a:t>",
}

var (
	xmlEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;",
	)
	charRef = regexp.MustCompile(`&(?:amp|lt|gt|quot|apos|#[0-9]+|#[xX][0-9a-fA-F]+);`)
)

// unescapeXML decodes the five predefined XML entities plus numeric
// character references, which many OOXML producers emit for characters
// like curly quotes. Decoded runes pass back through xmlEscaper on
// rebuild as literal UTF-8.
func unescapeXML(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return charRef.ReplaceAllStringFunc(s, func(ref string) string {
		body := ref[1 : len(ref)-1]
		switch body {
		case "amp":
			return "&"
		case "lt":
			return "<"
		case "gt":
			return ">"
		case "quot":
			return `"`
		case "apos":
			return "'"
		}
		digits := body[1:]
		base := 10
		if digits[0] == 'x' || digits[0] == 'X' {
			digits = digits[1:]
			base = 16
		}
		n, err := strconv.ParseInt(digits, base, 32)
		if err != nil || !utf8.ValidRune(rune(n)) {
			return ref
		}
		return string(rune(n))
	})
}

// rewritePart applies the matcher paragraph by paragraph to one XML
// part and returns the rewritten bytes plus the substitution count.
// Paragraphs without matches are copied through untouched.
func (d *ooxmlDialect) rewritePart(content []byte, m *matcher.Matcher, logger *zap.Logger) ([]byte, int) {
	locs := d.paragraph.FindAllIndex(content, -1)
	if len(locs) == 0 {
		return content, 0
	}

	var buf bytes.Buffer
	last := 0
	total := 0
	for _, loc := range locs {
		block := content[loc[0]:loc[1]]
		rebuilt, n := d.rewriteParagraph(block, m, logger)
		if n == 0 {
			continue
		}
		buf.Write(content[last:loc[0]])
		buf.Write(rebuilt)
		last = loc[1]
		total += n
	}
	if total == 0 {
		return content, 0
	}
	buf.Write(content[last:])
	return buf.Bytes(), total
}

// rewriteParagraph redacts one paragraph block. The whole-paragraph
// text is matched first so names fragmented across runs are still
// found; on a hit the runs are cleared and rebuilt as a single run
// carrying the first run's properties.
func (d *ooxmlDialect) rewriteParagraph(block []byte, m *matcher.Matcher, logger *zap.Logger) ([]byte, int) {
	texts := d.text.FindAllSubmatchIndex(block, -1)
	if len(texts) == 0 {
		return block, 0
	}

	var plain strings.Builder
	for _, t := range texts {
		plain.WriteString(unescapeXML(string(block[t[2]:t[3]])))
	}

	newPlain, n := m.Replace(plain.String())
	if n == 0 {
		return block, 0
	}

	if d.needsFallback(block) {
		return d.rewriteRunsInPlace(block, texts, m)
	}

	openLoc := d.openTag.FindIndex(block)
	if openLoc == nil {
		logger.Warn("paragraph block without recognizable opening tag, skipping",
			zap.String("dialect", d.name))
		return block, 0
	}

	var rebuilt bytes.Buffer
	rebuilt.Write(block[openLoc[0]:openLoc[1]])
	if pPr := d.paraProps.Find(block); pPr != nil {
		rebuilt.Write(pPr)
	}
	rebuilt.WriteString(d.runOpen)
	if firstRun := d.run.Find(block); firstRun != nil {
		if rPr := d.runProps.Find(firstRun); rPr != nil {
			rebuilt.Write(rPr)
		}
	}
	rebuilt.WriteString(d.textOpen)
	rebuilt.WriteString(xmlEscaper.Replace(newPlain))
	rebuilt.WriteString(d.textClose)
	rebuilt.WriteString(d.runClose)
	if d.endProps != nil {
		if endPr := d.endProps.Find(block); endPr != nil {
			rebuilt.Write(endPr)
		}
	}
	rebuilt.WriteString(d.closeTag)
	return rebuilt.Bytes(), n
}

// rewriteRunsInPlace replaces matches inside each text element
// separately, leaving the paragraph structure alone. Names that span
// run boundaries are not caught here; this path only runs for
// paragraphs whose structure a rebuild would damage.
func (d *ooxmlDialect) rewriteRunsInPlace(block []byte, texts [][]int, m *matcher.Matcher) ([]byte, int) {
	var buf bytes.Buffer
	last := 0
	total := 0
	for _, t := range texts {
		inner := unescapeXML(string(block[t[2]:t[3]]))
		replaced, n := m.Replace(inner)
		if n == 0 {
			continue
		}
		buf.Write(block[last:t[2]])
		buf.WriteString(xmlEscaper.Replace(replaced))
		last = t[3]
		total += n
	}
	if total == 0 {
		return block, 0
	}
	buf.Write(block[last:])
	return buf.Bytes(), total
}

// needsFallback reports whether the paragraph contains structure a
// clear-and-rebuild would destroy (nested paragraphs from text boxes,
// tabs, drawings, fields, hyperlinks).
func (d *ooxmlDialect) needsFallback(block []byte) bool {
	if len(block) > 1 && d.nested.Match(block[1:]) {
		return true
	}
	for _, mark := range d.fallbackMarks {
		if bytes.Contains(block, []byte(mark)) {
			return true
		}
	}
	return false
}

// rewriteArchive copies every ZIP member into a fresh archive, passing
// the members selected by shouldRewrite through the rewrite function.
// Returns (nil, 0, nil) when no member changed.
func rewriteArchive(
	data []byte,
	shouldRewrite func(name string) bool,
	rewrite func(name string, content []byte) ([]byte, int),
) ([]byte, int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open document package: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	total := 0

	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to open package member %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read package member %s: %w", f.Name, err)
		}

		if shouldRewrite(f.Name) {
			rewritten, n := rewrite(f.Name, content)
			if n > 0 {
				content = rewritten
				total += n
			}
		}

		hdr := f.FileHeader
		w, err := zw.CreateHeader(&hdr)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create package member %s: %w", f.Name, err)
		}
		if _, err := w.Write(content); err != nil {
			return nil, 0, fmt.Errorf("failed to write package member %s: %w", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, 0, fmt.Errorf("failed to finalize document package: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}
	return buf.Bytes(), total, nil
}
