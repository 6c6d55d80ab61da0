package document

import (
	"context"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-redactor/internal/matcher"
)

var (
	slidePartRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	notesPartRe = regexp.MustCompile(`^ppt/notesSlides/notesSlide(\d+)\.xml$`)
)

// PptxAdapter redacts PowerPoint presentations. Slide and notes parts
// go through the DrawingML paragraph rewriter; scanning whole parts
// covers shapes, tables inside graphic frames, and nested group
// shapes without modeling any of them. The first run's a:rPr is
// copied as raw XML, which keeps srgbClr and schemeClr color
// references intact either way.
type PptxAdapter struct {
	logger    *zap.Logger
	firstPage int
	lastPage  int
}

// NewPptxAdapter creates a PPTX adapter.
func NewPptxAdapter(opts Options) *PptxAdapter {
	return &PptxAdapter{
		logger:    opts.logger(),
		firstPage: opts.FirstPage,
		lastPage:  opts.LastPage,
	}
}

// Format returns FormatPPTX.
func (a *PptxAdapter) Format() Format {
	return FormatPPTX
}

// Redact applies the matcher to every paragraph on every slide within
// the configured slide range, including notes pages. It returns nil
// output when nothing matched.
func (a *PptxAdapter) Redact(ctx context.Context, data []byte, m *matcher.Matcher) ([]byte, int, error) {
	_ = ctx

	out, total, err := rewriteArchive(data, a.isEligiblePart, func(name string, content []byte) ([]byte, int) {
		rewritten, n := drawingDialect.rewritePart(content, m, a.logger)
		if n > 0 {
			a.logger.Debug("redacted slide part",
				zap.String("part", name),
				zap.Int("replacements", n))
		}
		return rewritten, n
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// isEligiblePart selects slide and notes parts, honoring the slide
// range filter.
func (a *PptxAdapter) isEligiblePart(name string) bool {
	for _, re := range []*regexp.Regexp{slidePartRe, notesPartRe} {
		if sm := re.FindStringSubmatch(name); sm != nil {
			return a.slideInRange(sm[1])
		}
	}
	return false
}

func (a *PptxAdapter) slideInRange(number string) bool {
	n, err := strconv.Atoi(number)
	if err != nil {
		return true
	}
	if a.firstPage > 0 && n < a.firstPage {
		return false
	}
	if a.lastPage > 0 && n > a.lastPage {
		return false
	}
	return true
}
