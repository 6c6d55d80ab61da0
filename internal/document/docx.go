package document

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-redactor/internal/matcher"
)

// DocxAdapter redacts Word documents. The package is rewritten member
// by member: the main document part plus every header and footer part
// go through the WordprocessingML paragraph rewriter, everything else
// is copied verbatim. Body, table-cell, header, and footer paragraphs
// are all covered because each lives in one of those parts.
type DocxAdapter struct {
	logger *zap.Logger
}

// NewDocxAdapter creates a DOCX adapter.
func NewDocxAdapter(opts Options) *DocxAdapter {
	return &DocxAdapter{logger: opts.logger()}
}

// Format returns FormatDOCX.
func (a *DocxAdapter) Format() Format {
	return FormatDOCX
}

// Redact applies the matcher to every paragraph in the document. It
// returns nil output when no paragraph matched.
func (a *DocxAdapter) Redact(ctx context.Context, data []byte, m *matcher.Matcher) ([]byte, int, error) {
	_ = ctx

	out, total, err := rewriteArchive(data, isWordTextPart, func(name string, content []byte) ([]byte, int) {
		rewritten, n := wordDialect.rewritePart(content, m, a.logger)
		if n > 0 {
			a.logger.Debug("redacted document part",
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

// isWordTextPart selects the package parts that carry paragraph text:
// the document body and all header/footer parts.
func isWordTextPart(name string) bool {
	if name == "word/document.xml" {
		return true
	}
	if !strings.HasSuffix(name, ".xml") {
		return false
	}
	return strings.HasPrefix(name, "word/header") || strings.HasPrefix(name, "word/footer")
}
