package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-redactor/internal/matcher"
	"github.com/nerdneilsfield/go-redactor/internal/pdf"
)

// PdfAdapter redacts PDF files. Matched text is physically removed
// from the content streams, not hidden, and a filled black rectangle
// is drawn over each removed span. The placeholder text is never
// inserted; extracting text from the output yields nothing where the
// name used to be.
type PdfAdapter struct {
	logger    *zap.Logger
	firstPage int
	lastPage  int
}

// NewPdfAdapter creates a PDF adapter.
func NewPdfAdapter(opts Options) *PdfAdapter {
	return &PdfAdapter{
		logger:    opts.logger(),
		firstPage: opts.FirstPage,
		lastPage:  opts.LastPage,
	}
}

// Format returns FormatPDF.
func (a *PdfAdapter) Format() Format {
	return FormatPDF
}

// Redact removes every term occurrence from the configured page range.
// Encrypted documents fail; uninterpretable single pages are skipped
// inside the engine. Returns nil output when nothing matched.
func (a *PdfAdapter) Redact(ctx context.Context, data []byte, m *matcher.Matcher) ([]byte, int, error) {
	_ = ctx

	doc, err := pdf.Parse(data, a.logger)
	if err != nil {
		if errors.Is(err, pdf.ErrEncrypted) {
			return nil, 0, fmt.Errorf("cannot redact encrypted PDF: %w", err)
		}
		return nil, 0, fmt.Errorf("failed to parse PDF: %w", err)
	}

	n, err := doc.Redact(m.Terms(), a.firstPage, a.lastPage)
	if err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return nil, 0, nil
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, 0, fmt.Errorf("failed to write redacted PDF: %w", err)
	}
	a.logger.Debug("redacted PDF", zap.Int("occurrences", n))
	return buf.Bytes(), n, nil
}
