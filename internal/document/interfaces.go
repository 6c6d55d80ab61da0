// Package document defines the format adapters that apply redaction
// inside each document model, and the registry that dispatches on
// format.
package document

import (
	"context"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-redactor/internal/matcher"
)

// Format identifies a supported document format.
type Format string

const (
	FormatDOCX Format = "docx"
	FormatPPTX Format = "pptx"
	FormatPDF  Format = "pdf"
)

// Adapter walks one format's document model, applies the matcher to
// every text unit, and serializes the mutated model.
//
// Redact returns (nil, 0, nil) when nothing matched, so the caller can
// hand out the original bytes unchanged. A non-nil error means the
// document itself was unreadable; partial per-unit failures are logged
// and absorbed.
type Adapter interface {
	Redact(ctx context.Context, data []byte, m *matcher.Matcher) ([]byte, int, error)
	Format() Format
}

// AdapterFactory builds an Adapter from options.
type AdapterFactory func(opts Options) (Adapter, error)

// Options configures adapter construction.
type Options struct {
	Logger *zap.Logger

	// FirstPage/LastPage bound which PDF pages and PPTX slides are
	// scanned (1-based, inclusive; zero means unbounded).
	FirstPage int
	LastPage  int
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}
