// Package redactor coordinates the redaction pipeline: it expands the
// configured names into a term set, dispatches inputs to the right
// format adapter by extension, and handles ZIP batches member by
// member. Processing is synchronous; one document is fully parsed,
// mutated, and serialized before the next starts, and one member's
// failure never aborts its siblings.
package redactor

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-redactor/internal/config"
	"github.com/nerdneilsfield/go-redactor/internal/document"
	"github.com/nerdneilsfield/go-redactor/internal/matcher"
	"github.com/nerdneilsfield/go-redactor/internal/names"
	"github.com/nerdneilsfield/go-redactor/internal/pdf"
)

// Result is the outcome of processing one input.
type Result struct {
	ID          string
	InputName   string
	DisplayName string
	MIME        string
	Modified    bool
	Redactions  int
	Output      []byte
	Skipped     bool
	Err         error
}

var mimeTypes = map[string]string{
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
}

// MIMEFor returns the MIME type for a filename's extension.
func MIMEFor(filename string) string {
	if mime, ok := mimeTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return mime
	}
	return "application/octet-stream"
}

// Orchestrator runs the redaction pipeline for one invocation's worth
// of configuration. It holds no per-document state.
type Orchestrator struct {
	cfg      *config.Config
	logger   *zap.Logger
	m        *matcher.Matcher
	supplier names.CandidateSupplier
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithCandidateSupplier plugs in a detector whose candidates widen the
// term set for PDF inputs. Detection only ever adds terms; the
// configured names are always matched.
func WithCandidateSupplier(s names.CandidateSupplier) Option {
	return func(o *Orchestrator) { o.supplier = s }
}

// New builds an Orchestrator from settings. The configured names are
// expanded into the full term set here, once per invocation.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	honorifics := cfg.Honorifics
	if len(honorifics) == 0 {
		honorifics = names.DefaultHonorifics
	}

	var terms []string
	if cfg.GenerateVariations {
		terms = names.Generate(cfg.Names, honorifics)
	} else {
		for _, n := range cfg.Names {
			if t := strings.TrimSpace(n); len(t) > 1 {
				terms = append(terms, t)
			}
		}
	}

	o := &Orchestrator{
		cfg:    cfg,
		logger: logger,
		m:      matcher.New(terms, cfg.Placeholder, matcher.WithPreserveCase(cfg.PreserveCase)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Terms returns the expanded term set, longest first.
func (o *Orchestrator) Terms() []string {
	return o.m.Terms()
}

// Process dispatches one input by extension: ZIP archives are handled
// member by member, supported documents go straight to their adapter,
// anything else is reported as skipped.
func (o *Orchestrator) Process(ctx context.Context, filename string, data []byte) Result {
	if strings.EqualFold(filepath.Ext(filename), ".zip") {
		return o.ProcessZip(ctx, filename, data)
	}
	return o.ProcessOne(ctx, filename, data)
}

// ProcessOne redacts a single document. A no-match outcome is not an
// error: the result carries the original bytes with Modified false.
func (o *Orchestrator) ProcessOne(ctx context.Context, filename string, data []byte) Result {
	res := Result{
		ID:        uuid.NewString(),
		InputName: filename,
		MIME:      MIMEFor(filename),
	}

	if !document.SupportedExtension(filename) {
		o.logger.Info("skipping unsupported file type", zap.String("file", filename))
		res.Skipped = true
		res.DisplayName = filename
		return res
	}

	adapter, err := document.GetAdapterByExtension(filename, document.Options{
		Logger:    o.logger,
		FirstPage: o.cfg.PageRange.First,
		LastPage:  o.cfg.PageRange.Last,
	})
	if err != nil {
		res.Err = err
		return res
	}

	m := o.matcherFor(ctx, adapter.Format(), data)
	out, n, err := adapter.Redact(ctx, data, m)
	if err != nil {
		o.logger.Error("redaction failed",
			zap.String("file", filename), zap.Error(err))
		res.Err = err
		return res
	}

	if n == 0 {
		res.DisplayName = "original_" + filename
		res.Output = data
		o.logger.Info("no matches found", zap.String("file", filename))
		return res
	}

	res.DisplayName = "redacted_" + filename
	res.Output = out
	res.Modified = true
	res.Redactions = n
	o.logger.Info("document redacted",
		zap.String("file", filename), zap.Int("redactions", n))
	return res
}

// ProcessZip rebuilds an archive with every supported member redacted.
// Directory entries and platform metadata are skipped; members of
// unsupported formats are dropped from the output. A member's failure
// excludes that member only.
func (o *Orchestrator) ProcessZip(ctx context.Context, filename string, data []byte) Result {
	res := Result{
		ID:        uuid.NewString(),
		InputName: filename,
		MIME:      mimeTypes[".zip"],
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		res.Err = fmt.Errorf("failed to open archive: %w", err)
		return res
	}

	base := o.cfg.Zip.OutputBase
	if base == "" {
		base = "redacted_" + strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seq := 0
	total := 0

	for _, f := range zr.File {
		name := f.Name
		if f.FileInfo().IsDir() || strings.HasPrefix(name, "__MACOSX") {
			continue
		}
		if !document.SupportedExtension(name) {
			o.logger.Info("dropping unsupported archive member", zap.String("member", name))
			continue
		}

		rc, err := f.Open()
		if err != nil {
			o.logger.Error("skipping unreadable archive member",
				zap.String("member", name), zap.Error(err))
			continue
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			o.logger.Error("skipping unreadable archive member",
				zap.String("member", name), zap.Error(err))
			continue
		}

		member := o.ProcessOne(ctx, filepath.Base(name), content)
		if member.Err != nil {
			continue
		}
		total += member.Redactions

		seq++
		outName := filepath.Base(name)
		if o.cfg.Zip.Initials != "" || o.cfg.Zip.RenameMembers {
			outName = memberName(base, o.memberInitials(name), seq, filepath.Ext(name))
		}
		w, err := zw.Create(outName)
		if err != nil {
			res.Err = fmt.Errorf("failed to build output archive: %w", err)
			return res
		}
		if _, err := w.Write(member.Output); err != nil {
			res.Err = fmt.Errorf("failed to build output archive: %w", err)
			return res
		}
	}

	if err := zw.Close(); err != nil {
		res.Err = fmt.Errorf("failed to finalize output archive: %w", err)
		return res
	}

	res.DisplayName = base + ".zip"
	res.Output = buf.Bytes()
	res.Redactions = total
	res.Modified = total > 0
	return res
}

// matcherFor returns the matcher for one document, widened by detector
// candidates when a supplier is configured. Only PDFs are sampled;
// detection failures fall back to the configured terms.
func (o *Orchestrator) matcherFor(ctx context.Context, format document.Format, data []byte) *matcher.Matcher {
	if o.supplier == nil || format != document.FormatPDF {
		return o.m
	}
	doc, err := pdf.Parse(data, o.logger)
	if err != nil {
		return o.m
	}
	sample, err := doc.Text()
	if err != nil || strings.TrimSpace(sample) == "" {
		return o.m
	}
	candidates, err := o.supplier.Candidates(ctx, sample)
	if err != nil {
		o.logger.Warn("name detection failed, using configured names only", zap.Error(err))
		return o.m
	}
	if len(candidates) == 0 {
		return o.m
	}

	honorifics := o.cfg.Honorifics
	if len(honorifics) == 0 {
		honorifics = names.DefaultHonorifics
	}
	widened := names.Generate(append(append([]string{}, o.cfg.Names...), candidates...), honorifics)
	o.logger.Info("detector widened term set",
		zap.Int("candidates", len(candidates)), zap.Int("terms", len(widened)))
	return matcher.New(widened, o.cfg.Placeholder, matcher.WithPreserveCase(o.cfg.PreserveCase))
}

// memberInitials returns configured initials, or derives them from the
// member filename: first letters of its alphabetic tokens, capped at
// two characters.
func (o *Orchestrator) memberInitials(name string) string {
	if o.cfg.Zip.Initials != "" {
		return o.cfg.Zip.Initials
	}
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	var initials []rune
	inToken := false
	for _, r := range stem {
		if unicode.IsLetter(r) {
			if !inToken {
				initials = append(initials, unicode.ToUpper(r))
				if len(initials) == 2 {
					break
				}
			}
			inToken = true
		} else {
			inToken = false
		}
	}
	return string(initials)
}

// memberName renders the renamed member; without initials the segment
// is omitted rather than left empty.
func memberName(base, initials string, seq int, ext string) string {
	if initials == "" {
		return fmt.Sprintf("%s_%04d%s", base, seq, ext)
	}
	return fmt.Sprintf("%s_%s_%04d%s", base, initials, seq, ext)
}
