package ocr

import (
	"bytes"
	"context"
	"errors"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// Processor turns an input file into one flat, page-annotated line sequence
// using a caller-selected backend. Pages are handled strictly in order.
type Processor struct {
	raster   Rasterizer
	log      logrus.FieldLogger
	maxPages int
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger used for per-document and per-page events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

// WithMaxPages stops rasterizing after n pages; 0 means no limit.
func WithMaxPages(n int) Option {
	return func(p *Processor) { p.maxPages = n }
}

// NewProcessor returns a Processor that rasterizes paged documents with r.
func NewProcessor(r Rasterizer, opts ...Option) *Processor {
	p := &Processor{raster: r, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process recognizes f with b. Page-level failures are logged and leave the
// page empty; document-level failures are returned classified.
func (p *Processor) Process(ctx context.Context, f File, b Backend) (Result, error) {
	kind, err := f.Kind()
	if err != nil {
		return Result{}, err
	}
	log := p.log.WithFields(logrus.Fields{"file": f.Name, "backend": b.Name(), "kind": kind.String()})

	var pages [][]Line
	switch be := b.(type) {
	case DocumentBackend:
		pages, err = p.viaDocument(ctx, log, be, f, kind)
	case ImageBackend:
		if kind == KindPDF {
			pages, err = p.viaPages(ctx, log, be, f)
		} else {
			pages, err = p.viaImage(ctx, be, f)
		}
	default:
		err = Errorf(ErrBackendProcessing, "process", "backend %s cannot recognize %s files", b.Name(), kind)
	}
	if err != nil {
		log.WithError(err).Error("document recognition failed")
		return Result{}, err
	}

	res := Result{Backend: b.Name(), Pages: len(pages), Lines: assemble(pages)}
	log.WithFields(logrus.Fields{"pages": res.Pages, "lines": res.LineCount()}).Info("document recognized")
	log.Debugf("recognized text %q", snippet(res.Text(), 180))
	return res, nil
}

func (p *Processor) viaImage(ctx context.Context, be ImageBackend, f File) ([][]Line, error) {
	img, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, Wrap(ErrDocumentFormat, "decode image", err)
	}
	outputs, err := be.RecognizeImage(ctx, img)
	if err != nil {
		return nil, ensureKind(ErrBackendProcessing, "recognize image", err)
	}
	return [][]Line{NormalizeLines(0, outputs...)}, nil
}

func (p *Processor) viaPages(ctx context.Context, log logrus.FieldLogger, be ImageBackend, f File) ([][]Line, error) {
	doc, err := p.raster.Open(f.Data)
	if err != nil {
		return nil, ensureKind(ErrDocumentFormat, "open document", err)
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			log.WithError(cerr).Warn("closing document failed")
		}
	}()

	n := doc.NumPages()
	if p.maxPages > 0 && n > p.maxPages {
		log.Warnf("document has %d pages, only the first %d are processed", n, p.maxPages)
		n = p.maxPages
	}
	pages := make([][]Line, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, contextError(err)
		}
		log.Infof("processing page %d/%d", i+1, n)
		lines, err := p.page(ctx, be, doc, i)
		if err != nil {
			if errors.Is(err, ErrEngineUnavailable) {
				return nil, err
			}
			if cerr := ctx.Err(); cerr != nil {
				return nil, contextError(cerr)
			}
			log.WithField("page", i+1).WithError(err).Warn("page recognition failed, page skipped")
		}
		pages = append(pages, lines)
	}
	return pages, nil
}

func (p *Processor) page(ctx context.Context, be ImageBackend, doc Pages, i int) ([]Line, error) {
	img, err := doc.Page(i)
	if err != nil {
		return nil, Wrap(ErrDocumentFormat, "render page", err)
	}
	outputs, err := be.RecognizeImage(ctx, img)
	if err != nil {
		return nil, ensureKind(ErrBackendProcessing, "recognize page", err)
	}
	return NormalizeLines(i+1, outputs...), nil
}

func (p *Processor) viaDocument(ctx context.Context, log logrus.FieldLogger, be DocumentBackend, f File, kind Kind) ([][]Line, error) {
	results, err := be.RecognizeDocument(ctx, f)
	if err != nil {
		return nil, ensureKind(ErrBackendProcessing, "recognize document", err)
	}
	pages := make([][]Line, 0, len(results))
	for i, r := range results {
		if r.Err != nil {
			log.WithField("page", i+1).WithError(r.Err).Warn("page recognition failed, page skipped")
			pages = append(pages, nil)
			continue
		}
		page := i + 1
		if kind == KindImage {
			page = 0
		}
		pages = append(pages, NormalizeLines(page, r.Outputs...))
	}
	return pages, nil
}

// assemble flattens per-page lines. Documents with more than one page get a
// marker before every page, including pages that produced nothing.
func assemble(pages [][]Line) []Line {
	markers := len(pages) > 1
	var out []Line
	for i, lines := range pages {
		if markers {
			out = append(out, PageMarker(i+1))
		}
		out = append(out, lines...)
	}
	return out
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(ErrBackendTimeout, "process", err)
	}
	return Wrap(ErrBackendProcessing, "process", err)
}
