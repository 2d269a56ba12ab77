// Package raster renders PDF pages to images with MuPDF.
package raster

import (
	"image"

	"github.com/gen2brain/go-fitz"

	"ocrweb/pkg/ocr"
)

// DefaultScale renders at 2x the 72 DPI page space.
const DefaultScale = 2.0

// Fitz implements ocr.Rasterizer.
type Fitz struct {
	// Scale multiplies the 72 DPI page space; 0 means DefaultScale.
	Scale float64
}

// Open parses data as a PDF. Pages are rendered only when asked for.
func (f Fitz) Open(data []byte) (ocr.Pages, error) {
	if len(data) == 0 {
		return nil, ocr.Errorf(ocr.ErrDocumentFormat, "open pdf", "empty document")
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, ocr.Wrap(ocr.ErrDocumentFormat, "open pdf", err)
	}
	scale := f.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	return &pages{doc: doc, dpi: 72 * scale}, nil
}

type pages struct {
	doc *fitz.Document
	dpi float64
}

func (p *pages) NumPages() int { return p.doc.NumPage() }

func (p *pages) Page(i int) (image.Image, error) {
	img, err := p.doc.ImageDPI(i, p.dpi)
	if err != nil {
		return nil, ocr.Wrap(ocr.ErrDocumentFormat, "render page", err)
	}
	return img, nil
}

func (p *pages) Close() error { return p.doc.Close() }
