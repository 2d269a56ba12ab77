package ocr

import (
	"context"
	"image"
	"path/filepath"
	"strings"
)

// Backend is an OCR engine the Processor can drive. A backend implements
// ImageBackend, DocumentBackend, or both; DocumentBackend is preferred.
type Backend interface {
	Name() string
}

// ImageBackend recognizes one raster page per call.
type ImageBackend interface {
	Backend
	RecognizeImage(ctx context.Context, img image.Image) ([]Output, error)
}

// DocumentBackend recognizes a whole file per call and returns the engine's
// own page segmentation, one PageResult per page.
type DocumentBackend interface {
	Backend
	RecognizeDocument(ctx context.Context, f File) ([]PageResult, error)
}

// PageResult is one page of a DocumentBackend response. Err marks a page the
// engine could not read; the rest of the document is still usable.
type PageResult struct {
	Outputs []Output
	Err     error
}

// Kind is the container format of an input file.
type Kind int

const (
	KindImage Kind = iota + 1
	KindPDF
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindPDF:
		return "pdf"
	}
	return "unknown"
}

// Extensions lists the accepted file extensions, lower case without the dot.
var Extensions = []string{"jpg", "jpeg", "png", "pdf"}

// File is an uploaded document held in memory for one request.
type File struct {
	Name string
	Data []byte
}

// Ext returns the lower-cased extension without the dot.
func (f File) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), ".")
}

// Kind classifies the file by extension.
func (f File) Kind() (Kind, error) {
	switch f.Ext() {
	case "jpg", "jpeg", "png":
		return KindImage, nil
	case "pdf":
		return KindPDF, nil
	}
	return 0, Errorf(ErrUnsupportedFormat, "classify", "%q (supported: %s)", f.Name, strings.Join(Extensions, ", "))
}

// Supported reports whether name has an accepted extension.
func Supported(name string) bool {
	_, err := File{Name: name}.Kind()
	return err == nil
}

// Rasterizer opens a paged document.
type Rasterizer interface {
	Open(data []byte) (Pages, error)
}

// Pages renders the pages of an open document on demand, in page order.
// Close must be called once the caller is done with it.
type Pages interface {
	NumPages() int
	Page(i int) (image.Image, error)
	Close() error
}
