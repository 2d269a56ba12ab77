package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"reflect"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// pageBackend answers by image width so tests can tell pages apart.
type pageBackend struct {
	byWidth map[int][]Output
	errs    map[int]error
	calls   int
}

func (b *pageBackend) Name() string { return "fake" }

func (b *pageBackend) RecognizeImage(ctx context.Context, img image.Image) ([]Output, error) {
	b.calls++
	w := img.Bounds().Dx()
	if err := b.errs[w]; err != nil {
		return nil, err
	}
	return b.byWidth[w], nil
}

type fakeDoc struct {
	n      int
	closed bool
}

func (d *fakeDoc) NumPages() int { return d.n }
func (d *fakeDoc) Page(i int) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, i+1, 1)), nil
}
func (d *fakeDoc) Close() error { d.closed = true; return nil }

type fakeRaster struct {
	doc *fakeDoc
	err error
}

func (r *fakeRaster) Open([]byte) (Pages, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.doc, nil
}

type docBackend struct {
	pages []PageResult
	err   error
}

func (b *docBackend) Name() string { return "remote" }
func (b *docBackend) RecognizeDocument(context.Context, File) ([]PageResult, error) {
	return b.pages, b.err
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(20, 10, color.NRGBA{255, 255, 255, 255})
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestProcessPDFPageMarkers(t *testing.T) {
	doc := &fakeDoc{n: 3}
	be := &pageBackend{byWidth: map[int][]Output{
		1: {TextList{"A"}},
		3: {TextList{"B", "C"}},
	}}
	p := NewProcessor(&fakeRaster{doc: doc}, WithLogger(quietLogger()))
	res, err := p.Process(context.Background(), File{Name: "inv.pdf"}, be)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	want := []string{"--- page 1 ---", "A", "--- page 2 ---", "--- page 3 ---", "B", "C"}
	if !reflect.DeepEqual(res.Texts(), want) {
		t.Fatalf("expected %v got %v", want, res.Texts())
	}
	if res.LineCount() != 3 || res.Pages != 3 {
		t.Fatalf("expected 3 lines over 3 pages got %d/%d", res.LineCount(), res.Pages)
	}
	if !doc.closed {
		t.Fatalf("document not closed")
	}
	if res.Lines[4].Page != 3 {
		t.Fatalf("expected page 3 got %d", res.Lines[4].Page)
	}
}

func TestProcessSinglePagePDFHasNoMarker(t *testing.T) {
	be := &pageBackend{byWidth: map[int][]Output{1: {Entries{{Text: "小写 500.00"}}}}}
	p := NewProcessor(&fakeRaster{doc: &fakeDoc{n: 1}}, WithLogger(quietLogger()))
	res, err := p.Process(context.Background(), File{Name: "one.PDF"}, be)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !reflect.DeepEqual(res.Texts(), []string{"小写 500.00"}) {
		t.Fatalf("unexpected texts %v", res.Texts())
	}
}

func TestProcessPageFailureSkipsPage(t *testing.T) {
	be := &pageBackend{
		byWidth: map[int][]Output{2: {TextList{"kept"}}},
		errs:    map[int]error{1: errors.New("engine hiccup")},
	}
	p := NewProcessor(&fakeRaster{doc: &fakeDoc{n: 2}}, WithLogger(quietLogger()))
	res, err := p.Process(context.Background(), File{Name: "inv.pdf"}, be)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	want := []string{"--- page 1 ---", "--- page 2 ---", "kept"}
	if !reflect.DeepEqual(res.Texts(), want) {
		t.Fatalf("expected %v got %v", want, res.Texts())
	}
}

func TestProcessEngineUnavailableIsFatal(t *testing.T) {
	be := &pageBackend{errs: map[int]error{1: Wrap(ErrEngineUnavailable, "init", errors.New("no tessdata"))}}
	p := NewProcessor(&fakeRaster{doc: &fakeDoc{n: 2}}, WithLogger(quietLogger()))
	_, err := p.Process(context.Background(), File{Name: "inv.pdf"}, be)
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected engine unavailable got %v", err)
	}
	if be.calls != 1 {
		t.Fatalf("expected processing to stop after first page, got %d calls", be.calls)
	}
}

func TestProcessMaxPages(t *testing.T) {
	be := &pageBackend{byWidth: map[int][]Output{1: {TextList{"a"}}, 2: {TextList{"b"}}, 3: {TextList{"c"}}}}
	p := NewProcessor(&fakeRaster{doc: &fakeDoc{n: 3}}, WithLogger(quietLogger()), WithMaxPages(2))
	res, err := p.Process(context.Background(), File{Name: "inv.pdf"}, be)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Pages != 2 || be.calls != 2 {
		t.Fatalf("expected 2 pages got %d (calls %d)", res.Pages, be.calls)
	}
}

func TestProcessCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewProcessor(&fakeRaster{doc: &fakeDoc{n: 2}}, WithLogger(quietLogger()))
	_, err := p.Process(ctx, File{Name: "inv.pdf"}, &pageBackend{})
	if !errors.Is(err, ErrBackendProcessing) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled processing error got %v", err)
	}
}

func TestProcessInvalidPDF(t *testing.T) {
	p := NewProcessor(&fakeRaster{err: errors.New("not a pdf")}, WithLogger(quietLogger()))
	_, err := p.Process(context.Background(), File{Name: "bad.pdf"}, &pageBackend{})
	if !errors.Is(err, ErrDocumentFormat) {
		t.Fatalf("expected document format error got %v", err)
	}
}

func TestProcessImage(t *testing.T) {
	be := &pageBackend{byWidth: map[int][]Output{20: {Record{Texts: []string{"（小写）", "1,234.00"}}}}}
	p := NewProcessor(nil, WithLogger(quietLogger()))
	res, err := p.Process(context.Background(), File{Name: "scan.png", Data: pngBytes(t)}, be)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !reflect.DeepEqual(res.Texts(), []string{"（小写）", "1,234.00"}) {
		t.Fatalf("unexpected texts %v", res.Texts())
	}
	if res.Lines[0].Page != 0 {
		t.Fatalf("expected page 0 for images got %d", res.Lines[0].Page)
	}
	if got := ExtractAmount(res.Texts()); got != "1234.00" {
		t.Fatalf("expected 1234.00 got %q", got)
	}
}

func TestProcessImageFailureKeepsKind(t *testing.T) {
	be := &pageBackend{errs: map[int]error{20: Wrap(ErrBackendTimeout, "remote", context.DeadlineExceeded)}}
	p := NewProcessor(nil, WithLogger(quietLogger()))
	_, err := p.Process(context.Background(), File{Name: "scan.png", Data: pngBytes(t)}, be)
	if !errors.Is(err, ErrBackendTimeout) {
		t.Fatalf("expected timeout got %v", err)
	}
}

func TestProcessCorruptImage(t *testing.T) {
	p := NewProcessor(nil, WithLogger(quietLogger()))
	_, err := p.Process(context.Background(), File{Name: "scan.jpg", Data: []byte("garbage")}, &pageBackend{})
	if !errors.Is(err, ErrDocumentFormat) {
		t.Fatalf("expected document format error got %v", err)
	}
}

func TestProcessUnsupported(t *testing.T) {
	p := NewProcessor(nil, WithLogger(quietLogger()))
	_, err := p.Process(context.Background(), File{Name: "scan.gif"}, &pageBackend{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format got %v", err)
	}
}

func TestProcessDocumentBackend(t *testing.T) {
	be := &docBackend{pages: []PageResult{
		{Outputs: []Output{TextList{"x"}}},
		{Err: errors.New("page unreadable")},
	}}
	p := NewProcessor(nil, WithLogger(quietLogger()))
	res, err := p.Process(context.Background(), File{Name: "inv.pdf"}, be)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	want := []string{"--- page 1 ---", "x", "--- page 2 ---"}
	if !reflect.DeepEqual(res.Texts(), want) {
		t.Fatalf("expected %v got %v", want, res.Texts())
	}

	be.err = Wrap(ErrBackendNetwork, "post", errors.New("refused"))
	if _, err := p.Process(context.Background(), File{Name: "inv.pdf"}, be); !errors.Is(err, ErrBackendNetwork) {
		t.Fatalf("expected network error got %v", err)
	}
}
