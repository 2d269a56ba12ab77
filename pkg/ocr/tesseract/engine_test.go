package tesseract

import (
	"context"
	"errors"
	"image/color"
	"io"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"ocrweb/pkg/ocr"
)

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestMissingLanguageIsCached(t *testing.T) {
	e := New(Config{Languages: []string{"zz_not_installed"}}, quiet())
	defer e.Close()
	err := e.Warmup()
	if !errors.Is(err, ocr.ErrEngineUnavailable) {
		t.Fatalf("expected engine unavailable got %v", err)
	}
	img := imaging.New(10, 10, color.White)
	_, err2 := e.RecognizeImage(context.Background(), img)
	if err2 != err {
		t.Fatalf("expected cached init error, got %v", err2)
	}
}

func TestRecognizeBlankPage(t *testing.T) {
	e := New(Config{Languages: []string{"eng"}}, quiet())
	defer e.Close()
	if err := e.Warmup(); err != nil {
		t.Skipf("tesseract eng data not available: %v", err)
	}
	out, err := e.RecognizeImage(context.Background(), imaging.New(200, 100, color.White))
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if texts := ocr.Normalize(out...); len(texts) != 0 {
		t.Fatalf("expected no text on a blank page got %v", texts)
	}
}

func TestClosedEngine(t *testing.T) {
	e := New(DefaultConfig(), quiet())
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := e.RecognizeImage(context.Background(), imaging.New(4, 4, color.White)); !errors.Is(err, ocr.ErrEngineUnavailable) {
		t.Fatalf("expected engine unavailable after close got %v", err)
	}
}
