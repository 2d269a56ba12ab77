package backends

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"ocrweb/pkg/ocr/ocrspace"
	"ocrweb/pkg/ocr/tesseract"
)

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestFromEnv(t *testing.T) {
	t.Setenv("OCRSPACE_API_KEY", "")
	t.Setenv("AZURE_CV_ENDPOINT", "")

	b, err := FromEnv("", quiet())
	if err != nil || b.Name() != tesseract.Name {
		t.Fatalf("expected local engine got %v, %v", b, err)
	}
	Close(b)

	if _, err := FromEnv("ocrspace", quiet()); err == nil || !strings.Contains(err.Error(), "OCRSPACE_API_KEY") {
		t.Fatalf("expected missing key error got %v", err)
	}
	if _, err := FromEnv("azure", quiet()); err == nil {
		t.Fatalf("expected missing azure settings error")
	}
	if _, err := FromEnv("bogus", quiet()); err == nil {
		t.Fatalf("expected unknown backend error")
	}

	t.Setenv("OCRSPACE_API_KEY", "k")
	t.Setenv("OCRSPACE_TIMEOUT", "5")
	b, err = FromEnv("ocrspace", quiet())
	if err != nil || b.Name() != ocrspace.Name {
		t.Fatalf("expected ocrspace client got %v, %v", b, err)
	}
}

func TestLoadPipeline(t *testing.T) {
	for _, k := range []string{"RASTER_SCALE", "MAX_PAGES", "AMOUNT_LABELED_FLOOR", "AMOUNT_FALLBACK_FLOOR", "OCRSPACE_TIMEOUT"} {
		t.Setenv(k, "")
	}
	p := LoadPipeline()
	if p.RasterScale != 2 || p.MaxPages != 0 || p.LabeledFloor != 100 || p.FallbackFloor != 10000 || p.RemoteTimeout != time.Minute {
		t.Fatalf("unexpected defaults %+v", p)
	}

	t.Setenv("AMOUNT_LABELED_FLOOR", "1000")
	t.Setenv("AMOUNT_FALLBACK_FLOOR", "50000")
	t.Setenv("MAX_PAGES", "3")
	t.Setenv("RASTER_SCALE", "3")
	t.Setenv("OCRSPACE_TIMEOUT", "90s")
	p = LoadPipeline()
	if p.RasterScale != 3 || p.MaxPages != 3 || p.RemoteTimeout != 90*time.Second {
		t.Fatalf("unexpected pipeline %+v", p)
	}
	ex := p.Extractor()
	if got := ex.Extract([]string{"小写 ￥500.00"}); got != "0" {
		t.Fatalf("labeled floor 1000 should reject 500.00, got %s", got)
	}
	if got := ex.Extract([]string{"20000"}); got != "0" {
		t.Fatalf("fallback floor 50000 should reject 20000, got %s", got)
	}
	if got := ex.Extract([]string{"小写 ￥1500.00"}); got != "1500.00" {
		t.Fatalf("expected 1500.00 got %s", got)
	}
	if p.Processor(quiet()) == nil {
		t.Fatalf("expected processor")
	}
}
