// Package backends builds OCR backends and the recognition pipeline from
// environment variables. The HTTP service and the command-line tools read
// the same keys through it.
package backends

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ocrweb/pkg/env"
	"ocrweb/pkg/ocr"
	"ocrweb/pkg/ocr/azure"
	"ocrweb/pkg/ocr/ocrspace"
	"ocrweb/pkg/ocr/tesseract"
	"ocrweb/pkg/raster"
)

// Names lists the accepted backend names.
var Names = []string{tesseract.Name, ocrspace.Name, azure.Name}

// Pipeline holds the settings that decide what a document yields, so every
// entry point produces the same lines and amount for the same file.
type Pipeline struct {
	RasterScale   float64
	MaxPages      int
	LabeledFloor  float64
	FallbackFloor float64
	// RemoteTimeout bounds every call to a remote backend.
	RemoteTimeout time.Duration
}

// LoadPipeline reads RASTER_SCALE, MAX_PAGES, AMOUNT_LABELED_FLOOR,
// AMOUNT_FALLBACK_FLOOR and OCRSPACE_TIMEOUT.
func LoadPipeline() Pipeline {
	return Pipeline{
		RasterScale:   env.Float("RASTER_SCALE", raster.DefaultScale),
		MaxPages:      env.Int("MAX_PAGES", 0),
		LabeledFloor:  env.Float("AMOUNT_LABELED_FLOOR", ocr.DefaultLabeledFloor),
		FallbackFloor: env.Float("AMOUNT_FALLBACK_FLOOR", ocr.DefaultFallbackFloor),
		RemoteTimeout: env.Duration("OCRSPACE_TIMEOUT", ocrspace.DefaultTimeout),
	}
}

// Processor returns a processor rasterizing with go-fitz at p.RasterScale.
func (p Pipeline) Processor(log logrus.FieldLogger) *ocr.Processor {
	return ocr.NewProcessor(raster.Fitz{Scale: p.RasterScale}, ocr.WithLogger(log), ocr.WithMaxPages(p.MaxPages))
}

func (p Pipeline) Extractor() *ocr.Extractor {
	return ocr.NewExtractor(ocr.WithLabeledFloor(p.LabeledFloor), ocr.WithFallbackFloor(p.FallbackFloor))
}

// FromEnv returns the named backend configured from the same variables the
// HTTP service reads. Remote backends fail without credentials.
func FromEnv(name string, log logrus.FieldLogger) (ocr.Backend, error) {
	timeout := LoadPipeline().RemoteTimeout
	switch name {
	case "", tesseract.Name:
		cfg := tesseract.DefaultConfig()
		if langs := env.List("TESSERACT_LANGS", "", "+"); len(langs) > 0 {
			cfg.Languages = langs
		}
		cfg.TessdataPrefix = os.Getenv("TESSDATA_PREFIX")
		cfg.PSM = env.Int("TESSERACT_PSM", 0)
		return tesseract.New(cfg, log), nil
	case ocrspace.Name:
		key := os.Getenv("OCRSPACE_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("%s: OCRSPACE_API_KEY is not set", name)
		}
		return ocrspace.New(ocrspace.Config{
			APIKey:   key,
			Endpoint: os.Getenv("OCRSPACE_ENDPOINT"),
			Language: os.Getenv("OCRSPACE_LANGUAGE"),
			Engine:   os.Getenv("OCRSPACE_ENGINE"),
			Timeout:  timeout,
		}, log), nil
	case azure.Name:
		endpoint, key := os.Getenv("AZURE_CV_ENDPOINT"), os.Getenv("AZURE_CV_KEY")
		if endpoint == "" || key == "" {
			return nil, fmt.Errorf("%s: AZURE_CV_ENDPOINT and AZURE_CV_KEY must be set", name)
		}
		return azure.New(azure.Config{
			Endpoint: endpoint,
			Key:      key,
			Language: os.Getenv("AZURE_CV_LANGUAGE"),
			Timeout:  timeout,
		}, log), nil
	}
	return nil, fmt.Errorf("unknown backend %q (available: %s)", name, strings.Join(Names, ", "))
}

// Close releases backends that hold native resources.
func Close(b ocr.Backend) {
	if c, ok := b.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
