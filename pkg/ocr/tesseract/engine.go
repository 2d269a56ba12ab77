// Package tesseract is the local OCR engine, backed by libtesseract through
// gosseract.
package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"

	"ocrweb/pkg/ocr"
)

// Name identifies the engine in results and logs.
const Name = "local"

// Config selects the language data and layout analysis of the engine.
type Config struct {
	// Languages are tesseract traineddata names, e.g. chi_sim, eng.
	Languages      []string
	TessdataPrefix string
	// PSM is the page segmentation mode; 0 keeps tesseract's default.
	PSM        int
	Preprocess ocr.Preprocess
}

// DefaultConfig reads simplified Chinese invoices with Latin digits.
func DefaultConfig() Config {
	return Config{Languages: []string{"chi_sim", "eng"}, Preprocess: ocr.DefaultPreprocess}
}

// Engine is a long-lived handle on one tesseract client. The client is built
// on first use; a failed build is remembered and never retried. Calls are
// serialized since a tesseract client is not reentrant.
type Engine struct {
	cfg Config
	log logrus.FieldLogger

	once    sync.Once
	initErr error

	mu     sync.Mutex
	client *gosseract.Client
	closed bool
}

// New returns an engine that has not touched tesseract yet.
func New(cfg Config, log logrus.FieldLogger) *Engine {
	if len(cfg.Languages) == 0 {
		cfg.Languages = DefaultConfig().Languages
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{cfg: cfg, log: log.WithField("backend", Name)}
}

func (e *Engine) Name() string { return Name }

// Warmup builds the client now instead of on the first page.
func (e *Engine) Warmup() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.init()
}

// init must be called with mu held.
func (e *Engine) init() error {
	if e.closed {
		return ocr.Errorf(ocr.ErrEngineUnavailable, "tesseract", "engine closed")
	}
	e.once.Do(func() {
		e.log.Infof("initializing tesseract %s", strings.Join(e.cfg.Languages, "+"))
		client, err := build(e.cfg)
		if err != nil {
			e.initErr = ocr.Wrap(ocr.ErrEngineUnavailable, "tesseract init", err)
			e.log.WithError(err).Error("tesseract initialization failed")
			return
		}
		e.client = client
		e.log.Info("tesseract ready")
	})
	return e.initErr
}

func build(cfg Config) (*gosseract.Client, error) {
	c := gosseract.NewClient()
	if cfg.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			c.Close()
			return nil, err
		}
	}
	if err := c.SetLanguage(cfg.Languages...); err != nil {
		c.Close()
		return nil, err
	}
	if cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(cfg.PSM)); err != nil {
			c.Close()
			return nil, err
		}
	}
	// The language data is loaded on the first recognition, so check with a
	// blank page to surface missing traineddata here.
	blank := imaging.New(32, 32, color.White)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, blank, imaging.PNG); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		c.Close()
		return nil, err
	}
	if _, err := c.Text(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// RecognizeImage preprocesses img and returns its text lines, with line
// boxes and confidences when tesseract provides them.
func (e *Engine) RecognizeImage(ctx context.Context, img image.Image) ([]ocr.Output, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.init(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page := e.cfg.Preprocess.Apply(img)
	tmp, err := os.CreateTemp("", "ocr-page-*.png")
	if err != nil {
		return nil, ocr.Wrap(ocr.ErrBackendProcessing, "tesseract temp", err)
	}
	path := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(path)
	if err := imaging.Save(page, path); err != nil {
		return nil, ocr.Wrap(ocr.ErrBackendProcessing, "tesseract temp", err)
	}
	if err := e.client.SetImage(path); err != nil {
		return nil, ocr.Wrap(ocr.ErrBackendProcessing, "tesseract set image", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err == nil && len(boxes) > 0 {
		return []ocr.Output{entries(boxes)}, nil
	}
	if err != nil {
		e.log.WithError(err).Debug("line boxes unavailable, falling back to plain text")
	}
	text, err := e.client.Text()
	if err != nil {
		return nil, ocr.Wrap(ocr.ErrBackendProcessing, "tesseract text", err)
	}
	return []ocr.Output{ocr.TextList(ocr.SplitText(text))}, nil
}

func entries(boxes []gosseract.BoundingBox) ocr.Entries {
	out := make(ocr.Entries, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, ocr.Entry{
			Region:     b.Box,
			Text:       b.Word,
			Confidence: b.Confidence / 100,
			Scored:     true,
		})
	}
	return out
}

// Close releases the client. Later calls fail with ErrEngineUnavailable.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
