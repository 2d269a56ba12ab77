// Package azure recognizes page images with the Azure Computer Vision OCR
// API, one request per page.
package azure

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"ocrweb/pkg/ocr"
)

const Name = "azure"

const (
	DefaultLanguage = string(computervision.OcrLanguagesZhHans)
	DefaultTimeout  = 60 * time.Second
)

type Config struct {
	Endpoint string
	Key      string
	Language string
	Timeout  time.Duration
}

// Client wraps a computervision client; safe for concurrent use.
type Client struct {
	cv   computervision.BaseClient
	lang computervision.OcrLanguages
	log  logrus.FieldLogger
}

func New(cfg Config, log logrus.FieldLogger) *Client {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	cv := computervision.New(cfg.Endpoint)
	cv.Authorizer = autorest.NewCognitiveServicesAuthorizer(cfg.Key)
	cv.Sender = &http.Client{Timeout: cfg.Timeout}
	cv.RetryAttempts = 1
	cv.RetryDuration = time.Second
	return &Client{cv: cv, lang: computervision.OcrLanguages(cfg.Language), log: log.WithField("backend", Name)}
}

func (c *Client) Name() string { return Name }

// RecognizeImage uploads img as PNG and flattens regions and lines in
// reading order.
func (c *Client) RecognizeImage(ctx context.Context, img image.Image) ([]ocr.Output, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, ocr.Wrap(ocr.ErrBackendProcessing, "azure encode", err)
	}
	res, err := c.cv.RecognizePrintedTextInStream(ctx, true, io.NopCloser(&buf), c.lang)
	if err != nil {
		return nil, classify(err)
	}
	c.log.WithField("orientation", deref(res.Orientation)).Debug("azure page recognized")
	return []ocr.Output{entries(res)}, nil
}

func entries(res computervision.OcrResult) ocr.Entries {
	var out ocr.Entries
	if res.Regions == nil {
		return out
	}
	for _, region := range *res.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			var words []string
			if line.Words != nil {
				for _, w := range *line.Words {
					words = append(words, deref(w.Text))
				}
			}
			out = append(out, ocr.Entry{Region: parseBox(deref(line.BoundingBox)), Text: joinWords(words)})
		}
	}
	return out
}

// parseBox reads the "x,y,w,h" bounding box format.
func parseBox(s string) image.Rectangle {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}
		}
		v[i] = n
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3])
}

// joinWords separates words with a space except between two Han characters.
func joinWords(words []string) string {
	var b strings.Builder
	for _, w := range words {
		if w == "" {
			continue
		}
		if b.Len() > 0 {
			last, _ := utf8.DecodeLastRuneInString(b.String())
			first, _ := utf8.DecodeRuneInString(w)
			if !(unicode.Is(unicode.Han, last) && unicode.Is(unicode.Han, first)) {
				b.WriteByte(' ')
			}
		}
		b.WriteString(w)
	}
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ocr.Wrap(ocr.ErrBackendTimeout, "azure", err)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return ocr.Wrap(ocr.ErrBackendTimeout, "azure", err)
		}
		return ocr.Wrap(ocr.ErrBackendNetwork, "azure", err)
	}
	var de autorest.DetailedError
	if errors.As(err, &de) {
		if code, ok := de.StatusCode.(int); ok && code >= 500 {
			return ocr.Wrap(ocr.ErrBackendNetwork, "azure", err)
		}
	}
	return ocr.Wrap(ocr.ErrBackendProcessing, "azure", err)
}
