// Package ocrspace is the remote OCR backend talking to the OCR.space parse
// API. The service segments PDFs itself, so the whole file goes up in one
// request.
package ocrspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ocrweb/pkg/ocr"
)

// Name identifies the backend in results and logs.
const Name = "ocrspace"

const (
	DefaultEndpoint = "https://api.ocr.space/parse/image"
	DefaultLanguage = "chs"
	DefaultEngine   = "2"
	DefaultTimeout  = 60 * time.Second
)

// Config holds the account and request settings.
type Config struct {
	APIKey   string
	Endpoint string
	Language string
	Engine   string
	Timeout  time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	cfg   Config
	httpc *http.Client
	log   logrus.FieldLogger
}

// New fills unset fields of cfg with the defaults.
func New(cfg Config, log logrus.FieldLogger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Engine == "" {
		cfg.Engine = DefaultEngine
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
		log:   log.WithField("backend", Name),
	}
}

func (c *Client) Name() string { return Name }

// RecognizeDocument uploads f and returns one PageResult per parsed result.
func (c *Client) RecognizeDocument(ctx context.Context, f ocr.File) ([]ocr.PageResult, error) {
	body, contentType, err := c.form(f)
	if err != nil {
		return nil, ocr.Wrap(ocr.ErrBackendProcessing, "ocrspace form", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return nil, ocr.Wrap(ocr.ErrBackendProcessing, "ocrspace request", err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()
	c.log.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": time.Since(start).Round(time.Millisecond)}).Debug("ocrspace response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		x, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		kind := ocr.ErrBackendProcessing
		if resp.StatusCode >= 500 {
			kind = ocr.ErrBackendNetwork
		}
		return nil, ocr.Errorf(kind, "ocrspace", "status %d: %s", resp.StatusCode, strings.TrimSpace(string(x)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if isTimeout(err) {
			return nil, ocr.Wrap(ocr.ErrBackendTimeout, "ocrspace read", err)
		}
		return nil, ocr.Wrap(ocr.ErrBackendProcessing, "ocrspace decode", err)
	}
	if out.IsErroredOnProcessing {
		msg := out.ErrorMessage.String()
		if msg == "" {
			msg = "unknown error"
		}
		return nil, ocr.Errorf(ocr.ErrBackendProcessing, "ocrspace", "%s", msg)
	}
	return pages(out.ParsedResults), nil
}

func (c *Client) form(f ocr.File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"apikey", c.cfg.APIKey},
		{"language", c.cfg.Language},
		{"OCREngine", c.cfg.Engine},
		{"isOverlayRequired", "false"},
		{"filetype", strings.ToUpper(f.Ext())},
	}
	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	part, err := w.CreateFormFile("file", f.Name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func pages(results []ParsedResult) []ocr.PageResult {
	out := make([]ocr.PageResult, 0, len(results))
	for _, r := range results {
		if r.FileParseExitCode != 1 {
			msg := r.ErrorMessage.String()
			if msg == "" {
				msg = "page not parsed"
			}
			out = append(out, ocr.PageResult{Err: fmt.Errorf("exit code %d: %s", r.FileParseExitCode, msg)})
			continue
		}
		var text string
		if r.ParsedText != nil {
			text = *r.ParsedText
		}
		out = append(out, ocr.PageResult{Outputs: []ocr.Output{ocr.TextList(ocr.SplitText(text))}})
	}
	return out
}

func classify(err error) error {
	if isTimeout(err) {
		return ocr.Wrap(ocr.ErrBackendTimeout, "ocrspace", err)
	}
	if errors.Is(err, context.Canceled) {
		return ocr.Wrap(ocr.ErrBackendProcessing, "ocrspace", err)
	}
	return ocr.Wrap(ocr.ErrBackendNetwork, "ocrspace", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
