// Package apiclient calls the /api/ocr endpoint of a running service.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const DefaultURL = "http://localhost:5000"

// Result is the data object of a successful response.
type Result struct {
	Text          string   `json:"text"`
	Lines         []string `json:"lines"`
	LineCount     int      `json:"line_count"`
	InvoiceAmount string   `json:"invoice_amount"`
	OCRService    string   `json:"ocr_service"`
	DownloadFile  string   `json:"download_file,omitempty"`
}

// HasAmount reports whether the service found an invoice amount.
func (r Result) HasAmount() bool { return r.InvoiceAmount != "" && r.InvoiceAmount != "0" }

type response struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    Result `json:"data"`
}

// APIError is a response with success=false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ocr api: %d: %s", e.Status, e.Message)
}

// Client posts files to the service.
type Client struct {
	BaseURL string
	Token   string // bearer token, optional
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// Options are the optional form fields of a request.
type Options struct {
	Service    string // "1" local, "2" ocrspace, "3" azure
	SaveResult bool
}

// RecognizeFile reads path and recognizes it.
func (c *Client) RecognizeFile(ctx context.Context, path string, opts Options) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	return c.Recognize(ctx, filepath.Base(path), data, opts)
}

func (c *Client) Recognize(ctx context.Context, name string, data []byte, opts Options) (Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if opts.Service != "" {
		_ = mw.WriteField("ocr_service", opts.Service)
	}
	_ = mw.WriteField("save_result", fmt.Sprint(opts.SaveResult))
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return Result{}, err
	}
	if _, err := part.Write(data); err != nil {
		return Result{}, err
	}
	if err := mw.Close(); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/ocr", &buf)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return Result{}, err
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return Result{}, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return Result{}, &APIError{Status: resp.StatusCode, Message: msg}
	}
	return out.Data, nil
}

// IsUnreachable reports whether err means the service could not be contacted.
func IsUnreachable(err error) bool {
	var apiErr *APIError
	return err != nil && !errors.As(err, &apiErr) && !errors.Is(err, os.ErrNotExist)
}
