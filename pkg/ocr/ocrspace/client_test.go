package ocrspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"ocrweb/pkg/ocr"
)

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestClient(url string, timeout time.Duration) *Client {
	return New(Config{APIKey: "k-test", Endpoint: url, Timeout: timeout}, quiet())
}

var pdf = ocr.File{Name: "invoice.pdf", Data: []byte("%PDF-1.4 fake")}

func TestRecognizeDocumentPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		for k, want := range map[string]string{"apikey": "k-test", "language": "chs", "OCREngine": "2", "isOverlayRequired": "false", "filetype": "PDF"} {
			if got := r.FormValue(k); got != want {
				t.Errorf("field %s: expected %q got %q", k, want, got)
			}
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file part: %v", err)
		} else {
			b, _ := io.ReadAll(f)
			if hdr.Filename != "invoice.pdf" || string(b) != "%PDF-1.4 fake" {
				t.Errorf("unexpected file part %s %q", hdr.Filename, b)
			}
		}
		fmt.Fprint(w, `{"ParsedResults":[
			{"FileParseExitCode":1,"ParsedText":"发票代码\r\n（小写）￥1,234.50\r\n"},
			{"FileParseExitCode":-10,"ErrorMessage":"page failed"},
			{"FileParseExitCode":1,"ParsedText":""}
		],"IsErroredOnProcessing":false,"ProcessingTimeInMilliseconds":"812"}`)
	}))
	defer srv.Close()

	pages, err := newTestClient(srv.URL, time.Second).RecognizeDocument(context.Background(), pdf)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages got %d", len(pages))
	}
	if got := ocr.Normalize(pages[0].Outputs...); !reflect.DeepEqual(got, []string{"发票代码", "（小写）￥1,234.50"}) {
		t.Fatalf("unexpected first page %v", got)
	}
	if pages[1].Err == nil {
		t.Fatalf("expected soft page error")
	}
	if pages[2].Err != nil || len(ocr.Normalize(pages[2].Outputs...)) != 0 {
		t.Fatalf("expected empty third page got %+v", pages[2])
	}
}

func TestRecognizeDocumentErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   error
	}{
		{"errored string", 200, `{"IsErroredOnProcessing":true,"ErrorMessage":"invalid key"}`, ocr.ErrBackendProcessing},
		{"errored array", 200, `{"IsErroredOnProcessing":true,"ErrorMessage":["file too large","retry"]}`, ocr.ErrBackendProcessing},
		{"bad json", 200, `not json`, ocr.ErrBackendProcessing},
		{"client error", 403, `forbidden`, ocr.ErrBackendProcessing},
		{"server error", 503, `busy`, ocr.ErrBackendNetwork},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()
			_, err := newTestClient(srv.URL, time.Second).RecognizeDocument(context.Background(), pdf)
			if !errors.Is(err, tc.kind) {
				t.Fatalf("expected %v got %v", tc.kind, err)
			}
		})
	}
}

func TestErroredMessageIsKept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"IsErroredOnProcessing":true,"ErrorMessage":["file too large","retry"]}`)
	}))
	defer srv.Close()
	_, err := newTestClient(srv.URL, time.Second).RecognizeDocument(context.Background(), pdf)
	if err == nil || !strings.Contains(err.Error(), "file too large; retry") {
		t.Fatalf("expected api messages in error got %v", err)
	}
}

func TestRecognizeDocumentTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()
	_, err := newTestClient(srv.URL, 50*time.Millisecond).RecognizeDocument(context.Background(), pdf)
	if !errors.Is(err, ocr.ErrBackendTimeout) {
		t.Fatalf("expected timeout got %v", err)
	}
}

func TestRecognizeDocumentUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()
	_, err := newTestClient(url, time.Second).RecognizeDocument(context.Background(), pdf)
	if !errors.Is(err, ocr.ErrBackendNetwork) {
		t.Fatalf("expected network error got %v", err)
	}
}


func TestRecognizeDocumentAcceptsAny2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{"ParsedResults":[{"FileParseExitCode":1,"ParsedText":"ok"}],"IsErroredOnProcessing":false}`)
	}))
	defer srv.Close()

	pages, err := newTestClient(srv.URL, time.Second).RecognizeDocument(context.Background(), pdf)
	if err != nil {
		t.Fatalf("expected 202 to be accepted got %v", err)
	}
	if len(pages) != 1 || pages[0].Err != nil {
		t.Fatalf("unexpected pages %+v", pages)
	}
}
