package main

import (
	"strings"

	"github.com/sirupsen/logrus"

	"ocrweb/pkg/ocr"
	"ocrweb/pkg/ocr/azure"
	"ocrweb/pkg/ocr/ocrspace"
	"ocrweb/pkg/ocr/tesseract"
)

// service is one selectable OCR backend. Code is the numeric selector of the
// JSON API, Key the one used by the web form.
type service struct {
	Key         string `json:"key"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Configured  bool   `json:"configured"`

	backend ocr.Backend
}

type services struct {
	list []*service
	// def is used when the request names no service or an unknown one.
	def *service
}

func (s *services) lookup(sel string) (*service, bool) {
	if sel == "" {
		return s.def, s.def != nil
	}
	for _, svc := range s.list {
		if svc.Key == sel || svc.Code == sel {
			return svc, true
		}
	}
	return s.def, s.def != nil
}

func (s *services) add(svc *service) {
	s.list = append(s.list, svc)
	if s.def == nil {
		s.def = svc
	}
}

// closer is implemented by backends holding native resources.
type closer interface{ Close() error }

func (s *services) close() {
	for _, svc := range s.list {
		if c, ok := svc.backend.(closer); ok {
			if err := c.Close(); err != nil {
				logrus.WithError(err).Warnf("closing %s backend", svc.Key)
			}
		}
	}
}

// buildServices wires every backend. Remote ones without credentials are
// listed but cannot be selected.
func buildServices(cfg Config, log logrus.FieldLogger) *services {
	s := &services{}

	engine := tesseract.New(tesseract.Config{
		Languages:      cfg.TesseractLangs,
		TessdataPrefix: cfg.TessdataPrefix,
		PSM:            cfg.TesseractPSM,
		Preprocess:     ocr.DefaultPreprocess,
	}, log)
	if cfg.TesseractWarmup {
		if err := engine.Warmup(); err != nil {
			log.WithError(err).Warn("local engine unavailable, requests using it will fail")
		}
	}
	s.add(&service{
		Key: tesseract.Name, Code: "1", Name: "Local Tesseract",
		Description: "on-premise recognition, " + strings.Join(cfg.TesseractLangs, "+"),
		Configured:  true, backend: engine,
	})

	space := &service{Key: ocrspace.Name, Code: "2", Name: "OCR.space", Description: "online OCR.space API"}
	if cfg.OCRSpaceKey != "" {
		space.Configured = true
		space.backend = ocrspace.New(ocrspace.Config{
			APIKey:   cfg.OCRSpaceKey,
			Endpoint: cfg.OCRSpaceEndpoint,
			Language: cfg.OCRSpaceLanguage,
			Engine:   cfg.OCRSpaceEngine,
			Timeout:  cfg.Pipeline.RemoteTimeout,
		}, log)
	}
	s.list = append(s.list, space)

	az := &service{Key: azure.Name, Code: "3", Name: "Azure Computer Vision", Description: "online Azure OCR, one request per page"}
	if cfg.AzureEndpoint != "" && cfg.AzureKey != "" {
		az.Configured = true
		az.backend = azure.New(azure.Config{
			Endpoint: cfg.AzureEndpoint,
			Key:      cfg.AzureKey,
			Language: cfg.AzureLanguage,
			Timeout:  cfg.Pipeline.RemoteTimeout,
		}, log)
	}
	s.list = append(s.list, az)
	return s
}
