package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"ocrweb/pkg/backends"
	"ocrweb/pkg/ocr"
)

// Runs one file through the processor and prints every line and the amount.
func main() {
	f := flag.String("file", "", "image or PDF file to OCR")
	backend := flag.String("backend", "local", "OCR backend: local, ocrspace or azure")
	scale := flag.Float64("scale", 0, "PDF render scale (default RASTER_SCALE or 2)")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall timeout")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()
	if *f == "" {
		logrus.Fatal("-file required")
	}
	_ = godotenv.Load()
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	data, err := os.ReadFile(*f)
	if err != nil {
		logrus.Fatalf("read: %v", err)
	}
	be, err := backends.FromEnv(*backend, logrus.StandardLogger())
	if err != nil {
		logrus.Fatal(err)
	}
	defer backends.Close(be)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	pipeline := backends.LoadPipeline()
	if *scale > 0 {
		pipeline.RasterScale = *scale
	}
	proc := pipeline.Processor(logrus.StandardLogger())
	res, err := proc.Process(ctx, ocr.File{Name: filepath.Base(*f), Data: data}, be)
	if err != nil {
		logrus.Fatalf("ocr error: %v", err)
	}

	ex := pipeline.Extractor()
	for i, line := range res.Texts() {
		fmt.Printf("%3d  %s\n", i, line)
	}
	for _, c := range ex.Candidates(res.Texts()) {
		fmt.Printf("candidate line=%d rule=%s raw=%s value=%.2f\n", c.LineIndex, c.Rule, c.Raw, c.Value)
	}
	fmt.Printf("pages=%d lines=%d amount=%s\n", res.Pages, res.LineCount(), ex.Extract(res.Texts()))
}
