package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"ocrweb/pkg/apiclient"
)

// Posts files to a running service and prints the amount, line count and text.
func main() {
	url := flag.String("url", envOr("OCR_API_URL", apiclient.DefaultURL), "service base URL")
	token := flag.String("token", os.Getenv("OCR_API_TOKEN"), "bearer token for /api")
	service := flag.String("service", "", "OCR service code: 1 local, 2 ocrspace, 3 azure")
	save := flag.Bool("save", false, "keep a result file on the server")
	quiet := flag.Bool("amount-only", false, "print only <file>: <amount>")
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Println("usage: ocr_client [flags] <file> [file...]")
		fmt.Println("example: ocr_client invoice.pdf")
		os.Exit(2)
	}

	c := apiclient.New(*url, *token)
	failed := 0
	for _, path := range flag.Args() {
		res, err := c.RecognizeFile(context.Background(), path, apiclient.Options{Service: *service, SaveResult: *save})
		if err != nil {
			failed++
			if apiclient.IsUnreachable(err) {
				fmt.Fprintf(os.Stderr, "%s: cannot reach %s, is the service running? (%v)\n", path, *url, err)
			} else {
				fmt.Fprintf(os.Stderr, "%s: recognition failed: %v\n", path, err)
			}
			continue
		}
		if *quiet {
			fmt.Printf("%s: %s\n", path, res.InvoiceAmount)
			continue
		}
		fmt.Printf("recognizing %s\n%s\n", path, strings.Repeat("-", 50))
		if res.HasAmount() {
			fmt.Printf("invoice amount: ￥%s\n%s\n", res.InvoiceAmount, strings.Repeat("-", 50))
		}
		fmt.Printf("recognized %d lines via %s\n%s\n", res.LineCount, res.OCRService, strings.Repeat("-", 50))
		fmt.Println(res.Text)
		if res.DownloadFile != "" {
			fmt.Printf("%s\nresult file: %s/download/%s\n", strings.Repeat("-", 50), strings.TrimRight(*url, "/"), res.DownloadFile)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
