package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ocrweb/models"
	"ocrweb/pkg/backends"
	"ocrweb/pkg/storage"
	"ocrweb/process/watcher"
)

// Watches an inbox directory and OCRs every invoice dropped into it.
func main() {
	dir := flag.String("dir", "inbox", "directory to watch for invoices")
	processed := flag.String("processed", "", "where handled files go (default <dir>/processed)")
	failed := flag.String("failed", "", "where files that failed recognition go (default: left in place)")
	results := flag.String("results", "", "result directory (default RESULT_DIR or results)")
	backend := flag.String("backend", "local", "OCR backend: local, ocrspace or azure")
	workers := flag.Int("workers", 0, "worker pool size (default NumCPU)")
	once := flag.Bool("once", false, "process the files already in the inbox and exit")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	_ = godotenv.Load()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	log := logrus.StandardLogger()

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Fatalf("inbox: %v", err)
	}
	resultDir := *results
	if resultDir == "" {
		resultDir = os.Getenv("RESULT_DIR")
	}
	store, err := storage.NewResults(resultDir)
	if err != nil {
		log.Fatalf("results: %v", err)
	}
	be, err := backends.FromEnv(*backend, log)
	if err != nil {
		log.Fatal(err)
	}
	defer backends.Close(be)

	opts := []watcher.Option{watcher.WithLogger(log)}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		if err := gdb.AutoMigrate(&models.Recognition{}); err != nil {
			log.Warnf("migration warning (recognitions): %v", err)
		}
		opts = append(opts, watcher.WithDB(gdb))
	}

	pipeline := backends.LoadPipeline()
	w := watcher.New(watcher.Config{
		Dir:          *dir,
		ProcessedDir: *processed,
		FailedDir:    *failed,
		Workers:      *workers,
	}, pipeline.Processor(log), be, pipeline.Extractor(), store, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *once {
		w.Scan(ctx)
		return
	}
	if err := w.Run(ctx); err != nil {
		log.Fatalf("watch failed: %v", err)
	}
	log.Info("watcher stopped")
}
