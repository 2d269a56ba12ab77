package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ocrweb/pkg/ocr"
	"ocrweb/pkg/storage"
)

// server holds everything a request handler needs.
type server struct {
	cfg       Config
	log       logrus.FieldLogger
	proc      *ocr.Processor
	extractor *ocr.Extractor
	services  *services
	results   *storage.Results
	db        *gorm.DB // nil when DB_DSN is unset
}

func main() {
	cfg := LoadConfig()
	setupLogging(cfg.LogLevel)

	// `./ocrweb migrate` creates the history table and exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if cfg.DBDSN == "" {
			logrus.Fatal("DB_DSN is not set")
		}
		if _, err := initDB(cfg.DBDSN, true); err != nil {
			logrus.Fatalf("migrate: %v", err)
		}
		logrus.Info("migration completed")
		return
	}

	srv, err := newServer(cfg, logrus.StandardLogger())
	if err != nil {
		logrus.Fatalf("startup: %v", err)
	}
	defer srv.services.close()

	r := gin.Default()
	srv.routes(r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hs := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logrus.Infof("listening on :%s", cfg.Port)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("listen: %v", err)
		}
	}()
	<-ctx.Done()

	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("graceful shutdown failed")
	}
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("unknown LOG_LEVEL %q, using info", level)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

func newServer(cfg Config, log logrus.FieldLogger) (*server, error) {
	results, err := storage.NewResults(cfg.ResultDir)
	if err != nil {
		return nil, err
	}
	s := &server{
		cfg:       cfg,
		log:       log,
		proc:      cfg.Pipeline.Processor(log),
		extractor: cfg.Pipeline.Extractor(),
		services:  buildServices(cfg, log),
		results:   results,
	}
	if cfg.DBDSN != "" {
		s.db, err = initDB(cfg.DBDSN, cfg.DBAutoMigrate)
		if err != nil {
			return nil, err
		}
	} else {
		log.Info("DB_DSN not set, recognition history disabled")
	}
	return s, nil
}
