// Package watcher OCRs documents dropped into an inbox directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ocrweb/models"
	"ocrweb/pkg/ocr"
	"ocrweb/pkg/storage"
)

const (
	defaultStable = 300 * time.Millisecond
	tick          = 250 * time.Millisecond
)

// Config describes the directories and pool size of a Watcher.
type Config struct {
	Dir          string
	ProcessedDir string // default <Dir>/processed
	FailedDir    string // when empty, failed files stay in Dir
	Workers      int    // default NumCPU
	// Stable is how long a file must go without events before it is queued.
	Stable time.Duration
}

// Report is the outcome for one file.
type Report struct {
	File       string
	Pages      int
	Lines      int
	Amount     string
	ResultFile string
}

// Watcher feeds inbox files to a bounded pool of workers sharing one backend.
type Watcher struct {
	cfg       Config
	proc      *ocr.Processor
	backend   ocr.Backend
	extractor *ocr.Extractor
	results   *storage.Results
	db        *gorm.DB
	log       logrus.FieldLogger
	onReport  func(Report)

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDB records every file in the recognition history.
func WithDB(db *gorm.DB) Option { return func(w *Watcher) { w.db = db } }

func WithLogger(l logrus.FieldLogger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// OnReport is called after each successfully processed file.
func OnReport(fn func(Report)) Option { return func(w *Watcher) { w.onReport = fn } }

func New(cfg Config, proc *ocr.Processor, backend ocr.Backend, extractor *ocr.Extractor, results *storage.Results, opts ...Option) *Watcher {
	if cfg.ProcessedDir == "" {
		cfg.ProcessedDir = filepath.Join(cfg.Dir, "processed")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Stable <= 0 {
		cfg.Stable = defaultStable
	}
	w := &Watcher{
		cfg:       cfg,
		proc:      proc,
		backend:   backend,
		extractor: extractor,
		results:   results,
		log:       logrus.StandardLogger(),
		inflight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Scan processes the files currently in the inbox and returns once all of
// them are done.
func (w *Watcher) Scan(ctx context.Context) {
	files := make(chan string, 64)
	var wg sync.WaitGroup
	w.startWorkers(ctx, &wg, files)
	w.enqueue(ctx, files, w.list())
	close(files)
	wg.Wait()
}

// Run processes the existing files and then every supported file created in
// the inbox until ctx is cancelled. Files already queued are finished before
// Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}
	w.log.WithFields(logrus.Fields{"dir": w.cfg.Dir, "workers": w.cfg.Workers, "backend": w.backend.Name()}).Info("watching inbox")

	files := make(chan string, 256)
	var wg sync.WaitGroup
	w.startWorkers(ctx, &wg, files)
	w.enqueue(ctx, files, w.list())
	err = w.debounce(ctx, fw, files)
	close(files)
	wg.Wait()
	return err
}

// debounce queues a file once it has produced no events for cfg.Stable.
func (w *Watcher) debounce(ctx context.Context, fw *fsnotify.Watcher, files chan<- string) error {
	pending := map[string]time.Time{}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			name := filepath.Base(ev.Name)
			if filepath.Dir(ev.Name) != filepath.Clean(w.cfg.Dir) || !candidate(name) {
				continue
			}
			pending[name] = time.Now()
		case <-ticker.C:
			now := time.Now()
			var ready []string
			for name, t := range pending {
				if now.Sub(t) > w.cfg.Stable {
					ready = append(ready, name)
					delete(pending, name)
				}
			}
			sort.Strings(ready)
			w.enqueue(ctx, files, ready)
		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			w.log.WithError(err).Warn("watch error")
		}
	}
}

func (w *Watcher) enqueue(ctx context.Context, files chan<- string, names []string) {
	for _, name := range names {
		if !w.claim(name) {
			continue
		}
		select {
		case files <- name:
		case <-ctx.Done():
			w.release(name)
			return
		}
	}
}

func (w *Watcher) startWorkers(ctx context.Context, wg *sync.WaitGroup, files <-chan string) {
	for i := 0; i < w.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range files {
				if ctx.Err() == nil {
					_, _ = w.ProcessFile(ctx, name)
				}
				w.release(name)
			}
		}()
	}
}

// claim marks name as queued; a name seen by both the scan and an event is
// processed once.
func (w *Watcher) claim(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inflight[name]; ok {
		return false
	}
	w.inflight[name] = struct{}{}
	return true
}

func (w *Watcher) release(name string) {
	w.mu.Lock()
	delete(w.inflight, name)
	w.mu.Unlock()
}

// list returns the supported files in the inbox, sorted by name.
func (w *Watcher) list() []string {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		w.log.WithError(err).Warn("listing inbox failed")
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && candidate(e.Name()) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}

// candidate skips hidden and partial files.
func candidate(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return false
	}
	return ocr.Supported(name)
}

// ProcessFile recognizes one inbox file, saves its text, records it and moves
// it out of the inbox. A cancelled context leaves the file in place.
func (w *Watcher) ProcessFile(ctx context.Context, name string) (Report, error) {
	log := w.log.WithFields(logrus.Fields{"file": name, "backend": w.backend.Name()})
	src := filepath.Join(w.cfg.Dir, name)
	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("file vanished before processing")
		} else {
			log.WithError(err).Warn("reading file failed")
		}
		return Report{}, err
	}

	start := time.Now()
	res, err := w.proc.Process(ctx, ocr.File{Name: name, Data: data}, w.backend)
	rec := &models.Recognition{
		RequestID:  uuid.NewString(),
		FileName:   name,
		Backend:    w.backend.Name(),
		Source:     "watch",
		Amount:     ocr.NotFound,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		if ctx.Err() != nil {
			return Report{}, err
		}
		log.WithError(err).Error("recognition failed")
		rec.Failed = true
		rec.FailedReason = truncate(err.Error(), 255)
		w.record(rec)
		if w.cfg.FailedDir != "" {
			if merr := move(src, w.cfg.FailedDir, name); merr != nil {
				log.WithError(merr).Warn("moving failed file")
			}
		}
		return Report{}, err
	}

	rep := Report{File: name, Pages: res.Pages, Lines: res.LineCount(), Amount: w.extractor.Extract(res.Texts())}
	if !res.Empty() {
		saved, serr := w.results.Save(name, res.Text())
		if serr != nil {
			log.WithError(serr).Error("saving result file failed")
		}
		rep.ResultFile = saved
	}
	rec.Pages, rec.LineCount, rec.Amount, rec.ResultFile = rep.Pages, rep.Lines, rep.Amount, rep.ResultFile
	w.record(rec)

	if err := move(src, w.cfg.ProcessedDir, name); err != nil {
		log.WithError(err).Warn("moving processed file")
	}
	log.WithFields(logrus.Fields{"lines": rep.Lines, "amount": rep.Amount, "result": rep.ResultFile}).Info("file processed")
	if w.onReport != nil {
		w.onReport(rep)
	}
	return rep, nil
}

func (w *Watcher) record(rec *models.Recognition) {
	if w.db == nil {
		return
	}
	if err := w.db.Create(rec).Error; err != nil {
		w.log.WithError(err).WithField("file", rec.FileName).Warn("saving recognition history failed")
	}
}

// move renames src into dir, copying across filesystems. An existing file
// of the same name is kept; the newcomer gets a _2, _3... suffix.
func move(src, dir, name string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst := freeName(dir, name)
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyRemove(src, dst)
}

func freeName(dir, name string) string {
	dst := filepath.Join(dir, name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		if _, err := os.Stat(dst); errors.Is(err, os.ErrNotExist) {
			return dst
		}
		dst = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
