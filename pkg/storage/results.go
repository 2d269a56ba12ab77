// Package storage keeps recognized text as downloadable result files.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// ErrNotFound is returned by Open for names that do not resolve to a result.
var ErrNotFound = errors.New("result file not found")

const stampLayout = "20060102_150405"

// Results stores one text file per recognition in Dir.
type Results struct {
	Dir string
	now func() time.Time
}

// NewResults creates dir if needed.
func NewResults(dir string) (*Results, error) {
	if dir == "" {
		dir = "results"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create result dir %s: %w", dir, err)
	}
	return &Results{Dir: dir, now: time.Now}, nil
}

// Save writes text as <stem>_<YYYYMMDD_HHMMSS>.txt, stem taken from the
// source file name, and returns the file name. Names already taken get a
// numeric suffix.
func (r *Results) Save(source, text string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	stem = SafeName(stem)
	if stem == "" {
		stem = "result"
	}
	base := stem + "_" + r.now().Format(stampLayout)
	for i := 1; i < 100; i++ {
		name := base + ".txt"
		if i > 1 {
			name = fmt.Sprintf("%s_%d.txt", base, i)
		}
		f, err := os.OpenFile(filepath.Join(r.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.WriteString(text); err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			return "", err
		}
		return name, f.Close()
	}
	return "", fmt.Errorf("no free result name for %s", base)
}

// Open resolves a client-supplied name to a path inside Dir.
func (r *Results) Open(name string) (string, error) {
	clean := SafeName(filepath.Base(name))
	if clean == "" || clean != name || !strings.HasSuffix(clean, ".txt") {
		return "", ErrNotFound
	}
	path := filepath.Join(r.Dir, clean)
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return path, nil
}

// SafeName keeps letters, digits, dots, dashes and underscores; every other
// run of characters becomes one underscore. Leading dots are dropped.
func SafeName(name string) string {
	var b strings.Builder
	lastSub := false
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
			lastSub = false
		case !lastSub:
			b.WriteByte('_')
			lastSub = true
		}
	}
	return strings.Trim(strings.TrimLeft(b.String(), "."), "_")
}

// Expired lists the result files last modified before cutoff.
func (r *Results) Expired(cutoff time.Time) ([]string, error) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if fi.ModTime().Before(cutoff) {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// Remove deletes the named result file.
func (r *Results) Remove(name string) error {
	path, err := r.Open(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}
