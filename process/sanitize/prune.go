// Package sanitize removes expired recognition history and result files.
package sanitize

import (
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"ocrweb/models"
	"ocrweb/pkg/storage"
)

// Plan is what a prune would remove.
type Plan struct {
	Cutoff time.Time
	Rows   int64
	Files  []string
}

// Prepare collects rows and files older than cutoff. gdb may be nil.
func Prepare(gdb *gorm.DB, results *storage.Results, cutoff time.Time) (Plan, error) {
	p := Plan{Cutoff: cutoff}
	if gdb != nil {
		if err := gdb.Model(&models.Recognition{}).Where("created_at < ?", cutoff).Count(&p.Rows).Error; err != nil {
			return p, fmt.Errorf("count history: %w", err)
		}
	}
	files, err := results.Expired(cutoff)
	if err != nil {
		return p, fmt.Errorf("list results: %w", err)
	}
	p.Files = files
	return p, nil
}

// Print describes the plan.
func (p Plan) Print(w io.Writer) {
	fmt.Fprintf(w, "Entries older than %s:\n", p.Cutoff.Format(time.RFC3339))
	fmt.Fprintf(w, " - history rows: %d\n", p.Rows)
	fmt.Fprintf(w, " - result files: %d\n", len(p.Files))
	for _, f := range p.Files {
		fmt.Fprintf(w, "   %s\n", f)
	}
}

// Apply deletes what the plan lists and returns the number of rows and files
// removed. Files that disappeared meanwhile are ignored.
func Apply(gdb *gorm.DB, results *storage.Results, p Plan) (int64, int, error) {
	var rows int64
	if gdb != nil {
		res := gdb.Where("created_at < ?", p.Cutoff).Delete(&models.Recognition{})
		if res.Error != nil {
			return 0, 0, fmt.Errorf("delete history: %w", res.Error)
		}
		rows = res.RowsAffected
	}
	files := 0
	for _, name := range p.Files {
		if err := results.Remove(name); err == nil {
			files++
		}
	}
	return rows, files, nil
}
