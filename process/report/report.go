// Package report summarizes the recognition history by month and backend.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"gorm.io/gorm"

	"ocrweb/models"
)

// Summary aggregates one backend's rows.
type Summary struct {
	Backend string
	Count   int
	Failed  int
	// NoAmount counts successful rows where no amount was found.
	NoAmount int
	Total    float64
}

// MonthRange returns the UTC bounds of month (YYYY-MM).
func MonthRange(month string) (time.Time, time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month format, expected YYYY-MM: %w", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// Rows loads the history rows created in [start, end).
func Rows(gdb *gorm.DB, start, end time.Time) ([]models.Recognition, error) {
	var rows []models.Recognition
	err := gdb.Where("created_at >= ? AND created_at < ?", start, end).Order("id").Find(&rows).Error
	return rows, err
}

// Summarize groups rows by backend, sorted by backend name.
func Summarize(rows []models.Recognition) []Summary {
	by := map[string]*Summary{}
	for _, r := range rows {
		s, ok := by[r.Backend]
		if !ok {
			s = &Summary{Backend: r.Backend}
			by[r.Backend] = s
		}
		s.Count++
		switch {
		case r.Failed:
			s.Failed++
		case r.Amount == "" || r.Amount == "0":
			s.NoAmount++
		default:
			if v, err := strconv.ParseFloat(r.Amount, 64); err == nil {
				s.Total += v
			}
		}
	}
	out := make([]Summary, 0, len(by))
	for _, s := range by {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Backend < out[j].Backend })
	return out
}

// Write prints the summary table and, when list is set, every row.
func Write(w io.Writer, month string, rows []models.Recognition, list bool) {
	fmt.Fprintf(w, "Recognition report month=%s (UTC):\n", month)
	var count, failed int
	var total float64
	for _, s := range Summarize(rows) {
		fmt.Fprintf(w, "  backend=%s records=%d failed=%d no_amount=%d total_amount=%.2f\n",
			s.Backend, s.Count, s.Failed, s.NoAmount, s.Total)
		count += s.Count
		failed += s.Failed
		total += s.Total
	}
	fmt.Fprintf(w, "  all records=%d failed=%d total_amount=%.2f\n", count, failed, total)
	if !list {
		return
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%d|%s|%s|%s|%s|%t|%s\n", r.ID, r.FileName, r.Backend, r.Source, r.Amount, r.Failed, r.CreatedAt.Format(time.RFC3339))
	}
}
