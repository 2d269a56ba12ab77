package ocr

import (
	"fmt"
	"strings"
)

// Line is one recognized text line in reading order.
type Line struct {
	Text string
	// Page is the 1-based source page, 0 when the document has no pages
	// (a single image).
	Page int
	// Marker is set on synthetic page separators.
	Marker bool
}

// PageMarker returns the separator line placed before page n's lines.
func PageMarker(n int) Line {
	return Line{Text: fmt.Sprintf("--- page %d ---", n), Page: n, Marker: true}
}

// Result is the flattened output of one document.
type Result struct {
	Backend string
	Pages   int
	Lines   []Line
}

// Texts returns every line text, page markers included.
func (r Result) Texts() []string {
	out := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		out = append(out, l.Text)
	}
	return out
}

// LineCount counts recognized lines; page markers are not counted.
func (r Result) LineCount() int {
	n := 0
	for _, l := range r.Lines {
		if !l.Marker {
			n++
		}
	}
	return n
}

// Text joins Texts with newlines.
func (r Result) Text() string {
	return strings.Join(r.Texts(), "\n")
}

// Empty reports whether no text was recognized at all.
func (r Result) Empty() bool {
	return r.LineCount() == 0
}
