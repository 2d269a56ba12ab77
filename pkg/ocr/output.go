package ocr

import "image"

// Output is the raw recognition result for one element of a page. Engine
// adapters must convert whatever their engine returns into one of the
// variants below; the set is closed.
type Output interface {
	output()
}

// TextList is an engine result exposing its recognized texts directly.
type TextList []string

// Record is a keyed engine result. Texts is the multi-text key and wins over
// Text, the single-text key, whenever it is present (non-nil).
type Record struct {
	Texts []string
	Text  string
}

// Entry is one line detection in the legacy region/text layout.
type Entry struct {
	Region     image.Rectangle
	Text       string
	Confidence float64
	// Scored is false for entries that came without a confidence value.
	Scored bool
}

// Entries is a list of legacy line detections.
type Entries []Entry

func (TextList) output() {}
func (Record) output()   {}
func (Entries) output()  {}
