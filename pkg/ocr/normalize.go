package ocr

import "strings"

// Normalize flattens raw engine outputs into an ordered list of texts.
// Items are handled in order and each one by the first arm that fits it;
// nil items and anything unrecognized contribute nothing. Texts are trimmed
// and blank ones dropped.
func Normalize(items ...Output) []string {
	var out []string
	for _, item := range items {
		for _, t := range texts(item) {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

func texts(item Output) []string {
	switch v := item.(type) {
	case TextList:
		return v
	case Record:
		if v.Texts != nil {
			return v.Texts
		}
		if v.Text != "" {
			return []string{v.Text}
		}
		return nil
	case Entries:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, e.Text)
		}
		return out
	default:
		return nil
	}
}

// NormalizeLines wraps Normalize's texts as Lines of the given page.
func NormalizeLines(page int, items ...Output) []Line {
	ts := Normalize(items...)
	lines := make([]Line, 0, len(ts))
	for _, t := range ts {
		lines = append(lines, Line{Text: t, Page: page})
	}
	return lines
}
