package ocr

import "strings"

// snippet returns a shortened version of s for logging.
func snippet(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

// SplitText splits an engine text blob into lines. Both \n and \r\n endings
// are accepted; blank lines are kept out.
func SplitText(t string) []string {
	var out []string
	for _, l := range strings.Split(t, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
