package ocr

import (
	"regexp"
	"strconv"
	"strings"
)

// NotFound is returned by Extract when no amount qualifies.
const NotFound = "0"

// Default value floors. Labeled matches below 100 are usually page numbers,
// percentages or counters; bare numerals need a much higher bar.
const (
	DefaultLabeledFloor  = 100.0
	DefaultFallbackFloor = 10000.0
)

// Pool groups candidates by signal strength.
type Pool int

const (
	// PoolLabeled holds matches anchored to the 小写 label.
	PoolLabeled Pool = iota
	// PoolFallback holds bare large numerals, used only without labeled matches.
	PoolFallback
)

// Candidate is one accepted amount match.
type Candidate struct {
	LineIndex int
	Value     float64
	Raw       string
	Rule      string
	Pool      Pool
}

// Matcher inspects line i of lines and returns the captured numeral.
type Matcher func(lines []string, i int) (string, bool)

// Rule is one entry of the extraction cascade.
type Rule struct {
	Name  string
	Pool  Pool
	Floor float64
	Match Matcher
}

// ws also accepts the ideographic space that full-width layouts use.
const ws = `[\s\x{3000}]`

var (
	reBracketed = regexp.MustCompile(`[（(]小写[）)]` + ws + `*[￥¥]?` + ws + `*([\d,]+\.?\d*)`)
	reBare      = regexp.MustCompile(`小写` + ws + `+[￥¥]?` + ws + `*(\d[\d,]*\.?\d*)`)
	reCents     = regexp.MustCompile(`^(\d[\d,]*\.\d{2})$`)
	reLarge     = regexp.MustCompile(`^(\d{5,}\.?\d*)$`)
)

var labelSpellings = map[string]struct{}{
	"小写": {}, "(小写)": {}, "（小写）": {}, "(小写）": {}, "（小写)": {},
}

func trim(s string) string {
	return strings.Trim(s, " \t\r\n　")
}

func submatch(re *regexp.Regexp) Matcher {
	return func(lines []string, i int) (string, bool) {
		m := re.FindStringSubmatch(lines[i])
		if len(m) < 2 {
			return "", false
		}
		return m[1], true
	}
}

// labelThenNext matches a line holding only the label, capturing a
// two-decimal numeral from the line right after it.
func labelThenNext(lines []string, i int) (string, bool) {
	if _, ok := labelSpellings[trim(lines[i])]; !ok || i+1 >= len(lines) {
		return "", false
	}
	m := reCents.FindStringSubmatch(trim(lines[i+1]))
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

func bareLarge(lines []string, i int) (string, bool) {
	m := reLarge.FindStringSubmatch(trim(lines[i]))
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// DefaultRules returns the four-rule cascade with the given floors.
func DefaultRules(labeledFloor, fallbackFloor float64) []Rule {
	return []Rule{
		{Name: "bracketed-label", Pool: PoolLabeled, Floor: labeledFloor, Match: submatch(reBracketed)},
		{Name: "bare-label", Pool: PoolLabeled, Floor: labeledFloor, Match: submatch(reBare)},
		{Name: "label-next-line", Pool: PoolLabeled, Floor: labeledFloor, Match: labelThenNext},
		{Name: "bare-large-numeral", Pool: PoolFallback, Floor: fallbackFloor, Match: bareLarge},
	}
}

// Extractor finds the payable total printed on an invoice.
type Extractor struct {
	labeledFloor  float64
	fallbackFloor float64
	rules         []Rule
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLabeledFloor sets the minimum value of labeled matches.
func WithLabeledFloor(v float64) ExtractorOption {
	return func(e *Extractor) { e.labeledFloor = v }
}

// WithFallbackFloor sets the minimum value of bare-numeral matches.
func WithFallbackFloor(v float64) ExtractorOption {
	return func(e *Extractor) { e.fallbackFloor = v }
}

// WithRules replaces the cascade entirely; floors options are then ignored.
func WithRules(rules ...Rule) ExtractorOption {
	return func(e *Extractor) { e.rules = rules }
}

// NewExtractor returns an Extractor using DefaultRules unless overridden.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{labeledFloor: DefaultLabeledFloor, fallbackFloor: DefaultFallbackFloor}
	for _, opt := range opts {
		opt(e)
	}
	if e.rules == nil {
		e.rules = DefaultRules(e.labeledFloor, e.fallbackFloor)
	}
	return e
}

var defaultExtractor = NewExtractor()

// ExtractAmount runs the default extractor over lines.
func ExtractAmount(lines []string) string {
	return defaultExtractor.Extract(lines)
}

// Candidates evaluates every rule against every line and returns all matches
// that parse and clear their rule's floor, in line then rule order.
func (e *Extractor) Candidates(lines []string) []Candidate {
	var out []Candidate
	for i := range lines {
		for _, r := range e.rules {
			raw, ok := r.Match(lines, i)
			if !ok {
				continue
			}
			raw = strings.ReplaceAll(raw, ",", "")
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || v < r.Floor {
				continue
			}
			out = append(out, Candidate{LineIndex: i, Value: v, Raw: raw, Rule: r.Name, Pool: r.Pool})
		}
	}
	return out
}

// Extract returns the latest labeled candidate, else the latest fallback
// candidate, else NotFound.
func (e *Extractor) Extract(lines []string) string {
	cands := e.Candidates(lines)
	for _, pool := range []Pool{PoolLabeled, PoolFallback} {
		if c, ok := latest(cands, pool); ok {
			return c.Raw
		}
	}
	return NotFound
}

// latest picks the candidate of pool with the largest line index; on a tie
// the earlier rule wins.
func latest(cands []Candidate, pool Pool) (Candidate, bool) {
	var best Candidate
	found := false
	for _, c := range cands {
		if c.Pool != pool {
			continue
		}
		if !found || c.LineIndex > best.LineIndex {
			best, found = c, true
		}
	}
	return best, found
}
