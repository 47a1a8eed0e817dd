// Package segment decides which contour boxes are glyphs and where word
// boundaries fall between them.
package segment

import (
	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
)

// Verdict is the outcome of visiting one candidate box.
type Verdict int

const (
	// Accepted boxes become glyphs.
	Accepted Verdict = iota
	// Nested boxes sit inside the previously accepted glyph.
	Nested
	// Implausible boxes are too small or too large to be a character.
	Implausible
)

// String returns the lower-case verdict name used in logs and reports.
func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Nested:
		return "nested"
	case Implausible:
		return "implausible"
	default:
		return "unknown"
	}
}

// MarshalText encodes the verdict by its String name.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Candidate is a box considered for glyph status, tagged with its line.
type Candidate struct {
	Box  layout.Box `yaml:"box" json:"box"`
	Line int        `yaml:"line" json:"line"`
}

// Decision records what happened to one candidate.
type Decision struct {
	Candidate   Candidate `yaml:"candidate" json:"candidate"`
	Verdict     Verdict   `yaml:"verdict" json:"verdict"`
	SpaceBefore bool      `yaml:"space_before,omitempty" json:"space_before,omitempty"`
}

// Result is the accepted glyph sequence and the space markers recorded
// against it. Markers are strictly increasing glyph indices; a marker i means
// a space precedes glyph i.
type Result struct {
	Threshold float64     `yaml:"threshold" json:"threshold"`
	Accepted  []Candidate `yaml:"accepted" json:"accepted"`
	Markers   []int       `yaml:"markers" json:"markers"`
	Decisions []Decision  `yaml:"decisions" json:"decisions"`
}

// Scanner is the left-to-right accumulator behind Scan. It carries the most
// recently accepted box; nothing else survives from one candidate to the next.
type Scanner struct {
	params    Params
	threshold float64

	prev    layout.Box
	hasPrev bool

	accepted  []Candidate
	markers   []int
	decisions []Decision
}

// NewScanner returns a scanner that records a word gap whenever two
// consecutive glyph left edges are at least threshold pixels apart.
func NewScanner(params Params, threshold float64) *Scanner {
	return &Scanner{params: params, threshold: threshold}
}

// Visit classifies the next candidate in reading order.
func (s *Scanner) Visit(c Candidate) Decision {
	d := Decision{Candidate: c}
	b := c.Box

	nested := false
	if s.hasPrev {
		if s.prev.Expand(s.params.NestTolerance).ContainsStrict(b) {
			nested = true
		} else if float64(abs(b.X-s.prev.X)) >= s.threshold {
			d.SpaceBefore = s.mark(len(s.accepted))
		}
	}

	switch {
	case nested:
		d.Verdict = Nested
	case !s.params.Plausible(b):
		d.Verdict = Implausible
	default:
		d.Verdict = Accepted
		s.accepted = append(s.accepted, c)
		s.prev = b
		s.hasPrev = true
	}

	s.decisions = append(s.decisions, d)
	return d
}

// mark records a space before glyph index. A gap already recorded for the
// same index (the gap candidate was rejected by size) is not doubled.
func (s *Scanner) mark(index int) bool {
	if n := len(s.markers); n > 0 && s.markers[n-1] == index {
		return false
	}
	s.markers = append(s.markers, index)
	return true
}

// Result returns what the scanner has accumulated so far.
func (s *Scanner) Result() Result {
	return Result{
		Threshold: s.threshold,
		Accepted:  s.accepted,
		Markers:   s.markers,
		Decisions: s.decisions,
	}
}

// Scan folds every line's left-to-right boxes, in line order, through a
// fresh Scanner. Lines without boxes leave the scanner untouched.
func Scan(lines [][]layout.Box, threshold float64, params Params) Result {
	if params.Strategy == StrategyGraph {
		return scanGraph(lines, threshold, params)
	}

	s := NewScanner(params, threshold)
	for i, boxes := range lines {
		for _, b := range boxes {
			s.Visit(Candidate{Box: b, Line: i})
		}
	}
	return s.Result()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
