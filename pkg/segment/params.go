package segment

import (
	"fmt"

	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
)

const (
	StrategyScan  = "scan"
	StrategyGraph = "graph"
)

// Params controls glyph filtering and word-gap detection.
type Params struct {
	// NestTolerance expands the previous glyph on every side before the
	// containment test.
	NestTolerance int `yaml:"nest_tolerance"`

	MinWidth  int `yaml:"min_width"`
	MaxWidth  int `yaml:"max_width"`
	MinHeight int `yaml:"min_height"`
	MaxHeight int `yaml:"max_height"`

	// SpaceDivisor is the denominator applied to the average line width to
	// obtain the word-gap threshold.
	SpaceDivisor float64 `yaml:"space_divisor"`

	Strategy string `yaml:"strategy"`
}

func DefaultParams() Params {
	return Params{
		NestTolerance: 15,
		MinWidth:      5,
		MaxWidth:      150,
		MinHeight:     20,
		MaxHeight:     120,
		SpaceDivisor:  8,
		Strategy:      StrategyScan,
	}
}

// Validate rejects parameter sets that cannot accept any glyph.
func (p Params) Validate() error {
	if p.MinWidth > p.MaxWidth {
		return fmt.Errorf("min_width %d exceeds max_width %d", p.MinWidth, p.MaxWidth)
	}
	if p.MinHeight > p.MaxHeight {
		return fmt.Errorf("min_height %d exceeds max_height %d", p.MinHeight, p.MaxHeight)
	}
	if p.SpaceDivisor <= 0 {
		return fmt.Errorf("space_divisor must be positive, got %v", p.SpaceDivisor)
	}
	if p.NestTolerance < 0 {
		return fmt.Errorf("nest_tolerance must not be negative, got %d", p.NestTolerance)
	}
	switch p.Strategy {
	case StrategyScan, StrategyGraph:
	default:
		return fmt.Errorf("unknown strategy %q", p.Strategy)
	}
	return nil
}

// Plausible reports whether a box has character-like dimensions.
func (p Params) Plausible(b layout.Box) bool {
	return b.W >= p.MinWidth && b.W <= p.MaxWidth && b.H >= p.MinHeight && b.H <= p.MaxHeight
}

// SpaceThreshold estimates the word-gap width for a page: the summed line
// width divided by divisor times the number of lines. A page without lines
// has a zero threshold.
func SpaceThreshold(lines []layout.Box, divisor float64) float64 {
	if len(lines) == 0 || divisor <= 0 {
		return 0
	}
	return float64(layout.TotalWidth(lines)) / (divisor * float64(len(lines)))
}
