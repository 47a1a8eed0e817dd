package segment

import (
	"reflect"
	"testing"

	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
)

func TestSpaceThreshold(t *testing.T) {
	tests := []struct {
		name     string
		lines    []layout.Box
		divisor  float64
		expected float64
	}{
		{"no lines", nil, 8, 0},
		{"single line", []layout.Box{{W: 40}}, 8, 5},
		{"page average", []layout.Box{{W: 800}, {W: 400}}, 8, 75},
		{"zero divisor", []layout.Box{{W: 40}}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SpaceThreshold(tt.lines, tt.divisor); got != tt.expected {
				t.Errorf("SpaceThreshold() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestScanRecordsWordGap(t *testing.T) {
	threshold := SpaceThreshold([]layout.Box{{X: 0, Y: 0, W: 40, H: 40}}, 8)
	lines := [][]layout.Box{{
		{X: 0, Y: 0, W: 20, H: 30},
		{X: 200, Y: 0, W: 20, H: 30},
	}}

	got := Scan(lines, threshold, DefaultParams())
	if len(got.Accepted) != 2 {
		t.Fatalf("accepted %d glyphs, want 2", len(got.Accepted))
	}
	if !reflect.DeepEqual(got.Markers, []int{1}) {
		t.Errorf("Markers = %v, want [1]", got.Markers)
	}
}

func TestScanSuppressesNestedFragments(t *testing.T) {
	outer := layout.Box{X: 10, Y: 10, W: 30, H: 40}
	tests := []struct {
		name     string
		fragment layout.Box
		verdict  Verdict
	}{
		{"hole inside glyph", layout.Box{X: 15, Y: 20, W: 10, H: 20}, Nested},
		{"inside tolerance band", layout.Box{X: -4, Y: -4, W: 20, H: 25}, Nested},
		{"on the tolerance edge", layout.Box{X: -5, Y: 20, W: 20, H: 25}, Accepted},
		{"next glyph", layout.Box{X: 60, Y: 10, W: 30, H: 40}, Accepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScanner(DefaultParams(), 1000)
			s.Visit(Candidate{Box: outer})
			d := s.Visit(Candidate{Box: tt.fragment})
			if d.Verdict != tt.verdict {
				t.Errorf("Visit(%v) = %v, want %v", tt.fragment, d.Verdict, tt.verdict)
			}
			for _, c := range s.Result().Accepted[1:] {
				if tt.verdict == Nested && c.Box == tt.fragment {
					t.Errorf("nested fragment %v was accepted", tt.fragment)
				}
			}
		})
	}
}

func TestScanNestedFragmentNeverSpaces(t *testing.T) {
	s := NewScanner(DefaultParams(), 1)
	s.Visit(Candidate{Box: layout.Box{X: 10, Y: 10, W: 30, H: 40}})
	d := s.Visit(Candidate{Box: layout.Box{X: 20, Y: 15, W: 10, H: 20}})
	if d.Verdict != Nested || d.SpaceBefore {
		t.Errorf("Visit() = %+v, want nested without space", d)
	}
	if len(s.Result().Markers) != 0 {
		t.Errorf("Markers = %v, want none", s.Result().Markers)
	}
}

func TestScanSizeFilter(t *testing.T) {
	tests := []struct {
		name     string
		box      layout.Box
		expected Verdict
	}{
		{"too narrow", layout.Box{W: 4, H: 30}, Implausible},
		{"too wide", layout.Box{W: 151, H: 30}, Implausible},
		{"too short", layout.Box{W: 20, H: 19}, Implausible},
		{"too tall", layout.Box{W: 20, H: 121}, Implausible},
		{"minimum size", layout.Box{W: 5, H: 20}, Accepted},
		{"maximum size", layout.Box{W: 150, H: 120}, Accepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scan([][]layout.Box{{tt.box}}, 5, DefaultParams())
			if got.Decisions[0].Verdict != tt.expected {
				t.Errorf("verdict = %v, want %v", got.Decisions[0].Verdict, tt.expected)
			}
			if tt.expected == Implausible && len(got.Accepted) != 0 {
				t.Errorf("implausible box %v accepted", tt.box)
			}
		})
	}
}

func TestScanNoGapBeforeFirstGlyph(t *testing.T) {
	lines := [][]layout.Box{{
		{X: 0, Y: 0, W: 2, H: 2},
		{X: 500, Y: 0, W: 20, H: 30},
	}}
	got := Scan(lines, 5, DefaultParams())
	if len(got.Accepted) != 1 {
		t.Fatalf("accepted %d glyphs, want 1", len(got.Accepted))
	}
	if len(got.Markers) != 0 {
		t.Errorf("Markers = %v, want none", got.Markers)
	}
}

func TestScanCollapsesRepeatedGap(t *testing.T) {
	lines := [][]layout.Box{{
		{X: 0, Y: 0, W: 20, H: 30},
		{X: 100, Y: 0, W: 200, H: 30},
		{X: 130, Y: 0, W: 20, H: 30},
	}}
	got := Scan(lines, 50, DefaultParams())

	if !reflect.DeepEqual(got.Markers, []int{1}) {
		t.Errorf("Markers = %v, want [1]", got.Markers)
	}
	if !got.Decisions[1].SpaceBefore || got.Decisions[1].Verdict != Implausible {
		t.Errorf("decision 1 = %+v", got.Decisions[1])
	}
	if got.Decisions[2].SpaceBefore {
		t.Errorf("decision 2 recorded a second space")
	}
}

func TestScanAcrossLines(t *testing.T) {
	lines := [][]layout.Box{
		{{X: 10, Y: 10, W: 20, H: 30}, {X: 40, Y: 10, W: 20, H: 30}},
		nil,
		{{X: 10, Y: 100, W: 20, H: 30}},
	}
	got := Scan(lines, 25, DefaultParams())

	if len(got.Accepted) != 3 {
		t.Fatalf("accepted %d glyphs, want 3", len(got.Accepted))
	}
	if got.Accepted[2].Line != 2 {
		t.Errorf("third glyph line = %d, want 2", got.Accepted[2].Line)
	}
	// 40-10 >= 25 on line 0; the wrap from x=40 back to x=10 is 30 >= 25
	if !reflect.DeepEqual(got.Markers, []int{1, 2}) {
		t.Errorf("Markers = %v, want [1 2]", got.Markers)
	}
}

func TestScanEmpty(t *testing.T) {
	got := Scan(nil, 0, DefaultParams())
	if len(got.Accepted) != 0 || len(got.Markers) != 0 || len(got.Decisions) != 0 {
		t.Errorf("Scan(nil) = %+v, want empty", got)
	}
}

func TestScanDeterministic(t *testing.T) {
	lines := [][]layout.Box{{
		{X: 0, Y: 0, W: 20, H: 30},
		{X: 5, Y: 5, W: 5, H: 20},
		{X: 90, Y: 0, W: 20, H: 30},
	}}
	a := Scan(lines, 40, DefaultParams())
	b := Scan(lines, 40, DefaultParams())
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Scan() is not deterministic: %+v vs %+v", a, b)
	}
}

func TestScanGraphStrategy(t *testing.T) {
	// the small fragment sorts before the contour that encloses it
	lines := [][]layout.Box{{
		{X: 18, Y: 10, W: 40, H: 60},
		{X: 20, Y: 30, W: 10, H: 20},
	}}
	lines[0][0], lines[0][1] = lines[0][1], lines[0][0]

	scan := Scan(lines, 100, DefaultParams())
	if len(scan.Accepted) != 2 {
		t.Fatalf("scan strategy accepted %d glyphs, want 2", len(scan.Accepted))
	}

	params := DefaultParams()
	params.Strategy = StrategyGraph
	graph := Scan(lines, 100, params)
	if len(graph.Accepted) != 1 {
		t.Fatalf("graph strategy accepted %d glyphs, want 1", len(graph.Accepted))
	}
	if want := (layout.Box{X: 18, Y: 10, W: 40, H: 60}); graph.Accepted[0].Box != want {
		t.Errorf("merged glyph = %v, want %v", graph.Accepted[0].Box, want)
	}
}

func TestCollapseKeepsSeparateGlyphs(t *testing.T) {
	boxes := []layout.Box{
		{X: 100, Y: 0, W: 20, H: 30},
		{X: 0, Y: 0, W: 20, H: 30},
		{X: 3, Y: -10, W: 4, H: 4},
	}
	got := collapse(boxes, 15)
	want := []layout.Box{
		{X: 0, Y: -10, W: 20, H: 40},
		{X: 100, Y: 0, W: 20, H: 30},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("collapse() = %v, want %v", got, want)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr bool
	}{
		{"defaults", func(p *Params) {}, false},
		{"graph strategy", func(p *Params) { p.Strategy = StrategyGraph }, false},
		{"inverted width", func(p *Params) { p.MinWidth = 200 }, true},
		{"inverted height", func(p *Params) { p.MaxHeight = 10 }, true},
		{"zero divisor", func(p *Params) { p.SpaceDivisor = 0 }, true},
		{"negative tolerance", func(p *Params) { p.NestTolerance = -1 }, true},
		{"unknown strategy", func(p *Params) { p.Strategy = "magic" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerdictText(t *testing.T) {
	tests := []struct {
		v    Verdict
		want string
	}{
		{Accepted, "accepted"},
		{Nested, "nested"},
		{Implausible, "implausible"},
		{Verdict(9), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			text, err := tt.v.MarshalText()
			if err != nil || string(text) != tt.want {
				t.Errorf("MarshalText() = %q, %v, want %q", text, err, tt.want)
			}
		})
	}
}
