package layout

import (
	"fmt"
	"image"
)

// Box is an axis-aligned rectangle in page coordinates.
type Box struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
	W int `yaml:"w" json:"w"`
	H int `yaml:"h" json:"h"`
}

// LineRegion identifies one text line on the page.
type LineRegion = Box

func (b Box) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", b.W, b.H, b.X, b.Y)
}

// Right returns the exclusive right edge.
func (b Box) Right() int { return b.X + b.W }

// Bottom returns the exclusive bottom edge.
func (b Box) Bottom() int { return b.Y + b.H }

func (b Box) Empty() bool { return b.W <= 0 || b.H <= 0 }

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.Right(), b.Bottom())
}

// FromRect converts an image.Rectangle to a Box.
func FromRect(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Translate shifts the box by (dx, dy).
func (b Box) Translate(dx, dy int) Box {
	return Box{X: b.X + dx, Y: b.Y + dy, W: b.W, H: b.H}
}

// Expand grows the box by n pixels on every side.
func (b Box) Expand(n int) Box {
	return Box{X: b.X - n, Y: b.Y - n, W: b.W + 2*n, H: b.H + 2*n}
}

// ContainsStrict reports whether other lies strictly inside b: no shared edge
// is allowed on any side.
func (b Box) ContainsStrict(other Box) bool {
	return b.X < other.X && b.Right() > other.Right() &&
		b.Y < other.Y && b.Bottom() > other.Bottom()
}

// Overlaps reports whether the two boxes share any pixel.
func (b Box) Overlaps(other Box) bool {
	return b.X < other.Right() && other.X < b.Right() &&
		b.Y < other.Bottom() && other.Y < b.Bottom()
}

// Intersect returns the common area of b and other, or the zero Box.
func (b Box) Intersect(other Box) Box {
	r := b.Rect().Intersect(other.Rect())
	if r.Empty() {
		return Box{}
	}
	return FromRect(r)
}

// Union returns the smallest box covering both b and other.
func (b Box) Union(other Box) Box {
	if b.Empty() {
		return other
	}
	if other.Empty() {
		return b
	}
	return FromRect(b.Rect().Union(other.Rect()))
}

// TotalWidth sums the widths of the given boxes.
func TotalWidth(boxes []Box) int {
	total := 0
	for _, b := range boxes {
		total += b.W
	}
	return total
}
