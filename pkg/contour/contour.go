// Package contour extracts character-sized regions from a binary edge map.
//
// Only outer contours are reported: a connected run of edge pixels that lies
// entirely inside a hole of another run (the inner ring of an "O", a stroke
// enclosed by a loop) is not a separate region. Each contour is reduced to
// its bounding box in page coordinates as soon as it is found.
package contour

import (
	"image"
	"sort"

	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
)

// Extract returns the bounding boxes of the outer contours found inside line,
// translated to page coordinates and ordered left to right. Boxes sharing an x
// coordinate keep the order in which they were discovered (raster order).
func Extract(edgeMap *image.Gray, line layout.Box) []layout.Box {
	region := line.Intersect(layout.FromRect(edgeMap.Bounds()))
	if region.Empty() {
		return nil
	}

	g := newGrid(edgeMap, region)
	outside := g.markOutside()
	visited := make([]bool, g.w*g.h)

	var boxes []layout.Box
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			i := y*g.w + x
			if visited[i] || !g.ink[i] {
				continue
			}
			box, external := g.traceComponent(x, y, visited, outside)
			if external {
				boxes = append(boxes, box.Translate(region.X, region.Y))
			}
		}
	}

	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].X < boxes[j].X
	})
	return boxes
}

// ExtractAll runs Extract for every line, preserving line order.
func ExtractAll(edgeMap *image.Gray, lines []layout.Box) [][]layout.Box {
	out := make([][]layout.Box, len(lines))
	for i, line := range lines {
		out[i] = Extract(edgeMap, line)
	}
	return out
}

// grid is the edge map cropped to one line, in local coordinates.
type grid struct {
	w, h int
	ink  []bool
}

func newGrid(edgeMap *image.Gray, region layout.Box) grid {
	g := grid{w: region.W, h: region.H, ink: make([]bool, region.W*region.H)}
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			g.ink[y*g.w+x] = edgeMap.GrayAt(region.X+x, region.Y+y).Y > 0
		}
	}
	return g
}

var (
	neighbours4 = [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	neighbours8 = [][2]int{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}
)

// markOutside flags every background pixel 4-connected to the crop frame.
// Background left unflagged belongs to a hole.
func (g grid) markOutside() []bool {
	outside := make([]bool, g.w*g.h)
	var stack []int

	push := func(x, y int) {
		i := y*g.w + x
		if !g.ink[i] && !outside[i] {
			outside[i] = true
			stack = append(stack, i)
		}
	}
	for x := 0; x < g.w; x++ {
		push(x, 0)
		push(x, g.h-1)
	}
	for y := 0; y < g.h; y++ {
		push(0, y)
		push(g.w-1, y)
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%g.w, i/g.w
		for _, d := range neighbours4 {
			nx, ny := x+d[0], y+d[1]
			if nx >= 0 && nx < g.w && ny >= 0 && ny < g.h {
				push(nx, ny)
			}
		}
	}
	return outside
}

// traceComponent walks the 8-connected edge component starting at (x, y) and
// returns its bounding box. The component is external when it touches the
// crop frame or background reachable from it.
func (g grid) traceComponent(x, y int, visited, outside []bool) (layout.Box, bool) {
	minX, minY, maxX, maxY := x, y, x, y
	external := false

	stack := []int{y*g.w + x}
	visited[y*g.w+x] = true

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cx, cy := i%g.w, i/g.w

		minX, maxX = min(minX, cx), max(maxX, cx)
		minY, maxY = min(minY, cy), max(maxY, cy)

		if cx == 0 || cy == 0 || cx == g.w-1 || cy == g.h-1 {
			external = true
		}
		for _, d := range neighbours4 {
			nx, ny := cx+d[0], cy+d[1]
			if nx >= 0 && nx < g.w && ny >= 0 && ny < g.h && outside[ny*g.w+nx] {
				external = true
			}
		}

		for _, d := range neighbours8 {
			nx, ny := cx+d[0], cy+d[1]
			if nx < 0 || nx >= g.w || ny < 0 || ny >= g.h {
				continue
			}
			j := ny*g.w + nx
			if g.ink[j] && !visited[j] {
				visited[j] = true
				stack = append(stack, j)
			}
		}
	}

	return layout.Box{X: minX, Y: minY, W: maxX - minX + 1, H: maxY - minY + 1}, external
}
