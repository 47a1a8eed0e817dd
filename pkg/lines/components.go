package lines

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sort"

	"golang.org/x/image/draw"

	"github.com/lehigh-university-libraries/handwrite/pkg/edges"
	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
)

const (
	minComponentSide = 3
	minLineHeight    = 8
)

// Components finds lines offline: Otsu binarization, connected ink
// components, horizontal merging into words, then vertical grouping.
type Components struct {
	params Params
}

func NewComponents(params Params) *Components {
	return &Components{params: params}
}

func (c *Components) Name() string {
	return "components"
}

func (c *Components) Lines(ctx context.Context, page *image.Gray, imagePath string) ([]layout.Box, error) {
	bounds := page.Bounds()
	if bounds.Empty() {
		return nil, nil
	}
	if uniform(page) {
		slog.Debug("Blank page, no lines", "image", imagePath)
		return nil, nil
	}

	src := page
	if bounds.Min != (image.Point{}) {
		src = image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(src, src.Bounds(), page, bounds.Min, draw.Src)
	}

	ink, err := edges.Ink(src)
	if err != nil {
		return nil, fmt.Errorf("failed to binarize page: %w", err)
	}

	components := findComponents(ink)
	words := mergeNearbyComponents(sortReadingOrder(components))
	lines := groupWordsIntoLines(words)

	var kept []layout.Box
	for _, l := range lines {
		if l.H >= minLineHeight {
			kept = append(kept, l.Translate(bounds.Min.X, bounds.Min.Y))
		}
	}

	slog.Debug("Component line detection completed",
		"component_count", len(components),
		"word_count", len(words),
		"line_count", len(kept),
		"image_size", fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()))

	return finish(kept, bounds, c.params.Padding), nil
}

func uniform(page *image.Gray) bool {
	b := page.Bounds()
	first := page.GrayAt(b.Min.X, b.Min.Y).Y
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if page.GrayAt(x, y).Y != first {
				return false
			}
		}
	}
	return true
}

// findComponents returns the boxes of 8-connected ink regions of plausible
// size. ink must be origin based with ink pixels non-zero.
func findComponents(ink *image.Gray) []layout.Box {
	width, height := ink.Rect.Dx(), ink.Rect.Dy()
	visited := make([]bool, width*height)

	var components []layout.Box
	var stack []int
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			start := y*width + x
			if visited[start] || !isInk(ink, x, y) {
				continue
			}

			minX, minY, maxX, maxY := x, y, x, y
			visited[start] = true
			stack = append(stack[:0], start)
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				px, py := p%width, p/width
				minX, maxX = min(minX, px), max(maxX, px)
				minY, maxY = min(minY, py), max(maxY, py)

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := px+dx, py+dy
						if nx < 0 || nx >= width || ny < 0 || ny >= height {
							continue
						}
						n := ny*width + nx
						if !visited[n] && isInk(ink, nx, ny) {
							visited[n] = true
							stack = append(stack, n)
						}
					}
				}
			}

			box := layout.Box{X: minX, Y: minY, W: maxX - minX + 1, H: maxY - minY + 1}
			if isValidComponentSize(box.W, box.H, width, height) {
				components = append(components, box)
			}
		}
	}
	return components
}

func isInk(img *image.Gray, x, y int) bool {
	return img.Pix[y*img.Stride+x] != 0
}

// isValidComponentSize drops specks and page-sized blobs such as rules or
// scanner borders.
func isValidComponentSize(w, h, imgWidth, imgHeight int) bool {
	maxWidth := imgWidth / 2
	maxHeight := imgHeight / 5
	return w >= minComponentSide && h >= minComponentSide && w <= maxWidth && h <= maxHeight
}

func sortReadingOrder(components []layout.Box) []layout.Box {
	sort.SliceStable(components, func(i, j int) bool {
		if abs(components[i].Y-components[j].Y) < 10 {
			return components[i].X < components[j].X
		}
		return components[i].Y < components[j].Y
	})
	return components
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
