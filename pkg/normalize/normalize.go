// Package normalize turns a cropped glyph region into the fixed-size bitmap
// the classifiers expect.
package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"

	"golang.org/x/image/draw"

	"github.com/lehigh-university-libraries/handwrite/pkg/edges"
	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
)

// Size is the side length of a normalized glyph.
const Size = 32

var ErrEmptyRegion = errors.New("empty glyph region")

// Bitmap is a Size×Size single-channel glyph, row-major, with values in
// [0,1]. Stroke pixels are bright, background is 0.
type Bitmap struct {
	Pix [Size * Size]float32
}

// At returns the intensity at column x, row y.
func (b *Bitmap) At(x, y int) float32 {
	return b.Pix[y*Size+x]
}

// Gray renders the bitmap as an 8-bit image.
func (b *Bitmap) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, Size, Size))
	for i, v := range b.Pix {
		img.Pix[i] = uint8(math.Round(float64(v) * 255))
	}
	return img
}

// PNG encodes the bitmap for backends that consume image files.
func (b *Bitmap) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, b.Gray()); err != nil {
		return nil, fmt.Errorf("failed to encode glyph: %w", err)
	}
	return buf.Bytes(), nil
}

// Crop returns the part of page covered by box, clamped to the page.
func Crop(page *image.Gray, box layout.Box) (*image.Gray, error) {
	r := box.Rect().Intersect(page.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("%w: %v outside page %v", ErrEmptyRegion, box, page.Bounds())
	}
	return page.SubImage(r).(*image.Gray), nil
}

// Normalize binarizes region with Otsu's threshold so the stroke becomes
// foreground, scales it so the longer side is Size pixels, and centres it on
// a Size×Size background canvas. An odd leftover pixel of padding goes to the
// right or bottom edge.
func Normalize(region *image.Gray) (Bitmap, error) {
	var bm Bitmap
	if region == nil || region.Bounds().Empty() {
		return bm, ErrEmptyRegion
	}

	bin, err := edges.Ink(rebase(region))
	if err != nil {
		return bm, fmt.Errorf("failed to binarize glyph: %w", err)
	}

	tw, th := fit(bin.Bounds().Dx(), bin.Bounds().Dy())
	scaled := image.NewGray(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), bin, bin.Bounds(), draw.Src, nil)

	canvas := image.NewGray(image.Rect(0, 0, Size, Size))
	dx, dy := (Size-tw)/2, (Size-th)/2
	draw.Draw(canvas, image.Rect(dx, dy, dx+tw, dy+th), scaled, image.Point{}, draw.Src)

	for i, v := range canvas.Pix {
		bm.Pix[i] = float32(v) / 255
	}
	return bm, nil
}

// fit scales (w, h) so the longer side becomes Size; the shorter side keeps
// the aspect ratio and never drops below one pixel.
func fit(w, h int) (int, int) {
	if w > h {
		return Size, max(1, int(math.Round(float64(h)*Size/float64(w))))
	}
	return max(1, int(math.Round(float64(w)*Size/float64(h)))), Size
}

// rebase copies img so its bounds start at the origin.
func rebase(img *image.Gray) *image.Gray {
	b := img.Bounds()
	if b.Min == (image.Point{}) {
		return img
	}
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
