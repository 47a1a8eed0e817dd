// Package edges turns a grayscale page into a binary edge map.
package edges

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/ernyoke/imger/blur"
	"github.com/ernyoke/imger/edgedetection"
	"github.com/ernyoke/imger/grayscale"
	"github.com/ernyoke/imger/padding"
	"github.com/ernyoke/imger/threshold"
	"golang.org/x/image/draw"
)

// Detector produces an edge map the same size as its input. Edge pixels are
// non-zero.
type Detector interface {
	Detect(gray *image.Gray) (*image.Gray, error)
}

// Params tunes the Sobel detector.
type Params struct {
	BlurRadius float64 `yaml:"blur_radius"`
	BlurSigma  float64 `yaml:"blur_sigma"`
	// Threshold is the smallest gradient magnitude kept as an edge.
	Threshold uint8 `yaml:"threshold"`
}

// DefaultParams returns the settings the segmenter was tuned against.
func DefaultParams() Params {
	return Params{
		BlurRadius: 2,
		BlurSigma:  1.1,
		Threshold:  30,
	}
}

func (p Params) Validate() error {
	if p.Threshold == 0 {
		return fmt.Errorf("edge threshold must be positive")
	}
	if p.BlurRadius < 0 || p.BlurSigma < 0 {
		return fmt.Errorf("blur radius and sigma must not be negative")
	}
	return nil
}

// Sobel blurs the page, takes the Sobel gradient and keeps every pixel at or
// above Params.Threshold. The bands are not thinned, so each stroke yields
// one connected run of edge pixels spanning the whole stroke.
type Sobel struct {
	Params Params
}

func NewSobel(params Params) (*Sobel, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Sobel{Params: params}, nil
}

func (s *Sobel) Detect(gray *image.Gray) (*image.Gray, error) {
	if gray.Bounds().Empty() {
		return nil, fmt.Errorf("empty page")
	}
	// Imger indexes from the origin
	src := rebase(gray)

	if s.Params.BlurRadius > 0 {
		blurred, err := blur.GaussianBlurGray(src, s.Params.BlurRadius, s.Params.BlurSigma, padding.BorderReflect)
		if err != nil {
			return nil, fmt.Errorf("failed to blur page: %w", err)
		}
		src = blurred
	}

	gradient, err := edgedetection.SobelGray(src, padding.BorderReflect)
	if err != nil {
		return nil, fmt.Errorf("sobel edge detection failed: %w", err)
	}
	edgeMap, err := threshold.Threshold(gradient, s.Params.Threshold, threshold.ThreshBinary)
	if err != nil {
		return nil, fmt.Errorf("failed to threshold gradient: %w", err)
	}
	return edgeMap, nil
}

// LoadGray decodes a PNG, JPEG or GIF page file and converts it to
// grayscale.
func LoadGray(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	gray, err := ReadGray(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return gray, nil
}

// ReadGray decodes a page from r and converts it to grayscale.
func ReadGray(r io.Reader) (*image.Gray, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if g, ok := img.(*image.Gray); ok {
		return rebase(g), nil
	}
	return grayscale.Grayscale(img), nil
}

func rebase(g *image.Gray) *image.Gray {
	b := g.Bounds()
	if b.Min == (image.Point{}) {
		return g
	}
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), g, b.Min, draw.Src)
	return out
}
