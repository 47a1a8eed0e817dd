// Package lines finds the text lines on a page. Line regions are the only
// layout information the segmenter receives.
package lines

import (
	"context"
	"fmt"
	"image"
	"sort"

	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
)

// Provider returns line regions ordered top to bottom. imagePath may be
// empty when the page did not come from a file. Zero lines is not an error.
type Provider interface {
	Lines(ctx context.Context, page *image.Gray, imagePath string) ([]layout.Box, error)
	Name() string
}

// Params tunes line grouping.
type Params struct {
	// Padding is added around each line and clamped to the page.
	Padding int `yaml:"padding"`
	// CredentialsFile is passed to the Vision client; empty uses ADC.
	CredentialsFile string `yaml:"credentials_file,omitempty"`
}

func DefaultParams() Params {
	return Params{Padding: 4}
}

// New returns the provider registered under name.
func New(ctx context.Context, name string, params Params) (Provider, error) {
	switch name {
	case "", "components":
		return NewComponents(params), nil
	case "vision":
		return NewVision(ctx, params)
	default:
		return nil, fmt.Errorf("unknown line provider %q (available: components, vision)", name)
	}
}

// finish pads each line, clamps it to bounds and orders lines top to bottom.
func finish(lines []layout.Box, bounds image.Rectangle, padding int) []layout.Box {
	out := make([]layout.Box, 0, len(lines))
	for _, l := range lines {
		r := l.Expand(padding).Rect().Intersect(bounds)
		if r.Empty() {
			continue
		}
		out = append(out, layout.FromRect(r))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}
