package edges

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/lehigh-university-libraries/handwrite/pkg/contour"
	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
)

func square(w, h int, r image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{})
		}
	}
	return img
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Params)
		wantErr bool
	}{
		{"defaults", func(p *Params) {}, false},
		{"zero threshold", func(p *Params) { p.Threshold = 0 }, true},
		{"negative blur", func(p *Params) { p.BlurSigma = -1 }, true},
		{"blur disabled", func(p *Params) { p.BlurRadius = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			if err := p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSobel_Detect(t *testing.T) {
	page := square(80, 60, image.Rect(20, 15, 60, 45))

	s, err := NewSobel(DefaultParams())
	if err != nil {
		t.Fatalf("NewSobel failed: %v", err)
	}
	edgeMap, err := s.Detect(page)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if edgeMap.Bounds().Size() != page.Bounds().Size() {
		t.Fatalf("Expected edge map %v, got %v", page.Bounds().Size(), edgeMap.Bounds().Size())
	}

	edgeCount := 0
	for _, v := range edgeMap.Pix {
		if v != 0 {
			edgeCount++
		}
	}
	if edgeCount == 0 {
		t.Fatal("Expected edges around the square")
	}
	// far from the square there is nothing to detect
	if edgeMap.GrayAt(2, 2).Y != 0 || edgeMap.GrayAt(40, 30).Y != 0 {
		t.Error("Expected no edges in flat regions")
	}

	// the filled square must come out as one region covering it
	boxes := contour.Extract(edgeMap, layout.Box{X: 0, Y: 0, W: 80, H: 60})
	if len(boxes) != 1 {
		t.Fatalf("Expected one contour around the square, got %v", boxes)
	}
	got := boxes[0]
	if got.X < 17 || got.X > 20 || got.Y < 12 || got.Y > 15 {
		t.Errorf("Contour %v does not start at the square's corner (20,15)", got)
	}
	if got.Right() < 60 || got.Right() > 63 || got.Bottom() < 45 || got.Bottom() > 48 {
		t.Errorf("Contour %v does not reach the square's far corner (60,45)", got)
	}
}

func TestSobel_DetectNoBlur(t *testing.T) {
	params := DefaultParams()
	params.BlurRadius = 0
	s, err := NewSobel(params)
	if err != nil {
		t.Fatalf("NewSobel failed: %v", err)
	}

	edgeMap, err := s.Detect(square(40, 40, image.Rect(10, 10, 30, 30)))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	boxes := contour.Extract(edgeMap, layout.Box{X: 0, Y: 0, W: 40, H: 40})
	if len(boxes) != 1 {
		t.Fatalf("Expected one contour, got %v", boxes)
	}
}

func TestSobel_DetectSubImage(t *testing.T) {
	page := square(80, 60, image.Rect(20, 15, 60, 45))
	sub := page.SubImage(image.Rect(10, 5, 70, 55)).(*image.Gray)

	s, _ := NewSobel(DefaultParams())
	edgeMap, err := s.Detect(sub)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if edgeMap.Bounds() != image.Rect(0, 0, 60, 50) {
		t.Errorf("Expected rebased bounds, got %v", edgeMap.Bounds())
	}
}

func TestSobel_DetectEmpty(t *testing.T) {
	s, _ := NewSobel(DefaultParams())
	if _, err := s.Detect(image.NewGray(image.Rect(0, 0, 0, 0))); err == nil {
		t.Error("Expected error for empty page")
	}
	if _, err := NewSobel(Params{}); err == nil {
		t.Error("Expected NewSobel to reject a zero threshold")
	}
}

func TestLoadGray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.png")

	rgba := image.NewRGBA(image.Rect(0, 0, 4, 3))
	rgba.Set(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, rgba); err != nil {
		t.Fatal(err)
	}
	f.Close()

	gray, err := LoadGray(path)
	if err != nil {
		t.Fatalf("LoadGray failed: %v", err)
	}
	if gray.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Errorf("Unexpected bounds %v", gray.Bounds())
	}
	if gray.GrayAt(1, 1).Y < 250 || gray.GrayAt(0, 0).Y > 5 {
		t.Errorf("Unexpected grayscale conversion: %v %v", gray.GrayAt(1, 1), gray.GrayAt(0, 0))
	}

	if _, err := LoadGray(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}
