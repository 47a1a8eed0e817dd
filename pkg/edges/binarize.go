package edges

import (
	"image"

	"github.com/ernyoke/imger/histogram"
	"github.com/ernyoke/imger/threshold"
)

// OtsuLevel returns the brightest gray level of the dark class that Otsu's
// method separates from the background. ok is false for a uniform image,
// which has nothing to separate.
func OtsuLevel(gray *image.Gray) (level uint8, ok bool) {
	hist := histogram.HistogramGray(gray)

	var total, sum float64
	for i, n := range hist {
		total += float64(n)
		sum += float64(i) * float64(n)
	}

	var weightDark, sumDark, best float64
	for i, n := range hist {
		weightDark += float64(n)
		if weightDark == 0 {
			continue
		}
		weightLight := total - weightDark
		if weightLight == 0 {
			break
		}
		sumDark += float64(i) * float64(n)

		meanDark := sumDark / weightDark
		meanLight := (sum - sumDark) / weightLight
		variance := weightDark * weightLight * (meanDark - meanLight) * (meanDark - meanLight)
		if variance > best {
			best = variance
			level = uint8(i)
			ok = true
		}
	}
	return level, ok
}

// Ink binarizes gray so the dark class found by OtsuLevel becomes 255 and the
// rest 0. A uniform image has no ink. gray must be origin based.
func Ink(gray *image.Gray) (*image.Gray, error) {
	level, ok := OtsuLevel(gray)
	if !ok {
		return image.NewGray(gray.Bounds()), nil
	}
	// ThreshBinaryInv keeps pixels strictly below its cut. level is below the
	// brightest pixel whenever ok is set, so level+1 cannot overflow.
	return threshold.Threshold(gray, level+1, threshold.ThreshBinaryInv)
}
