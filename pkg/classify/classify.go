// Package classify maps normalized glyphs to label probabilities.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/handwrite/pkg/normalize"
)

// Alphabet is the fixed label set, in output order: digits then uppercase
// letters.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var ErrCountMismatch = errors.New("classifier result count does not match glyph count")

// Distribution holds one probability per Alphabet symbol.
type Distribution []float32

// Best returns the most probable label. Ties go to the earlier symbol.
func (d Distribution) Best() (string, float32) {
	if len(d) == 0 {
		return "", 0
	}
	best := 0
	for i, p := range d {
		if p > d[best] {
			best = i
		}
	}
	if best >= len(Alphabet) {
		return "", d[best]
	}
	return Alphabet[best : best+1], d[best]
}

// OneHot returns a distribution that puts confidence on label and spreads
// the remainder evenly over the other symbols. Labels outside the alphabet
// yield a uniform distribution.
func OneHot(label string, confidence float32) Distribution {
	d := make(Distribution, len(Alphabet))
	i := Index(label)
	if i < 0 {
		for j := range d {
			d[j] = 1 / float32(len(Alphabet))
		}
		return d
	}
	confidence = min(max(confidence, 0), 1)
	rest := (1 - confidence) / float32(len(Alphabet)-1)
	for j := range d {
		d[j] = rest
	}
	d[i] = confidence
	return d
}

// Index returns the alphabet position of label, or -1. Lowercase letters
// are folded to uppercase.
func Index(label string) int {
	label = strings.ToUpper(strings.TrimSpace(label))
	if len(label) != 1 {
		return -1
	}
	return strings.IndexByte(Alphabet, label[0])
}

// Classifier maps a batch of glyphs to one distribution per glyph, in the
// same order.
type Classifier interface {
	Classify(ctx context.Context, batch []normalize.Bitmap) ([]Distribution, error)
}

// Check enforces the one-result-per-glyph contract.
func Check(batch []normalize.Bitmap, out []Distribution) error {
	if len(out) != len(batch) {
		return fmt.Errorf("%w: %d glyphs, %d results", ErrCountMismatch, len(batch), len(out))
	}
	return nil
}

// Fixed is a deterministic classifier that answers from a script of labels,
// repeating the script when the batch is longer.
type Fixed struct {
	Labels     []string
	Confidence float32
}

func (f Fixed) Classify(ctx context.Context, batch []normalize.Bitmap) ([]Distribution, error) {
	if len(batch) > 0 && len(f.Labels) == 0 {
		return nil, fmt.Errorf("fixed classifier has no labels")
	}
	conf := f.Confidence
	if conf == 0 {
		conf = 1
	}
	out := make([]Distribution, len(batch))
	for i := range batch {
		out[i] = OneHot(f.Labels[i%len(f.Labels)], conf)
	}
	return out, nil
}
