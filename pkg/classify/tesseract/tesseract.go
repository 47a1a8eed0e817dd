// Package tesseract classifies glyphs with a local Tesseract engine in
// single-character mode.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/image/draw"

	"github.com/lehigh-university-libraries/handwrite/pkg/classify"
	"github.com/lehigh-university-libraries/handwrite/pkg/normalize"
)

// margin of white added around each glyph; tesseract misses symbols that
// touch the image border
const margin = 16

// Classifier reads each glyph with its own pooled gosseract client.
type Classifier struct {
	pool     *sync.Pool
	language string
}

// New validates the language and builds the client pool.
func New(language string) (*Classifier, error) {
	if language == "" {
		language = "eng"
	}

	testClient := gosseract.NewClient()
	if err := configure(testClient, language); err != nil {
		testClient.Close()
		return nil, err
	}
	testClient.Close()

	return &Classifier{
		language: language,
		pool: &sync.Pool{
			New: func() any {
				client := gosseract.NewClient()
				_ = configure(client, language) // validated above
				return client
			},
		},
	}, nil
}

func configure(client *gosseract.Client, language string) error {
	if err := client.SetLanguage(language); err != nil {
		return fmt.Errorf("failed to set language %q: %w", language, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_CHAR); err != nil {
		return fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetWhitelist(classify.Alphabet); err != nil {
		return fmt.Errorf("failed to set whitelist: %w", err)
	}
	return nil
}

func (c *Classifier) Classify(ctx context.Context, batch []normalize.Bitmap) ([]classify.Distribution, error) {
	client := c.pool.Get().(*gosseract.Client)
	defer c.pool.Put(client)

	out := make([]classify.Distribution, len(batch))
	for i := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := Render(&batch[i])
		if err != nil {
			return nil, fmt.Errorf("glyph %d: %w", i, err)
		}
		if err := client.SetImageFromBytes(data); err != nil {
			return nil, fmt.Errorf("glyph %d: set image: %w", i, err)
		}
		boxes, err := client.GetBoundingBoxes(gosseract.RIL_SYMBOL)
		if err != nil {
			return nil, fmt.Errorf("glyph %d: recognize: %w", i, err)
		}
		out[i] = Distribution(boxes)
	}
	return out, nil
}

// Distribution turns tesseract's symbol boxes into a label distribution,
// keeping the most confident symbol. No boxes yields a uniform distribution.
func Distribution(boxes []gosseract.BoundingBox) classify.Distribution {
	label, conf := "", 0.0
	for _, b := range boxes {
		if classify.Index(b.Word) < 0 {
			continue
		}
		if label == "" || b.Confidence > conf {
			label, conf = b.Word, b.Confidence
		}
	}
	return classify.OneHot(label, float32(conf/100))
}

// Render converts a normalized glyph into the dark-on-light padded PNG that
// tesseract reads best.
func Render(b *normalize.Bitmap) ([]byte, error) {
	glyph := b.Gray()
	for i, v := range glyph.Pix {
		glyph.Pix[i] = 255 - v
	}

	side := normalize.Size + 2*margin
	canvas := image.NewGray(image.Rect(0, 0, side, side))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, glyph.Bounds().Add(image.Pt(margin, margin)), glyph, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode glyph: %w", err)
	}
	return buf.Bytes(), nil
}
