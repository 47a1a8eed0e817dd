package lines

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
)

// Vision finds lines with Google Cloud Vision document text detection. Only
// the word geometry of the response is used; its text is ignored.
type Vision struct {
	client *vision.ImageAnnotatorClient
	params Params
}

// NewVision connects with params.CredentialsFile, or Application Default
// Credentials when it is empty.
func NewVision(ctx context.Context, params Params) (*Vision, error) {
	var opts []option.ClientOption
	if params.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(params.CredentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &Vision{client: client, params: params}, nil
}

func (v *Vision) Name() string {
	return "vision"
}

func (v *Vision) Close() error {
	return v.client.Close()
}

func (v *Vision) Lines(ctx context.Context, page *image.Gray, imagePath string) ([]layout.Box, error) {
	content, err := imageContent(page, imagePath)
	if err != nil {
		return nil, err
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: content},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}
	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, nil
	}
	r := resp.GetResponses()[0]
	if msg := r.GetError().GetMessage(); msg != "" {
		return nil, fmt.Errorf("vision API error: %s", msg)
	}

	words := wordBoxes(r.GetFullTextAnnotation())
	lines := groupWordsIntoLines(words)
	slog.Debug("Vision line detection completed", "word_count", len(words), "line_count", len(lines))

	return finish(lines, page.Bounds(), v.params.Padding), nil
}

func imageContent(page *image.Gray, imagePath string) ([]byte, error) {
	if imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		return data, nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, page); err != nil {
		return nil, fmt.Errorf("failed to encode page: %w", err)
	}
	return buf.Bytes(), nil
}

// wordBoxes flattens the annotation into one axis-aligned box per word.
func wordBoxes(annotation *visionpb.TextAnnotation) []layout.Box {
	var words []layout.Box
	for _, page := range annotation.GetPages() {
		for _, block := range page.GetBlocks() {
			for _, paragraph := range block.GetParagraphs() {
				for _, word := range paragraph.GetWords() {
					if box, ok := polyBox(word.GetBoundingBox()); ok {
						words = append(words, box)
					}
				}
			}
		}
	}
	return words
}

func polyBox(poly *visionpb.BoundingPoly) (layout.Box, bool) {
	vertices := poly.GetVertices()
	if len(vertices) == 0 {
		return layout.Box{}, false
	}
	minX, minY := int(vertices[0].GetX()), int(vertices[0].GetY())
	maxX, maxY := minX, minY
	for _, v := range vertices[1:] {
		minX, maxX = min(minX, int(v.GetX())), max(maxX, int(v.GetX()))
		minY, maxY = min(minY, int(v.GetY())), max(maxY, int(v.GetY()))
	}
	box := layout.Box{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
	return box, !box.Empty()
}
