// Package pipeline runs one page through line detection, segmentation,
// classification and assembly.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/handwrite/pkg/assemble"
	"github.com/lehigh-university-libraries/handwrite/pkg/classify"
	"github.com/lehigh-university-libraries/handwrite/pkg/contour"
	"github.com/lehigh-university-libraries/handwrite/pkg/edges"
	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
	"github.com/lehigh-university-libraries/handwrite/pkg/lines"
	"github.com/lehigh-university-libraries/handwrite/pkg/normalize"
	"github.com/lehigh-university-libraries/handwrite/pkg/segment"
)

// Glyph is an accepted character region ready for classification. Index is
// its position in the accepted sequence and joins it to its prediction.
type Glyph struct {
	Index int              `yaml:"index" json:"index"`
	Box   layout.Box       `yaml:"box" json:"box"`
	Line  int              `yaml:"line" json:"line"`
	Image normalize.Bitmap `yaml:"-" json:"-"`
}

// Prediction is the best label for one glyph.
type Prediction struct {
	Label      string  `yaml:"label" json:"label"`
	Confidence float32 `yaml:"confidence" json:"confidence"`
}

type Result struct {
	RunID        string           `yaml:"run_id" json:"run_id"`
	Lines        []layout.Box     `yaml:"lines" json:"lines"`
	Threshold    float64          `yaml:"threshold" json:"threshold"`
	Segmentation segment.Result   `yaml:"segmentation" json:"segmentation"`
	Glyphs       []Glyph          `yaml:"glyphs" json:"glyphs"`
	Predictions  []Prediction     `yaml:"predictions,omitempty" json:"predictions,omitempty"`
	Tokens       []assemble.Token `yaml:"tokens,omitempty" json:"tokens,omitempty"`
	Text         string           `yaml:"text" json:"text"`
}

type Pipeline struct {
	edges      edges.Detector
	lines      lines.Provider
	classifier classify.Classifier
	params     segment.Params
}

// New wires the collaborators. classifier may be nil when only Segment is
// used.
func New(detector edges.Detector, lineProvider lines.Provider, classifier classify.Classifier, params segment.Params) (*Pipeline, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid segmentation parameters: %w", err)
	}
	return &Pipeline{
		edges:      detector,
		lines:      lineProvider,
		classifier: classifier,
		params:     params,
	}, nil
}

// Segment finds lines and glyphs without classifying them.
func (p *Pipeline) Segment(ctx context.Context, page *image.Gray, imagePath string) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	log := slog.With("run_id", res.RunID)

	start := time.Now()
	lineBoxes, err := p.lines.Lines(ctx, page, imagePath)
	if err != nil {
		return nil, fmt.Errorf("%s line detection failed: %w", p.lines.Name(), err)
	}
	res.Lines = lineBoxes
	log.Info("Detected lines", "provider", p.lines.Name(), "line_count", len(lineBoxes), "duration", time.Since(start))
	if len(lineBoxes) == 0 {
		return res, nil
	}

	edgeMap, err := p.edges.Detect(page)
	if err != nil {
		return nil, fmt.Errorf("edge detection failed: %w", err)
	}
	if edgeMap.Bounds().Size() != page.Bounds().Size() {
		return nil, fmt.Errorf("edge map is %v, page is %v", edgeMap.Bounds().Size(), page.Bounds().Size())
	}
	// edge detectors return origin based maps; lines are in page coordinates
	origin := page.Bounds().Min
	local := make([]layout.Box, len(lineBoxes))
	for i, l := range lineBoxes {
		local[i] = l.Translate(-origin.X, -origin.Y)
	}
	perLine := contour.ExtractAll(edgeMap, local)
	for i := range perLine {
		for j := range perLine[i] {
			perLine[i][j] = perLine[i][j].Translate(origin.X, origin.Y)
		}
	}

	res.Threshold = segment.SpaceThreshold(lineBoxes, p.params.SpaceDivisor)
	res.Segmentation = segment.Scan(perLine, res.Threshold, p.params)
	log.Info("Segmented glyphs",
		"candidate_count", len(res.Segmentation.Decisions),
		"glyph_count", len(res.Segmentation.Accepted),
		"space_count", len(res.Segmentation.Markers),
		"threshold", res.Threshold)

	res.Glyphs = make([]Glyph, 0, len(res.Segmentation.Accepted))
	for i, c := range res.Segmentation.Accepted {
		region, err := normalize.Crop(page, c.Box)
		if err != nil {
			return nil, fmt.Errorf("glyph %d: %w", i, err)
		}
		bm, err := normalize.Normalize(region)
		if err != nil {
			return nil, fmt.Errorf("glyph %d: %w", i, err)
		}
		res.Glyphs = append(res.Glyphs, Glyph{Index: i, Box: c.Box, Line: c.Line, Image: bm})
	}
	return res, nil
}

// Run segments the page, classifies every glyph in one batch and assembles
// the token stream. Pages without glyphs never reach the classifier.
func (p *Pipeline) Run(ctx context.Context, page *image.Gray, imagePath string) (*Result, error) {
	res, err := p.Segment(ctx, page, imagePath)
	if err != nil {
		return nil, err
	}
	if len(res.Glyphs) == 0 {
		res.Tokens = []assemble.Token{}
		return res, nil
	}
	if p.classifier == nil {
		return nil, fmt.Errorf("no classifier configured")
	}

	batch := make([]normalize.Bitmap, len(res.Glyphs))
	for i, g := range res.Glyphs {
		batch[i] = g.Image
	}

	start := time.Now()
	dists, err := p.classifier.Classify(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}
	if err := classify.Check(batch, dists); err != nil {
		return nil, err
	}
	slog.Info("Classified glyphs", "run_id", res.RunID, "glyph_count", len(batch), "duration", time.Since(start))

	labels := make([]assemble.Label, len(res.Glyphs))
	res.Predictions = make([]Prediction, len(res.Glyphs))
	for i, d := range dists {
		label, conf := d.Best()
		res.Predictions[i] = Prediction{Label: label, Confidence: conf}
		labels[i] = assemble.Label{Text: label, Confidence: conf, Box: res.Glyphs[i].Box, Line: res.Glyphs[i].Line}
	}

	res.Tokens, err = assemble.Tokens(labels, res.Segmentation.Markers)
	if err != nil {
		return nil, err
	}
	res.Text = assemble.Text(res.Tokens)
	return res, nil
}
