package classify

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/handwrite/internal/utils"
	"github.com/lehigh-university-libraries/handwrite/pkg/normalize"
	"github.com/lehigh-university-libraries/handwrite/pkg/providers"
)

// GlyphPrompt asks a vision model for a single symbol.
const GlyphPrompt = `You are reading one handwritten character that has been cropped, binarized and scaled to 32x32 pixels. The character is white on a black background.

INSTRUCTIONS:
- The character is one of: 0-9 or A-Z
- Answer with exactly one character and nothing else
- Do not add explanations, descriptions, or apologies
- If you are unsure, give your best guess

CHARACTER:`

// ProviderClassifier reads glyphs one at a time through a vision model
// provider. Requests run concurrently; results are stored by glyph index so
// the output order matches the batch.
type ProviderClassifier struct {
	provider    providers.Provider
	config      providers.Config
	concurrency int
}

// NewProviderClassifier wraps provider. A concurrency below one means one
// request at a time.
func NewProviderClassifier(provider providers.Provider, config providers.Config, concurrency int) *ProviderClassifier {
	if config.Prompt == "" {
		config.Prompt = GlyphPrompt
	}
	return &ProviderClassifier{provider: provider, config: config, concurrency: max(1, concurrency)}
}

func (c *ProviderClassifier) Classify(ctx context.Context, batch []normalize.Bitmap) ([]Distribution, error) {
	out := make([]Distribution, len(batch))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := range batch {
		g.Go(func() error {
			data, err := batch[i].PNG()
			if err != nil {
				return err
			}

			text, usage, err := c.provider.Recognize(ctx, c.config, data, "image/png")
			if err != nil {
				return fmt.Errorf("glyph %d: %w", i, utils.MaskSensitiveError(err))
			}

			label := providers.FirstSymbol(text)
			if Index(label) < 0 {
				slog.Warn("Provider answer outside alphabet", "glyph", i, "answer", text)
			}
			slog.Debug("Glyph read", "glyph", i, "label", label, "input_tokens", usage.InputTokens, "output_tokens", usage.OutputTokens)
			out[i] = OneHot(label, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s classification failed: %w", c.provider.Name(), err)
	}
	return out, nil
}
