package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/handwrite/pkg/classify"
	"github.com/lehigh-university-libraries/handwrite/pkg/classify/tesseract"
	"github.com/lehigh-university-libraries/handwrite/pkg/claude"
	"github.com/lehigh-university-libraries/handwrite/pkg/config"
	"github.com/lehigh-university-libraries/handwrite/pkg/edges"
	"github.com/lehigh-university-libraries/handwrite/pkg/gemini"
	"github.com/lehigh-university-libraries/handwrite/pkg/lines"
	"github.com/lehigh-university-libraries/handwrite/pkg/ollama"
	"github.com/lehigh-university-libraries/handwrite/pkg/openai"
	"github.com/lehigh-university-libraries/handwrite/pkg/pipeline"
	"github.com/lehigh-university-libraries/handwrite/pkg/providers"
)

func newRegistry() *providers.Registry {
	return providers.NewRegistry(
		openai.New(),
		claude.New(),
		gemini.New(),
		ollama.New(),
	)
}

func getDefaultModel(providerName string) string {
	switch providerName {
	case "openai":
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return "gpt-4o"
	case "claude":
		if model := os.Getenv("CLAUDE_MODEL"); model != "" {
			return model
		}
		return "claude-sonnet-4-5-20250514"
	case "gemini":
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			return model
		}
		return "gemini-1.5-flash"
	case "ollama":
		if model := os.Getenv("OLLAMA_MODEL"); model != "" {
			return model
		}
		return "llava"
	default:
		return ""
	}
}

// pipelineFlags are shared by every command that runs a page.
type pipelineFlags struct {
	configPath  string
	backend     string
	provider    string
	model       string
	temperature float64
	concurrency int
	lines       string
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "YAML file with pipeline settings")
	cmd.Flags().StringVar(&f.backend, "backend", "", "Classifier backend: provider, tesseract")
	cmd.Flags().StringVar(&f.provider, "provider", "", "Provider to use: openai, claude, gemini, ollama")
	cmd.Flags().StringVar(&f.model, "model", "", "Model to use (uses provider default if not specified)")
	cmd.Flags().Float64VarP(&f.temperature, "temperature", "t", 0.0, "Temperature for LLM")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "Glyphs classified in parallel")
	cmd.Flags().StringVar(&f.lines, "lines", "", "Line provider: components, vision")
}

// load reads the config file and applies the flags the user set.
func (f *pipelineFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Classifier.Backend = f.backend
	}
	if flags.Changed("provider") {
		cfg.Classifier.Provider = f.provider
		cfg.Classifier.Model = ""
	}
	if flags.Changed("model") {
		cfg.Classifier.Model = f.model
	}
	if flags.Changed("temperature") {
		cfg.Classifier.Temperature = f.temperature
	}
	if flags.Changed("concurrency") {
		cfg.Classifier.Concurrency = f.concurrency
	}
	if flags.Changed("lines") {
		cfg.Lines.Provider = f.lines
	}
	if cfg.Classifier.Backend == config.BackendProvider && cfg.Classifier.Model == "" {
		cfg.Classifier.Model = getDefaultModel(cfg.Classifier.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newClassifier(cfg config.Classifier) (classify.Classifier, error) {
	switch cfg.Backend {
	case config.BackendTesseract:
		return tesseract.New(cfg.Language)
	case config.BackendProvider:
		p, err := newRegistry().Get(cfg.Provider)
		if err != nil {
			return nil, fmt.Errorf("unsupported provider: %w", err)
		}
		if err := p.ValidateConfig(cfg.Config); err != nil {
			return nil, fmt.Errorf("provider configuration validation failed: %w", err)
		}
		return classify.NewProviderClassifier(p, cfg.Config, cfg.Concurrency), nil
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", cfg.Backend)
	}
}

// newPipeline builds a pipeline from cfg. withClassifier is false for
// segmentation-only runs. The returned close func releases the line
// provider's client, if it holds one.
func newPipeline(ctx context.Context, cfg config.Config, withClassifier bool) (*pipeline.Pipeline, func(), error) {
	noop := func() {}

	detector, err := edges.NewSobel(cfg.Edges)
	if err != nil {
		return nil, noop, err
	}

	lineProvider, err := lines.New(ctx, cfg.Lines.Provider, cfg.Lines.Params)
	if err != nil {
		return nil, noop, err
	}
	closeLines := func() {
		if c, ok := lineProvider.(io.Closer); ok {
			if err := c.Close(); err != nil {
				slog.Warn("Unable to close line provider", "provider", lineProvider.Name(), "err", err)
			}
		}
	}

	var classifier classify.Classifier
	if withClassifier {
		classifier, err = newClassifier(cfg.Classifier)
		if err != nil {
			closeLines()
			return nil, noop, err
		}
	}

	p, err := pipeline.New(detector, lineProvider, classifier, cfg.Segment)
	if err != nil {
		closeLines()
		return nil, noop, err
	}
	return p, closeLines, nil
}
