// Package config loads the YAML settings shared by the commands.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"github.com/lehigh-university-libraries/handwrite/pkg/edges"
	"github.com/lehigh-university-libraries/handwrite/pkg/export"
	"github.com/lehigh-university-libraries/handwrite/pkg/lines"
	"github.com/lehigh-university-libraries/handwrite/pkg/providers"
	"github.com/lehigh-university-libraries/handwrite/pkg/segment"
)

const (
	BackendProvider  = "provider"
	BackendTesseract = "tesseract"
)

type Config struct {
	Edges      edges.Params   `yaml:"edges"`
	Lines      Lines          `yaml:"lines"`
	Segment    segment.Params `yaml:"segment"`
	Classifier Classifier     `yaml:"classifier"`
	Export     Export         `yaml:"export"`
}

type Lines struct {
	Provider     string `yaml:"provider"`
	lines.Params `yaml:",inline"`
}

type Classifier struct {
	// Backend is "provider" for a vision model or "tesseract".
	Backend          string `yaml:"backend"`
	providers.Config `yaml:",inline"`
	Concurrency      int    `yaml:"concurrency"`
	Language         string `yaml:"language,omitempty"`
}

type Export struct {
	Format   string  `yaml:"format"`
	FontSize float64 `yaml:"font_size"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Edges: edges.DefaultParams(),
		Lines: Lines{
			Provider: "components",
			Params:   lines.DefaultParams(),
		},
		Segment: segment.DefaultParams(),
		Classifier: Classifier{
			Backend: BackendProvider,
			Config: providers.Config{
				Provider: "openai",
				Timeout:  60 * time.Second,
			},
			Concurrency: 4,
			Language:    "eng",
		},
		Export: Export{
			Format:   export.DefaultFormat(runtime.GOOS),
			FontSize: 12,
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Edges.Validate(); err != nil {
		return fmt.Errorf("edges: %w", err)
	}
	if err := c.Segment.Validate(); err != nil {
		return fmt.Errorf("segment: %w", err)
	}
	if c.Lines.Padding < 0 {
		return fmt.Errorf("lines: padding must not be negative")
	}
	switch c.Classifier.Backend {
	case BackendProvider, BackendTesseract:
	default:
		return fmt.Errorf("classifier: unknown backend %q", c.Classifier.Backend)
	}
	if _, err := export.New(c.Export.Format); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// Save writes the config as YAML, for recording the settings of a run.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
