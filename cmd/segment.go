package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"github.com/lehigh-university-libraries/handwrite/pkg/edges"
	"github.com/lehigh-university-libraries/handwrite/pkg/pipeline"
)

var segmentCmd = &cobra.Command{
	Use:   "segment",
	Short: "Show how a page is split into lines and glyphs",
	Long: `Run line detection and character segmentation without classifying.

Prints the line regions, the space threshold, the accepted glyph boxes and the
space marker positions as YAML. With --glyphs the normalized 32x32 glyph images
are written as PNG files for inspection.`,
	RunE: runSegment,
}

var (
	segmentImage     string
	segmentOutput    string
	segmentGlyphsDir string
	segmentCfg       pipelineFlags
)

func init() {
	RootCmd.AddCommand(segmentCmd)

	segmentCmd.Flags().StringVar(&segmentImage, "image", "", "Path to input image file (required)")
	segmentCmd.Flags().StringVarP(&segmentOutput, "output", "o", "", "Output path for the YAML report (prints to stdout if not specified)")
	segmentCmd.Flags().StringVar(&segmentGlyphsDir, "glyphs", "", "Directory to write normalized glyph images to")
	segmentCfg.register(segmentCmd)

	err := segmentCmd.MarkFlagRequired("image")
	if err != nil {
		slog.Error("Unable to mark image as required", "err", err)
		os.Exit(1)
	}
}

func runSegment(cmd *cobra.Command, args []string) error {
	cfg, err := segmentCfg.load(cmd)
	if err != nil {
		return err
	}

	page, err := edges.LoadGray(segmentImage)
	if err != nil {
		return err
	}

	p, closeLines, err := newPipeline(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer closeLines()

	result, err := p.Segment(cmd.Context(), page, segmentImage)
	if err != nil {
		return fmt.Errorf("failed to segment %s: %w", segmentImage, err)
	}

	if segmentGlyphsDir != "" {
		if err := writeGlyphs(segmentGlyphsDir, result.Glyphs); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal segmentation: %w", err)
	}
	if segmentOutput == "" {
		fmt.Print(string(data))
		return nil
	}
	return os.WriteFile(segmentOutput, data, 0644)
}

func writeGlyphs(dir string, glyphs []pipeline.Glyph) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create glyph directory: %w", err)
	}
	for _, g := range glyphs {
		data, err := g.Image.PNG()
		if err != nil {
			return fmt.Errorf("glyph %d: %w", g.Index, err)
		}
		name := filepath.Join(dir, fmt.Sprintf("glyph_%04d_line%02d.png", g.Index, g.Line))
		if err := os.WriteFile(name, data, 0644); err != nil {
			return err
		}
	}
	slog.Info("Glyph images written", "dir", dir, "count", len(glyphs))
	return nil
}
