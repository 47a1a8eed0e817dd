package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/handwrite/pkg/edges"
	"github.com/lehigh-university-libraries/handwrite/pkg/export"
	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a handwritten page into a document",
	Long: `Convert a scanned handwritten page into an editable document.

The page is split into text lines, each line into characters using an edge map
and contour tracing, and each character is normalized to 32x32 and classified.
Word gaps found during segmentation become spaces in the output.`,
	RunE: runConvert,
}

var (
	imagePath  string
	outputPath string
	format     string
	convertCfg pipelineFlags
)

func init() {
	RootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&imagePath, "image", "", "Path to input image file (required)")
	convertCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (defaults to the image name with the format's extension)")
	convertCmd.Flags().StringVar(&format, "format", "", "Output format: "+strings.Join(export.Formats(), ", "))
	convertCfg.register(convertCmd)

	err := convertCmd.MarkFlagRequired("image")
	if err != nil {
		slog.Error("Unable to mark image as required", "err", err)
		os.Exit(1)
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(imagePath); os.IsNotExist(err) {
		return fmt.Errorf("input image file does not exist: %s", imagePath)
	}

	cfg, err := convertCfg.load(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("format") {
		cfg.Export.Format = format
	}

	page, err := edges.LoadGray(imagePath)
	if err != nil {
		return err
	}

	exporter, err := export.New(cfg.Export.Format,
		export.WithPage(layout.FromRect(page.Bounds())),
		export.WithFontSize(cfg.Export.FontSize),
	)
	if err != nil {
		return err
	}

	p, closeLines, err := newPipeline(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer closeLines()

	slog.Info("Converting page",
		"image", imagePath,
		"backend", cfg.Classifier.Backend,
		"provider", cfg.Classifier.Provider,
		"model", cfg.Classifier.Model,
		"format", exporter.Format())

	result, err := p.Run(cmd.Context(), page, imagePath)
	if err != nil {
		return fmt.Errorf("failed to convert %s: %w", imagePath, err)
	}

	out := outputPath
	if out == "" {
		out = defaultOutputPath(imagePath, exporter.Format())
	}
	if err := exporter.Export(result.Tokens, out); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	slog.Info("Document written", "path", out, "run_id", result.RunID, "glyphs", len(result.Glyphs), "lines", len(result.Lines))
	return nil
}

// defaultOutputPath swaps the image extension for the format's.
func defaultOutputPath(image, format string) string {
	base := strings.TrimSuffix(image, filepath.Ext(image))
	return base + export.Extension(format)
}
