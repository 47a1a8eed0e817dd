package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"github.com/lehigh-university-libraries/handwrite/pkg/metrics"
)

// ExternalEvalConfig stores configuration for scoring another engine's output
type ExternalEvalConfig struct {
	ModelName      string   `yaml:"model_name"`
	CSVPath        string   `yaml:"csv_path"`
	TestRows       []int    `yaml:"rows"`
	IgnorePatterns []string `yaml:"ignore_patterns,omitempty"`
	Timestamp      string   `yaml:"timestamp"`
}

type ExternalEvalSummary struct {
	Config  ExternalEvalConfig `yaml:"config"`
	Results []EvalResult       `yaml:"results"`
}

var evalExternalCmd = &cobra.Command{
	Use:   "eval-external",
	Short: "Evaluate external model transcriptions against ground truth",
	Long: `Score transcriptions produced by another OCR/HTR engine (Tesseract, Loghi, a
previous handwrite run) with the same metrics as eval, so the results can be
compared side by side.

This command expects a CSV file with 2 columns:
  transcript,transcription

Example:
  handwrite eval-external --csv loghi_results.csv --name loghi --dir ./fixtures --ignore '|'`,
	RunE: runEvalExternal,
}

var (
	evalExternalCSVPath        string
	evalExternalModelName      string
	evalExternalDir            string
	evalExternalRows           []int
	evalExternalIgnorePatterns []string
)

func init() {
	RootCmd.AddCommand(evalExternalCmd)

	evalExternalCmd.Flags().StringVarP(&evalExternalCSVPath, "csv", "c", "", "Path to CSV file with external evaluation data (required)")
	evalExternalCmd.Flags().StringVarP(&evalExternalModelName, "name", "n", "", "Name of the external model (e.g., 'loghi', 'tesseract') (required)")
	evalExternalCmd.Flags().StringVar(&evalExternalDir, "dir", "./", "Prepend your CSV file paths with a directory")
	evalExternalCmd.Flags().IntSliceVar(&evalExternalRows, "rows", []int{}, "A list of row numbers to process")
	evalExternalCmd.Flags().StringSliceVar(&evalExternalIgnorePatterns, "ignore", []string{}, "Ground truth markers for unreadable text, e.g. '|'")

	if err := evalExternalCmd.MarkFlagRequired("csv"); err != nil {
		panic(err)
	}
	if err := evalExternalCmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
}

func runEvalExternal(cmd *cobra.Command, args []string) error {
	cfg := ExternalEvalConfig{
		ModelName:      evalExternalModelName,
		CSVPath:        evalExternalCSVPath,
		TestRows:       evalExternalRows,
		IgnorePatterns: evalExternalIgnorePatterns,
		Timestamp:      time.Now().Format(timestampFormat),
	}

	evalsDir := "evals"
	if err := os.MkdirAll(evalsDir, 0755); err != nil {
		return fmt.Errorf("failed to create evals directory: %w", err)
	}

	results, err := processExternalEval(cfg)
	if err != nil {
		return fmt.Errorf("external evaluation failed: %w", err)
	}

	data, err := yaml.Marshal(ExternalEvalSummary{Config: cfg, Results: results})
	if err != nil {
		return err
	}
	name := strings.ReplaceAll(cfg.ModelName, ":", "_")
	outputPath := filepath.Join(evalsDir, fmt.Sprintf("%s.yaml", name))
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	fmt.Printf("\nExternal evaluation completed. Results saved to: %s\n", outputPath)
	printSummaryStats(results)

	return nil
}

func processExternalEval(cfg ExternalEvalConfig) ([]EvalResult, error) {
	dataRows, numbers, err := readRows(cfg.CSVPath, "transcript", cfg.TestRows)
	if err != nil {
		return nil, err
	}

	var results []EvalResult
	for i, row := range dataRows {
		if len(row) < 2 {
			slog.Warn("Insufficient columns (expected 2: transcript, transcription)", "row", numbers[i]+1, "columns", len(row))
			continue
		}

		result, err := processExternalEvalRow(row)
		if err != nil {
			slog.Error("Error processing row", "row", numbers[i]+1, "err", err)
			continue
		}

		results = append(results, result)
		printRowResult(result)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("no rows were successfully processed")
	}
	return results, nil
}

func processExternalEvalRow(row []string) (EvalResult, error) {
	transcriptPath := joinPath(evalExternalDir, row[0])
	transcriptionPath := joinPath(evalExternalDir, row[1])

	groundTruth, err := readTextFile(transcriptPath)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to read ground truth transcript: %w", err)
	}
	transcription, err := readTextFile(transcriptionPath)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to read external transcription: %w", err)
	}

	return EvalResult{
		Identifier:     filepath.Base(transcriptPath),
		TranscriptPath: transcriptPath,
		Transcription:  transcription,
		Result:         metrics.Calculate(groundTruth, transcription, evalExternalIgnorePatterns),
	}, nil
}
