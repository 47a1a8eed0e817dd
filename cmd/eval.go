package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"github.com/lehigh-university-libraries/handwrite/pkg/config"
	"github.com/lehigh-university-libraries/handwrite/pkg/edges"
	"github.com/lehigh-university-libraries/handwrite/pkg/metrics"
	"github.com/lehigh-university-libraries/handwrite/pkg/pipeline"
)

const timestampFormat = "2006-01-02_15-04-05"

type EvalConfig struct {
	Pipeline       config.Config `yaml:"pipeline"`
	CSVPath        string        `yaml:"csv_path"`
	Dir            string        `yaml:"dir"`
	TestRows       []int         `yaml:"rows"`
	IgnorePatterns []string      `yaml:"ignore_patterns,omitempty"`
	Timestamp      string        `yaml:"timestamp"`
}

type EvalResult struct {
	Identifier     string `yaml:"identifier"`
	ImagePath      string `yaml:"image_path,omitempty"`
	TranscriptPath string `yaml:"transcript_path"`
	Public         bool   `yaml:"public"`
	RunID          string `yaml:"run_id,omitempty"`
	GlyphCount     int    `yaml:"glyph_count"`
	Transcription  string `yaml:"transcription"`
	metrics.Result `yaml:",inline"`
}

type EvalSummary struct {
	Config  EvalConfig   `yaml:"config"`
	Results []EvalResult `yaml:"results"`
}

// pageRunner is the part of the pipeline eval needs.
type pageRunner interface {
	Run(ctx context.Context, page *image.Gray, imagePath string) (*pipeline.Result, error)
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate transcription accuracy against ground truth",
	Long: `Run the full pipeline over a set of pages and compare the text with ground
truth transcripts.

The CSV has the columns image,transcript[,public]. Paths may be URLs. Results
are written to evals/eval_<timestamp>.yaml, which can be passed to --rerun to
repeat the evaluation with the same settings.`,
	RunE: runEval,
}

var (
	evalCSVPath        string
	evalRerunPath      string
	evalIgnorePatterns []string
	dir                string
	rows               []int
	evalCfg            pipelineFlags
)

func init() {
	RootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalCSVPath, "csv", "c", "", "Path to CSV file with evaluation data")
	evalCmd.Flags().StringVar(&evalRerunPath, "rerun", "", "Path to previous evaluation results to rerun")
	evalCmd.Flags().StringSliceVar(&evalIgnorePatterns, "ignore", []string{}, "Ground truth markers for unreadable text, e.g. '|'")
	evalCmd.Flags().StringVar(&dir, "dir", "./", "Prepend your CSV file paths with a directory")
	evalCmd.Flags().IntSliceVar(&rows, "rows", []int{}, "A list of row numbers to run the test on")
	evalCfg.register(evalCmd)

	evalCmd.MarkFlagsOneRequired("csv", "rerun")
	evalCmd.MarkFlagsMutuallyExclusive("csv", "rerun")
}

func runEval(cmd *cobra.Command, args []string) error {
	var cfg EvalConfig
	var err error

	if evalRerunPath != "" {
		cfg, err = loadEvalConfig(evalRerunPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fmt.Printf("Loaded configuration from %s\n", evalRerunPath)
	} else {
		pipelineCfg, err := evalCfg.load(cmd)
		if err != nil {
			return err
		}
		cfg = EvalConfig{
			Pipeline:       pipelineCfg,
			CSVPath:        evalCSVPath,
			Dir:            dir,
			IgnorePatterns: evalIgnorePatterns,
			Timestamp:      time.Now().Format(timestampFormat),
		}
	}
	if cmd.Flags().Changed("rows") {
		cfg.TestRows = rows
	}

	evalsDir := "evals"
	if err := os.MkdirAll(evalsDir, 0755); err != nil {
		return fmt.Errorf("failed to create evals directory: %w", err)
	}

	p, closeLines, err := newPipeline(cmd.Context(), cfg.Pipeline, true)
	if err != nil {
		return err
	}
	defer closeLines()

	results, err := processEvaluation(cmd.Context(), p, cfg)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	summary := EvalSummary{
		Config:  cfg,
		Results: results,
	}

	outputPath := filepath.Join(evalsDir, fmt.Sprintf("eval_%s.yaml", cfg.Timestamp))
	if err := saveEvalResults(summary, outputPath); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	fmt.Printf("\nEvaluation completed. Results saved to: %s\n", outputPath)
	printSummaryStats(results)

	return nil
}

func loadEvalConfig(path string) (EvalConfig, error) {
	var summary EvalSummary

	data, err := os.ReadFile(path)
	if err != nil {
		return EvalConfig{}, err
	}
	if err := yaml.Unmarshal(data, &summary); err != nil {
		return EvalConfig{}, err
	}
	if err := summary.Config.Pipeline.Validate(); err != nil {
		return EvalConfig{}, fmt.Errorf("invalid pipeline settings in %s: %w", path, err)
	}

	summary.Config.Timestamp = time.Now().Format(timestampFormat)
	return summary.Config, nil
}

// readRows loads a CSV, drops the header if its first cell is header and
// keeps the rows selected by want. An empty want keeps every row.
func readRows(path, header string, want []int) ([][]string, []int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("CSV file is empty")
	}

	dataRows := records
	if strings.EqualFold(strings.TrimSpace(records[0][0]), header) {
		dataRows = records[1:]
	}

	var selected [][]string
	var numbers []int
	for i, row := range dataRows {
		if len(want) > 0 && !slices.Contains(want, i) {
			slog.Debug("Skipping row", "row", i+1)
			continue
		}
		selected = append(selected, row)
		numbers = append(numbers, i)
	}
	return selected, numbers, nil
}

func processEvaluation(ctx context.Context, p pageRunner, cfg EvalConfig) ([]EvalResult, error) {
	dataRows, numbers, err := readRows(cfg.CSVPath, "image", cfg.TestRows)
	if err != nil {
		return nil, err
	}

	var results []EvalResult
	for i, row := range dataRows {
		if len(row) < 2 {
			slog.Warn("Insufficient columns (expected image, transcript)", "row", numbers[i]+1, "columns", len(row))
			continue
		}

		result, err := processRow(ctx, p, row, cfg)
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

func processRow(ctx context.Context, p pageRunner, row []string, cfg EvalConfig) (EvalResult, error) {
	imagePath := joinPath(cfg.Dir, row[0])
	transcriptPath := joinPath(cfg.Dir, row[1])

	public := false
	if len(row) > 2 {
		publicStr := strings.TrimSpace(row[2])
		v, err := strconv.ParseBool(publicStr)
		if err != nil {
			return EvalResult{}, fmt.Errorf("invalid public value: %s", publicStr)
		}
		public = v
	}

	groundTruth, err := readTextFile(transcriptPath)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to read transcript: %w", err)
	}

	page, err := loadPage(ctx, imagePath)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to process image: %w", err)
	}

	// line providers may reread the file; a fetched page has none
	pagePath := imagePath
	if isURL(pagePath) {
		pagePath = ""
	}
	out, err := p.Run(ctx, page, pagePath)
	if err != nil {
		return EvalResult{}, fmt.Errorf("pipeline failed: %w", err)
	}

	return EvalResult{
		Identifier:     filepath.Base(imagePath),
		ImagePath:      imagePath,
		TranscriptPath: transcriptPath,
		Public:         public,
		RunID:          out.RunID,
		GlyphCount:     len(out.Glyphs),
		Transcription:  out.Text,
		Result:         metrics.Calculate(groundTruth, out.Text, cfg.IgnorePatterns),
	}, nil
}

func isURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// joinPath prefixes a CSV path with dir unless it is a URL.
func joinPath(dir, path string) string {
	path = strings.TrimSpace(path)
	if isURL(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func readTextFile(path string) (string, error) {
	if isURL(path) {
		data, err := fetch(context.Background(), path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func loadPage(ctx context.Context, path string) (*image.Gray, error) {
	if !isURL(path) {
		return edges.LoadGray(path)
	}
	data, err := fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	return edges.ReadGray(bytes.NewReader(data))
}

func saveEvalResults(summary EvalSummary, outputPath string) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return err
	}

	return os.WriteFile(outputPath, data, 0644)
}

func printRowResult(result EvalResult) {
	fmt.Printf("\n=== Results for %s ===\n", result.Identifier)
	if result.ImagePath != "" {
		fmt.Printf("Image: %s\n", result.ImagePath)
	}
	fmt.Printf("Transcript: %s\n", result.TranscriptPath)
	fmt.Printf("Character Similarity: %.3f\n", result.CharacterSimilarity)
	fmt.Printf("Character Error Rate: %.3f\n", result.CharacterErrorRate)
	fmt.Printf("Word Accuracy: %.3f\n", result.WordAccuracy)
	fmt.Printf("Word Error Rate: %.3f\n", result.WordErrorRate)
	fmt.Printf("Words (Original/Transcribed/Correct): %d/%d/%d\n", result.TotalWordsOriginal, result.TotalWordsTranscribed, result.CorrectWords)
	fmt.Printf("Substitutions/Deletions/Insertions: %d/%d/%d\n", result.Substitutions, result.Deletions, result.Insertions)
	if result.IgnoredCharsCount > 0 {
		fmt.Printf("Ignored Characters: %d\n", result.IgnoredCharsCount)
	}
}

// summarize averages the rate metrics over results.
func summarize(results []EvalResult) metrics.Result {
	var avg metrics.Result
	if len(results) == 0 {
		return avg
	}
	for _, r := range results {
		avg.CharacterSimilarity += r.CharacterSimilarity
		avg.CharacterErrorRate += r.CharacterErrorRate
		avg.WordSimilarity += r.WordSimilarity
		avg.WordAccuracy += r.WordAccuracy
		avg.WordErrorRate += r.WordErrorRate
	}
	n := float64(len(results))
	avg.CharacterSimilarity /= n
	avg.CharacterErrorRate /= n
	avg.WordSimilarity /= n
	avg.WordAccuracy /= n
	avg.WordErrorRate /= n
	return avg
}

func printSummaryStats(results []EvalResult) {
	if len(results) == 0 {
		return
	}
	avg := summarize(results)

	fmt.Printf("\n=== SUMMARY STATISTICS ===\n")
	fmt.Printf("Total Evaluations: %d\n", len(results))
	fmt.Printf("Average Character Similarity: %.3f\n", avg.CharacterSimilarity)
	fmt.Printf("Average Character Error Rate: %.3f\n", avg.CharacterErrorRate)
	fmt.Printf("Average Word Similarity: %.3f\n", avg.WordSimilarity)
	fmt.Printf("Average Word Accuracy: %.3f\n", avg.WordAccuracy)
	fmt.Printf("Average Word Error Rate: %.3f\n", avg.WordErrorRate)
}
