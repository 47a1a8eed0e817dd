package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/handwrite/pkg/providers"
)

const (
	defaultURL   = "http://localhost:11434"
	defaultModel = "llava"
)

// Provider reads glyphs with a local Ollama server
type Provider struct{}

// New creates a new Ollama provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "ollama"
}

// ValidateConfig validates the Ollama configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	// We could ping the API here, but for now just validate the URL format
	base := p.baseURL(config)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("invalid ollama URL %q", base)
	}
	return nil
}

func (p *Provider) baseURL(config providers.Config) string {
	if config.BaseURL != "" {
		return config.BaseURL
	}
	if env := os.Getenv("OLLAMA_URL"); env != "" {
		return env
	}
	return defaultURL
}

// Recognize asks the local model to read one glyph image
func (p *Provider) Recognize(ctx context.Context, config providers.Config, image []byte, mimeType string) (string, providers.UsageInfo, error) {
	model := config.Model
	if model == "" {
		model = defaultModel
	}

	requestBody := map[string]interface{}{
		"model":  model,
		"prompt": config.Prompt,
		"images": []string{base64.StdEncoding.EncodeToString(image)},
		"stream": false,
		"options": map[string]interface{}{
			"temperature": config.Temperature,
			"num_predict": 8,
		},
	}

	requestJSON, err := json.Marshal(requestBody)
	if err != nil {
		return "", providers.UsageInfo{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", strings.TrimSuffix(p.baseURL(config), "/"))
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestJSON))
	if err != nil {
		return "", providers.UsageInfo{}, err
	}

	req.Header.Set("Content-Type", "application/json")

	// local inference can be slow on first load
	client := &http.Client{Timeout: providers.Timeout(config, 300*time.Second)}
	resp, err := client.Do(req)
	if err != nil {
		return "", providers.UsageInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", providers.UsageInfo{}, fmt.Errorf("ollama API error: %d - %s", resp.StatusCode, providers.TruncateBody(body))
	}

	var ollamaResp struct {
		Response        string `json:"response"`
		PromptEvalCount int    `json:"prompt_eval_count"`
		EvalCount       int    `json:"eval_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", providers.UsageInfo{}, err
	}
	if strings.TrimSpace(ollamaResp.Response) == "" {
		return "", providers.UsageInfo{}, fmt.Errorf("no response from Ollama")
	}

	usage := providers.UsageInfo{
		InputTokens:  ollamaResp.PromptEvalCount,
		OutputTokens: ollamaResp.EvalCount,
	}
	return providers.ProcessResponse(p, ollamaResp.Response), usage, nil
}

// small local models tend to narrate before answering
var chattyPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(i\s+can\s+see\s+)?(a|the)\s+(handwritten\s+)?(character|symbol|letter|digit|number)\s*:\s*`),
	regexp.MustCompile(`(?i)^in\s+(the|this)\s+image,?\s+`),
}

// CleanResponse strips narration that local models add before the generic cleanup
func (p *Provider) CleanResponse(response string) string {
	response = strings.TrimSpace(response)
	for _, re := range chattyPrefixes {
		response = strings.TrimSpace(re.ReplaceAllString(response, ""))
	}
	return providers.CleanResponse(response)
}
