package claude

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/handwrite/pkg/providers"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// Provider reads glyphs with Anthropic Claude vision models
type Provider struct{}

// Response represents an Anthropic API response
type Response struct {
	Content []struct {
		Text string `json:"text"`
		Type string `json:"type"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// New creates a new Claude provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "claude"
}

// ValidateConfig validates the Claude configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}
	if config.Model == "" {
		return fmt.Errorf("claude model not set")
	}
	return nil
}

// Recognize asks Claude to read one glyph image
func (p *Provider) Recognize(ctx context.Context, config providers.Config, image []byte, mimeType string) (string, providers.UsageInfo, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return "", providers.UsageInfo{}, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	// Claude uses "media_type" instead of "mime_type"
	mediaType := mimeType
	if mediaType == "" {
		mediaType = "image/png"
	}

	requestBody := map[string]interface{}{
		"model":      config.Model,
		"max_tokens": 8,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "image",
						"source": map[string]interface{}{
							"type":       "base64",
							"media_type": mediaType,
							"data":       base64.StdEncoding.EncodeToString(image),
						},
					},
					{
						"type": "text",
						"text": config.Prompt,
					},
				},
			},
		},
	}

	if config.Temperature > 0 {
		requestBody["temperature"] = config.Temperature
	}

	requestJSON, err := json.Marshal(requestBody)
	if err != nil {
		return "", providers.UsageInfo{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, "POST", strings.TrimSuffix(baseURL, "/")+"/messages", bytes.NewBuffer(requestJSON))
	if err != nil {
		return "", providers.UsageInfo{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	client := &http.Client{Timeout: providers.Timeout(config, 120*time.Second)}
	resp, err := client.Do(req)
	if err != nil {
		return "", providers.UsageInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", providers.UsageInfo{}, fmt.Errorf("claude API error: %d - %s", resp.StatusCode, providers.TruncateBody(body))
	}

	var claudeResp Response
	if err := json.NewDecoder(resp.Body).Decode(&claudeResp); err != nil {
		return "", providers.UsageInfo{}, fmt.Errorf("failed to decode claude response: %w", err)
	}

	// Extract text from the first text content block
	var extractedText string
	for _, content := range claudeResp.Content {
		if content.Type == "text" {
			extractedText = content.Text
			break
		}
	}

	if extractedText == "" {
		return "", providers.UsageInfo{}, fmt.Errorf("no text content in Claude response")
	}

	usage := providers.UsageInfo{
		InputTokens:  claudeResp.Usage.InputTokens,
		OutputTokens: claudeResp.Usage.OutputTokens,
	}

	return providers.ProcessResponse(p, extractedText), usage, nil
}
