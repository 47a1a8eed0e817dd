package gemini

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
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-1.5-flash"
)

// Provider reads glyphs with Google Gemini models
type Provider struct{}

// New creates a new Gemini provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "gemini"
}

// ValidateConfig validates the Gemini configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	return nil
}

// Recognize asks Gemini to read one glyph image
func (p *Provider) Recognize(ctx context.Context, config providers.Config, image []byte, mimeType string) (string, providers.UsageInfo, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", providers.UsageInfo{}, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	if mimeType == "" {
		mimeType = "image/png"
	}

	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{
						"text": config.Prompt,
					},
					{
						"inline_data": map[string]interface{}{
							"mime_type": mimeType,
							"data":      base64.StdEncoding.EncodeToString(image),
						},
					},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     config.Temperature,
			"maxOutputTokens": 8,
		},
	}

	model := config.Model
	if model == "" {
		model = defaultModel
	}

	requestJSON, err := json.Marshal(requestBody)
	if err != nil {
		return "", providers.UsageInfo{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", strings.TrimSuffix(baseURL, "/"), model, apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestJSON))
	if err != nil {
		return "", providers.UsageInfo{}, err
	}

	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: providers.Timeout(config, 60*time.Second)}
	resp, err := client.Do(req)
	if err != nil {
		return "", providers.UsageInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", providers.UsageInfo{}, fmt.Errorf("gemini API error: %d - %s", resp.StatusCode, providers.TruncateBody(body))
	}

	var geminiResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", providers.UsageInfo{}, err
	}

	text, err := extractText(geminiResp)
	if err != nil {
		return "", providers.UsageInfo{}, err
	}

	return providers.ProcessResponse(p, text), extractUsage(geminiResp), nil
}

// extractText walks candidates[0].content.parts[0].text
func extractText(geminiResp map[string]interface{}) (string, error) {
	candidates, ok := geminiResp["candidates"].([]interface{})
	if !ok || len(candidates) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	candidate, ok := candidates[0].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid response format from Gemini")
	}

	content, ok := candidate["content"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid content format from Gemini")
	}

	parts, ok := content["parts"].([]interface{})
	if !ok || len(parts) == 0 {
		return "", fmt.Errorf("no parts in Gemini response")
	}

	part, ok := parts[0].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid part format from Gemini")
	}

	text, ok := part["text"].(string)
	if !ok {
		return "", fmt.Errorf("no text in Gemini response")
	}
	return text, nil
}

func extractUsage(geminiResp map[string]interface{}) providers.UsageInfo {
	var usage providers.UsageInfo
	meta, ok := geminiResp["usageMetadata"].(map[string]interface{})
	if !ok {
		return usage
	}
	if v, ok := meta["promptTokenCount"].(float64); ok {
		usage.InputTokens = int(v)
	}
	if v, ok := meta["candidatesTokenCount"].(float64); ok {
		usage.OutputTokens = int(v)
	}
	return usage
}
