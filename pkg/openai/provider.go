package openai

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
	"text/template"
	"time"

	"github.com/lehigh-university-libraries/handwrite/pkg/providers"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Provider reads glyphs with OpenAI vision models
type Provider struct{}

// Response represents an OpenAI API response
type Response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// TemplateData represents data for API request template
type TemplateData struct {
	Model       string
	Prompt      string
	Temperature float64
	ImageBase64 string
	MimeType    string
}

// New creates a new OpenAI provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "openai"
}

// ValidateConfig validates the OpenAI configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	if config.Model == "" {
		return fmt.Errorf("openai model not set")
	}
	return nil
}

// Recognize asks an OpenAI chat completion model to read one glyph image
func (p *Provider) Recognize(ctx context.Context, config providers.Config, image []byte, mimeType string) (string, providers.UsageInfo, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", providers.UsageInfo{}, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	if mimeType == "" {
		mimeType = "image/png"
	}

	templateData := TemplateData{
		Model:       jsonEscape(config.Model),
		Prompt:      jsonEscape(config.Prompt),
		Temperature: config.Temperature,
		ImageBase64: base64.StdEncoding.EncodeToString(image),
		MimeType:    mimeType,
	}

	tmpl, err := template.New("openai").Parse(getDefaultTemplate())
	if err != nil {
		return "", providers.UsageInfo{}, fmt.Errorf("failed to parse template: %w", err)
	}

	var requestBuffer bytes.Buffer
	if err := tmpl.Execute(&requestBuffer, templateData); err != nil {
		return "", providers.UsageInfo{}, fmt.Errorf("failed to execute template: %w", err)
	}

	// Validate JSON
	var jsonTest any
	if err := json.Unmarshal(requestBuffer.Bytes(), &jsonTest); err != nil {
		return "", providers.UsageInfo{}, fmt.Errorf("generated invalid JSON: %w", err)
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	url := strings.TrimSuffix(baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, &requestBuffer)
	if err != nil {
		return "", providers.UsageInfo{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{Timeout: providers.Timeout(config, 60*time.Second)}
	resp, err := client.Do(req)
	if err != nil {
		return "", providers.UsageInfo{}, err
	}
	defer resp.Body.Close()

	// Read response body once for both parsing and error logging
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", providers.UsageInfo{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", providers.UsageInfo{}, fmt.Errorf("openAI API error: %d - %s", resp.StatusCode, providers.TruncateBody(body))
	}

	var openaiResp Response
	if err := json.Unmarshal(body, &openaiResp); err != nil {
		return "", providers.UsageInfo{}, fmt.Errorf("failed to parse JSON response: %w - body: %s", err, providers.TruncateBody(body))
	}

	if len(openaiResp.Choices) == 0 {
		return "", providers.UsageInfo{}, fmt.Errorf("no response from OpenAI - body: %s", providers.TruncateBody(body))
	}

	usage := providers.UsageInfo{
		InputTokens:  openaiResp.Usage.PromptTokens,
		OutputTokens: openaiResp.Usage.CompletionTokens,
	}

	return providers.ProcessResponse(p, openaiResp.Choices[0].Message.Content), usage, nil
}

// jsonEscape properly escapes a string for use in JSON
func jsonEscape(s string) string {
	escaped, _ := json.Marshal(s)
	// Remove the surrounding quotes that json.Marshal adds
	return string(escaped[1 : len(escaped)-1])
}

// getDefaultTemplate returns the chat completion request for one glyph
func getDefaultTemplate() string {
	return `{
  "model": "{{.Model}}",
  "temperature": {{.Temperature}},
  "max_tokens": 5,
  "messages": [
    {
      "role": "user",
      "content": [
        {
          "type": "text",
          "text": "{{.Prompt}}"
        },
        {
          "type": "image_url",
          "image_url": {
            "url": "data:{{.MimeType}};base64,{{.ImageBase64}}"
          }
        }
      ]
    }
  ]
}`
}
