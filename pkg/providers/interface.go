package providers

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Config represents the configuration for a provider
type Config struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	Prompt      string        `yaml:"prompt,omitempty"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	// BaseURL overrides the provider's API endpoint
	BaseURL string `yaml:"base_url,omitempty"`
}

// UsageInfo represents token usage information from a provider
type UsageInfo struct {
	InputTokens  int
	OutputTokens int
}

// Provider is a vision model that can read the symbol in a glyph image
type Provider interface {
	// Recognize sends one encoded image with config.Prompt and returns the
	// model's cleaned answer and token usage
	Recognize(ctx context.Context, config Config, image []byte, mimeType string) (string, UsageInfo, error)
	// Name returns the provider's name
	Name() string
	// ValidateConfig validates the provider-specific configuration
	ValidateConfig(config Config) error
}

// CleanResponseProvider is an optional interface that providers can implement
// to provide custom response cleaning logic
type CleanResponseProvider interface {
	CleanResponse(response string) string
}

var prefixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(the\s+)?(character|symbol|letter|digit)\s+(in\s+(the\s+)?image\s+)?(is|appears\s+to\s+be|looks\s+like):?\s*`),
	regexp.MustCompile(`(?i)^(the\s+)?image\s+(shows|contains)\s+(the\s+)?(character|symbol|letter|digit)?:?\s*`),
	regexp.MustCompile(`(?i)^(certainly!?\s*)?here'?s?\s+(the\s+)?(character|answer):?\s*`),
	regexp.MustCompile(`(?i)^(it\s+is|it'?s|answer:)\s*`),
}

// CleanResponse provides general response cleaning that works for most AI providers
func CleanResponse(response string) string {
	response = strings.TrimSpace(response)

	for _, re := range prefixPatterns {
		response = re.ReplaceAllString(response, "")
		response = strings.TrimSpace(response)
	}

	// Remove markdown code blocks if present
	if strings.HasPrefix(response, "```") && strings.HasSuffix(response, "```") {
		response = strings.TrimPrefix(response, "```")
		response = strings.TrimSuffix(response, "```")
		response = strings.TrimSpace(response)
	}

	response = strings.Trim(response, "\"'`*.")
	return strings.TrimSpace(response)
}

// FirstSymbol returns the first letter or digit of a cleaned answer, or ""
func FirstSymbol(response string) string {
	for _, r := range CleanResponse(response) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return string(r)
		}
	}
	return ""
}

// ProcessResponse cleans a response using the provider's custom cleaner if available,
// otherwise uses the general CleanResponse function
func ProcessResponse(provider Provider, response string) string {
	if cleaner, ok := provider.(CleanResponseProvider); ok {
		return cleaner.CleanResponse(response)
	}
	return CleanResponse(response)
}

// TruncateBody truncates a response body to a maximum length for error messages.
// Default maxLen is 500 if not specified.
func TruncateBody(body []byte, maxLen ...int) string {
	limit := 500
	if len(maxLen) > 0 && maxLen[0] > 0 {
		limit = maxLen[0]
	}
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "... (truncated)"
	}
	return s
}

// Timeout returns config.Timeout or fallback when unset
func Timeout(config Config, fallback time.Duration) time.Duration {
	if config.Timeout > 0 {
		return config.Timeout
	}
	return fallback
}
