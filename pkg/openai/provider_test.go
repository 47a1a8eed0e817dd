package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/handwrite/pkg/providers"
)

func TestProvider_Name(t *testing.T) {
	p := New()
	if p.Name() != "openai" {
		t.Errorf("Expected name 'openai', got '%s'", p.Name())
	}
}

func TestProvider_ValidateConfig(t *testing.T) {
	p := New()

	tests := []struct {
		name          string
		apiKey        string
		model         string
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid API key",
			apiKey:      "sk-test-key",
			model:       "gpt-4o",
			expectError: false,
		},
		{
			name:          "missing API key",
			apiKey:        "",
			model:         "gpt-4o",
			expectError:   true,
			errorContains: "OPENAI_API_KEY",
		},
		{
			name:          "missing model",
			apiKey:        "sk-test-key",
			expectError:   true,
			errorContains: "model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", tt.apiKey)

			err := p.ValidateConfig(providers.Config{Provider: "openai", Model: tt.model})

			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
			if tt.expectError && err != nil && !strings.Contains(err.Error(), tt.errorContains) {
				t.Errorf("Expected error to contain '%s', got: %v", tt.errorContains, err)
			}
		})
	}
}

func TestProvider_Recognize(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse string
		statusCode     int
		expectedText   string
		expectedInput  int
		expectError    bool
		errorContains  string
	}{
		{
			name:           "successful response",
			statusCode:     http.StatusOK,
			serverResponse: `{"choices": [{"message": {"content": "A"}}], "usage": {"prompt_tokens": 90, "completion_tokens": 1}}`,
			expectedText:   "A",
			expectedInput:  90,
		},
		{
			name:           "response with cleaning needed",
			statusCode:     http.StatusOK,
			serverResponse: `{"choices": [{"message": {"content": "The character is: \"7\""}}]}`,
			expectedText:   "7",
		},
		{
			name:           "API error response",
			statusCode:     http.StatusBadRequest,
			serverResponse: `{"error": {"message": "Invalid request"}}`,
			expectError:    true,
			errorContains:  "openAI API error",
		},
		{
			name:           "empty choices",
			statusCode:     http.StatusOK,
			serverResponse: `{"choices": []}`,
			expectError:    true,
			errorContains:  "no response from OpenAI",
		},
		{
			name:           "malformed JSON",
			statusCode:     http.StatusOK,
			serverResponse: `{"invalid": json}`,
			expectError:    true,
			errorContains:  "failed to parse JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("Expected POST request, got %s", r.Method)
				}
				if r.URL.Path != "/chat/completions" {
					t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
				}
				if r.Header.Get("Authorization") != "Bearer sk-test-key" {
					t.Errorf("Expected Bearer authorization header")
				}

				var reqBody map[string]interface{}
				if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
					t.Errorf("Request body is not JSON: %v", err)
				}
				if model, ok := reqBody["model"].(string); !ok || model != "gpt-4o" {
					t.Errorf("Expected model gpt-4o in request body, got %v", reqBody["model"])
				}
				if messages, ok := reqBody["messages"].([]interface{}); !ok || len(messages) != 1 {
					t.Error("Expected one message in request body")
				}

				w.WriteHeader(tt.statusCode)
				if _, err := w.Write([]byte(tt.serverResponse)); err != nil {
					t.Errorf("Failed to write response: %v", err)
				}
			}))
			defer server.Close()

			t.Setenv("OPENAI_API_KEY", "sk-test-key")

			config := providers.Config{Model: "gpt-4o", Prompt: "Read \"this\"", BaseURL: server.URL}
			text, usage, err := New().Recognize(context.Background(), config, []byte{0x89, 'P', 'N', 'G'}, "image/png")

			if tt.expectError {
				if err == nil || !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error containing '%s', got: %v", tt.errorContains, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if text != tt.expectedText {
				t.Errorf("Expected text '%s', got '%s'", tt.expectedText, text)
			}
			if usage.InputTokens != tt.expectedInput {
				t.Errorf("Expected %d input tokens, got %d", tt.expectedInput, usage.InputTokens)
			}
		})
	}
}

func TestProvider_RecognizeWithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, _, err := New().Recognize(context.Background(), providers.Config{Model: "gpt-4o"}, nil, "")
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("Expected missing key error, got: %v", err)
	}
}

func TestJsonEscape(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple string",
			input:    "hello world",
			expected: "hello world",
		},
		{
			name:     "string with quotes",
			input:    `He said "hello"`,
			expected: `He said \"hello\"`,
		},
		{
			name:     "string with newlines",
			input:    "line1\nline2",
			expected: "line1\\nline2",
		},
		{
			name:     "string with backslashes",
			input:    "path\\to\\file",
			expected: "path\\\\to\\\\file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := jsonEscape(tt.input)
			if result != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}
