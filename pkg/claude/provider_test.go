package claude

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
	if p.Name() != "claude" {
		t.Errorf("Expected name 'claude', got '%s'", p.Name())
	}
}

func TestProvider_ValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		apiKey      string
		model       string
		expectError bool
	}{
		{"valid configuration", "sk-ant-test", "claude-sonnet-4-5", false},
		{"missing API key", "", "claude-sonnet-4-5", true},
		{"missing model", "sk-ant-test", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ANTHROPIC_API_KEY", tt.apiKey)
			err := New().ValidateConfig(providers.Config{Model: tt.model})
			if (err != nil) != tt.expectError {
				t.Errorf("ValidateConfig() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestProvider_Recognize(t *testing.T) {
	tests := []struct {
		name           string
		statusCode     int
		serverResponse string
		temperature    float64
		expectedText   string
		expectError    bool
		errorContains  string
	}{
		{
			name:           "successful response",
			statusCode:     http.StatusOK,
			serverResponse: `{"content": [{"type": "text", "text": "Q"}], "stop_reason": "end_turn", "usage": {"input_tokens": 40, "output_tokens": 1}}`,
			expectedText:   "Q",
		},
		{
			name:           "skips non-text blocks",
			statusCode:     http.StatusOK,
			serverResponse: `{"content": [{"type": "thinking", "text": ""}, {"type": "text", "text": "The letter is W."}]}`,
			temperature:    0.2,
			expectedText:   "W",
		},
		{
			name:           "API error",
			statusCode:     http.StatusUnauthorized,
			serverResponse: `{"type": "error", "error": {"type": "authentication_error"}}`,
			expectError:    true,
			errorContains:  "claude API error: 401",
		},
		{
			name:           "no text content",
			statusCode:     http.StatusOK,
			serverResponse: `{"content": []}`,
			expectError:    true,
			errorContains:  "no text content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/messages" {
					t.Errorf("Expected /messages, got %s", r.URL.Path)
				}
				if r.Header.Get("x-api-key") != "sk-ant-test" {
					t.Errorf("Expected x-api-key header")
				}
				if r.Header.Get("anthropic-version") == "" {
					t.Errorf("Expected anthropic-version header")
				}

				var reqBody map[string]interface{}
				if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
					t.Errorf("Request body is not JSON: %v", err)
				}
				_, hasTemp := reqBody["temperature"]
				if hasTemp != (tt.temperature > 0) {
					t.Errorf("temperature present = %v, want %v", hasTemp, tt.temperature > 0)
				}

				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.serverResponse))
			}))
			defer server.Close()

			t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
			config := providers.Config{Model: "claude-sonnet-4-5", Prompt: "read", Temperature: tt.temperature, BaseURL: server.URL}

			text, _, err := New().Recognize(context.Background(), config, []byte("png"), "image/png")
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
				t.Errorf("Expected '%s', got '%s'", tt.expectedText, text)
			}
		})
	}
}
