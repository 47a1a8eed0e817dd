package utils

import (
	"log/slog"
	"os"
	"regexp"
)

const masked = "***MASKED***"

type masker struct {
	pattern     *regexp.Regexp
	replacement string
}

// maskers cover the credentials the classifier and line providers send:
// query keys (Gemini), bearer tokens (OpenAI), key headers (Anthropic and
// Google) and the private key of a service account file (Vision).
var maskers = []masker{
	{regexp.MustCompile(`([?&])(api[_\-]?[kK]ey|key)=([^&\s"]+)`), `${1}${2}=` + masked},
	{regexp.MustCompile(`Bearer\s+([A-Za-z0-9_\-\.]+)`), `Bearer ` + masked},
	{regexp.MustCompile(`(?i)(x-api-key|x-goog-api-key):\s*([^\s]+)`), `${1}: ` + masked},
	{regexp.MustCompile(`"private_key"\s*:\s*"[^"]*"`), `"private_key": "` + masked + `"`},
}

// MaskSensitiveData masks API keys and other credentials so error messages
// and URLs can be logged.
func MaskSensitiveData(s string) string {
	if s == "" {
		return s
	}
	for _, m := range maskers {
		s = m.pattern.ReplaceAllString(s, m.replacement)
	}
	return s
}

// MaskSensitiveError wraps err so its message is masked. The original error
// is still reachable through errors.Is and errors.As.
func MaskSensitiveError(err error) error {
	if err == nil {
		return nil
	}
	return &maskedError{err: err}
}

type maskedError struct {
	err error
}

func (e *maskedError) Error() string {
	return MaskSensitiveData(e.err.Error())
}

func (e *maskedError) Unwrap() error {
	return e.err
}

func ExitOnError(msg string, err error) {
	slog.Error(msg, "err", MaskSensitiveError(err))
	os.Exit(1)
}
