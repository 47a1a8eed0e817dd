// Package export writes an assembled token stream to a document file.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/handwrite/pkg/assemble"
	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
)

// Exporter writes tokens to path. Errors are returned as is; nothing is
// retried.
type Exporter interface {
	Format() string
	Export(tokens []assemble.Token, path string) error
}

type options struct {
	page     layout.Box
	fontSize float64
}

type Option func(*options)

// WithPage sets the page size reported by formats that carry geometry.
func WithPage(page layout.Box) Option {
	return func(o *options) { o.page = page }
}

// WithFontSize sets the body font size in points for paginated formats.
func WithFontSize(size float64) Option {
	return func(o *options) { o.fontSize = size }
}

var formats = map[string]func(options) Exporter{
	"docx": func(o options) Exporter { return &DOCX{} },
	"odt":  func(o options) Exporter { return &ODT{} },
	"pdf":  func(o options) Exporter { return &PDF{FontSize: o.fontSize} },
	"txt":  func(o options) Exporter { return &Text{} },
	"hocr": func(o options) Exporter { return &HOCR{Page: o.page} },
}

// New returns the exporter for format.
func New(format string, opts ...Option) (Exporter, error) {
	o := options{fontSize: 12}
	for _, opt := range opts {
		opt(&o)
	}
	build, ok := formats[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unsupported export format %q (available: %s)", format, strings.Join(Formats(), ", "))
	}
	return build(o), nil
}

// Formats lists the supported format names.
func Formats() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultFormat picks the word processor format native to the host: docx on
// Windows, OpenDocument elsewhere.
func DefaultFormat(goos string) string {
	if goos == "windows" {
		return "docx"
	}
	return "odt"
}

// Extension returns the file extension for format, with the dot.
func Extension(format string) string {
	if format == "hocr" {
		return ".hocr"
	}
	return "." + format
}

// Paragraphs renders one paragraph per source line. Word spaces at a line
// boundary are dropped.
func Paragraphs(tokens []assemble.Token) []string {
	var out []string
	for _, line := range assemble.Lines(tokens) {
		text := strings.TrimSpace(assemble.Text(line))
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}
