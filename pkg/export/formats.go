package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/gomutex/godocx"

	"github.com/lehigh-university-libraries/handwrite/pkg/assemble"
	"github.com/lehigh-university-libraries/handwrite/pkg/hocr"
	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
)

// DOCX writes a Word document.
type DOCX struct{}

func (e *DOCX) Format() string { return "docx" }

func (e *DOCX) Export(tokens []assemble.Token, path string) error {
	document, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("failed to create docx: %w", err)
	}
	for _, p := range Paragraphs(tokens) {
		document.AddParagraph(p)
	}
	if err := document.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save docx %s: %w", path, err)
	}
	return nil
}

// PDF writes an A4 portrait PDF with the text in a core font.
type PDF struct {
	FontSize float64
}

func (e *PDF) Format() string { return "pdf" }

func (e *PDF) Export(tokens []assemble.Token, path string) error {
	size := e.FontSize
	if size <= 0 {
		size = 12
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", size)
	pdf.AddPage()
	lineHeight := size * 0.5
	for _, p := range Paragraphs(tokens) {
		pdf.MultiCell(0, lineHeight, p, "", "L", false)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to save pdf %s: %w", path, err)
	}
	return nil
}

// Text writes plain UTF-8 text, one line per source line.
type Text struct{}

func (e *Text) Format() string { return "txt" }

func (e *Text) Export(tokens []assemble.Token, path string) error {
	content := strings.Join(Paragraphs(tokens), "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// HOCR writes an hOCR document with per-glyph boxes. A zero Page is replaced
// by the extent of the tokens.
type HOCR struct {
	Page layout.Box
}

func (e *HOCR) Format() string { return "hocr" }

func (e *HOCR) Export(tokens []assemble.Token, path string) error {
	page := e.Page
	if page.Empty() {
		for _, t := range tokens {
			page = page.Union(t.Box)
		}
		page = layout.Box{W: page.Right(), H: page.Bottom()}
	}
	if err := os.WriteFile(path, []byte(hocr.Render(tokens, page)), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
