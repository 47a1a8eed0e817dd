// Package hocr renders an assembled token stream as an hOCR document with
// line, word and character boxes.
package hocr

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/handwrite/pkg/assemble"
	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
)

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "'", "&#39;", `"`, "&quot;")

// Render builds the full hOCR document for one page.
func Render(tokens []assemble.Token, page layout.Box) string {
	var lines []string
	wordIndex, charIndex := 0, 0
	for i, line := range assemble.Lines(tokens) {
		words := assemble.Words(line)
		if len(words) == 0 {
			continue
		}

		var spans []string
		var lineBox layout.Box
		for _, word := range words {
			wordIndex++
			var wordBox layout.Box
			var chars []string
			var conf float32
			for _, t := range word {
				charIndex++
				wordBox = wordBox.Union(t.Box)
				conf += t.Confidence
				chars = append(chars, fmt.Sprintf(`<span class='ocrx_cinfo' id='char_%d' title='%s; x_conf %.0f'>%s</span>`,
					charIndex, bbox(t.Box), t.Confidence*100, textEscaper.Replace(t.Text)))
			}
			lineBox = lineBox.Union(wordBox)
			spans = append(spans, fmt.Sprintf(`<span class='ocrx_word' id='word_%d' title='%s; x_wconf %.0f'>%s</span>`,
				wordIndex, bbox(wordBox), conf/float32(len(word))*100, strings.Join(chars, "")))
		}

		lines = append(lines, fmt.Sprintf(`<span class='ocr_line' id='line_%d' title='%s'>%s</span>`,
			i+1, bbox(lineBox), strings.Join(spans, " ")))
	}
	return WrapInHOCRDocument(strings.Join(lines, "\n"), page)
}

func bbox(b layout.Box) string {
	return fmt.Sprintf("bbox %d %d %d %d", b.X, b.Y, b.Right(), b.Bottom())
}

// WrapInHOCRDocument wraps content in a complete hOCR HTML document
func WrapInHOCRDocument(content string, page layout.Box) string {
	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
<head>
<title></title>
<meta http-equiv="Content-Type" content="text/html;charset=utf-8" />
<meta name='ocr-system' content='handwrite' />
<meta name='ocr-capabilities' content='ocr_page ocr_line ocrx_word ocrx_cinfo' />
</head>
<body>
<div class='ocr_page' id='page_1' title='%s'>
%s
</div>
</body>
</html>`, bbox(page), content)
}
