package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/handwrite/pkg/assemble"
)

const odtMimeType = "application/vnd.oasis.opendocument.text"

const odtManifest = `<?xml version="1.0" encoding="UTF-8"?>
<manifest:manifest xmlns:manifest="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0" manifest:version="1.2">
 <manifest:file-entry manifest:full-path="/" manifest:version="1.2" manifest:media-type="application/vnd.oasis.opendocument.text"/>
 <manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/>
</manifest:manifest>
`

const odtContentHead = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0" office:version="1.2">
<office:body>
<office:text>
`

const odtContentTail = `</office:text>
</office:body>
</office:document-content>
`

// ODT writes an OpenDocument text file.
type ODT struct{}

func (e *ODT) Format() string { return "odt" }

func (e *ODT) Export(tokens []assemble.Token, path string) error {
	data, err := odtBytes(Paragraphs(tokens))
	if err != nil {
		return fmt.Errorf("failed to build odt: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func odtBytes(paragraphs []string) ([]byte, error) {
	var content bytes.Buffer
	content.WriteString(odtContentHead)
	for _, p := range paragraphs {
		content.WriteString("<text:p>")
		if err := xml.EscapeText(&content, []byte(p)); err != nil {
			return nil, err
		}
		content.WriteString("</text:p>\n")
	}
	content.WriteString(odtContentTail)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	// the mimetype entry must come first and be stored uncompressed
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte(odtMimeType)); err != nil {
		return nil, err
	}

	entries := []struct {
		name string
		data []byte
	}{
		{"META-INF/manifest.xml", []byte(odtManifest)},
		{"content.xml", content.Bytes()},
	}
	for _, entry := range entries {
		w, err := zw.Create(entry.name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(entry.data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
