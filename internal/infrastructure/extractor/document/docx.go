package document

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

const docxBodyPart = "word/document.xml"

// maxDocxBody bounds the decompressed main part.
const maxDocxBody = 32 << 20

// extractDOCX returns body paragraphs followed by one line per table row,
// cells joined by a space.
func extractDOCX(upload domain.Upload) (string, error) {
	archive, err := zip.NewReader(upload.Content, upload.Size)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	for _, f := range archive.File {
		if f.Name != docxBodyPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", docxBodyPart, err)
		}
		defer rc.Close()
		return parseDocumentXML(io.LimitReader(rc, maxDocxBody))
	}
	return "", fmt.Errorf("docx has no %s", docxBodyPart)
}

type docxWalker struct {
	paragraphs []string
	rows       []string

	tableDepth int
	para       strings.Builder
	cellParas  []string
	cells      []string
	inText     bool
}

func parseDocumentXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	w := &docxWalker{}

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", docxBodyPart, err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			w.start(t.Name.Local)
		case xml.EndElement:
			w.end(t.Name.Local)
		case xml.CharData:
			if w.inText {
				w.para.Write(t)
			}
		}
	}

	return strings.Join(append(w.paragraphs, w.rows...), "\n"), nil
}

func (w *docxWalker) start(name string) {
	switch name {
	case "tbl":
		w.tableDepth++
	case "tr":
		if w.tableDepth == 1 {
			w.cells = w.cells[:0]
		}
	case "tc":
		if w.tableDepth == 1 {
			w.cellParas = w.cellParas[:0]
		}
	case "p":
		w.para.Reset()
	case "t":
		w.inText = true
	case "tab":
		w.para.WriteByte('\t')
	case "br", "cr":
		w.para.WriteByte('\n')
	}
}

func (w *docxWalker) end(name string) {
	switch name {
	case "t":
		w.inText = false
	case "p":
		text := w.para.String()
		if w.tableDepth == 0 {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				w.paragraphs = append(w.paragraphs, trimmed)
			}
			return
		}
		w.cellParas = append(w.cellParas, text)
	case "tc":
		if w.tableDepth == 1 {
			if cell := strings.TrimSpace(strings.Join(w.cellParas, "\n")); cell != "" {
				w.cells = append(w.cells, cell)
			}
		}
	case "tr":
		if w.tableDepth == 1 && len(w.cells) > 0 {
			w.rows = append(w.rows, strings.Join(w.cells, " "))
		}
	case "tbl":
		w.tableDepth--
	}
}
