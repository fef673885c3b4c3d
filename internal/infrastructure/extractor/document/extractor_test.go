package document

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

func uploadOf(name string, data []byte) domain.Upload {
	return domain.Upload{Filename: name, Size: int64(len(data)), Content: bytes.NewReader(data)}
}

type ocrFake struct {
	text     string
	err      error
	language string
	image    []byte
}

func (f *ocrFake) Recognize(_ context.Context, image []byte, language string) (string, error) {
	f.image = image
	f.language = language
	return f.text, f.err
}

func TestPagesToOCR(t *testing.T) {
	tests := map[int]int{0: 0, 1: 1, 2: 2, 5: 2, 6: 3, 120: 3}
	for total, want := range tests {
		require.Equal(t, want, PagesToOCR(total), "total=%d", total)
	}
}

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(docxBodyPart)
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractDOCXParagraphsThenTableRows(t *testing.T) {
	data := buildDOCX(t,
		`<w:p><w:r><w:t>INVOICE</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t xml:space="preserve">Invoice Number: </w:t></w:r><w:r><w:t>INV-2024-001</w:t></w:r></w:p>`+
			`<w:p></w:p>`+
			`<w:tbl>`+
			`<w:tr><w:tc><w:p><w:r><w:t>Total Amount</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>$1,000.00</w:t></w:r></w:p></w:tc></w:tr>`+
			`<w:tr><w:tc><w:p></w:p></w:tc><w:tc><w:p><w:r><w:t>Payment Due</w:t></w:r></w:p></w:tc></w:tr>`+
			`</w:tbl>`+
			`<w:p><w:r><w:t>Thank you</w:t></w:r></w:p>`)

	text, err := New(Config{}, nil).Extract(context.Background(), uploadOf("invoice.docx", data), ".docx")
	require.NoError(t, err)
	require.Equal(t, "INVOICE\nInvoice Number: INV-2024-001\nThank you\nTotal Amount $1,000.00\nPayment Due", text)
}

func TestExtractDOCXRejectsNonZip(t *testing.T) {
	_, err := New(Config{}, nil).Extract(context.Background(), uploadOf("bad.docx", []byte("not a zip")), ".docx")
	require.Error(t, err)
	require.False(t, domain.IsKind(err, domain.ErrUnsupportedFormat))
}

func TestExtractXLSXRows(t *testing.T) {
	book := excelize.NewFile()
	require.NoError(t, book.SetCellValue("Sheet1", "A1", "Account Number"))
	require.NoError(t, book.SetCellValue("Sheet1", "B1", "12345678"))
	require.NoError(t, book.SetCellValue("Sheet1", "A3", "  Closing Balance "))
	_, err := book.NewSheet("Transactions")
	require.NoError(t, err)
	require.NoError(t, book.SetCellValue("Transactions", "C2", "Direct Debit"))
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, book.Close())

	text, err := New(Config{}, nil).Extract(context.Background(), uploadOf("statement.xlsx", buf.Bytes()), ".xlsx")
	require.NoError(t, err)
	require.Equal(t, "Account Number 12345678\nClosing Balance\nDirect Debit", text)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestExtractImageRunsOCR(t *testing.T) {
	ocr := &ocrFake{text: "  DRIVING LICENCE\n"}
	text, err := New(Config{OCRLanguage: "deu"}, ocr).Extract(context.Background(), uploadOf("scan.png", pngBytes(t)), ".PNG")
	require.NoError(t, err)
	require.Equal(t, "DRIVING LICENCE", text)
	require.Equal(t, "deu", ocr.language)
	require.True(t, bytes.HasPrefix(ocr.image, []byte("\x89PNG")))
}

func TestExtractImageWithoutOCRIsUnsupported(t *testing.T) {
	_, err := New(Config{}, nil).Extract(context.Background(), uploadOf("scan.png", pngBytes(t)), ".png")
	require.True(t, domain.IsKind(err, domain.ErrUnsupportedFormat))
}

func TestExtractImagePropagatesOCRError(t *testing.T) {
	ocr := &ocrFake{err: errors.New("tessdata missing")}
	_, err := New(Config{}, ocr).Extract(context.Background(), uploadOf("scan.png", pngBytes(t)), ".png")
	require.ErrorContains(t, err, "tessdata missing")
}

func TestExtractImageRejectsUndecodable(t *testing.T) {
	_, err := New(Config{}, &ocrFake{}).Extract(context.Background(), uploadOf("scan.jpg", []byte("nope")), ".jpg")
	require.ErrorContains(t, err, "decode image")
}

func TestExtractUnknownExtension(t *testing.T) {
	_, err := New(Config{}, nil).Extract(context.Background(), uploadOf("a.csv.gz", []byte{1}), ".gz")
	require.True(t, domain.IsKind(err, domain.ErrUnsupportedFormat))
}

func TestExtractPlainText(t *testing.T) {
	text, err := New(Config{}, nil).Extract(context.Background(), uploadOf("notes.txt", []byte(" hello \n")), ".txt")
	require.NoError(t, err)
	require.Equal(t, "hello", text)
}

// buildPDF writes a one-page PDF showing line with a standard font.
func buildPDF(line string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", line)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractPDFText(t *testing.T) {
	data := buildPDF("Invoice Number 12345")
	text, err := New(Config{}, nil).Extract(context.Background(), uploadOf("invoice.pdf", data), ".pdf")
	require.NoError(t, err)
	require.Contains(t, strings.Join(strings.Fields(text), " "), "Invoice Number 12345")
}

func TestExtractPDFRejectsGarbage(t *testing.T) {
	_, err := New(Config{}, nil).Extract(context.Background(), uploadOf("broken.pdf", []byte("%PDF-1.4\ngarbage")), ".pdf")
	require.Error(t, err)
}
