package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
<w:p><w:r><w:t>Senior</w:t></w:r><w:r><w:t xml:space="preserve"> Engineer</w:t></w:r></w:p>
</w:body>
</w:document>`

func zipWith(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestTextDocx(t *testing.T) {
	data := zipWith(t, map[string]string{"word/document.xml": documentXML})
	got, err := Text(context.Background(), data, MimeDOCX, "cv.docx")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "Jane Doe\nSenior Engineer" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestTextZipMimeNormalizesToDocx(t *testing.T) {
	data := zipWith(t, map[string]string{"word/document.xml": documentXML})
	if _, err := Text(context.Background(), data, "application/zip", "upload.bin"); err != nil {
		t.Fatalf("expected docx to extract from zip mime, got error: %v", err)
	}
}

func TestTextRealZipRejected(t *testing.T) {
	data := zipWith(t, map[string]string{"notes.txt": "hello"})
	_, err := Text(context.Background(), data, "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if !strings.Contains(err.Error(), "application/zip") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTextHTML(t *testing.T) {
	page := `<html><head><title>CV</title><style>p{color:red}</style></head>
<body><h1>Jane Doe</h1><script>alert(1)</script><ul><li>Go</li><li>Python</li></ul></body></html>`
	got, err := Text(context.Background(), []byte(page), "", "cv.html")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	for _, want := range []string{"Jane Doe", "Go", "Python"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
	for _, unwanted := range []string{"alert", "color:red", "CV"} {
		if strings.Contains(got, unwanted) {
			t.Fatalf("did not expect %q in %q", unwanted, got)
		}
	}
	if !strings.Contains(got, "Go\n") {
		t.Fatalf("expected list items on separate lines, got %q", got)
	}
}

func TestTextPlainAndSniffed(t *testing.T) {
	got, err := Text(context.Background(), []byte("plain résumé"), "text/plain; charset=utf-8", "")
	if err != nil || got != "plain résumé" {
		t.Fatalf("got %q, %v", got, err)
	}
	got, err = Text(context.Background(), []byte("sniffed text"), "", "")
	if err != nil || got != "sniffed text" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestTextDecodeErrors(t *testing.T) {
	_, err := Text(context.Background(), []byte("not a pdf"), MimePDF, "cv.pdf")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	_, err = Text(context.Background(), []byte{0xff, 0xfe, 0xfd}, MimePlain, "")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for invalid utf-8, got %v", err)
	}
}

func TestTextTooLarge(t *testing.T) {
	_, err := Text(context.Background(), make([]byte, MaxFileSize+1), MimePlain, "")
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}
