package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type stubParser struct {
	text string
	err  error
}

func (p *stubParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	return p.text, p.err
}

func (p *stubParser) SupportedFormats() []string {
	return []string{"pdf"}
}

func TestTextLoader_LoadTxtFile(t *testing.T) {
	// Create temp file
	dir, _ := os.MkdirTemp("", "loader-test-*")
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "blood_panel.txt")
	os.WriteFile(path, []byte("Hemoglobin: 13.5 g/dL\n"), 0644)

	loader := NewTextLoader()
	report, err := loader.Load(context.Background(), path)

	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if report.Text != "Hemoglobin: 13.5 g/dL" {
		t.Errorf("unexpected text: %s", report.Text)
	}
	if report.Filename != "blood_panel.txt" {
		t.Errorf("unexpected filename: %s", report.Filename)
	}
	if report.ID == "" {
		t.Error("report ID should be set")
	}
}

func TestTextLoader_SupportedExtensions(t *testing.T) {
	loader := NewTextLoader()
	exts := loader.SupportedExtensions()

	if len(exts) == 0 {
		t.Error("should support extensions")
	}

	found := false
	for _, e := range exts {
		if e == ".txt" {
			found = true
		}
	}
	if !found {
		t.Error(".txt should be supported")
	}
}

func TestPDFLoader_ParserFailureKeepsReport(t *testing.T) {
	dir, _ := os.MkdirTemp("", "loader-test-*")
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "labs.pdf")
	os.WriteFile(path, []byte("%PDF-1.4 fake"), 0644)

	loader := NewPDFLoader(&stubParser{err: errors.New("service down")})
	report, err := loader.Load(context.Background(), path)

	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !strings.Contains(report.Text, "PDF parsing failed") {
		t.Errorf("failure note missing: %q", report.Text)
	}
}

func TestMultiLoader_DispatchByExtension(t *testing.T) {
	dir, _ := os.MkdirTemp("", "loader-test-*")
	defer os.RemoveAll(dir)

	// Create test files
	txtPath := filepath.Join(dir, "labs.txt")
	mdPath := filepath.Join(dir, "labs.md")
	pdfPath := filepath.Join(dir, "labs.pdf")
	os.WriteFile(txtPath, []byte("txt report"), 0644)
	os.WriteFile(mdPath, []byte("# Blood Panel"), 0644)
	os.WriteFile(pdfPath, []byte("%PDF-1.4 fake"), 0644)

	loader := NewMultiLoader(&stubParser{text: "extracted pdf report"})

	txt, _ := loader.Load(context.Background(), txtPath)
	md, _ := loader.Load(context.Background(), mdPath)
	pdf, _ := loader.Load(context.Background(), pdfPath)

	if txt.Text != "txt report" {
		t.Error("txt not loaded correctly")
	}
	if md.Text != "# Blood Panel" {
		t.Error("md not loaded correctly")
	}
	if pdf.Text != "extracted pdf report" {
		t.Error("pdf not routed through parser")
	}
}

func TestMultiLoader_AllExtensions(t *testing.T) {
	loader := NewMultiLoader(&stubParser{})
	exts := loader.SupportedExtensions()

	if len(exts) < 4 {
		t.Errorf("expected at least 4 extensions, got %d", len(exts))
	}
}

func TestLoader_NonexistentFile(t *testing.T) {
	loader := NewTextLoader()
	_, err := loader.Load(context.Background(), "/nonexistent/file.txt")

	if err == nil {
		t.Error("should error on nonexistent file")
	}
}
