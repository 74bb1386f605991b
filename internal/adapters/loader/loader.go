// Package loader provides report file loading adapters.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hia-ai/hia/internal/domain/entities"
	"github.com/hia-ai/hia/internal/domain/ports"
)

// TextLoader loads plain text reports (.txt, .md).
type TextLoader struct{}

// NewTextLoader creates a new text report loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text report from the given path.
func (l *TextLoader) Load(ctx context.Context, path string) (*entities.Report, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	return &entities.Report{
		ID:         generateReportID(path),
		Filename:   filepath.Base(path),
		Text:       strings.TrimSpace(string(content)),
		UploadedAt: info.ModTime(),
	}, nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// PDFLoader loads PDF reports through a ReportParser.
type PDFLoader struct {
	parser ports.ReportParser
}

// NewPDFLoader creates a PDF loader backed by the given parser.
func NewPDFLoader(parser ports.ReportParser) *PDFLoader {
	return &PDFLoader{parser: parser}
}

// Load reads a PDF and extracts its text.
func (l *PDFLoader) Load(ctx context.Context, path string) (*entities.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text, err := l.parser.Parse(ctx, data, filepath.Base(path))
	if err != nil {
		// Keep the ingestion loop alive; the note surfaces in chat.
		text = "[PDF parsing failed: " + err.Error() + "]"
	}

	info, _ := os.Stat(path)
	modTime := time.Now()
	if info != nil {
		modTime = info.ModTime()
	}

	return &entities.Report{
		ID:         generateReportID(path),
		Filename:   filepath.Base(path),
		Text:       text,
		UploadedAt: modTime,
	}, nil
}

// SupportedExtensions returns file extensions.
func (l *PDFLoader) SupportedExtensions() []string {
	return []string{".pdf"}
}

// MultiLoader combines multiple loaders.
type MultiLoader struct {
	loaders map[string]ports.ReportLoader
}

// NewMultiLoader creates a loader that handles multiple report types.
func NewMultiLoader(pdfParser ports.ReportParser) *MultiLoader {
	text := NewTextLoader()
	return &MultiLoader{
		loaders: map[string]ports.ReportLoader{
			".txt":      text,
			".md":       text,
			".markdown": text,
			".pdf":      NewPDFLoader(pdfParser),
		},
	}
}

// Load dispatches to the appropriate loader based on extension.
func (m *MultiLoader) Load(ctx context.Context, path string) (*entities.Report, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := m.loaders[ext]
	if !ok {
		// Default to text loader
		loader = NewTextLoader()
	}
	return loader.Load(ctx, path)
}

// SupportedExtensions returns all supported extensions.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	return exts
}

// generateReportID creates a deterministic ID for a report file.
func generateReportID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}
