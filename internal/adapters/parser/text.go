package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hia-ai/hia/internal/domain/ports"
)

// TextParser implements ports.ReportParser for plain text and markdown
// reports. Lab exports are often UTF-8 with stray control bytes, so the
// content is scrubbed before it reaches the chunker.
type TextParser struct{}

// NewTextParser creates a new plain text parser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse returns the report bytes as cleaned text.
func (p *TextParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("report %s is not valid UTF-8 text", filename)
	}
	return cleanReportText(string(data)), nil
}

// SupportedFormats returns formats this parser handles.
func (p *TextParser) SupportedFormats() []string {
	return []string{"txt", "md", "markdown"}
}

// MultiParser routes to a parser by filename extension.
type MultiParser struct {
	parsers map[string]ports.ReportParser
}

// NewMultiParser creates a parser that handles multiple report formats.
// Unknown extensions fall back to the text parser.
func NewMultiParser(pdfServiceURL string) *MultiParser {
	text := NewTextParser()
	pdf := NewPythonPDFParser(pdfServiceURL)
	return &MultiParser{
		parsers: map[string]ports.ReportParser{
			"txt":      text,
			"md":       text,
			"markdown": text,
			"pdf":      pdf,
		},
	}
}

// Parse dispatches to the appropriate parser based on extension.
func (m *MultiParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	parser, ok := m.parsers[ext]
	if !ok {
		parser = NewTextParser()
	}
	return parser.Parse(ctx, data, filename)
}

// SupportedFormats returns all supported formats.
func (m *MultiParser) SupportedFormats() []string {
	formats := make([]string, 0, len(m.parsers))
	for format := range m.parsers {
		formats = append(formats, format)
	}
	return formats
}

// cleanReportText removes control characters that upset chunking while
// keeping newlines and tabs, which carry lab-table structure.
func cleanReportText(content string) string {
	var cleaned strings.Builder
	for _, r := range content {
		if r >= 32 || r == '\n' || r == '\t' {
			cleaned.WriteRune(r)
		}
	}
	return strings.TrimSpace(cleaned.String())
}
