// Package pdf renders report payloads into printable PDF documents. The
// report is assembled as markdown first, then laid out through a goldmark
// AST walk onto an fpdf page.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Service renders reports to PDF.
type Service struct {
	logger arbor.ILogger
}

// NewService creates the PDF service.
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// RenderReport lays out a report payload as an A4 PDF and returns the bytes.
func (s *Service) RenderReport(report *models.Report) ([]byte, error) {
	markdown := BuildReportMarkdown(report)
	return s.renderMarkdown(markdown)
}

// renderMarkdown converts markdown to PDF through a goldmark AST walk.
func (s *Service) renderMarkdown(markdown string) ([]byte, error) {
	s.logger.Debug().
		Int("markdown_len", len(markdown)).
		Msg("Rendering report PDF")

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(12, 12, 12)
	doc.SetAutoPageBreak(true, 12)
	doc.AddPage()
	doc.SetFont("Arial", "", 9)

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	source := []byte(markdown)
	root := md.Parser().Parse(text.NewReader(source))

	renderer := &reportRenderer{
		pdf:    doc,
		source: source,
		font:   "Arial",
		size:   9,
	}
	if err := renderer.render(root); err != nil {
		return nil, fmt.Errorf("failed to lay out report: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF output: %w", err)
	}

	s.logger.Debug().Int("pdf_size", buf.Len()).Msg("Report PDF rendered")
	return buf.Bytes(), nil
}
