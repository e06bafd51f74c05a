package export

import (
	"context"
	"fmt"
)

type pdfRenderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

type Service struct {
	pdf pdfRenderer
}

func NewService(pdf pdfRenderer) *Service {
	return &Service{pdf: pdf}
}

// Export renders summary in the requested format.
func (s *Service) Export(ctx context.Context, summary Summary, format Format) (*Result, error) {
	html, err := RenderHTML(summary)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	name := sanitizeFilename(summary.CompanyName)

	switch format {
	case FormatHTML:
		return &Result{Data: []byte(html), Filename: name + ".html", MimeType: "text/html; charset=utf-8"}, nil
	case FormatPDF:
		data, err := s.pdf.Render(ctx, html)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, Filename: name + ".pdf", MimeType: "application/pdf"}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
