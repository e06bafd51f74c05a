// Package export renders a profile summary as HTML or PDF.
package export

import "errors"

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrPDFDependencyMissing indicates no Chrome or Chromium binary was found.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	ErrUnsupportedFormat    = errors.New("unsupported export format")
)
