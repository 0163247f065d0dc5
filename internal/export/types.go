// Package export renders a user's tagged content as an HTML or PDF digest.
package export

import "errors"

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// Request contains parameters for a digest export.
type Request struct {
	UserID string
	Format Format
	Year   int // 0 means all years
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrUnsupportedFormat indicates the requested format is not recognized.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)
