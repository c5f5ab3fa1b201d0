package convert

import (
	"context"
	"errors"
)

// Supported output formats.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
)

// Converter turns a rendered HTML snapshot into downloadable bytes.
type Converter interface {
	Convert(ctx context.Context, html, format, paperSize, margins string) ([]byte, error)
}

var (
	// ErrUnavailable indicates the converter could not be reached or
	// returned a transient error.
	ErrUnavailable = errors.New("document converter unavailable")

	// ErrUnsupportedFormat indicates a format the converter does not
	// produce.
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrNotConfigured is returned by the placeholder converter.
	ErrNotConfigured = errors.New("document converter not configured")
)

// SupportedFormat reports whether format names a convertible output.
func SupportedFormat(format string) bool {
	return format == FormatPDF || format == FormatDOCX
}

// Placeholder stands in when no converter URL is configured; HTML
// viewing still works, binary exports fail cleanly.
type Placeholder struct{}

// Convert returns ErrNotConfigured.
func (Placeholder) Convert(ctx context.Context, html, format, paperSize, margins string) ([]byte, error) {
	_ = ctx
	return nil, ErrNotConfigured
}
