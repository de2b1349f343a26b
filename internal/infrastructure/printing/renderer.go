// Package printing renders ledger documents to PDF through a headless
// Chrome driven with chromedp.
package printing

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
)

// PaperSize names a supported sheet
type PaperSize string

const (
	PaperSizeA4     PaperSize = "A4"
	PaperSizeLetter PaperSize = "LETTER"
	// PaperSizeThermal80 is an 80mm roll as used by cash register printers
	PaperSizeThermal80 PaperSize = "THERMAL_80MM"
)

// ParsePaperSize accepts the sizes case-insensitively; empty means A4
func ParsePaperSize(s string) (PaperSize, error) {
	if strings.TrimSpace(s) == "" {
		return PaperSizeA4, nil
	}
	size := PaperSize(strings.ToUpper(strings.TrimSpace(s)))
	if !size.IsValid() {
		return "", fmt.Errorf("unknown paper size %q", s)
	}
	return size, nil
}

// IsValid reports whether the size is supported
func (p PaperSize) IsValid() bool {
	switch p {
	case PaperSizeA4, PaperSizeLetter, PaperSizeThermal80:
		return true
	}
	return false
}

// IsRoll reports whether the paper is continuous
func (p PaperSize) IsRoll() bool {
	return p == PaperSizeThermal80
}

// Dimensions returns width and height in millimeters. Rolls report the
// height of one printed receipt page.
func (p PaperSize) Dimensions() (width, height float64) {
	switch p {
	case PaperSizeLetter:
		return 215.9, 279.4
	case PaperSizeThermal80:
		return 80, 297
	default:
		return 210, 297
	}
}

// Margins in millimeters
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// DefaultMargins suits the given paper
func DefaultMargins(p PaperSize) Margins {
	if p.IsRoll() {
		return Margins{Top: 2, Right: 2, Bottom: 2, Left: 2}
	}
	return Margins{Top: 15, Right: 12, Bottom: 15, Left: 12}
}

// RenderRequest is one HTML document to print
type RenderRequest struct {
	HTML      string
	Title     string
	PaperSize PaperSize
	Landscape bool
	Margins   Margins
	// FooterHTML is repeated on every page; Chrome's pageNumber and
	// totalPages classes are available
	FooterHTML string
	// Timeout overrides the renderer default
	Timeout time.Duration
}

// RenderResult is the produced PDF
type RenderResult struct {
	PDFData        []byte
	PageCount      int
	RenderDuration time.Duration
}

// PDFRenderer converts HTML to PDF
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout    = "RENDER_TIMEOUT"
	ErrCodeRenderFailed     = "RENDER_FAILED"
	ErrCodeInvalidHTML      = "INVALID_HTML"
	ErrCodeInvalidPaperSize = "INVALID_PAPER_SIZE"
	ErrCodeTemplateFailed   = "TEMPLATE_FAILED"
)

// RenderError is a failure to produce a document
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

// estimatePageCount counts page objects; the page tree root is not a page
func estimatePageCount(pdf []byte) int {
	count := bytes.Count(pdf, []byte("/Type /Page")) - bytes.Count(pdf, []byte("/Type /Pages"))
	return max(count, 1)
}

func mmToInches(mm float64) float64 {
	return mm / 25.4
}
