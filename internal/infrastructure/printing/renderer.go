package printing

import "time"

// PaperSize selects the page geometry
type PaperSize string

const (
	PaperA4        PaperSize = "A4"
	PaperReceipt80 PaperSize = "RECEIPT_80MM"
	PaperReceipt58 PaperSize = "RECEIPT_58MM"
)

// Dimensions returns width and height in millimeters. Receipt rolls report a
// height of zero and are printed as one tall page.
func (p PaperSize) Dimensions() (float64, float64) {
	switch p {
	case PaperReceipt80:
		return 80, 0
	case PaperReceipt58:
		return 58, 0
	default:
		return 210, 297
	}
}

// IsReceipt reports whether p is a thermal roll
func (p PaperSize) IsReceipt() bool {
	return p == PaperReceipt80 || p == PaperReceipt58
}

// RenderRequest is an HTML document to print
type RenderRequest struct {
	HTML      string
	Title     string
	PaperSize PaperSize
	MarginMM  float64
	Timeout   time.Duration
}

// RenderError is a rendering failure with a stable code
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

const (
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeInvalidHTML   = "INVALID_HTML"
)

// NewRenderError creates a RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}
