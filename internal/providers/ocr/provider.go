// Package ocr integrates the external vision extraction service.
package ocr

import (
	"context"
	"errors"

	invoicedomain "github.com/fintelhq/fintel/internal/invoice/domain"
)

// ErrMalformed marks an extraction with no usable structured data. The
// request is terminal at that point; no partial scoring is attempted.
var ErrMalformed = errors.New("ocr: no usable structured data extracted")

// Extraction is the structured result of one vision pass over a document.
type Extraction struct {
	InvoiceNumber string
	VendorName    string
	InvoiceDate   string
	TotalAmount   float64

	GSTNumbers []string
	GSTRate    string
	CGSTRate   string
	SGSTRate   string
	IGSTRate   string

	HSNCode   string
	HSNCodes  []string
	LineItems []invoicedomain.LineItem

	Confidence float64
	RawText    string
}

// Usable reports whether enough structure came back to continue the
// pipeline.
func (e *Extraction) Usable() bool {
	if e == nil {
		return false
	}
	return e.InvoiceNumber != "" || e.VendorName != "" || e.TotalAmount > 0 || e.RawText != ""
}

// Extractor is the OCR oracle boundary.
type Extractor interface {
	Extract(ctx context.Context, filename string, content []byte) (*Extraction, error)
}

// NoOpExtractor is wired when no OCR endpoint is configured.
type NoOpExtractor struct{}

func (NoOpExtractor) Extract(ctx context.Context, filename string, content []byte) (*Extraction, error) {
	return nil, errors.New("ocr: no extraction endpoint configured")
}
