package extraction

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	invoicedomain "github.com/fintelhq/fintel/internal/invoice/domain"
	"github.com/fintelhq/fintel/internal/observability/logger"
)

// FeatureVectorSize is the classifier contract width.
const FeatureVectorSize = 16

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2/1/2006",
	"02/01/06",
	"02 Jan 2006",
	"02 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// FeatureVector builds the fixed 16-slot input for the anomaly classifier.
// Slot layout is a contract with the model and must not be reordered:
//
//	0  total amount
//	1  total amount mod 1000
//	2  digit count of the integer amount
//	3  invoice date day of week (Monday = 0)
//	4  invoice date day of month
//	5  invoice date month
//	6  OCR confidence
//	7  raw text length
//	8  GST number count
//	9  vendor name present
//	10 invoice number present
//	11 invoice date present
//	12 total amount present
//	13 reserved
//	14 reserved
//	15 reserved
//
// An absent amount zeroes slots 0 through 2 rather than reporting a
// one-digit zero.
func FeatureVector(ctx context.Context, invoice *invoicedomain.Invoice) []float64 {
	features := make([]float64, FeatureVectorSize)

	if invoice.TotalAmount != 0 {
		features[0] = invoice.TotalAmount
		features[1] = math.Mod(invoice.TotalAmount, 1000)
		features[2] = float64(digitCount(invoice.TotalAmount))
	}

	if date, ok := parseLenientDate(invoice.InvoiceDate); ok {
		features[3] = float64((int(date.Weekday()) + 6) % 7)
		features[4] = float64(date.Day())
		features[5] = float64(int(date.Month()))
	} else if invoice.InvoiceDate != "" {
		logger.FromContext(ctx).Debug("unparseable invoice date", zap.String("invoice_date", invoice.InvoiceDate))
	}

	features[6] = invoice.Confidence
	features[7] = float64(len(invoice.RawText))
	features[8] = float64(len(invoice.GSTNumbers))
	features[9] = boolFeature(invoice.VendorName != "")
	features[10] = boolFeature(invoice.InvoiceNumber != "")
	features[11] = boolFeature(invoice.InvoiceDate != "")
	features[12] = boolFeature(invoice.TotalAmount != 0)

	return features
}

// parseLenientDate accepts the common Indian invoice date formats.
func parseLenientDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func digitCount(amount float64) int {
	n := int64(math.Abs(amount))
	if n == 0 {
		return 1
	}
	count := 0
	for n > 0 {
		count++
		n /= 10
	}
	return count
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
