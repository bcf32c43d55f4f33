// Package domain contains anomaly records and the trend taxonomy.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Type classifies a detected anomaly.
type Type string

const (
	TypeDuplicateInvoice   Type = "DUPLICATE_INVOICE"
	TypeMissingGST         Type = "MISSING_GST"
	TypeInvalidGST         Type = "INVALID_GST"
	TypeGSTVendorMismatch  Type = "GST_VENDOR_MISMATCH"
	TypeUnusualAmount      Type = "UNUSUAL_AMOUNT"
	TypeInvalidHSNSAC      Type = "INVALID_HSN_SAC"
	TypeHSNGSTRateMismatch Type = "HSN_GST_RATE_MISMATCH"
	TypeHSNPriceDeviation  Type = "HSN_PRICE_DEVIATION"
)

// Severity ranks how urgent an anomaly is.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Bucket is the trend-reporting category an anomaly type rolls up into.
type Bucket string

const (
	BucketDuplicates   Bucket = "duplicates"
	BucketInvalidGST   Bucket = "invalidGst"
	BucketMissingGST   Bucket = "missingGst"
	BucketHSNAnomalies Bucket = "hsnAnomalies"
)

// Buckets lists every trend category in reporting order.
var Buckets = []Bucket{BucketDuplicates, BucketInvalidGST, BucketMissingGST, BucketHSNAnomalies}

// BucketFor maps an anomaly type to its trend bucket. Every type maps to
// exactly one bucket; an unmapped type is a defect, so the zero Bucket is
// returned only for types this package does not define.
func BucketFor(t Type) Bucket {
	switch t {
	case TypeDuplicateInvoice:
		return BucketDuplicates
	case TypeInvalidGST, TypeGSTVendorMismatch:
		return BucketInvalidGST
	case TypeMissingGST:
		return BucketMissingGST
	case TypeInvalidHSNSAC, TypeHSNGSTRateMismatch, TypeHSNPriceDeviation, TypeUnusualAmount:
		return BucketHSNAnomalies
	default:
		return ""
	}
}

// Anomaly is a point-in-time judgment recorded when an invoice is stored.
// Records are immutable and never revised as later invoices arrive.
type Anomaly struct {
	ID               snowflake.ID  `gorm:"primaryKey" json:"id"`
	InvoiceID        snowflake.ID  `gorm:"not null;index" json:"invoiceId"`
	InvoiceNumber    string        `gorm:"type:text" json:"invoiceNumber"`
	Type             Type          `gorm:"type:text;not null;index" json:"type"`
	Severity         Severity      `gorm:"type:text;not null;index" json:"severity"`
	Description      string        `gorm:"type:text;not null" json:"description"`
	RelatedInvoiceID *snowflake.ID `gorm:"index" json:"relatedInvoiceId,omitempty"`
	DetectedAt       time.Time     `gorm:"not null;index" json:"detectedAt"`
}

// TableName sets the database table name.
func (Anomaly) TableName() string { return "anomalies" }

// ListedAnomaly is an anomaly enriched with display fields from the owning
// invoice.
type ListedAnomaly struct {
	Anomaly
	VendorName string `json:"vendorName"`
}

// DayCounts is one calendar day of bucketed anomaly counts.
type DayCounts struct {
	Date   string           `json:"date"`
	Counts map[Bucket]int64 `json:"counts"`
}

// Counts are corpus-wide anomaly aggregates for the dashboard.
type Counts struct {
	Total        int64 `json:"total"`
	HighSeverity int64 `json:"highSeverity"`
}
