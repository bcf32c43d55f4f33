// Package domain contains persistence models for ingested invoices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// UnknownGST is the sentinel recorded when extraction found no usable GST
// number. Invoices carrying it never create or update a vendor aggregate.
const UnknownGST = "Unknown"

// LineItem is one billed line extracted from the document.
type LineItem struct {
	Description string  `json:"description"`
	HSNCode     string  `json:"hsnCode"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

// GSTVerification is the recorded outcome of one GST registry lookup.
// Skipped marks lookups that could not be completed because the registry
// was unreachable, which is distinct from a reachable registry reporting
// an invalid or inactive registration.
type GSTVerification struct {
	GSTNumber string `json:"gstNumber"`
	Success   bool   `json:"success"`
	IsActive  bool   `json:"isActive"`
	LegalName string `json:"legalName,omitempty"`
	TradeName string `json:"tradeName,omitempty"`
	Skipped   bool   `json:"skipped,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HSNVerification is the recorded outcome of one HSN/SAC code lookup.
type HSNVerification struct {
	Code        string  `json:"code"`
	CodeType    string  `json:"codeType"`
	IsValid     bool    `json:"isValid"`
	GSTRate     float64 `json:"gstRate"`
	Description string  `json:"description,omitempty"`
	Skipped     bool    `json:"skipped,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// RateMismatch records a line item whose extracted GST rate disagrees with
// the registry rate for its HSN code.
type RateMismatch struct {
	ItemName      string  `json:"itemName"`
	HSNCode       string  `json:"hsnCode"`
	ActualRate    float64 `json:"actualRate"`
	ExtractedRate float64 `json:"extractedRate"`
}

// LineItemVerification summarizes the per-line-item rate check.
type LineItemVerification struct {
	ItemsChecked   int            `json:"itemsChecked"`
	RateMismatches []RateMismatch `json:"rateMismatches,omitempty"`
	Skipped        bool           `json:"skipped,omitempty"`
}

// CheckResult is one compliance checklist outcome.
type CheckResult struct {
	Name   string  `json:"name"`
	Passed bool    `json:"passed"`
	Points float64 `json:"points"`
	Detail string  `json:"detail,omitempty"`
}

// ComplianceResult is the scored checklist stored with the invoice.
type ComplianceResult struct {
	Score          float64       `json:"score"`
	PointsEarned   float64       `json:"pointsEarned"`
	MaxPoints      float64       `json:"maxPoints"`
	Status         string        `json:"status"`
	RiskLevel      string        `json:"riskLevel"`
	RiskScore      float64       `json:"riskScore"`
	Checks         []CheckResult `json:"checks"`
	AnomalySummary []string      `json:"anomalySummary,omitempty"`
}

// MLPrediction is the classifier signal captured at processing time.
type MLPrediction struct {
	IsAnomaly  bool    `json:"isAnomaly"`
	Confidence float64 `json:"confidence"`
	Skipped    bool    `json:"skipped,omitempty"`
}

// Invoice is the append-only record of one processed document. It is never
// mutated after Store; duplicate invoice numbers are allowed and surface as
// anomalies instead of constraint violations.
type Invoice struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	InvoiceNumber string       `gorm:"type:text;index"`
	VendorName    string       `gorm:"type:text;index"`

	GSTNumber  string   `gorm:"type:text;index"`
	GSTNumbers []string `gorm:"serializer:json;type:text"`
	GSTRate    string   `gorm:"type:text"`
	CGSTRate   string   `gorm:"type:text"`
	SGSTRate   string   `gorm:"type:text"`
	IGSTRate   string   `gorm:"type:text"`

	HSNCode          string   `gorm:"type:text"`
	HSNCodes         []string `gorm:"serializer:json;type:text"`
	ItemDescriptions []string `gorm:"serializer:json;type:text"`
	Quantities       []string `gorm:"serializer:json;type:text"`

	LineItems []LineItem `gorm:"serializer:json;type:text"`

	TotalAmount float64 `gorm:"not null;default:0"`
	InvoiceDate string  `gorm:"type:text"`
	Confidence  float64 `gorm:"not null;default:0"`

	Filename string `gorm:"type:text"`
	RawText  string `gorm:"type:text"`

	GSTVerifications     []GSTVerification     `gorm:"serializer:json;type:text"`
	HSNVerifications     []HSNVerification     `gorm:"serializer:json;type:text"`
	LineItemVerification *LineItemVerification `gorm:"serializer:json;type:text"`
	Compliance           *ComplianceResult     `gorm:"serializer:json;type:text"`
	MLPrediction         *MLPrediction         `gorm:"serializer:json;type:text"`

	Metadata datatypes.JSONMap `gorm:"type:text"`

	UploadedAt time.Time `gorm:"not null;index"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// VendorNameStats aggregates historical amounts for invoices sharing a
// vendor name. This is a distinct axis from the GST-keyed vendor table.
type VendorNameStats struct {
	VendorName string  `json:"vendorName"`
	AvgAmount  float64 `json:"avgAmount"`
	MaxAmount  float64 `json:"maxAmount"`
	MinAmount  float64 `json:"minAmount"`
	Count      int64   `json:"count"`
}

// Totals are corpus-wide invoice aggregates for the dashboard.
type Totals struct {
	Count       int64   `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
}
