package compliance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintelhq/fintel/internal/config"
	invoicedomain "github.com/fintelhq/fintel/internal/invoice/domain"
)

func newTestScorer() *Scorer {
	holder := config.NewStaticComplianceConfigHolder(config.DefaultComplianceConfig())
	return NewScorer(holder)
}

func findCheck(t *testing.T, result *invoicedomain.ComplianceResult, name string) invoicedomain.CheckResult {
	t.Helper()
	for _, check := range result.Checks {
		if check.Name == name {
			return check
		}
	}
	t.Fatalf("check %q not recorded", name)
	return invoicedomain.CheckResult{}
}

func fullInvoice() *invoicedomain.Invoice {
	return &invoicedomain.Invoice{
		InvoiceNumber: "INV-2024-001",
		VendorName:    "Acme Supplies",
		GSTNumber:     "29ABCDE1234F1Z5",
		GSTNumbers:    []string{"29ABCDE1234F1Z5", "27AAPFU0939F1ZV"},
		HSNCodes:      []string{"8517"},
		TotalAmount:   23600,
		InvoiceDate:   "2024-03-15",
		Confidence:    92,
		LineItems: []invoicedomain.LineItem{
			{Description: "Mobile phone", HSNCode: "8517", Quantity: 1, Rate: 23600, Amount: 23600},
		},
	}
}

func TestScoreFullInvoiceEarnsHundred(t *testing.T) {
	scorer := newTestScorer()

	result := scorer.Score(context.Background(), fullInvoice(), nil)

	assert.Equal(t, 100.0, result.Score)
	assert.Equal(t, 12.0, result.PointsEarned)
	assert.Equal(t, 12.0, result.MaxPoints)
	assert.Equal(t, StatusExcellent, result.Status)
	assert.Equal(t, RiskLow, result.RiskLevel)
	assert.Equal(t, 10.0, result.RiskScore)
	assert.Empty(t, result.AnomalySummary)
	assert.Len(t, result.Checks, 12)
}

func TestScorePointsCappedAtMax(t *testing.T) {
	scorer := newTestScorer()
	invoice := fullInvoice()
	// Three valid GST numbers would earn 1.5 fractional points; the total
	// still caps at 12 and the score at 100.
	invoice.GSTNumbers = append(invoice.GSTNumbers, "07AABCU9603R1ZM")

	result := scorer.Score(context.Background(), invoice, nil)

	assert.Equal(t, 100.0, result.Score)
	assert.Equal(t, 12.0, result.PointsEarned)
}

func TestScoreEmptyInvoiceIsPoor(t *testing.T) {
	scorer := newTestScorer()

	result := scorer.Score(context.Background(), &invoicedomain.Invoice{}, nil)

	// Only the deferred duplicate slot and the outlier slot pass.
	assert.True(t, findCheck(t, result, "duplicate_check").Passed)
	assert.True(t, findCheck(t, result, "price_outlier").Passed)
	assert.Equal(t, 2.0, result.PointsEarned)
	assert.Equal(t, StatusPoor, result.Status)
	assert.Equal(t, RiskHigh, result.RiskLevel)
	assert.Equal(t, 75.0, result.RiskScore)
	assert.Contains(t, result.AnomalySummary, "Total amount failed arithmetic verification")
}

func TestScoreStatusTiers(t *testing.T) {
	scorer := newTestScorer()

	fair := &invoicedomain.Invoice{
		InvoiceNumber: "INV-1",
		VendorName:    "Acme",
		TotalAmount:   5000,
		InvoiceDate:   "2024-01-01",
		HSNCodes:      []string{"123456"},
	}
	result := scorer.Score(context.Background(), fair, nil)
	require.Equal(t, StatusFair, result.Status)
	assert.Equal(t, RiskMedium, result.RiskLevel)
	assert.Equal(t, 50.0, result.RiskScore)

	good := *fair
	good.GSTNumber = "29ABCDE1234F1Z5"
	good.GSTNumbers = []string{"29ABCDE1234F1Z5"}
	result = scorer.Score(context.Background(), &good, nil)
	require.Equal(t, StatusGood, result.Status)
	assert.Equal(t, RiskLow, result.RiskLevel)
	assert.Equal(t, 25.0, result.RiskScore)

	excellent := good
	excellent.Confidence = 85
	excellent.HSNCodes = []string{"8517"}
	result = scorer.Score(context.Background(), &excellent, nil)
	require.Equal(t, StatusExcellent, result.Status)
	assert.Equal(t, RiskLow, result.RiskLevel)
}

func TestScoreMLAnomalyRaisesRisk(t *testing.T) {
	scorer := newTestScorer()

	fair := &invoicedomain.Invoice{
		InvoiceNumber: "INV-1",
		VendorName:    "Acme",
		TotalAmount:   5000,
		InvoiceDate:   "2024-01-01",
		HSNCodes:      []string{"123456"},
		Confidence:    75,
	}
	ml := &invoicedomain.MLPrediction{IsAnomaly: true, Confidence: 91}

	result := scorer.Score(context.Background(), fair, ml)

	// Fair starts at risk 50; the ML penalty pushes it past the High gate.
	assert.Equal(t, 70.0, result.RiskScore)
	assert.Equal(t, RiskHigh, result.RiskLevel)
	assert.Contains(t, result.AnomalySummary, "ML model flagged this invoice as anomalous")
}

func TestScoreSkippedPredictionCarriesNoPenalty(t *testing.T) {
	scorer := newTestScorer()
	ml := &invoicedomain.MLPrediction{IsAnomaly: true, Skipped: true}

	result := scorer.Score(context.Background(), fullInvoice(), ml)

	assert.Equal(t, 10.0, result.RiskScore)
	assert.NotContains(t, result.AnomalySummary, "ML model flagged this invoice as anomalous")
}

func TestScoreLowConfidenceSummary(t *testing.T) {
	scorer := newTestScorer()
	invoice := fullInvoice()
	invoice.Confidence = 55

	result := scorer.Score(context.Background(), invoice, nil)

	assert.False(t, findCheck(t, result, "ocr_confidence").Passed)
	assert.Contains(t, result.AnomalySummary, "Low OCR confidence: 55.0")
}

func TestScoreGSTFormatFractionalPoints(t *testing.T) {
	scorer := newTestScorer()
	invoice := &invoicedomain.Invoice{
		GSTNumbers: []string{"29ABCDE1234F1Z5", "not-a-gst"},
	}

	result := scorer.Score(context.Background(), invoice, nil)

	check := findCheck(t, result, "gst_format")
	assert.True(t, check.Passed)
	assert.Equal(t, 0.5, check.Points)
	assert.Equal(t, "1 of 2 valid", check.Detail)
}

func TestScoreHSNReferenceFirstMatchWins(t *testing.T) {
	scorer := newTestScorer()
	invoice := &invoicedomain.Invoice{
		HSNCodes: []string{"999999", "8471", "8517"},
	}

	result := scorer.Score(context.Background(), invoice, nil)

	check := findCheck(t, result, "hsn_reference_match")
	assert.True(t, check.Passed)
	assert.Equal(t, "8471", check.Detail)
}

func TestScorePriceOutlierFailsCheck(t *testing.T) {
	scorer := newTestScorer()
	invoice := fullInvoice()
	// Default market average is 25000 with a 50% band; 100000 is far outside.
	invoice.LineItems = []invoicedomain.LineItem{
		{Description: "Gold-plated stapler", Quantity: 1, Rate: 100000, Amount: 100000},
	}

	result := scorer.Score(context.Background(), invoice, nil)

	assert.False(t, findCheck(t, result, "price_outlier").Passed)
	assert.Equal(t, StatusExcellent, result.Status)
}

func TestScoreOutlierFromQuantityTimesRate(t *testing.T) {
	scorer := newTestScorer()
	invoice := fullInvoice()
	invoice.LineItems = []invoicedomain.LineItem{
		{Description: "Bulk widgets", Quantity: 40, Rate: 2500},
	}

	result := scorer.Score(context.Background(), invoice, nil)

	assert.False(t, findCheck(t, result, "price_outlier").Passed)
}
