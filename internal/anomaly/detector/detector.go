// Package detector cross-references a newly stored invoice against the
// accumulated corpus and records typed anomalies.
package detector

import (
	"context"
	"fmt"
	"math"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fintelhq/fintel/internal/anomaly/domain"
	"github.com/fintelhq/fintel/internal/clock"
	invoicedomain "github.com/fintelhq/fintel/internal/invoice/domain"
	"github.com/fintelhq/fintel/internal/observability/logger"
)

const (
	unusualAmountFactor   = 3.0
	priceDeviationPercent = 50.0
	priceDeviationCodes   = 3
	priceDeviationSample  = 10
	priceDeviationMinPeer = 3
)

// Detector runs the historical checks for one stored invoice.
type Detector struct {
	invoices  invoicedomain.Repository
	anomalies domain.Repository
	node      *snowflake.Node
	clock     clock.Clock
}

// New builds a Detector.
func New(invoices invoicedomain.Repository, anomalies domain.Repository, node *snowflake.Node, clk clock.Clock) *Detector {
	return &Detector{invoices: invoices, anomalies: anomalies, node: node, clock: clk}
}

// Run evaluates every check in fixed order against the store, then persists
// the findings as a single batch. The checks themselves are read-only.
func (d *Detector) Run(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) ([]*domain.Anomaly, error) {
	findings, err := d.Detect(ctx, db, invoice)
	if err != nil {
		return nil, err
	}

	detectedAt := d.clock.Now()
	for _, finding := range findings {
		finding.ID = d.node.Generate()
		finding.InvoiceID = invoice.ID
		finding.InvoiceNumber = invoice.InvoiceNumber
		finding.DetectedAt = detectedAt
	}
	if err := d.anomalies.BatchInsert(ctx, db, findings); err != nil {
		return nil, fmt.Errorf("persist anomalies: %w", err)
	}
	return findings, nil
}

// Detect produces the ordered finding list without persisting anything.
func (d *Detector) Detect(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) ([]*domain.Anomaly, error) {
	log := logger.FromContext(ctx).With(zap.Int64("invoice_id", int64(invoice.ID)))
	var findings []*domain.Anomaly

	duplicate, err := d.checkDuplicate(ctx, db, invoice)
	if err != nil {
		return nil, err
	}
	if duplicate != nil {
		findings = append(findings, duplicate)
	}

	if missing := checkMissingGST(invoice); missing != nil {
		findings = append(findings, missing)
	}

	if invalid := checkInvalidGST(invoice); invalid != nil {
		findings = append(findings, invalid)
	}

	mismatch, err := d.checkVendorMismatch(ctx, db, invoice)
	if err != nil {
		return nil, err
	}
	if mismatch != nil {
		findings = append(findings, mismatch)
	}

	unusual, err := d.checkUnusualAmount(ctx, db, invoice)
	if err != nil {
		return nil, err
	}
	if unusual != nil {
		findings = append(findings, unusual)
	}

	findings = append(findings, checkInvalidHSN(invoice)...)
	findings = append(findings, checkRateMismatches(invoice)...)

	deviation, err := d.checkPriceDeviation(ctx, db, invoice)
	if err != nil {
		return nil, err
	}
	if deviation != nil {
		findings = append(findings, deviation)
	}

	log.Debug("anomaly detection complete", zap.Int("findings", len(findings)))
	return findings, nil
}

func (d *Detector) checkDuplicate(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) (*domain.Anomaly, error) {
	if invoice.InvoiceNumber == "" {
		return nil, nil
	}
	other, err := d.invoices.FindByInvoiceNumber(ctx, db, invoice.InvoiceNumber, invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if other == nil {
		return nil, nil
	}
	related := other.ID
	return &domain.Anomaly{
		Type:             domain.TypeDuplicateInvoice,
		Severity:         domain.SeverityHigh,
		Description:      fmt.Sprintf("Duplicate invoice number found: %s", invoice.InvoiceNumber),
		RelatedInvoiceID: &related,
	}, nil
}

func checkMissingGST(invoice *invoicedomain.Invoice) *domain.Anomaly {
	if len(invoice.GSTNumbers) > 0 && invoice.GSTNumber != "" && invoice.GSTNumber != invoicedomain.UnknownGST {
		return nil
	}
	return &domain.Anomaly{
		Type:        domain.TypeMissingGST,
		Severity:    domain.SeverityHigh,
		Description: "No GST number found on invoice",
	}
}

// checkInvalidGST inspects the primary verification only. A skipped lookup
// (registry unreachable) is not evidence of an invalid registration.
func checkInvalidGST(invoice *invoicedomain.Invoice) *domain.Anomaly {
	if len(invoice.GSTNumbers) == 0 || len(invoice.GSTVerifications) == 0 {
		return nil
	}
	primary := invoice.GSTVerifications[0]
	if primary.Skipped || (primary.Success && primary.IsActive) {
		return nil
	}
	return &domain.Anomaly{
		Type:        domain.TypeInvalidGST,
		Severity:    domain.SeverityHigh,
		Description: fmt.Sprintf("GST number %s failed verification", primary.GSTNumber),
	}
}

func (d *Detector) checkVendorMismatch(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) (*domain.Anomaly, error) {
	if invoice.GSTNumber == "" || invoice.GSTNumber == invoicedomain.UnknownGST || invoice.VendorName == "" {
		return nil, nil
	}
	other, err := d.invoices.FindByGSTNumber(ctx, db, invoice.GSTNumber, invoice.ID, invoice.VendorName)
	if err != nil {
		return nil, fmt.Errorf("vendor mismatch check: %w", err)
	}
	if other == nil {
		return nil, nil
	}
	related := other.ID
	return &domain.Anomaly{
		Type:             domain.TypeGSTVendorMismatch,
		Severity:         domain.SeverityHigh,
		Description:      fmt.Sprintf("GST number %s previously used by vendor %q", invoice.GSTNumber, other.VendorName),
		RelatedInvoiceID: &related,
	}, nil
}

func (d *Detector) checkUnusualAmount(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) (*domain.Anomaly, error) {
	if invoice.VendorName == "" || invoice.TotalAmount <= 0 {
		return nil, nil
	}
	stats, err := d.invoices.VendorNameStats(ctx, db, invoice.VendorName, invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("unusual amount check: %w", err)
	}
	if stats == nil || stats.AvgAmount <= 0 {
		return nil, nil
	}
	if invoice.TotalAmount <= unusualAmountFactor*stats.AvgAmount {
		return nil, nil
	}
	return &domain.Anomaly{
		Type:     domain.TypeUnusualAmount,
		Severity: domain.SeverityMedium,
		Description: fmt.Sprintf("Amount %.2f is more than 3x the vendor average %.2f over %d invoices",
			invoice.TotalAmount, stats.AvgAmount, stats.Count),
	}, nil
}

func checkInvalidHSN(invoice *invoicedomain.Invoice) []*domain.Anomaly {
	var findings []*domain.Anomaly
	for _, verification := range invoice.HSNVerifications {
		if verification.Skipped || verification.IsValid {
			continue
		}
		findings = append(findings, &domain.Anomaly{
			Type:        domain.TypeInvalidHSNSAC,
			Severity:    domain.SeverityHigh,
			Description: fmt.Sprintf("Invalid %s code: %s", verification.CodeType, verification.Code),
		})
	}
	return findings
}

func checkRateMismatches(invoice *invoicedomain.Invoice) []*domain.Anomaly {
	if invoice.LineItemVerification == nil {
		return nil
	}
	var findings []*domain.Anomaly
	for _, mismatch := range invoice.LineItemVerification.RateMismatches {
		findings = append(findings, &domain.Anomaly{
			Type:     domain.TypeHSNGSTRateMismatch,
			Severity: domain.SeverityHigh,
			Description: fmt.Sprintf("Item %q (HSN %s): extracted GST rate %.1f%% but registry rate is %.1f%%",
				mismatch.ItemName, mismatch.HSNCode, mismatch.ExtractedRate, mismatch.ActualRate),
		})
	}
	return findings
}

// checkPriceDeviation compares against corpus peers for the first few HSN
// codes and short-circuits after the first hit, so it emits at most one
// finding per invoice.
func (d *Detector) checkPriceDeviation(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) (*domain.Anomaly, error) {
	if invoice.TotalAmount <= 0 {
		return nil, nil
	}
	for _, code := range distinctHead(invoice.HSNCodes, priceDeviationCodes) {
		peers, err := d.invoices.FindByHSNCode(ctx, db, code, invoice.ID, priceDeviationSample)
		if err != nil {
			return nil, fmt.Errorf("price deviation check: %w", err)
		}
		if len(peers) < priceDeviationMinPeer {
			continue
		}
		// Zero-amount peers carry no price signal and would drag the
		// baseline down.
		var sum float64
		var priced int
		for _, peer := range peers {
			if peer.TotalAmount > 0 {
				sum += peer.TotalAmount
				priced++
			}
		}
		if priced == 0 {
			continue
		}
		mean := sum / float64(priced)
		deviation := math.Abs(invoice.TotalAmount-mean) / mean * 100
		if deviation <= priceDeviationPercent {
			continue
		}
		return &domain.Anomaly{
			Type:     domain.TypeHSNPriceDeviation,
			Severity: domain.SeverityMedium,
			Description: fmt.Sprintf("Amount %.2f deviates %.0f%% from the %.2f average of %d invoices with HSN %s",
				invoice.TotalAmount, deviation, mean, priced, code),
		}, nil
	}
	return nil, nil
}

func distinctHead(codes []string, n int) []string {
	seen := make(map[string]struct{}, n)
	var out []string
	for _, code := range codes {
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
		if len(out) == n {
			break
		}
	}
	return out
}
