// Package processing orchestrates the invoice ingestion pipeline: OCR,
// enrichment, oracle verification, scoring, storage and anomaly detection.
package processing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	anomalydomain "github.com/fintelhq/fintel/internal/anomaly/domain"
	"github.com/fintelhq/fintel/internal/anomaly/detector"
	"github.com/fintelhq/fintel/internal/clock"
	"github.com/fintelhq/fintel/internal/compliance"
	"github.com/fintelhq/fintel/internal/extraction"
	invoicedomain "github.com/fintelhq/fintel/internal/invoice/domain"
	"github.com/fintelhq/fintel/internal/observability/logger"
	"github.com/fintelhq/fintel/internal/observability/metrics"
	"github.com/fintelhq/fintel/internal/providers/classifier"
	"github.com/fintelhq/fintel/internal/providers/gstlookup"
	"github.com/fintelhq/fintel/internal/providers/hsnlookup"
	"github.com/fintelhq/fintel/internal/providers/ocr"
	"github.com/fintelhq/fintel/internal/providers/oracle"
	vendordomain "github.com/fintelhq/fintel/internal/vendors/domain"
	"github.com/fintelhq/fintel/pkg/db"
)

// maxHSNVerifications bounds per-invoice registry calls.
const maxHSNVerifications = 5

// UploadResult is the terminal outcome of one processed document.
type UploadResult struct {
	InvoiceID  snowflake.ID                     `json:"invoiceId"`
	Invoice    *invoicedomain.Invoice           `json:"invoice"`
	Compliance *invoicedomain.ComplianceResult  `json:"compliance"`
	Anomalies  []*anomalydomain.Anomaly         `json:"anomalies"`
}

// Service runs the ingestion pipeline.
type Service interface {
	ProcessUpload(ctx context.Context, filename string, content []byte) (*UploadResult, error)
}

// ServiceParam collects pipeline dependencies.
type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Invoices  invoicedomain.Repository
	Vendors   vendordomain.Repository
	Detector  *detector.Detector
	Scorer    *compliance.Scorer
	Extractor ocr.Extractor
	GST       gstlookup.Client
	HSN       hsnlookup.Client
	Predictor classifier.Predictor
	Metrics   *metrics.PipelineMetrics
}

type service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	invoices  invoicedomain.Repository
	vendors   vendordomain.Repository
	detector  *detector.Detector
	scorer    *compliance.Scorer
	extractor ocr.Extractor
	gst       gstlookup.Client
	hsn       hsnlookup.Client
	predictor classifier.Predictor
	metrics   *metrics.PipelineMetrics
}

// NewService builds the pipeline service.
func NewService(p ServiceParam) Service {
	return &service{
		db:        p.DB,
		log:       p.Log.Named("processing"),
		genID:     p.GenID,
		clock:     p.Clock,
		invoices:  p.Invoices,
		vendors:   p.Vendors,
		detector:  p.Detector,
		scorer:    p.Scorer,
		extractor: p.Extractor,
		gst:       p.GST,
		hsn:       p.HSN,
		predictor: p.Predictor,
		metrics:   p.Metrics,
	}
}

// ProcessUpload runs the full pipeline. Once extraction succeeds the
// pipeline runs to completion or reports a terminal failure; oracle
// outages degrade individual verifications to skipped instead of failing
// the invoice.
func (s *service) ProcessUpload(ctx context.Context, filename string, content []byte) (*UploadResult, error) {
	start := time.Now()
	log := logger.WithContext(ctx, s.log).With(zap.String("filename", filename))

	extracted, err := s.extractor.Extract(ctx, filename, content)
	if err != nil {
		s.metrics.InvoiceProcessed("extraction_failed")
		return nil, err
	}

	invoice := s.buildInvoice(ctx, filename, extracted)
	log = log.With(zap.Int64("invoice_id", int64(invoice.ID)))

	s.verifyGST(ctx, log, invoice)
	s.verifyHSN(ctx, log, invoice, parseRate(extracted.GSTRate))
	prediction := s.predict(ctx, log, invoice)
	invoice.MLPrediction = prediction
	invoice.Compliance = s.scorer.Score(ctx, invoice, prediction)
	s.metrics.ComplianceScore(invoice.Compliance.Score)

	if err := s.store(ctx, invoice); err != nil {
		s.metrics.InvoiceProcessed("storage_failed")
		return nil, err
	}

	findings, err := s.detector.Run(ctx, s.db, invoice)
	if err != nil {
		s.metrics.InvoiceProcessed("detection_failed")
		return nil, db.WrapStorage("detect anomalies", err)
	}
	for _, finding := range findings {
		s.metrics.AnomalyDetected(string(finding.Type), string(finding.Severity))
	}

	s.metrics.InvoiceProcessed("completed")
	s.metrics.ProcessingDuration(time.Since(start))
	log.Info("invoice processed",
		zap.Float64("compliance_score", invoice.Compliance.Score),
		zap.Int("anomalies", len(findings)),
	)

	return &UploadResult{
		InvoiceID:  invoice.ID,
		Invoice:    invoice,
		Compliance: invoice.Compliance,
		Anomalies:  findings,
	}, nil
}

// buildInvoice merges structured extraction with local text enrichment.
func (s *service) buildInvoice(ctx context.Context, filename string, extracted *ocr.Extraction) *invoicedomain.Invoice {
	enrichment := extraction.Enrich(extracted.RawText)

	hsnCodes := mergeDistinct(extracted.HSNCodes, enrichment.HSNCodes)
	primaryHSN := extracted.HSNCode
	if primaryHSN == "" && len(hsnCodes) > 0 {
		primaryHSN = hsnCodes[0]
	}

	itemDescriptions := enrichment.ItemDescriptions
	if len(extracted.LineItems) > 0 {
		itemDescriptions = nil
		for _, item := range extracted.LineItems {
			if item.Description != "" {
				itemDescriptions = append(itemDescriptions, item.Description)
			}
		}
	}

	primaryGST := invoicedomain.UnknownGST
	if len(extracted.GSTNumbers) > 0 {
		primaryGST = extracted.GSTNumbers[0]
	}

	return &invoicedomain.Invoice{
		ID:               s.genID.Generate(),
		InvoiceNumber:    strings.TrimSpace(extracted.InvoiceNumber),
		VendorName:       strings.TrimSpace(extracted.VendorName),
		GSTNumber:        primaryGST,
		GSTNumbers:       extracted.GSTNumbers,
		GSTRate:          orUnknown(extracted.GSTRate),
		CGSTRate:         orUnknown(extracted.CGSTRate),
		SGSTRate:         orUnknown(extracted.SGSTRate),
		IGSTRate:         orUnknown(extracted.IGSTRate),
		HSNCode:          primaryHSN,
		HSNCodes:         hsnCodes,
		ItemDescriptions: itemDescriptions,
		Quantities:       enrichment.Quantities,
		LineItems:        extracted.LineItems,
		TotalAmount:      extracted.TotalAmount,
		InvoiceDate:      strings.TrimSpace(extracted.InvoiceDate),
		Confidence:       extracted.Confidence,
		Filename:         filename,
		RawText:          extraction.TruncateRawText(extracted.RawText),
		Metadata:         datatypes.JSONMap{},
		UploadedAt:       s.clock.Now(),
	}
}

func (s *service) verifyGST(ctx context.Context, log *zap.Logger, invoice *invoicedomain.Invoice) {
	for _, gstNumber := range invoice.GSTNumbers {
		result, err := s.gst.Verify(ctx, gstNumber)
		if err != nil {
			if oracle.IsUnavailable(err) {
				s.metrics.OracleRequest("gst", "unavailable")
				log.Warn("gst lookup unavailable", zap.String("gst_number", gstNumber), zap.Error(err))
				invoice.GSTVerifications = append(invoice.GSTVerifications, invoicedomain.GSTVerification{
					GSTNumber: gstNumber,
					Skipped:   true,
					Error:     err.Error(),
				})
				continue
			}
			s.metrics.OracleRequest("gst", "error")
			log.Warn("gst lookup failed", zap.String("gst_number", gstNumber), zap.Error(err))
			invoice.GSTVerifications = append(invoice.GSTVerifications, invoicedomain.GSTVerification{
				GSTNumber: gstNumber,
				Skipped:   true,
				Error:     err.Error(),
			})
			continue
		}

		s.metrics.OracleRequest("gst", outcome(result.Success))
		verification := invoicedomain.GSTVerification{
			GSTNumber: gstNumber,
			Success:   result.Success,
			IsActive:  result.IsActive,
			LegalName: result.LegalName,
			TradeName: result.TradeName,
		}
		invoice.GSTVerifications = append(invoice.GSTVerifications, verification)

		if gstNumber == invoice.GSTNumber && result.Success {
			invoice.Metadata["gstNameMatch"] = gstlookup.MatchesVendorName(result, invoice.VendorName)
		}
	}
}

func (s *service) verifyHSN(ctx context.Context, log *zap.Logger, invoice *invoicedomain.Invoice, extractedRate float64) {
	codes := invoice.HSNCodes
	if len(codes) > maxHSNVerifications {
		codes = codes[:maxHSNVerifications]
	}
	for _, code := range codes {
		verification, err := s.hsn.VerifyCode(ctx, code)
		if err != nil {
			s.metrics.OracleRequest("hsn", "unavailable")
			log.Warn("hsn lookup unavailable", zap.String("code", code), zap.Error(err))
			invoice.HSNVerifications = append(invoice.HSNVerifications, invoicedomain.HSNVerification{
				Code:    code,
				Skipped: true,
				Error:   err.Error(),
			})
			continue
		}
		s.metrics.OracleRequest("hsn", outcome(verification.IsValid))
		invoice.HSNVerifications = append(invoice.HSNVerifications, *verification)
	}

	if len(invoice.LineItems) == 0 {
		return
	}
	lineItemResult, err := s.hsn.VerifyLineItems(ctx, invoice.LineItems, extractedRate)
	if err != nil {
		log.Warn("line item verification unavailable", zap.Error(err))
		invoice.LineItemVerification = &invoicedomain.LineItemVerification{Skipped: true}
		return
	}
	invoice.LineItemVerification = lineItemResult
}

func (s *service) predict(ctx context.Context, log *zap.Logger, invoice *invoicedomain.Invoice) *invoicedomain.MLPrediction {
	features := extraction.FeatureVector(ctx, invoice)
	prediction, err := s.predictor.Predict(ctx, features)
	if err != nil {
		s.metrics.OracleRequest("classifier", "unavailable")
		log.Warn("classifier unavailable", zap.Error(err))
		return &invoicedomain.MLPrediction{Skipped: true}
	}
	if !prediction.Skipped {
		s.metrics.OracleRequest("classifier", outcome(true))
	}
	return prediction
}

// store inserts the invoice and applies the vendor aggregate in one
// transaction, so the corpus and the aggregates never diverge.
func (s *service) store(ctx context.Context, invoice *invoicedomain.Invoice) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.invoices.Insert(ctx, tx, invoice); err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		return s.vendors.Upsert(ctx, tx, invoice.GSTNumber, invoice.VendorName, invoice.TotalAmount, invoice.UploadedAt)
	})
	if err != nil {
		return db.WrapStorage("store invoice", err)
	}
	return nil
}

func mergeDistinct(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, value := range list {
			if value == "" {
				continue
			}
			if _, ok := seen[value]; ok {
				continue
			}
			seen[value] = struct{}{}
			out = append(out, value)
		}
	}
	return out
}

func orUnknown(rate string) string {
	rate = strings.TrimSpace(rate)
	if rate == "" {
		return "Unknown"
	}
	return rate
}

// parseRate reads a percentage out of extracted text such as "18%" or
// "18.0". Unparseable rates yield zero, which disables rate comparison.
func parseRate(raw string) float64 {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if raw == "" || strings.EqualFold(raw, "unknown") {
		return 0
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return rate
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "rejected"
}
