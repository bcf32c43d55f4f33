package processing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	anomalydomain "github.com/fintelhq/fintel/internal/anomaly/domain"
	"github.com/fintelhq/fintel/internal/anomaly/detector"
	anomalyrepo "github.com/fintelhq/fintel/internal/anomaly/repository"
	"github.com/fintelhq/fintel/internal/clock"
	"github.com/fintelhq/fintel/internal/compliance"
	"github.com/fintelhq/fintel/internal/config"
	invoicedomain "github.com/fintelhq/fintel/internal/invoice/domain"
	invoicerepo "github.com/fintelhq/fintel/internal/invoice/repository"
	"github.com/fintelhq/fintel/internal/observability/metrics"
	"github.com/fintelhq/fintel/internal/providers/classifier"
	"github.com/fintelhq/fintel/internal/providers/gstlookup"
	"github.com/fintelhq/fintel/internal/providers/hsnlookup"
	"github.com/fintelhq/fintel/internal/providers/ocr"
	"github.com/fintelhq/fintel/internal/providers/oracle"
	vendordomain "github.com/fintelhq/fintel/internal/vendors/domain"
	vendorrepo "github.com/fintelhq/fintel/internal/vendors/repository"
	"github.com/fintelhq/fintel/pkg/db"
)

type fakeExtractor struct {
	extraction *ocr.Extraction
	err        error
}

func (f *fakeExtractor) Extract(ctx context.Context, filename string, content []byte) (*ocr.Extraction, error) {
	return f.extraction, f.err
}

type unavailableGSTClient struct{}

func (unavailableGSTClient) Verify(ctx context.Context, gstNumber string) (*gstlookup.Result, error) {
	return nil, oracle.WrapTransport("gst registry", fmt.Errorf("connection refused"))
}

func newTestService(t *testing.T, extractor ocr.Extractor, gst gstlookup.Client) (Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&invoicedomain.Invoice{},
		&vendordomain.Vendor{},
		&anomalydomain.Anomaly{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFake(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	invoices := invoicerepo.Provide()
	anomalies := anomalyrepo.Provide()
	holder := config.NewStaticComplianceConfigHolder(config.DefaultComplianceConfig())

	svc := NewService(ServiceParam{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Invoices:  invoices,
		Vendors:   vendorrepo.Provide(),
		Detector:  detector.New(invoices, anomalies, node, clk),
		Scorer:    compliance.NewScorer(holder),
		Extractor: extractor,
		GST:       gst,
		HSN:       &hsnlookup.StaticClient{Rates: map[string]float64{"8517": 12, "8471": 18}},
		Predictor: classifier.NoOpPredictor{},
		Metrics: metrics.NewPipelineMetrics(metrics.Config{
			ServiceName: "fintel-test",
			Environment: "test",
			Registry:    prometheus.NewRegistry(),
		}),
	})
	return svc, conn
}

func wellFormedExtraction() *ocr.Extraction {
	return &ocr.Extraction{
		InvoiceNumber: "INV-2024-001",
		VendorName:    "Acme Supplies",
		InvoiceDate:   "2024-03-15",
		TotalAmount:   23600,
		GSTNumbers:    []string{"29ABCDE1234F1Z5"},
		GSTRate:       "18%",
		HSNCodes:      []string{"8471"},
		LineItems: []invoicedomain.LineItem{
			{Description: "Laptop", HSNCode: "8471", Quantity: 1, Rate: 23600, Amount: 23600},
		},
		Confidence: 91,
		RawText:    "Tax Invoice INV-2024-001\nLaptop HSN 8471 1 pcs",
	}
}

func activeGSTClient() gstlookup.Client {
	return &gstlookup.StaticClient{Results: map[string]gstlookup.Result{
		"29ABCDE1234F1Z5": {Success: true, IsActive: true, LegalName: "Acme Supplies Pvt Ltd"},
	}}
}

func TestProcessUploadHappyPath(t *testing.T) {
	svc, conn := newTestService(t, &fakeExtractor{extraction: wellFormedExtraction()}, activeGSTClient())

	result, err := svc.ProcessUpload(context.Background(), "invoice.pdf", []byte("%PDF"))

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotZero(t, result.InvoiceID)
	assert.Empty(t, result.Anomalies)

	invoice := result.Invoice
	assert.Equal(t, "INV-2024-001", invoice.InvoiceNumber)
	assert.Equal(t, "29ABCDE1234F1Z5", invoice.GSTNumber)
	assert.Equal(t, "8471", invoice.HSNCode)
	require.Len(t, invoice.GSTVerifications, 1)
	assert.True(t, invoice.GSTVerifications[0].Success)
	assert.Equal(t, true, invoice.Metadata["gstNameMatch"])
	require.NotNil(t, invoice.Compliance)
	assert.Equal(t, compliance.StatusExcellent, invoice.Compliance.Status)
	require.NotNil(t, invoice.LineItemVerification)
	assert.Empty(t, invoice.LineItemVerification.RateMismatches)
	require.NotNil(t, invoice.MLPrediction)
	assert.True(t, invoice.MLPrediction.Skipped)

	// Stored invoice and the vendor aggregate are both present.
	var storedInvoices int64
	require.NoError(t, conn.Model(&invoicedomain.Invoice{}).Count(&storedInvoices).Error)
	assert.Equal(t, int64(1), storedInvoices)

	var vendor vendordomain.Vendor
	require.NoError(t, conn.First(&vendor, "gst_number = ?", "29ABCDE1234F1Z5").Error)
	assert.Equal(t, int64(1), vendor.TotalInvoices)
	assert.Equal(t, 23600.0, vendor.TotalAmount)
}

func TestProcessUploadExtractionFailurePropagates(t *testing.T) {
	svc, conn := newTestService(t, &fakeExtractor{err: ocr.ErrMalformed}, activeGSTClient())

	result, err := svc.ProcessUpload(context.Background(), "invoice.pdf", []byte("%PDF"))

	require.ErrorIs(t, err, ocr.ErrMalformed)
	assert.Nil(t, result)

	var stored int64
	require.NoError(t, conn.Model(&invoicedomain.Invoice{}).Count(&stored).Error)
	assert.Zero(t, stored)
}

func TestProcessUploadOracleOutageDegradesToSkipped(t *testing.T) {
	svc, _ := newTestService(t, &fakeExtractor{extraction: wellFormedExtraction()}, unavailableGSTClient{})

	result, err := svc.ProcessUpload(context.Background(), "invoice.pdf", []byte("%PDF"))

	require.NoError(t, err)
	invoice := result.Invoice
	require.Len(t, invoice.GSTVerifications, 1)
	assert.True(t, invoice.GSTVerifications[0].Skipped)
	assert.NotEmpty(t, invoice.GSTVerifications[0].Error)

	// A skipped verification is not an invalid registration.
	for _, anomaly := range result.Anomalies {
		assert.NotEqual(t, anomalydomain.TypeInvalidGST, anomaly.Type)
	}
}

func TestProcessUploadMissingGSTSkipsVendorAggregate(t *testing.T) {
	extraction := wellFormedExtraction()
	extraction.GSTNumbers = nil
	svc, conn := newTestService(t, &fakeExtractor{extraction: extraction}, activeGSTClient())

	result, err := svc.ProcessUpload(context.Background(), "invoice.pdf", []byte("%PDF"))

	require.NoError(t, err)
	assert.Equal(t, invoicedomain.UnknownGST, result.Invoice.GSTNumber)

	types := make([]anomalydomain.Type, 0, len(result.Anomalies))
	for _, anomaly := range result.Anomalies {
		types = append(types, anomaly.Type)
	}
	assert.Contains(t, types, anomalydomain.TypeMissingGST)

	var vendors int64
	require.NoError(t, conn.Model(&vendordomain.Vendor{}).Count(&vendors).Error)
	assert.Zero(t, vendors)
}

func TestProcessUploadDuplicateDetected(t *testing.T) {
	svc, _ := newTestService(t, &fakeExtractor{extraction: wellFormedExtraction()}, activeGSTClient())
	ctx := context.Background()

	first, err := svc.ProcessUpload(ctx, "invoice.pdf", []byte("%PDF"))
	require.NoError(t, err)
	require.Empty(t, first.Anomalies)

	second, err := svc.ProcessUpload(ctx, "invoice-again.pdf", []byte("%PDF"))
	require.NoError(t, err)
	require.Len(t, second.Anomalies, 1)
	assert.Equal(t, anomalydomain.TypeDuplicateInvoice, second.Anomalies[0].Type)
	require.NotNil(t, second.Anomalies[0].RelatedInvoiceID)
	assert.Equal(t, first.InvoiceID, *second.Anomalies[0].RelatedInvoiceID)
}

func TestProcessUploadRateMismatchRecorded(t *testing.T) {
	extraction := wellFormedExtraction()
	extraction.GSTRate = "18%"
	extraction.LineItems = []invoicedomain.LineItem{
		{Description: "Mobile phone", HSNCode: "8517", Quantity: 1, Rate: 23600, Amount: 23600},
	}
	extraction.HSNCodes = []string{"8517"}
	svc, _ := newTestService(t, &fakeExtractor{extraction: extraction}, activeGSTClient())

	result, err := svc.ProcessUpload(context.Background(), "invoice.pdf", []byte("%PDF"))

	require.NoError(t, err)
	require.NotNil(t, result.Invoice.LineItemVerification)
	require.Len(t, result.Invoice.LineItemVerification.RateMismatches, 1)

	types := make([]anomalydomain.Type, 0, len(result.Anomalies))
	for _, anomaly := range result.Anomalies {
		types = append(types, anomaly.Type)
	}
	assert.Contains(t, types, anomalydomain.TypeHSNGSTRateMismatch)
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"18%", 18},
		{" 12.5 % ", 12.5},
		{"12.5%", 12.5},
		{"18.0", 18},
		{"Unknown", 0},
		{"", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseRate(tt.raw), "raw %q", tt.raw)
	}
}

func TestStoreFailureWrapsStorage(t *testing.T) {
	svc, conn := newTestService(t, &fakeExtractor{extraction: wellFormedExtraction()}, activeGSTClient())

	// Drop the invoices table to force a storage failure mid-pipeline.
	require.NoError(t, conn.Migrator().DropTable(&invoicedomain.Invoice{}))

	_, err := svc.ProcessUpload(context.Background(), "invoice.pdf", []byte("%PDF"))

	require.Error(t, err)
	assert.True(t, db.IsStorageUnavailable(err))
}
