// Package dashboard serves the read-side endpoints: history, vendors,
// anomaly listings, totals and trend series.
package dashboard

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	anomalydomain "github.com/fintelhq/fintel/internal/anomaly/domain"
	"github.com/fintelhq/fintel/internal/clock"
	invoicedomain "github.com/fintelhq/fintel/internal/invoice/domain"
	vendordomain "github.com/fintelhq/fintel/internal/vendors/domain"
	"github.com/fintelhq/fintel/pkg/db"
)

// DefaultTrendDays is the trend window when the caller does not pick one.
const DefaultTrendDays = 7

// Stats are the corpus-wide dashboard totals.
type Stats struct {
	TotalInvoices         int64   `json:"totalInvoices"`
	TotalVendors          int64   `json:"totalVendors"`
	TotalAmountProcessed  float64 `json:"totalAmountProcessed"`
	TotalAnomalies        int64   `json:"totalAnomalies"`
	HighSeverityAnomalies int64   `json:"highSeverityAnomalies"`
}

// HistoryEntry is one processed invoice with its recorded anomalies.
type HistoryEntry struct {
	Invoice   *invoicedomain.Invoice     `json:"invoice"`
	Anomalies []*anomalydomain.Anomaly   `json:"anomalies"`
}

// Service is the dashboard query boundary.
type Service interface {
	History(ctx context.Context, limit int) ([]*HistoryEntry, error)
	Vendors(ctx context.Context) ([]*vendordomain.Vendor, error)
	Anomalies(ctx context.Context, severity anomalydomain.Severity, limit int) ([]*anomalydomain.ListedAnomaly, error)
	Stats(ctx context.Context) (*Stats, error)
	AnomalyTrends(ctx context.Context, days int) ([]anomalydomain.DayCounts, error)
}

// ServiceParam collects query dependencies.
type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Invoices  invoicedomain.Repository
	Vendors   vendordomain.Repository
	Anomalies anomalydomain.Repository
}

type service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	invoices  invoicedomain.Repository
	vendors   vendordomain.Repository
	anomalies anomalydomain.Repository
}

// NewService builds the dashboard service.
func NewService(p ServiceParam) Service {
	return &service{
		db:        p.DB,
		log:       p.Log.Named("dashboard"),
		clock:     p.Clock,
		invoices:  p.Invoices,
		vendors:   p.Vendors,
		anomalies: p.Anomalies,
	}
}

func (s *service) History(ctx context.Context, limit int) ([]*HistoryEntry, error) {
	invoices, err := s.invoices.History(ctx, s.db, limit)
	if err != nil {
		return nil, db.WrapStorage("invoice history", err)
	}
	return s.attachAnomalies(ctx, invoices)
}

func (s *service) attachAnomalies(ctx context.Context, invoices []*invoicedomain.Invoice) ([]*HistoryEntry, error) {
	ids := make([]snowflake.ID, 0, len(invoices))
	for _, invoice := range invoices {
		ids = append(ids, invoice.ID)
	}
	grouped, err := s.anomalies.ListByInvoiceIDs(ctx, s.db, ids)
	if err != nil {
		return nil, db.WrapStorage("invoice anomalies", err)
	}

	entries := make([]*HistoryEntry, 0, len(invoices))
	for _, invoice := range invoices {
		entries = append(entries, &HistoryEntry{
			Invoice:   invoice,
			Anomalies: grouped[invoice.ID],
		})
	}
	return entries, nil
}

func (s *service) Vendors(ctx context.Context) ([]*vendordomain.Vendor, error) {
	vendors, err := s.vendors.List(ctx, s.db)
	if err != nil {
		return nil, db.WrapStorage("vendor list", err)
	}
	return vendors, nil
}

func (s *service) Anomalies(ctx context.Context, severity anomalydomain.Severity, limit int) ([]*anomalydomain.ListedAnomaly, error) {
	anomalies, err := s.anomalies.List(ctx, s.db, severity, limit)
	if err != nil {
		return nil, db.WrapStorage("anomaly list", err)
	}
	return anomalies, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	totals, err := s.invoices.Totals(ctx, s.db)
	if err != nil {
		return nil, db.WrapStorage("invoice totals", err)
	}
	vendorCount, err := s.vendors.Count(ctx, s.db)
	if err != nil {
		return nil, db.WrapStorage("vendor count", err)
	}
	counts, err := s.anomalies.Counts(ctx, s.db)
	if err != nil {
		return nil, db.WrapStorage("anomaly counts", err)
	}
	return &Stats{
		TotalInvoices:         totals.Count,
		TotalVendors:          vendorCount,
		TotalAmountProcessed:  totals.TotalAmount,
		TotalAnomalies:        counts.Total,
		HighSeverityAnomalies: counts.HighSeverity,
	}, nil
}

func (s *service) AnomalyTrends(ctx context.Context, days int) ([]anomalydomain.DayCounts, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}
	end := s.clock.Now()
	start := end.AddDate(0, 0, -(days - 1))
	trends, err := s.anomalies.CountsByDay(ctx, s.db, start, end)
	if err != nil {
		return nil, db.WrapStorage("anomaly trends", err)
	}
	return trends, nil
}
