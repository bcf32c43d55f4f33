package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	invoicedomain "github.com/fintelhq/fintel/internal/invoice/domain"
	"github.com/fintelhq/fintel/internal/vendors/domain"
)

type repo struct{}

// Provide builds the vendor repository.
func Provide() domain.Repository {
	return &repo{}
}

// Upsert is a single statement so concurrent first-time invoices for the
// same GST number cannot lose increments to a read-then-write race. The
// conflict clause compiles per dialect, so the same code runs on postgres,
// mysql and sqlite.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, gstNumber, vendorName string, amount float64, seenAt time.Time) error {
	if gstNumber == "" || gstNumber == invoicedomain.UnknownGST {
		return nil
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "gst_number"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"vendor_name":     vendorName,
			"total_invoices":  gorm.Expr("total_invoices + 1"),
			"total_amount":    gorm.Expr("total_amount + ?", amount),
			"last_invoice_at": seenAt,
		}),
	}).Create(&domain.Vendor{
		GSTNumber:     gstNumber,
		VendorName:    vendorName,
		TotalInvoices: 1,
		TotalAmount:   amount,
		FirstSeenAt:   seenAt,
		LastInvoiceAt: seenAt,
	}).Error
}

func (r *repo) FindByGSTNumber(ctx context.Context, db *gorm.DB, gstNumber string) (*domain.Vendor, error) {
	if gstNumber == "" {
		return nil, nil
	}
	var vendor domain.Vendor
	err := db.WithContext(ctx).
		Model(&domain.Vendor{}).
		Where("gst_number = ?", gstNumber).
		First(&vendor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Vendor{}).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Vendor, error) {
	var vendors []*domain.Vendor
	err := db.WithContext(ctx).
		Model(&domain.Vendor{}).
		Order("total_amount desc, gst_number asc").
		Find(&vendors).Error
	if err != nil {
		return nil, err
	}
	return vendors, nil
}
