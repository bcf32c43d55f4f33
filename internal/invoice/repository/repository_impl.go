package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/fintelhq/fintel/internal/invoice/domain"
)

type repo struct{}

// Provide builds the invoice repository.
func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ?", id).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindByInvoiceNumber(ctx context.Context, db *gorm.DB, number string, excludingID snowflake.ID) (*domain.Invoice, error) {
	if number == "" {
		return nil, nil
	}
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("invoice_number = ? AND id <> ?", number, excludingID).
		Order("uploaded_at asc").
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindByGSTNumber(ctx context.Context, db *gorm.DB, gst string, excludingID snowflake.ID, differingVendorName string) (*domain.Invoice, error) {
	if gst == "" {
		return nil, nil
	}
	stmt := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("gst_number = ? AND id <> ?", gst, excludingID)
	if differingVendorName != "" {
		stmt = stmt.Where("vendor_name <> ?", differingVendorName)
	}

	var invoice domain.Invoice
	err := stmt.Order("uploaded_at asc").First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindByHSNCode matches against the serialized code list so invoices carrying
// the code anywhere, not only as the primary code, are comparable.
func (r *repo) FindByHSNCode(ctx context.Context, db *gorm.DB, code string, excludingID snowflake.ID, limit int) ([]*domain.Invoice, error) {
	if code == "" || limit <= 0 {
		return nil, nil
	}
	var invoices []*domain.Invoice
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id <> ?", excludingID).
		Where("hsn_code = ? OR hsn_codes LIKE ?", code, `%"`+code+`"%`).
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) VendorNameStats(ctx context.Context, db *gorm.DB, vendorName string, excludingID snowflake.ID) (*domain.VendorNameStats, error) {
	if vendorName == "" {
		return &domain.VendorNameStats{}, nil
	}
	var stats domain.VendorNameStats
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS count,
		        COALESCE(AVG(total_amount), 0) AS avg_amount,
		        COALESCE(MAX(total_amount), 0) AS max_amount,
		        COALESCE(MIN(total_amount), 0) AS min_amount
		 FROM invoices WHERE vendor_name = ? AND id <> ?`,
		vendorName,
		excludingID,
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	stats.VendorName = vendorName
	return &stats, nil
}

func (r *repo) History(ctx context.Context, db *gorm.DB, limit int) ([]*domain.Invoice, error) {
	if limit <= 0 {
		limit = 50
	}
	var invoices []*domain.Invoice
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Order("uploaded_at desc, id desc").
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) Totals(ctx context.Context, db *gorm.DB) (*domain.Totals, error) {
	var totals domain.Totals
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total_amount FROM invoices`,
	).Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return &totals, nil
}
