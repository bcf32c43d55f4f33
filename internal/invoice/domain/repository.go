package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the invoice side of the document store.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)

	// FindByInvoiceNumber returns another stored invoice carrying the same
	// invoice number, or nil when none exists.
	FindByInvoiceNumber(ctx context.Context, db *gorm.DB, number string, excludingID snowflake.ID) (*Invoice, error)

	// FindByGSTNumber returns another invoice registered under the given GST
	// number. When differingVendorName is non-empty only invoices whose stored
	// vendor name differs from it are considered.
	FindByGSTNumber(ctx context.Context, db *gorm.DB, gst string, excludingID snowflake.ID, differingVendorName string) (*Invoice, error)

	// FindByHSNCode returns up to limit other invoices sharing an HSN code.
	FindByHSNCode(ctx context.Context, db *gorm.DB, code string, excludingID snowflake.ID, limit int) ([]*Invoice, error)

	// VendorNameStats aggregates amounts across invoices sharing a vendor
	// name, excluding the given invoice so baselines reflect history only.
	VendorNameStats(ctx context.Context, db *gorm.DB, vendorName string, excludingID snowflake.ID) (*VendorNameStats, error)

	// History returns the most recently uploaded invoices, newest first.
	History(ctx context.Context, db *gorm.DB, limit int) ([]*Invoice, error)

	// Totals returns corpus-wide count and amount aggregates.
	Totals(ctx context.Context, db *gorm.DB) (*Totals, error)
}
