// Package domain contains the GST-keyed vendor aggregate.
package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Vendor is the running per-GST-number aggregate used for baselining.
// TotalInvoices and TotalAmount stay consistent with the invoice corpus
// because every update goes through a single atomic increment-or-insert.
type Vendor struct {
	GSTNumber     string    `gorm:"primaryKey;type:text" json:"gstNumber"`
	VendorName    string    `gorm:"type:text;index;not null" json:"vendorName"`
	TotalInvoices int64     `gorm:"not null;default:0" json:"totalInvoices"`
	TotalAmount   float64   `gorm:"not null;default:0" json:"totalAmount"`
	FirstSeenAt   time.Time `gorm:"not null" json:"firstSeenAt"`
	LastInvoiceAt time.Time `gorm:"not null" json:"lastInvoiceAt"`
}

// TableName sets the database table name.
func (Vendor) TableName() string { return "vendors" }

// Repository is the vendor side of the document store.
type Repository interface {
	// Upsert applies one invoice to the aggregate: increments the invoice
	// count, adds the amount, and overwrites the vendor name and last-seen
	// timestamp. No-op for absent or sentinel GST numbers.
	Upsert(ctx context.Context, db *gorm.DB, gstNumber, vendorName string, amount float64, seenAt time.Time) error

	// FindByGSTNumber returns the aggregate, or nil when none exists.
	FindByGSTNumber(ctx context.Context, db *gorm.DB, gstNumber string) (*Vendor, error)

	// List returns all vendors ordered by total amount descending.
	List(ctx context.Context, db *gorm.DB) ([]*Vendor, error)

	// Count returns the number of distinct vendor aggregates.
	Count(ctx context.Context, db *gorm.DB) (int64, error)
}
