package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the anomaly side of the document store.
type Repository interface {
	// BatchInsert persists a detection run's results in one statement.
	BatchInsert(ctx context.Context, db *gorm.DB, anomalies []*Anomaly) error

	// List returns anomalies newest first, optionally filtered by severity,
	// enriched with the owning invoice's vendor name.
	List(ctx context.Context, db *gorm.DB, severity Severity, limit int) ([]*ListedAnomaly, error)

	// ListByInvoiceIDs returns anomalies grouped by owning invoice.
	ListByInvoiceIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID][]*Anomaly, error)

	// CountsByDay returns one entry per calendar day in [start, end]
	// inclusive, ascending, zero-filled for days without anomalies.
	CountsByDay(ctx context.Context, db *gorm.DB, start, end time.Time) ([]DayCounts, error)

	// Counts returns corpus-wide totals for the dashboard.
	Counts(ctx context.Context, db *gorm.DB) (*Counts, error)
}
