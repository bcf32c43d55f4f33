package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fintelhq/fintel/internal/anomaly/domain"
	invoicedomain "github.com/fintelhq/fintel/internal/invoice/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&invoicedomain.Invoice{}, &domain.Anomaly{}))
	return db
}

func newNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func record(node *snowflake.Node, invoiceID snowflake.ID, typ domain.Type, severity domain.Severity, at time.Time) *domain.Anomaly {
	return &domain.Anomaly{
		ID:          node.Generate(),
		InvoiceID:   invoiceID,
		Type:        typ,
		Severity:    severity,
		Description: string(typ),
		DetectedAt:  at,
	}
}

func TestBatchInsertEmptyIsNoop(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()

	require.NoError(t, repo.BatchInsert(context.Background(), db, nil))

	var count int64
	require.NoError(t, db.Model(&domain.Anomaly{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListJoinsVendorName(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node := newNode(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	invoice := &invoicedomain.Invoice{
		ID:         node.Generate(),
		VendorName: "Acme Supplies",
		UploadedAt: now,
	}
	require.NoError(t, db.Create(invoice).Error)

	orphanID := node.Generate()
	require.NoError(t, repo.BatchInsert(ctx, db, []*domain.Anomaly{
		record(node, invoice.ID, domain.TypeDuplicateInvoice, domain.SeverityHigh, now),
		record(node, orphanID, domain.TypeUnusualAmount, domain.SeverityMedium, now.Add(time.Minute)),
	}))

	listed, err := repo.List(ctx, db, "", 10)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	// Newest first; the orphan has no invoice row so its vendor is blank.
	assert.Equal(t, domain.TypeUnusualAmount, listed[0].Type)
	assert.Equal(t, "", listed[0].VendorName)
	assert.Equal(t, domain.TypeDuplicateInvoice, listed[1].Type)
	assert.Equal(t, "Acme Supplies", listed[1].VendorName)
}

func TestListFiltersBySeverity(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node := newNode(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.BatchInsert(ctx, db, []*domain.Anomaly{
		record(node, node.Generate(), domain.TypeMissingGST, domain.SeverityHigh, now),
		record(node, node.Generate(), domain.TypeUnusualAmount, domain.SeverityMedium, now),
	}))

	listed, err := repo.List(ctx, db, domain.SeverityHigh, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, domain.TypeMissingGST, listed[0].Type)
}

func TestListByInvoiceIDsGroups(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node := newNode(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := node.Generate()
	b := node.Generate()
	require.NoError(t, repo.BatchInsert(ctx, db, []*domain.Anomaly{
		record(node, a, domain.TypeMissingGST, domain.SeverityHigh, now),
		record(node, a, domain.TypeUnusualAmount, domain.SeverityMedium, now.Add(time.Second)),
		record(node, b, domain.TypeDuplicateInvoice, domain.SeverityHigh, now),
	}))

	grouped, err := repo.ListByInvoiceIDs(ctx, db, []snowflake.ID{a, b})
	require.NoError(t, err)
	require.Len(t, grouped[a], 2)
	assert.Equal(t, domain.TypeMissingGST, grouped[a][0].Type)
	assert.Equal(t, domain.TypeUnusualAmount, grouped[a][1].Type)
	require.Len(t, grouped[b], 1)
}

func TestCountsByDayZeroFills(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node := newNode(t)
	ctx := context.Background()

	start := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.BatchInsert(ctx, db, []*domain.Anomaly{
		record(node, node.Generate(), domain.TypeDuplicateInvoice, domain.SeverityHigh, start.Add(10*time.Hour)),
		record(node, node.Generate(), domain.TypeGSTVendorMismatch, domain.SeverityHigh, start.Add(11*time.Hour)),
		record(node, node.Generate(), domain.TypeHSNPriceDeviation, domain.SeverityMedium, start.AddDate(0, 0, 2)),
		// Outside the window on both sides.
		record(node, node.Generate(), domain.TypeMissingGST, domain.SeverityHigh, start.AddDate(0, 0, -1)),
		record(node, node.Generate(), domain.TypeMissingGST, domain.SeverityHigh, end.AddDate(0, 0, 1)),
	}))

	trends, err := repo.CountsByDay(ctx, db, start, end)
	require.NoError(t, err)
	require.Len(t, trends, 7)

	assert.Equal(t, "2024-03-10", trends[0].Date)
	assert.Equal(t, int64(1), trends[0].Counts[domain.BucketDuplicates])
	assert.Equal(t, int64(1), trends[0].Counts[domain.BucketInvalidGST])
	assert.Equal(t, "2024-03-12", trends[2].Date)
	assert.Equal(t, int64(1), trends[2].Counts[domain.BucketHSNAnomalies])

	// Every day reports every bucket, zeros included.
	for _, day := range trends {
		require.Len(t, day.Counts, len(domain.Buckets))
	}
	assert.Equal(t, int64(0), trends[6].Counts[domain.BucketMissingGST])
}

func TestCountsByDayRejectsInvertedRange(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()

	now := time.Now().UTC()
	_, err := repo.CountsByDay(context.Background(), db, now, now.AddDate(0, 0, -2))
	assert.Error(t, err)
}

func TestCounts(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node := newNode(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.BatchInsert(ctx, db, []*domain.Anomaly{
		record(node, node.Generate(), domain.TypeMissingGST, domain.SeverityHigh, now),
		record(node, node.Generate(), domain.TypeInvalidGST, domain.SeverityHigh, now),
		record(node, node.Generate(), domain.TypeUnusualAmount, domain.SeverityMedium, now),
	}))

	counts, err := repo.Counts(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.Total)
	assert.Equal(t, int64(2), counts.HighSeverity)
}
