package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/fintelhq/fintel/internal/anomaly/domain"
)

type repo struct{}

// Provide builds the anomaly repository.
func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) BatchInsert(ctx context.Context, db *gorm.DB, anomalies []*domain.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&anomalies).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, severity domain.Severity, limit int) ([]*domain.ListedAnomaly, error) {
	if limit <= 0 {
		limit = 50
	}
	stmt := db.WithContext(ctx).
		Table("anomalies").
		Select("anomalies.*, COALESCE(invoices.vendor_name, '') AS vendor_name").
		Joins("LEFT JOIN invoices ON invoices.id = anomalies.invoice_id")
	if severity != "" {
		stmt = stmt.Where("anomalies.severity = ?", severity)
	}

	var listed []*domain.ListedAnomaly
	err := stmt.
		Order("anomalies.detected_at desc, anomalies.id desc").
		Limit(limit).
		Scan(&listed).Error
	if err != nil {
		return nil, err
	}
	return listed, nil
}

func (r *repo) ListByInvoiceIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID][]*domain.Anomaly, error) {
	grouped := make(map[snowflake.ID][]*domain.Anomaly, len(ids))
	if len(ids) == 0 {
		return grouped, nil
	}
	var anomalies []*domain.Anomaly
	err := db.WithContext(ctx).
		Model(&domain.Anomaly{}).
		Where("invoice_id IN ?", ids).
		Order("detected_at asc, id asc").
		Find(&anomalies).Error
	if err != nil {
		return nil, err
	}
	for _, a := range anomalies {
		grouped[a.InvoiceID] = append(grouped[a.InvoiceID], a)
	}
	return grouped, nil
}

type dayRow struct {
	Type       domain.Type
	DetectedAt time.Time
}

// CountsByDay buckets in application code so the same query works across
// the supported SQL dialects.
func (r *repo) CountsByDay(ctx context.Context, db *gorm.DB, start, end time.Time) ([]domain.DayCounts, error) {
	start = startOfDay(start.UTC())
	end = startOfDay(end.UTC())
	if end.Before(start) {
		return nil, errors.New("countsByDay: end precedes start")
	}

	var rows []dayRow
	err := db.WithContext(ctx).
		Model(&domain.Anomaly{}).
		Select("type, detected_at").
		Where("detected_at >= ? AND detected_at < ?", start, end.AddDate(0, 0, 1)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	perDay := make(map[string]map[domain.Bucket]int64)
	for _, row := range rows {
		bucket := domain.BucketFor(row.Type)
		if bucket == "" {
			continue
		}
		day := row.DetectedAt.UTC().Format("2006-01-02")
		if perDay[day] == nil {
			perDay[day] = make(map[domain.Bucket]int64)
		}
		perDay[day][bucket]++
	}

	var out []domain.DayCounts
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		counts := make(map[domain.Bucket]int64, len(domain.Buckets))
		for _, bucket := range domain.Buckets {
			counts[bucket] = perDay[key][bucket]
		}
		out = append(out, domain.DayCounts{Date: key, Counts: counts})
	}
	return out, nil
}

func (r *repo) Counts(ctx context.Context, db *gorm.DB) (*domain.Counts, error) {
	var counts domain.Counts
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS total,
		        COALESCE(SUM(CASE WHEN severity = ? THEN 1 ELSE 0 END), 0) AS high_severity
		 FROM anomalies`,
		domain.SeverityHigh,
	).Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
