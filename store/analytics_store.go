// api/store/analytics_store.go
package store

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"pulsetrack/api/database"
	"pulsetrack/api/models"
)

type AnalyticsStore struct {
	DB *database.ClickHouseClient
}

func NewAnalyticsStore(chClient *database.ClickHouseClient) *AnalyticsStore {
	return &AnalyticsStore{
		DB: chClient,
	}
}

// EnsureTable creates the append-only events table when absent. The
// MergeTree ordering key (site_id, occured_at) is what every range query
// is written against; rows are never updated or deleted.
func (s *AnalyticsStore) EnsureTable(ctx context.Context) error {
	qry := `
	CREATE TABLE IF NOT EXISTS events (
	site_id String NOT NULL,
	occured_at UInt32 NOT NULL,
	type String NOT NULL,
	user_id String NOT NULL,
	event String NOT NULL,
	category String NOT NULL,
	referrer String NOT NULL,
	referrer_domain String NOT NULL,
	is_touch BOOLEAN NOT NULL,
	browser_name String NOT NULL,
	os_name String NOT NULL,
	device_type String NOT NULL,
	country String NOT NULL,
	region String NOT NULL,
	timestamp DateTime DEFAULT now()
	)
	ENGINE MergeTree
	ORDER BY (site_id, occured_at);
	`
	if err := s.DB.Conn.Exec(ctx, qry); err != nil {
		return fmt.Errorf("failed to ensure events table: %w", err)
	}
	return nil
}

// InsertEvents submits one prepared batch for the whole slice. The
// occured_at day bucket is stamped here, at insertion time, in UTC.
// Either every row of the batch becomes visible or none does.
func (s *AnalyticsStore) InsertEvents(ctx context.Context, events []models.EnrichedEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO events (
			site_id, occured_at, type, user_id, event, category, referrer,
			referrer_domain, is_touch, browser_name, os_name, device_type, country, region
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	occuredAt := dayBucket(time.Now())

	for _, event := range events {
		err := batch.Append(
			event.SiteID,
			occuredAt,
			event.Type,
			event.UserID,
			event.Event,
			event.Category,
			event.Referrer,
			event.ReferrerDomain,
			event.IsTouch,
			event.BrowserName,
			event.OSName,
			event.DeviceType,
			event.Country,
			event.Region,
		)
		if err != nil {
			return fmt.Errorf("failed to append event to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Inserted batch of %d events.", len(events))
	return nil
}

// GetPageViews counts rows per (day, page-path) pair inside the window.
func (s *AnalyticsStore) GetPageViews(ctx context.Context, req models.StatsRequest) ([]models.Metric, error) {
	qry := `
	SELECT occured_at, event, count() AS views
	FROM events
	WHERE site_id = ? AND occured_at BETWEEN ? AND ?
	GROUP BY occured_at, event
	`

	return s.queryMetrics(ctx, qry, req)
}

// GetUniqueVisitors counts rows per (day, visitor, page-path) triple;
// callers collapse to a per-day distinct count when that is the metric
// they want. The empty identity is its own bucket.
func (s *AnalyticsStore) GetUniqueVisitors(ctx context.Context, req models.StatsRequest) ([]models.Metric, error) {
	qry := `
	SELECT occured_at, user_id, count() AS views
	FROM events
	WHERE site_id = ? AND occured_at BETWEEN ? AND ?
	GROUP BY occured_at, user_id, event
	`

	return s.queryMetrics(ctx, qry, req)
}

func (s *AnalyticsStore) queryMetrics(ctx context.Context, qry string, req models.StatsRequest) ([]models.Metric, error) {
	rows, err := s.DB.Conn.Query(ctx, qry, req.SiteID, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var metrics []models.Metric
	for rows.Next() {
		var m models.Metric
		if err := rows.Scan(&m.OccuredAt, &m.Value, &m.Count); err != nil {
			return nil, fmt.Errorf("failed to scan metric row: %w", err)
		}
		metrics = append(metrics, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during metrics query: %w", err)
	}

	return metrics, nil
}

// dayBucket encodes a point in time as the UTC YYYYMMDD uint32 the
// ordering key uses.
func dayBucket(t time.Time) uint32 {
	day := t.UTC().Format("20060102")
	i, err := strconv.ParseUint(day, 10, 32)
	if err != nil {
		// Format("20060102") always yields eight digits.
		panic(err)
	}
	return uint32(i)
}
