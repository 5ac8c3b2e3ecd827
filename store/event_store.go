// store/event_store.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"thelook/api/database"
	"thelook/api/models"
	"thelook/api/utils"
)

// EventStore reads and writes the clickstream event log in ClickHouse.
//
// Expected table:
//
//	CREATE TABLE events (
//		event_id String, user_id String, session_id String,
//		event_type LowCardinality(String), traffic_source LowCardinality(String),
//		uri String, ip_address String, created_at Nullable(DateTime64(3)),
//		ingested_at DateTime64(3), batch_seq UInt32
//	) ENGINE = MergeTree ORDER BY (ingested_at, batch_seq)
type EventStore struct {
	DB     *database.ClickHouseClient
	logger *logrus.Logger
}

func NewEventStore(chClient *database.ClickHouseClient, logger *logrus.Logger) *EventStore {
	return &EventStore{
		DB:     chClient,
		logger: logger,
	}
}

// InsertEvents appends a batch of events. ingested_at and batch_seq record
// ingestion order, which LoadEvents replays.
func (s *EventStore) InsertEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO events (
			event_id, user_id, session_id, event_type, traffic_source, uri,
			ip_address, created_at, ingested_at, batch_seq
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	now := time.Now().UTC()
	for i, event := range events {
		err := batch.Append(
			event.EventID,
			event.UserID,
			event.SessionID,
			event.EventType,
			event.TrafficSource,
			event.URI,
			event.IPAddress,
			event.CreatedAt,
			now,
			uint32(i),
		)
		if err != nil {
			return fmt.Errorf("failed to append event %s to batch: %w", event.EventID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	s.logger.WithField("count", len(events)).Info("Inserted clickstream events")
	return nil
}

// LoadEvents reads the whole event log in ingestion order.
func (s *EventStore) LoadEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := s.DB.Conn.Query(ctx, `
		SELECT event_id, user_id, session_id, event_type, traffic_source, uri, created_at
		FROM events
		ORDER BY ingested_at ASC, batch_seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var (
			e         models.Event
			createdAt *time.Time
		)
		if err := rows.Scan(&e.EventID, &e.UserID, &e.SessionID, &e.EventType, &e.TrafficSource, &e.URI, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		if createdAt != nil {
			t := createdAt.UTC()
			e.CreatedAt = &t
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error while loading events: %w", err)
	}
	return events, nil
}

// EventCountsOverTime buckets events by interval. With eventTypeFilter set
// the rows carry the event type.
func (s *EventStore) EventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventTypeFilter string) ([]models.TimeCount, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	args := []interface{}{start, end}
	selectCols := fmt.Sprintf("toStartOf%s(assumeNotNull(created_at)) AS time_bucket, count() AS total_events", interval)
	groupByCols := "time_bucket"
	whereClause := "WHERE created_at >= ? AND created_at <= ?"
	orderByCols := "time_bucket ASC"
	isFilteringByType := eventTypeFilter != ""

	if isFilteringByType {
		selectCols += ", event_type"
		groupByCols += ", event_type"
		whereClause += " AND event_type = ?"
		args = append(args, eventTypeFilter)
		orderByCols += ", event_type ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		%s
		GROUP BY %s
		ORDER BY %s
	`, selectCols, whereClause, groupByCols, orderByCols)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts over time: %w", err)
	}
	defer rows.Close()

	var results []models.TimeCount
	for rows.Next() {
		var (
			timeBucket  time.Time
			count       uint64
			eventTypeDB string
			current     models.TimeCount
		)
		if isFilteringByType {
			if err := rows.Scan(&timeBucket, &count, &eventTypeDB); err != nil {
				s.logger.WithError(err).Warn("Skipping event count row")
				continue
			}
			current.EventType = &eventTypeDB
		} else {
			if err := rows.Scan(&timeBucket, &count); err != nil {
				s.logger.WithError(err).Warn("Skipping event count row")
				continue
			}
		}
		current.Time = timeBucket
		current.Count = count
		results = append(results, current)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event counts over time query: %w", err)
	}
	return results, nil
}

// UniqueSessionsOverTime counts distinct sessions per interval bucket.
func (s *EventStore) UniqueSessionsOverTime(ctx context.Context, interval string, start, end time.Time) ([]models.TimeCount, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	query := fmt.Sprintf(`
		SELECT toStartOf%s(assumeNotNull(created_at)) AS time_bucket, uniqExact(session_id) AS sessions
		FROM events
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY time_bucket
		ORDER BY time_bucket ASC
	`, interval)

	rows, err := s.DB.Conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query unique sessions over time: %w", err)
	}
	defer rows.Close()

	var results []models.TimeCount
	for rows.Next() {
		var timeBucket time.Time
		var sessions uint64
		if err := rows.Scan(&timeBucket, &sessions); err != nil {
			s.logger.WithError(err).Warn("Skipping unique sessions row")
			continue
		}
		results = append(results, models.TimeCount{Time: timeBucket, Count: sessions})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for unique sessions: %w", err)
	}
	return results, nil
}
