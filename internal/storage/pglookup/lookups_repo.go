package pglookup

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/shipscope/shipscope/internal/models"
)

// RecordLookup archives one fresh result with its activity, in one
// transaction.
func (s *Storage) RecordLookup(ctx context.Context, res models.TrackingResult, checkedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id uint64
	err = tx.QueryRow(ctx, `
INSERT INTO lookups (carrier, tracking_number, status, estimated_delivery, checked_at, created_at)
VALUES ($1,$2,$3,$4,$5,now())
RETURNING id
`, res.Carrier, res.TrackingNumber, res.Status, res.EstimatedDelivery, checkedAt.UTC()).Scan(&id)
	if err != nil {
		return errors.Wrap(err, "insert lookup")
	}

	for _, ev := range res.Activity {
		var lat, lon *float64
		if ev.Geo != nil {
			lat, lon = &ev.Geo.Lat, &ev.Geo.Lon
		}
		_, err := tx.Exec(ctx, `
INSERT INTO lookup_events (lookup_id, status, location, event_time, lat, lon)
VALUES ($1,$2,$3,$4,$5,$6)
`, id, ev.Status, ev.Location, ev.Timestamp.UTC(), lat, lon)
		if err != nil {
			return errors.Wrap(err, "insert lookup event")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// ListRecentLookups returns the latest archived results, newest first,
// each with its activity restored in ascending chronological order.
func (s *Storage) ListRecentLookups(ctx context.Context, limit int) ([]*models.TrackingResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.db.Query(ctx, `
SELECT id, carrier, tracking_number, status, estimated_delivery
FROM lookups
ORDER BY checked_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select lookups")
	}
	defer rows.Close()

	var out []*models.TrackingResult
	var ids []uint64
	byID := map[uint64]*models.TrackingResult{}
	for rows.Next() {
		var id uint64
		var r models.TrackingResult
		if err := rows.Scan(&id, &r.Carrier, &r.TrackingNumber, &r.Status, &r.EstimatedDelivery); err != nil {
			return nil, errors.Wrap(err, "scan lookup")
		}
		ids = append(ids, id)
		byID[id] = &r
		out = append(out, &r)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	if len(ids) == 0 {
		return []*models.TrackingResult{}, nil
	}

	evRows, err := s.db.Query(ctx, `
SELECT lookup_id, status, location, event_time, lat, lon
FROM lookup_events
WHERE lookup_id = ANY($1)
ORDER BY lookup_id, event_time ASC
`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "select lookup events")
	}
	defer evRows.Close()

	for evRows.Next() {
		var lookupID uint64
		var ev models.ActivityEvent
		var lat, lon *float64
		if err := evRows.Scan(&lookupID, &ev.Status, &ev.Location, &ev.Timestamp, &lat, &lon); err != nil {
			return nil, errors.Wrap(err, "scan lookup event")
		}
		if lat != nil && lon != nil {
			ev.Geo = &models.GeoPoint{Lat: *lat, Lon: *lon}
		}
		if r, ok := byID[lookupID]; ok {
			r.Activity = append(r.Activity, ev)
		}
	}
	if evRows.Err() != nil {
		return nil, errors.Wrap(evRows.Err(), "rows")
	}

	return out, nil
}
