package pglookup

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS lookups (
  id BIGSERIAL PRIMARY KEY,
  carrier TEXT NOT NULL,
  tracking_number TEXT NOT NULL,
  status TEXT NOT NULL,
  estimated_delivery TEXT NOT NULL DEFAULT '',
  checked_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_lookups_checked_at ON lookups(checked_at DESC)`,
		`
CREATE TABLE IF NOT EXISTS lookup_events (
  id BIGSERIAL PRIMARY KEY,
  lookup_id BIGINT NOT NULL REFERENCES lookups(id) ON DELETE CASCADE,
  status TEXT NOT NULL,
  location TEXT NOT NULL DEFAULT '',
  event_time TIMESTAMPTZ NOT NULL,
  lat DOUBLE PRECISION NULL,
  lon DOUBLE PRECISION NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_lookup_events_lookup_id ON lookup_events(lookup_id, event_time ASC)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
