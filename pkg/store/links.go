package store

import (
	"context"
	"fmt"
	"time"
)

// UpsertDeviceLink records an undirected link between two devices. The
// pair is normalized (lower id first) so each physical link is stored
// once regardless of reporting direction. Self-links are ignored.
func (s *Store) UpsertDeviceLink(ctx context.Context, aID, bID int64) (err error) {
	defer s.observe("upsert_device_link", time.Now(), &err)

	if aID == bID {
		return nil
	}
	if aID > bID {
		aID, bID = bID, aID
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO device_links (a_id, b_id, last_seen)
		VALUES (?, ?, ?)
		ON CONFLICT (a_id, b_id) DO UPDATE SET last_seen = excluded.last_seen
	`), aID, bID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert link: %w", err)
	}
	return nil
}

// ListDeviceLinks returns every recorded device link.
func (s *Store) ListDeviceLinks(ctx context.Context) ([]*DeviceLink, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT a_id, b_id, last_seen FROM device_links")
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []*DeviceLink
	for rows.Next() {
		var l DeviceLink
		if err := rows.Scan(&l.AID, &l.BID, &l.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, &l)
	}
	return links, rows.Err()
}
