package store

import (
	"context"
	"fmt"
	"time"
)

// EntityCounts holds the current row counts for the gauge metrics.
type EntityCounts struct {
	Users   int64
	Sites   int64
	Devices int64
}

// CountEntities returns the current user, site, and device counts.
func (s *Store) CountEntities(ctx context.Context) (_ EntityCounts, err error) {
	defer s.observe("count_entities", time.Now(), &err)

	var c EntityCounts
	for _, q := range []struct {
		table string
		dest  *int64
	}{
		{"users", &c.Users},
		{"sites", &c.Sites},
		{"devices", &c.Devices},
	} {
		if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+q.table).Scan(q.dest); err != nil {
			return EntityCounts{}, fmt.Errorf("failed to count %s: %w", q.table, err)
		}
	}
	return c, nil
}
