package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActiveMapKey is the settings key that names the currently displayed map.
const ActiveMapKey = "active_map_id"

// CreateMap inserts a network map record, generating its id.
func (s *Store) CreateMap(ctx context.Context, name string) (_ *NetworkMap, err error) {
	defer s.observe("create_map", time.Now(), &err)

	m := &NetworkMap{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		s.rebind("INSERT INTO maps (id, name, created_at) VALUES (?, ?, ?)"),
		m.ID, m.Name, m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create map: %w", err)
	}
	return m, nil
}

// GetMap retrieves a map by id.
func (s *Store) GetMap(ctx context.Context, id string) (*NetworkMap, error) {
	var m NetworkMap
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT id, name, created_at FROM maps WHERE id = ?"), id,
	).Scan(&m.ID, &m.Name, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("map %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get map: %w", err)
	}
	return &m, nil
}

// ListMaps returns all maps ordered by creation time.
func (s *Store) ListMaps(ctx context.Context) ([]*NetworkMap, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at FROM maps ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list maps: %w", err)
	}
	defer rows.Close()

	var maps []*NetworkMap
	for rows.Next() {
		var m NetworkMap
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan map: %w", err)
		}
		maps = append(maps, &m)
	}
	return maps, rows.Err()
}

// DeleteMap removes a map record. The caller is responsible for cleaning
// up its image file and the active-map setting.
func (s *Store) DeleteMap(ctx context.Context, id string) (err error) {
	defer s.observe("delete_map", time.Now(), &err)

	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM maps WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete map: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("map %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetSetting returns a settings value, or "" when the key is unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT value FROM settings WHERE key = ?"), key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts a settings value.
func (s *Store) SetSetting(ctx context.Context, key, value string) (err error) {
	defer s.observe("set_setting", time.Now(), &err)

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`), key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a settings key; missing keys are not an error.
func (s *Store) DeleteSetting(ctx context.Context, key string) (err error) {
	defer s.observe("delete_setting", time.Now(), &err)

	_, err = s.db.ExecContext(ctx, s.rebind("DELETE FROM settings WHERE key = ?"), key)
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}
