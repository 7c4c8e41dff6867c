package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DeviceFilter narrows a device listing. Q is an optional substring match
// over name, MAC, and management IP. SiteIDs, when non-nil, restricts
// results to devices assigned to those sites; an empty non-nil slice
// matches nothing.
type DeviceFilter struct {
	Q       string
	SiteIDs []int64
}

// ListDevices returns devices matching the filter, ordered by name (NULL
// names last) then id.
func (s *Store) ListDevices(ctx context.Context, filter DeviceFilter) (_ []*Device, err error) {
	defer s.observe("list_devices", time.Now(), &err)

	var where []string
	var args []interface{}

	if filter.Q != "" {
		where = append(where, "(name LIKE ? OR mac LIKE ? OR mgmt_ip LIKE ?)")
		like := "%" + filter.Q + "%"
		args = append(args, like, like, like)
	}

	if filter.SiteIDs != nil {
		if len(filter.SiteIDs) == 0 {
			return nil, nil
		}
		marks := make([]string, len(filter.SiteIDs))
		for i, id := range filter.SiteIDs {
			marks[i] = "?"
			args = append(args, id)
		}
		where = append(where, fmt.Sprintf("site_id IN (%s)", strings.Join(marks, ",")))
	}

	query := "SELECT id, name, mac, mgmt_ip, vendor, site_id, last_seen FROM devices"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name IS NULL, name, id"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// GetDevice retrieves a device by id.
func (s *Store) GetDevice(ctx context.Context, deviceID int64) (*Device, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		"SELECT id, name, mac, mgmt_ip, vendor, site_id, last_seen FROM devices WHERE id = ?",
	), deviceID)
	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("device %d: %w", deviceID, ErrNotFound)
	}
	return d, err
}

// DeviceUpdate carries the mutable device fields; nil fields are left
// unchanged.
type DeviceUpdate struct {
	Name   *string
	Vendor *string
	SiteID *int64
}

// UpdateDevice applies the non-nil fields of upd to a device. Returns the
// number of fields changed (0 when upd is empty).
func (s *Store) UpdateDevice(ctx context.Context, deviceID int64, upd DeviceUpdate) (_ int, err error) {
	defer s.observe("update_device", time.Now(), &err)

	var sets []string
	var args []interface{}

	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Vendor != nil {
		sets = append(sets, "vendor = ?")
		args = append(args, *upd.Vendor)
	}
	if upd.SiteID != nil {
		sets = append(sets, "site_id = ?")
		args = append(args, *upd.SiteID)
	}
	if len(sets) == 0 {
		return 0, nil
	}

	args = append(args, deviceID)
	res, err := s.db.ExecContext(ctx,
		s.rebind(fmt.Sprintf("UPDATE devices SET %s WHERE id = ?", strings.Join(sets, ", "))),
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update device: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("device %d: %w", deviceID, ErrNotFound)
	}
	return len(sets), nil
}

// AssignDevicesToSite sets site_id on all given devices in a single
// statement. Ids that do not exist simply affect zero rows. An empty id
// list is a zero-effect success.
func (s *Store) AssignDevicesToSite(ctx context.Context, siteID int64, deviceIDs []int64) (err error) {
	defer s.observe("assign_devices_to_site", time.Now(), &err)

	if len(deviceIDs) == 0 {
		return nil
	}

	marks := make([]string, len(deviceIDs))
	args := make([]interface{}, 0, len(deviceIDs)+1)
	args = append(args, siteID)
	for i, id := range deviceIDs {
		marks[i] = "?"
		args = append(args, id)
	}

	_, err = s.db.ExecContext(ctx,
		s.rebind(fmt.Sprintf("UPDATE devices SET site_id = ? WHERE id IN (%s)", strings.Join(marks, ","))),
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to assign devices: %w", err)
	}
	return nil
}

// DeviceSiteIDs returns the id -> site assignment for every device. Used
// by the topology engine; nil means unassigned.
func (s *Store) DeviceSiteIDs(ctx context.Context) (map[int64]*int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, site_id FROM devices")
	if err != nil {
		return nil, fmt.Errorf("failed to load device assignments: %w", err)
	}
	defer rows.Close()

	assignments := make(map[int64]*int64)
	for rows.Next() {
		var id int64
		var siteID sql.NullInt64
		if err := rows.Scan(&id, &siteID); err != nil {
			return nil, fmt.Errorf("failed to scan device assignment: %w", err)
		}
		assignments[id] = nullInt64(siteID)
	}
	return assignments, rows.Err()
}

// DeviceIDsBySite returns the ids of all devices assigned to a site.
func (s *Store) DeviceIDsBySite(ctx context.Context, siteID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT id FROM devices WHERE site_id = ?"), siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load site devices: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan device id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertDeviceByMAC creates or refreshes a device keyed by MAC address.
// This is the write path used by discovery collectors; site assignment is
// never touched here.
func (s *Store) UpsertDeviceByMAC(ctx context.Context, mac string, name, mgmtIP, vendor *string) (_ *Device, err error) {
	defer s.observe("upsert_device_by_mac", time.Now(), &err)

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO devices (mac, name, mgmt_ip, vendor, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (mac) DO UPDATE SET
			name = COALESCE(excluded.name, devices.name),
			mgmt_ip = COALESCE(excluded.mgmt_ip, devices.mgmt_ip),
			vendor = COALESCE(excluded.vendor, devices.vendor),
			last_seen = excluded.last_seen
	`), mac, name, mgmtIP, vendor, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert device: %w", err)
	}

	row := s.db.QueryRowContext(ctx, s.rebind(
		"SELECT id, name, mac, mgmt_ip, vendor, site_id, last_seen FROM devices WHERE mac = ?",
	), mac)
	return scanDevice(row)
}

// InsertDevice creates a device row directly. Used by fixtures and tests;
// collectors go through UpsertDeviceByMAC.
func (s *Store) InsertDevice(ctx context.Context, d *Device) (_ int64, err error) {
	defer s.observe("insert_device", time.Now(), &err)

	id, err := s.insertID(ctx,
		"INSERT INTO devices (name, mac, mgmt_ip, vendor, site_id, last_seen) VALUES (?, ?, ?, ?, ?, ?)",
		d.Name, d.MAC, d.MgmtIP, d.Vendor, d.SiteID, d.LastSeen,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("device mac: %w", ErrConflict)
		}
		return 0, fmt.Errorf("failed to insert device: %w", err)
	}
	return id, nil
}

func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var name, mac, mgmtIP, vendor sql.NullString
	var siteID sql.NullInt64
	var lastSeen sql.NullTime

	err := scanner.Scan(&d.ID, &name, &mac, &mgmtIP, &vendor, &siteID, &lastSeen)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan device: %w", err)
	}

	d.Name = nullString(name)
	d.MAC = nullString(mac)
	d.MgmtIP = nullString(mgmtIP)
	d.Vendor = nullString(vendor)
	d.SiteID = nullInt64(siteID)
	if lastSeen.Valid {
		t := lastSeen.Time
		d.LastSeen = &t
	}
	return &d, nil
}
