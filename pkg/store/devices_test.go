package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func seedDevice(t *testing.T, s *Store, name, mac string, siteID *int64) int64 {
	t.Helper()
	id, err := s.InsertDevice(context.Background(), &Device{
		Name:   strPtr(name),
		MAC:    strPtr(mac),
		SiteID: siteID,
	})
	require.NoError(t, err)
	return id
}

func TestListDevicesFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	site, err := s.CreateSite(ctx, "HQ")
	require.NoError(t, err)

	core := seedDevice(t, s, "core-switch", "aa:aa:aa:aa:aa:01", &site.ID)
	edge := seedDevice(t, s, "edge-router", "aa:aa:aa:aa:aa:02", &site.ID)
	stray := seedDevice(t, s, "stray-ap", "bb:bb:bb:bb:bb:01", nil)

	t.Run("no filter returns all", func(t *testing.T) {
		devices, err := s.ListDevices(ctx, DeviceFilter{})
		require.NoError(t, err)
		assert.Len(t, devices, 3)
	})

	t.Run("substring over name", func(t *testing.T) {
		devices, err := s.ListDevices(ctx, DeviceFilter{Q: "switch"})
		require.NoError(t, err)
		require.Len(t, devices, 1)
		assert.Equal(t, core, devices[0].ID)
	})

	t.Run("substring over mac", func(t *testing.T) {
		devices, err := s.ListDevices(ctx, DeviceFilter{Q: "bb:bb"})
		require.NoError(t, err)
		require.Len(t, devices, 1)
		assert.Equal(t, stray, devices[0].ID)
	})

	t.Run("site scope excludes unassigned", func(t *testing.T) {
		devices, err := s.ListDevices(ctx, DeviceFilter{SiteIDs: []int64{site.ID}})
		require.NoError(t, err)
		require.Len(t, devices, 2)
		assert.Equal(t, core, devices[0].ID)
		assert.Equal(t, edge, devices[1].ID)
	})

	t.Run("empty site scope matches nothing", func(t *testing.T) {
		devices, err := s.ListDevices(ctx, DeviceFilter{SiteIDs: []int64{}})
		require.NoError(t, err)
		assert.Empty(t, devices)
	})
}

func TestListDevicesOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	unnamed, err := s.InsertDevice(ctx, &Device{MAC: strPtr("cc:cc:cc:cc:cc:01")})
	require.NoError(t, err)
	beta := seedDevice(t, s, "beta", "cc:cc:cc:cc:cc:02", nil)
	alpha := seedDevice(t, s, "alpha", "cc:cc:cc:cc:cc:03", nil)

	devices, err := s.ListDevices(ctx, DeviceFilter{})
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, alpha, devices[0].ID)
	assert.Equal(t, beta, devices[1].ID)
	assert.Equal(t, unnamed, devices[2].ID, "unnamed devices sort last")
}

func TestUpdateDevice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	site, err := s.CreateSite(ctx, "HQ")
	require.NoError(t, err)
	id := seedDevice(t, s, "old", "dd:dd:dd:dd:dd:01", nil)

	t.Run("partial update", func(t *testing.T) {
		n, err := s.UpdateDevice(ctx, id, DeviceUpdate{Name: strPtr("renamed"), SiteID: &site.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		d, err := s.GetDevice(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, d.Name)
		assert.Equal(t, "renamed", *d.Name)
		require.NotNil(t, d.SiteID)
		assert.Equal(t, site.ID, *d.SiteID)
		assert.Nil(t, d.Vendor, "untouched field stays nil")
	})

	t.Run("empty update is a no-op", func(t *testing.T) {
		n, err := s.UpdateDevice(ctx, id, DeviceUpdate{})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("unknown device", func(t *testing.T) {
		_, err := s.UpdateDevice(ctx, 99999, DeviceUpdate{Name: strPtr("ghost")})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAssignDevicesToSite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	site, err := s.CreateSite(ctx, "HQ")
	require.NoError(t, err)
	a := seedDevice(t, s, "a", "ee:ee:ee:ee:ee:01", nil)
	b := seedDevice(t, s, "b", "ee:ee:ee:ee:ee:02", nil)

	require.NoError(t, s.AssignDevicesToSite(ctx, site.ID, []int64{a, b}))

	ids, err := s.DeviceIDsBySite(ctx, site.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{a, b}, ids)

	t.Run("empty id list", func(t *testing.T) {
		assert.NoError(t, s.AssignDevicesToSite(ctx, site.ID, nil))
	})
}

func TestUpsertDeviceByMAC(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertDeviceByMAC(ctx, "ff:ff:ff:ff:ff:01", strPtr("ap-1"), strPtr("10.0.0.5"), nil)
	require.NoError(t, err)
	require.NotNil(t, first.Name)
	assert.Equal(t, "ap-1", *first.Name)

	// A later sighting with fewer details refreshes last_seen but keeps
	// the known fields.
	second, err := s.UpsertDeviceByMAC(ctx, "ff:ff:ff:ff:ff:01", nil, nil, strPtr("ubiquiti"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.Name)
	assert.Equal(t, "ap-1", *second.Name)
	require.NotNil(t, second.Vendor)
	assert.Equal(t, "ubiquiti", *second.Vendor)
}

func TestDeviceSiteIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	site, err := s.CreateSite(ctx, "HQ")
	require.NoError(t, err)
	assigned := seedDevice(t, s, "assigned", "11:11:11:11:11:01", &site.ID)
	loose := seedDevice(t, s, "loose", "11:11:11:11:11:02", nil)

	assignments, err := s.DeviceSiteIDs(ctx)
	require.NoError(t, err)
	require.NotNil(t, assignments[assigned])
	assert.Equal(t, site.ID, *assignments[assigned])
	assert.Nil(t, assignments[loose])
}

func TestUpsertDeviceLink(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := seedDevice(t, s, "a", "22:22:22:22:22:01", nil)
	b := seedDevice(t, s, "b", "22:22:22:22:22:02", nil)

	require.NoError(t, s.UpsertDeviceLink(ctx, b, a))
	// Same link reported the other way round.
	require.NoError(t, s.UpsertDeviceLink(ctx, a, b))
	// Self-links are dropped.
	require.NoError(t, s.UpsertDeviceLink(ctx, a, a))

	links, err := s.ListDeviceLinks(ctx)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, a, links[0].AID)
	assert.Equal(t, b, links[0].BID)
}
