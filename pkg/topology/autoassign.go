package topology

import (
	"context"
	"fmt"

	"github.com/netfusion/netfusion/pkg/store"
)

// AssignStore is the persistence surface the auto-assign engine needs.
type AssignStore interface {
	DeviceIDsBySite(ctx context.Context, siteID int64) ([]int64, error)
	DeviceSiteIDs(ctx context.Context) (map[int64]*int64, error)
	ListDeviceLinks(ctx context.Context) ([]*store.DeviceLink, error)
	AssignDevicesToSite(ctx context.Context, siteID int64, deviceIDs []int64) error
}

// AutoAssign expands a site's membership along the topology graph: every
// unassigned device reachable from the site's current devices without
// crossing a device owned by another site is assigned to the site, in one
// bulk update. Returns the number of devices assigned. A site with no
// devices is a no-op, and running twice is idempotent.
func AutoAssign(ctx context.Context, s AssignStore, siteID int64) (int, error) {
	seeds, err := s.DeviceIDsBySite(ctx, siteID)
	if err != nil {
		return 0, fmt.Errorf("auto-assign: %w", err)
	}
	if len(seeds) == 0 {
		return 0, nil
	}

	assignments, err := s.DeviceSiteIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("auto-assign: %w", err)
	}

	links, err := s.ListDeviceLinks(ctx)
	if err != nil {
		return 0, fmt.Errorf("auto-assign: %w", err)
	}

	reached := NewGraph(links).Propagate(siteID, seeds, assignments)
	if len(reached) == 0 {
		return 0, nil
	}

	if err := s.AssignDevicesToSite(ctx, siteID, reached); err != nil {
		return 0, fmt.Errorf("auto-assign: %w", err)
	}
	return len(reached), nil
}
