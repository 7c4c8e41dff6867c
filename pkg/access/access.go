// Package access resolves what a user may see and change. Admins and
// owners are unrestricted; everyone else is scoped to explicit per-site
// grants. The resolution is computed fresh per request so grant changes
// take effect immediately.
package access

import (
	"context"
	"fmt"

	"github.com/netfusion/netfusion/pkg/auth"
	"github.com/netfusion/netfusion/pkg/store"
)

// GrantSource loads the site grants backing an access resolution.
type GrantSource interface {
	GrantsForEmail(ctx context.Context, email string) ([]*store.SiteAccessGrant, error)
}

// Access is the resolved view of a user's site permissions.
type Access struct {
	// Unrestricted grants visibility into every site and every device,
	// assigned or not.
	Unrestricted bool
	// CanEditBySite maps granted site id to the grant's edit flag. Only
	// populated for restricted users.
	CanEditBySite map[int64]bool
}

// Resolve builds the access view for an identity.
func Resolve(ctx context.Context, src GrantSource, identity *auth.Identity) (*Access, error) {
	if !identity.Role.Valid() {
		return nil, fmt.Errorf("cannot resolve access: invalid role %q", identity.Role)
	}

	if identity.Role.Unrestricted() {
		return &Access{Unrestricted: true}, nil
	}

	grants, err := src.GrantsForEmail(ctx, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve access for %s: %w", identity.Email, err)
	}

	a := &Access{CanEditBySite: make(map[int64]bool, len(grants))}
	for _, g := range grants {
		a.CanEditBySite[g.SiteID] = g.CanEdit
	}
	return a, nil
}

// SiteIDs returns the granted site ids for a restricted user, or nil for
// an unrestricted one. The nil/empty distinction matters: nil means "no
// scoping", an empty slice means "nothing visible".
func (a *Access) SiteIDs() []int64 {
	if a.Unrestricted {
		return nil
	}
	ids := make([]int64, 0, len(a.CanEditBySite))
	for id := range a.CanEditBySite {
		ids = append(ids, id)
	}
	return ids
}

// CanViewSite reports whether the user may read a site.
func (a *Access) CanViewSite(siteID int64) bool {
	if a.Unrestricted {
		return true
	}
	_, ok := a.CanEditBySite[siteID]
	return ok
}

// CanEditSite reports whether the user may change a site's contents.
func (a *Access) CanEditSite(siteID int64) bool {
	if a.Unrestricted {
		return true
	}
	return a.CanEditBySite[siteID]
}

// CanViewDevice reports whether the user may read a device. Unassigned
// devices are visible only to unrestricted users; a view-only grant is
// enough to see assigned devices.
func (a *Access) CanViewDevice(d *store.Device) bool {
	if a.Unrestricted {
		return true
	}
	if d.SiteID == nil {
		return false
	}
	return a.CanViewSite(*d.SiteID)
}

// CanEditDevice reports whether the user may change a device. Restricted
// users need an edit grant on the device's current site.
func (a *Access) CanEditDevice(d *store.Device) bool {
	if a.Unrestricted {
		return true
	}
	if d.SiteID == nil {
		return false
	}
	return a.CanEditSite(*d.SiteID)
}
