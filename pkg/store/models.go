package store

import (
	"time"

	"github.com/netfusion/netfusion/pkg/auth"
)

// User is a user account row. Email is stored lower-cased and is unique.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Role         auth.Role `json:"role"`
	PasswordHash string    `json:"-"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// Site is an administrative grouping of devices. Name and slug are unique;
// the slug is stable once assigned (renames do not reslug).
type Site struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// Device is a discovered network device. The MAC address, when present, is
// the natural key used by discovery sources for de-duplication. SiteID is
// nil until the device is assigned to a site.
type Device struct {
	ID       int64      `json:"id"`
	Name     *string    `json:"name"`
	MAC      *string    `json:"mac"`
	MgmtIP   *string    `json:"mgmt_ip"`
	Vendor   *string    `json:"vendor"`
	SiteID   *int64     `json:"site_id"`
	LastSeen *time.Time `json:"last_seen"`
}

// DeviceLink is an observed physical adjacency between two devices. Links
// are undirected; the pair is stored normalized (AID < BID) so each
// unordered pair exists at most once.
type DeviceLink struct {
	AID      int64     `json:"a_id"`
	BID      int64     `json:"b_id"`
	LastSeen time.Time `json:"last_seen"`
}

// SiteAccessGrant records that a user may view (and optionally edit) a
// site's resources. Unique per (user, site); re-granting updates CanEdit.
type SiteAccessGrant struct {
	UserID  int64 `json:"user_id"`
	SiteID  int64 `json:"site_id"`
	CanEdit bool  `json:"can_edit"`
}

// SiteGrantUser is a grant joined with the granted user, as returned by the
// per-site grant listing.
type SiteGrantUser struct {
	UserID  int64     `json:"id"`
	Email   string    `json:"email"`
	Role    auth.Role `json:"role"`
	CanEdit bool      `json:"can_edit"`
}

// Endpoint is a configured monitoring endpoint (a UniFi controller, an Auvik
// collector, or a generic poll target).
type Endpoint struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Address   string    `json:"address"`
	AuthType  string    `json:"auth_type"`
	Username  *string   `json:"username"`
	Password  *string   `json:"-"`
	APIKey    *string   `json:"-"`
	Site      *string   `json:"site"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// NetworkMap is a named site map; its image lives in the media store keyed
// by the map ID.
type NetworkMap struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
