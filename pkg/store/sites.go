package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/netfusion/netfusion/pkg/auth"
)

// CreateSite inserts a site, deriving a URL-safe slug from the name. Slug
// collisions are disambiguated with a numeric suffix (hq, hq-2, hq-3, ...).
// Returns ErrConflict on a duplicate name.
func (s *Store) CreateSite(ctx context.Context, name string) (_ *Site, err error) {
	defer s.observe("create_site", time.Now(), &err)

	base := slug.Make(name)
	if base == "" {
		base = "site"
	}

	candidate := base
	for n := 1; ; n++ {
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}
		var one int
		scanErr := s.db.QueryRowContext(ctx, s.rebind("SELECT 1 FROM sites WHERE slug = ?"), candidate).Scan(&one)
		if scanErr == sql.ErrNoRows {
			break
		}
		if scanErr != nil {
			return nil, fmt.Errorf("failed to check slug: %w", scanErr)
		}
	}

	now := time.Now().UTC()
	id, err := s.insertID(ctx,
		"INSERT INTO sites (name, slug, created_at) VALUES (?, ?, ?)",
		name, candidate, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("site %q: %w", name, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create site: %w", err)
	}

	return &Site{ID: id, Name: name, Slug: candidate, CreatedAt: now}, nil
}

// GetSite retrieves a site by id.
func (s *Store) GetSite(ctx context.Context, siteID int64) (*Site, error) {
	var site Site
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT id, name, slug, created_at FROM sites WHERE id = ?"), siteID,
	).Scan(&site.ID, &site.Name, &site.Slug, &site.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("site %d: %w", siteID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return &site, nil
}

// ListSites returns all sites ordered by name.
func (s *Store) ListSites(ctx context.Context) ([]*Site, error) {
	return s.querySites(ctx, "SELECT id, name, slug, created_at FROM sites ORDER BY name")
}

// ListSitesForEmail returns the sites a user has been granted access to,
// looked up by case-insensitive email, ordered by name.
func (s *Store) ListSitesForEmail(ctx context.Context, email string) ([]*Site, error) {
	return s.querySites(ctx, `
		SELECT s.id, s.name, s.slug, s.created_at
		FROM sites s
		JOIN user_site_access usa ON usa.site_id = s.id
		JOIN users u ON u.id = usa.user_id
		WHERE lower(u.email) = ?
		ORDER BY s.name
	`, strings.ToLower(email))
}

func (s *Store) querySites(ctx context.Context, query string, args ...interface{}) ([]*Site, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []*Site
	for rows.Next() {
		var site Site
		if err := rows.Scan(&site.ID, &site.Name, &site.Slug, &site.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, &site)
	}
	return sites, rows.Err()
}

// RenameSite updates a site's name. The slug is stable once assigned, so
// renames do not reslug. Returns ErrNotFound for an unknown site and
// ErrConflict when the new name collides with another site.
func (s *Store) RenameSite(ctx context.Context, siteID int64, name string) (_ *Site, err error) {
	defer s.observe("rename_site", time.Now(), &err)

	res, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE sites SET name = ? WHERE id = ?"), name, siteID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("site %q: %w", name, ErrConflict)
		}
		return nil, fmt.Errorf("failed to rename site: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("site %d: %w", siteID, ErrNotFound)
	}
	return s.GetSite(ctx, siteID)
}

// UpsertGrant creates or updates a (user, site) access grant. Re-granting
// updates can_edit rather than duplicating the row.
func (s *Store) UpsertGrant(ctx context.Context, userID, siteID int64, canEdit bool) (err error) {
	defer s.observe("upsert_grant", time.Now(), &err)

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO user_site_access (user_id, site_id, can_edit)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, site_id) DO UPDATE SET can_edit = excluded.can_edit
	`), userID, siteID, canEdit)
	if err != nil {
		return fmt.Errorf("failed to upsert grant: %w", err)
	}
	return nil
}

// ListSiteGrants returns the grants for a site joined with user email and
// role, ordered by email.
func (s *Store) ListSiteGrants(ctx context.Context, siteID int64) ([]*SiteGrantUser, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT u.id, u.email, u.role, usa.can_edit
		FROM user_site_access usa
		JOIN users u ON u.id = usa.user_id
		WHERE usa.site_id = ?
		ORDER BY u.email
	`), siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list site grants: %w", err)
	}
	defer rows.Close()

	var grants []*SiteGrantUser
	for rows.Next() {
		var g SiteGrantUser
		var role string
		if err := rows.Scan(&g.UserID, &g.Email, &role, &g.CanEdit); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		parsed, err := auth.ParseRole(role)
		if err != nil {
			return nil, fmt.Errorf("user %s has corrupt role: %w", g.Email, err)
		}
		g.Role = parsed
		grants = append(grants, &g)
	}
	return grants, rows.Err()
}

// GrantsForEmail returns all grants held by a user, looked up by
// case-insensitive email. Used to build the per-request access index.
func (s *Store) GrantsForEmail(ctx context.Context, email string) (_ []*SiteAccessGrant, err error) {
	defer s.observe("grants_for_email", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT usa.user_id, usa.site_id, usa.can_edit
		FROM user_site_access usa
		JOIN users u ON u.id = usa.user_id
		WHERE lower(u.email) = ?
	`), strings.ToLower(email))
	if err != nil {
		return nil, fmt.Errorf("failed to load grants: %w", err)
	}
	defer rows.Close()

	var grants []*SiteAccessGrant
	for rows.Next() {
		var g SiteAccessGrant
		if err := rows.Scan(&g.UserID, &g.SiteID, &g.CanEdit); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, &g)
	}
	return grants, rows.Err()
}
