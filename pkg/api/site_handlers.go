package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/netfusion/netfusion/pkg/access"
	"github.com/netfusion/netfusion/pkg/httputil"
	"github.com/netfusion/netfusion/pkg/middleware"
	"github.com/netfusion/netfusion/pkg/observability"
	"github.com/netfusion/netfusion/pkg/store"
	"github.com/netfusion/netfusion/pkg/topology"
)

// SiteHandlers handles site CRUD, access grants, and device assignment.
type SiteHandlers struct {
	store   *store.Store
	metrics *observability.Metrics
}

// NewSiteHandlers creates site handlers.
func NewSiteHandlers(s *store.Store, metrics *observability.Metrics) *SiteHandlers {
	return &SiteHandlers{store: s, metrics: metrics}
}

// RegisterRoutes registers site routes. Listing is available to any
// authenticated user; everything else is admin-only.
func (h *SiteHandlers) RegisterRoutes(authed, admin *mux.Router) {
	authed.HandleFunc("/sites", h.listSites).Methods("GET")
	admin.HandleFunc("/sites", h.createSite).Methods("POST")
	admin.HandleFunc("/sites/{id:[0-9]+}", h.renameSite).Methods("PATCH")
	admin.HandleFunc("/sites/{id:[0-9]+}/grant", h.grantAccess).Methods("POST")
	admin.HandleFunc("/sites/{id:[0-9]+}/users", h.listSiteUsers).Methods("GET")
	admin.HandleFunc("/sites/{id:[0-9]+}/assign-devices", h.assignDevices).Methods("POST")
	admin.HandleFunc("/sites/{id:[0-9]+}/auto-assign", h.autoAssign).Methods("POST")
}

// listSites handles GET /api/sites: unrestricted users see every site,
// restricted users only their granted ones.
func (h *SiteHandlers) listSites(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)

	a, err := access.Resolve(r.Context(), h.store, identity)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	var sites []*store.Site
	if a.Unrestricted {
		sites, err = h.store.ListSites(r.Context())
	} else {
		sites, err = h.store.ListSitesForEmail(r.Context(), identity.Email)
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if sites == nil {
		sites = []*store.Site{}
	}
	httputil.WriteSuccess(w, sites)
}

type createSiteRequest struct {
	Name string `json:"name"`
}

// createSite handles POST /api/sites
func (h *SiteHandlers) createSite(w http.ResponseWriter, r *http.Request) {
	var req createSiteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	site, err := h.store.CreateSite(r.Context(), req.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteCreated(w, site)
}

// renameSite handles PATCH /api/sites/{id}
func (h *SiteHandlers) renameSite(w http.ResponseWriter, r *http.Request) {
	siteID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req createSiteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	site, err := h.store.RenameSite(r.Context(), siteID, req.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, site)
}

type grantRequest struct {
	UserID  int64 `json:"user_id"`
	CanEdit bool  `json:"can_edit"`
}

// grantAccess handles POST /api/sites/{id}/grant
func (h *SiteHandlers) grantAccess(w http.ResponseWriter, r *http.Request) {
	siteID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req grantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if _, err := h.store.GetSite(r.Context(), siteID); err != nil {
		writeStoreError(w, err)
		return
	}

	if err := h.store.UpsertGrant(r.Context(), req.UserID, siteID, req.CanEdit); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]bool{"ok": true})
}

// listSiteUsers handles GET /api/sites/{id}/users
func (h *SiteHandlers) listSiteUsers(w http.ResponseWriter, r *http.Request) {
	siteID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.store.GetSite(r.Context(), siteID); err != nil {
		writeStoreError(w, err)
		return
	}

	grants, err := h.store.ListSiteGrants(r.Context(), siteID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if grants == nil {
		grants = []*store.SiteGrantUser{}
	}
	httputil.WriteSuccess(w, grants)
}

type assignDevicesRequest struct {
	DeviceIDs []int64 `json:"device_ids"`
}

// assignDevices handles POST /api/sites/{id}/assign-devices: unconditional
// bulk assignment. Ids that do not exist affect zero rows; an empty list
// reports zero updated.
func (h *SiteHandlers) assignDevices(w http.ResponseWriter, r *http.Request) {
	siteID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req assignDevicesRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if _, err := h.store.GetSite(r.Context(), siteID); err != nil {
		writeStoreError(w, err)
		return
	}

	if err := h.store.AssignDevicesToSite(r.Context(), siteID, req.DeviceIDs); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]int{"updated": len(req.DeviceIDs)})
}

// autoAssign handles POST /api/sites/{id}/auto-assign: topology
// propagation from the site's current devices.
func (h *SiteHandlers) autoAssign(w http.ResponseWriter, r *http.Request) {
	siteID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.store.GetSite(r.Context(), siteID); err != nil {
		writeStoreError(w, err)
		return
	}

	start := time.Now()
	updated, err := topology.AutoAssign(r.Context(), h.store, siteID)
	h.metrics.ObserveAutoAssign(updated, err, time.Since(start))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeStoreError(w, err)
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]int{"updated": updated})
}
