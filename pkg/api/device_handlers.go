package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/netfusion/netfusion/pkg/access"
	"github.com/netfusion/netfusion/pkg/httputil"
	"github.com/netfusion/netfusion/pkg/middleware"
	"github.com/netfusion/netfusion/pkg/store"
)

// DeviceHandlers handles the device inventory surface.
type DeviceHandlers struct {
	store *store.Store
}

// NewDeviceHandlers creates device handlers.
func NewDeviceHandlers(s *store.Store) *DeviceHandlers {
	return &DeviceHandlers{store: s}
}

// RegisterRoutes registers device routes.
func (h *DeviceHandlers) RegisterRoutes(authed *mux.Router) {
	authed.HandleFunc("/devices", h.listDevices).Methods("GET")
	authed.HandleFunc("/devices/{id:[0-9]+}", h.updateDevice).Methods("PATCH")
}

// listDevices handles GET /api/devices: access-scoped listing with an
// optional substring filter over name, MAC, and management IP.
func (h *DeviceHandlers) listDevices(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)

	a, err := access.Resolve(r.Context(), h.store, identity)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	filter := store.DeviceFilter{Q: httputil.ParseQueryString(r, "q", "")}
	if !a.Unrestricted {
		// Empty grant set stays non-nil so the store returns nothing
		// rather than everything.
		filter.SiteIDs = a.SiteIDs()
	}

	devices, err := h.store.ListDevices(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if devices == nil {
		devices = []*store.Device{}
	}
	httputil.WriteSuccess(w, devices)
}

type updateDeviceRequest struct {
	Name   *string `json:"name"`
	Vendor *string `json:"vendor"`
	SiteID *int64  `json:"site_id"`
}

// updateDevice handles PATCH /api/devices/{id}. Restricted users need an
// edit grant on the device's current site, and cannot move a device to a
// site outside their grant set. Devices outside the caller's scope are
// reported as not found rather than forbidden.
func (h *DeviceHandlers) updateDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req updateDeviceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	identity := middleware.GetIdentity(r)
	a, err := access.Resolve(r.Context(), h.store, identity)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	device, err := h.store.GetDevice(r.Context(), deviceID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if !a.CanViewDevice(device) {
		httputil.WriteNotFoundError(w, "not found")
		return
	}
	if !a.CanEditDevice(device) {
		httputil.WriteForbidden(w, "edit access required")
		return
	}

	if req.SiteID != nil {
		if _, err := h.store.GetSite(r.Context(), *req.SiteID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httputil.WriteBadRequest(w, "unknown site")
				return
			}
			httputil.WriteInternalError(w, err)
			return
		}
		// A restricted editor cannot move a device into a site they were
		// not granted.
		if !a.CanViewSite(*req.SiteID) {
			httputil.WriteForbidden(w, "target site not accessible")
			return
		}
	}

	if _, err := h.store.UpdateDevice(r.Context(), deviceID, store.DeviceUpdate{
		Name:   req.Name,
		Vendor: req.Vendor,
		SiteID: req.SiteID,
	}); err != nil {
		writeStoreError(w, err)
		return
	}

	updated, err := h.store.GetDevice(r.Context(), deviceID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, updated)
}
