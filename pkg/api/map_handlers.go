package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/netfusion/netfusion/pkg/httputil"
	"github.com/netfusion/netfusion/pkg/mapmedia"
	"github.com/netfusion/netfusion/pkg/store"
)

// maxMapImageBytes caps map image uploads at 10 MiB.
const maxMapImageBytes = 10 << 20

// MapHandlers handles network map records and their background images.
type MapHandlers struct {
	store *store.Store
	media *mapmedia.Store
}

// NewMapHandlers creates map handlers.
func NewMapHandlers(s *store.Store, media *mapmedia.Store) *MapHandlers {
	return &MapHandlers{store: s, media: media}
}

// RegisterRoutes registers map routes. Reads require at least the user
// role; mutations are admin-only.
func (h *MapHandlers) RegisterRoutes(user, admin *mux.Router) {
	user.HandleFunc("/maps", h.listMaps).Methods("GET")
	user.HandleFunc("/maps/active", h.getActiveMap).Methods("GET")
	user.HandleFunc("/maps/{id}/image", h.getImage).Methods("GET")
	admin.HandleFunc("/maps", h.createMap).Methods("POST")
	admin.HandleFunc("/maps/active", h.setActiveMap).Methods("PATCH")
	admin.HandleFunc("/maps/{id}/image", h.uploadImage).Methods("POST")
	admin.HandleFunc("/maps/{id}", h.deleteMap).Methods("DELETE")
}

// listMaps handles GET /api/maps
func (h *MapHandlers) listMaps(w http.ResponseWriter, r *http.Request) {
	maps, err := h.store.ListMaps(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if maps == nil {
		maps = []*store.NetworkMap{}
	}
	httputil.WriteSuccess(w, maps)
}

type createMapRequest struct {
	Name string `json:"name"`
}

// createMap handles POST /api/maps
func (h *MapHandlers) createMap(w http.ResponseWriter, r *http.Request) {
	var req createMapRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	m, err := h.store.CreateMap(r.Context(), req.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteCreated(w, m)
}

// getActiveMap handles GET /api/maps/active
func (h *MapHandlers) getActiveMap(w http.ResponseWriter, r *http.Request) {
	id, err := h.store.GetSetting(r.Context(), store.ActiveMapKey)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if id == "" {
		httputil.WriteSuccess(w, map[string]interface{}{"map": nil})
		return
	}

	m, err := h.store.GetMap(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Stale pointer to a deleted map.
			httputil.WriteSuccess(w, map[string]interface{}{"map": nil})
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"map": m})
}

type setActiveMapRequest struct {
	MapID string `json:"map_id"`
}

// setActiveMap handles PATCH /api/maps/active
func (h *MapHandlers) setActiveMap(w http.ResponseWriter, r *http.Request) {
	var req setActiveMapRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if req.MapID == "" {
		if err := h.store.DeleteSetting(r.Context(), store.ActiveMapKey); err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		httputil.WriteSuccess(w, map[string]bool{"ok": true})
		return
	}

	if _, err := h.store.GetMap(r.Context(), req.MapID); err != nil {
		writeStoreError(w, err)
		return
	}
	if err := h.store.SetSetting(r.Context(), store.ActiveMapKey, req.MapID); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]bool{"ok": true})
}

// uploadImage handles POST /api/maps/{id}/image. The raw body is the
// image; the Content-Type header selects PNG or JPEG.
func (h *MapHandlers) uploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.store.GetMap(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxMapImageBytes)
	defer body.Close()

	if err := h.media.Save(id, r.Header.Get("Content-Type"), body); err != nil {
		if errors.Is(err, mapmedia.ErrUnsupportedType) {
			httputil.WriteBadRequest(w, "image must be PNG or JPEG")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]bool{"ok": true})
}

// getImage handles GET /api/maps/{id}/image
func (h *MapHandlers) getImage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	f, contentType, err := h.media.Open(id)
	if err != nil {
		if errors.Is(err, mapmedia.ErrNoImage) {
			httputil.WriteNotFoundError(w, "no image")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType)
	io.Copy(w, f)
}

// deleteMap handles DELETE /api/maps/{id}: removes the record, its image
// file, and the active pointer when it referenced this map.
func (h *MapHandlers) deleteMap(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteMap(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	if err := h.media.Delete(id); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	active, err := h.store.GetSetting(r.Context(), store.ActiveMapKey)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if active == id {
		if err := h.store.DeleteSetting(r.Context(), store.ActiveMapKey); err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
	}
	httputil.WriteSuccess(w, map[string]bool{"ok": true})
}
