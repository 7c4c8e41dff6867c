package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/netfusion/netfusion/pkg/httputil"
	"github.com/netfusion/netfusion/pkg/store"
)

var (
	endpointKinds     = map[string]bool{"unifi": true, "auvik": true, "generic": true}
	endpointAuthTypes = map[string]bool{"userpass": true, "apikey": true, "token": true}
)

// EndpointHandlers handles monitoring endpoint configuration.
type EndpointHandlers struct {
	store *store.Store
}

// NewEndpointHandlers creates endpoint handlers.
func NewEndpointHandlers(s *store.Store) *EndpointHandlers {
	return &EndpointHandlers{store: s}
}

// RegisterRoutes registers endpoint routes. Listing requires at least the
// user role; mutations are admin-only.
func (h *EndpointHandlers) RegisterRoutes(user, admin *mux.Router) {
	user.HandleFunc("/endpoints", h.listEndpoints).Methods("GET")
	admin.HandleFunc("/endpoints", h.createEndpoint).Methods("POST")
	admin.HandleFunc("/endpoints/{id}", h.updateEndpoint).Methods("PATCH")
	admin.HandleFunc("/endpoints/{id}", h.deleteEndpoint).Methods("DELETE")
}

// listEndpoints handles GET /api/endpoints
func (h *EndpointHandlers) listEndpoints(w http.ResponseWriter, r *http.Request) {
	endpoints, err := h.store.ListEndpoints(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if endpoints == nil {
		endpoints = []*store.Endpoint{}
	}
	httputil.WriteSuccess(w, endpoints)
}

type endpointRequest struct {
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Address  string  `json:"address"`
	AuthType string  `json:"auth_type"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	APIKey   *string `json:"api_key"`
	Site     *string `json:"site"`
	Notes    *string `json:"notes"`
}

func (req *endpointRequest) validate(w http.ResponseWriter) bool {
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return false
	}
	if !httputil.RequireNonEmpty(w, req.Address, "address") {
		return false
	}
	if !endpointKinds[req.Kind] {
		httputil.WriteBadRequest(w, "kind must be one of unifi, auvik, generic")
		return false
	}
	if !endpointAuthTypes[req.AuthType] {
		httputil.WriteBadRequest(w, "auth_type must be one of userpass, apikey, token")
		return false
	}
	return true
}

// createEndpoint handles POST /api/endpoints
func (h *EndpointHandlers) createEndpoint(w http.ResponseWriter, r *http.Request) {
	var req endpointRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !req.validate(w) {
		return
	}

	created, err := h.store.CreateEndpoint(r.Context(), &store.Endpoint{
		Name:     req.Name,
		Kind:     req.Kind,
		Address:  req.Address,
		AuthType: req.AuthType,
		Username: req.Username,
		Password: req.Password,
		APIKey:   req.APIKey,
		Site:     req.Site,
		Notes:    req.Notes,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteCreated(w, created)
}

// updateEndpoint handles PATCH /api/endpoints/{id}
func (h *EndpointHandlers) updateEndpoint(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req endpointRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !req.validate(w) {
		return
	}

	endpoint, err := h.store.GetEndpoint(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	endpoint.Name = req.Name
	endpoint.Kind = req.Kind
	endpoint.Address = req.Address
	endpoint.AuthType = req.AuthType
	endpoint.Username = req.Username
	endpoint.Site = req.Site
	endpoint.Notes = req.Notes
	// Credentials are only replaced when supplied; PATCH without them
	// keeps the stored secret.
	if req.Password != nil {
		endpoint.Password = req.Password
	}
	if req.APIKey != nil {
		endpoint.APIKey = req.APIKey
	}

	if err := h.store.UpdateEndpoint(r.Context(), endpoint); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, endpoint)
}

// deleteEndpoint handles DELETE /api/endpoints/{id}
func (h *EndpointHandlers) deleteEndpoint(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteEndpoint(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]bool{"ok": true})
}
