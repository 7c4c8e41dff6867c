package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/netfusion/netfusion/pkg/auth"
	"github.com/netfusion/netfusion/pkg/httputil"
	"github.com/netfusion/netfusion/pkg/store"
)

// UserHandlers handles user account administration.
type UserHandlers struct {
	store *store.Store
}

// NewUserHandlers creates user handlers.
func NewUserHandlers(s *store.Store) *UserHandlers {
	return &UserHandlers{store: s}
}

// RegisterRoutes registers user routes on the admin router.
func (h *UserHandlers) RegisterRoutes(admin *mux.Router) {
	admin.HandleFunc("/users", h.listUsers).Methods("GET")
	admin.HandleFunc("/users", h.createUser).Methods("POST")
	admin.HandleFunc("/users/{id:[0-9]+}", h.updateUser).Methods("PATCH")
}

// listUsers handles GET /api/users
func (h *UserHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if users == nil {
		users = []*store.User{}
	}
	httputil.WriteSuccess(w, users)
}

type createUserRequest struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// createUser handles POST /api/users
func (h *UserHandlers) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	role, err := auth.ParseRole(req.Role)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Email, role, hash)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteCreated(w, user)
}

type updateUserRequest struct {
	Role     *string `json:"role"`
	Enabled  *bool   `json:"enabled"`
	Password *string `json:"password"`
}

// updateUser handles PATCH /api/users/{id}
func (h *UserHandlers) updateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req updateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if req.Role != nil {
		role, err := auth.ParseRole(*req.Role)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		if err := h.store.UpdateUserRole(r.Context(), userID, role); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	if req.Enabled != nil {
		if err := h.store.SetUserEnabled(r.Context(), userID, *req.Enabled); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	if req.Password != nil {
		if err := auth.ValidatePassword(*req.Password); err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		if err := h.store.UpdateUserPassword(r.Context(), userID, hash); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	httputil.WriteSuccess(w, map[string]bool{"ok": true})
}
