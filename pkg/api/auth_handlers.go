package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/netfusion/netfusion/pkg/auth"
	"github.com/netfusion/netfusion/pkg/httputil"
	"github.com/netfusion/netfusion/pkg/middleware"
	"github.com/netfusion/netfusion/pkg/observability"
	"github.com/netfusion/netfusion/pkg/store"
)

// AuthHandlers handles session bootstrap and login.
type AuthHandlers struct {
	store      *store.Store
	sessions   *auth.SessionManager
	resetToken string
}

// NewAuthHandlers creates authentication handlers.
func NewAuthHandlers(s *store.Store, sessions *auth.SessionManager, resetToken string) *AuthHandlers {
	return &AuthHandlers{
		store:      s,
		sessions:   sessions,
		resetToken: resetToken,
	}
}

// RegisterRoutes registers authentication routes. The bootstrap and login
// routes are public; /me requires a session.
func (h *AuthHandlers) RegisterRoutes(public, authed *mux.Router) {
	public.HandleFunc("/auth/first-run", h.firstRunStatus).Methods("GET")
	public.HandleFunc("/auth/first-run", h.firstRunCreate).Methods("POST")
	public.HandleFunc("/auth/login", h.login).Methods("POST")
	public.HandleFunc("/auth/logout", h.logout).Methods("POST")
	public.HandleFunc("/auth/reset-password", h.resetPassword).Methods("POST")
	authed.HandleFunc("/auth/me", h.me).Methods("GET")
}

// firstRunStatus handles GET /api/auth/first-run
func (h *AuthHandlers) firstRunStatus(w http.ResponseWriter, r *http.Request) {
	has, err := h.store.HasAnyUser(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]bool{"needed": !has})
}

type firstRunRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// firstRunCreate handles POST /api/auth/first-run: creates the sole owner
// account. Refused once any user exists.
func (h *AuthHandlers) firstRunCreate(w http.ResponseWriter, r *http.Request) {
	var req firstRunRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	has, err := h.store.HasAnyUser(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if has {
		httputil.WriteConflict(w, "setup already completed")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Email, auth.RoleOwner, hash)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	observability.FromContext(r.Context()).WithField("email", user.Email).Info("first-run owner created")
	h.issueSession(w, auth.Identity{Email: user.Email, Role: user.Role})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login handles POST /api/auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteUnauthorized(w, "invalid credentials")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	if !user.Enabled || !auth.VerifyPassword(user.PasswordHash, req.Password) {
		httputil.WriteUnauthorized(w, "invalid credentials")
		return
	}

	h.issueSession(w, auth.Identity{Email: user.Email, Role: user.Role})
}

// me handles GET /api/auth/me
func (h *AuthHandlers) me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	httputil.WriteSuccess(w, map[string]string{
		"email": identity.Email,
		"role":  string(identity.Role),
	})
}

// logout handles POST /api/auth/logout
func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	httputil.WriteSuccess(w, map[string]bool{"ok": true})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// resetPassword handles POST /api/auth/reset-password: a recovery path
// guarded by a shared token from configuration. Resets an existing user's
// password, or creates an owner account when the email is unknown.
func (h *AuthHandlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if h.resetToken == "" || req.Token != h.resetToken {
		httputil.WriteForbidden(w, "invalid recovery token")
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
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

	email := strings.ToLower(req.Email)
	user, err := h.store.GetUserByEmail(r.Context(), email)
	switch {
	case err == nil:
		if err := h.store.UpdateUserPassword(r.Context(), user.ID, hash); err != nil {
			writeStoreError(w, err)
			return
		}
	case errors.Is(err, store.ErrNotFound):
		if _, err := h.store.CreateUser(r.Context(), email, auth.RoleOwner, hash); err != nil {
			writeStoreError(w, err)
			return
		}
	default:
		httputil.WriteInternalError(w, err)
		return
	}

	observability.FromContext(r.Context()).WithField("email", email).Warn("password reset via recovery token")
	httputil.WriteSuccess(w, map[string]bool{"ok": true})
}

func (h *AuthHandlers) issueSession(w http.ResponseWriter, identity auth.Identity) {
	token, err := h.sessions.Issue(identity)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	h.sessions.SetCookie(w, token)
	httputil.WriteSuccess(w, map[string]string{
		"token": token,
		"email": identity.Email,
		"role":  string(identity.Role),
	})
}
