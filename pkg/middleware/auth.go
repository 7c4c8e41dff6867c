// Package middleware provides the request-level authentication and
// authorization layers shared by the API handlers.
package middleware

import (
	"net/http"

	"github.com/netfusion/netfusion/pkg/auth"
	"github.com/netfusion/netfusion/pkg/contextkeys"
	"github.com/netfusion/netfusion/pkg/httputil"
	"github.com/netfusion/netfusion/pkg/observability"
)

// SessionMiddleware validates the session token and stores the resolved
// identity on the request context. Requests with no token or an invalid
// token get 401.
func SessionMiddleware(sessions *auth.SessionManager, metrics *observability.Metrics, logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessions.TokenFromRequest(r)
			if token == "" {
				metrics.AuthFailuresTotal.WithLabelValues("missing_token").Inc()
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			identity, err := sessions.Validate(token)
			if err != nil {
				metrics.AuthFailuresTotal.WithLabelValues("invalid_token").Inc()
				logger.WithError(err).Debug("rejected session token")
				httputil.WriteUnauthorized(w, "invalid or expired session")
				return
			}

			ctx := contextkeys.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity returns the identity placed on the context by
// SessionMiddleware, or nil for unauthenticated requests.
func GetIdentity(r *http.Request) *auth.Identity {
	identity, _ := r.Context().Value(contextkeys.IdentityKey).(*auth.Identity)
	return identity
}

// RequireMinRole rejects requests whose identity does not meet the
// minimum role with 403. It must run after SessionMiddleware.
func RequireMinRole(min auth.Role, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r)
			if identity == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			ok, err := auth.MeetsMinimum(identity.Role, min)
			if err != nil {
				// A non-canonical role is a bug, not a denial.
				httputil.WriteInternalError(w, err)
				return
			}
			if !ok {
				metrics.AccessDeniedTotal.WithLabelValues("role").Inc()
				httputil.WriteForbidden(w, "insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
