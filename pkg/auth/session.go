package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the default session lifetime (7 days).
const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionClaims are the JWT claims carried in a session token.
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// SessionManager issues and validates HS256 session tokens. Tokens are
// accepted either from an Authorization bearer header or from the session
// cookie, so the same token works for API clients and the browser front-end.
type SessionManager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
}

// NewSessionManager creates a session manager.
func NewSessionManager(secret string, ttl time.Duration, cookieName string) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if cookieName == "" {
		cookieName = "nf_session"
	}
	return &SessionManager{
		secret:     []byte(secret),
		ttl:        ttl,
		cookieName: cookieName,
	}
}

// CookieName returns the name of the session cookie.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Issue creates a signed session token for the given identity.
func (sm *SessionManager) Issue(identity Identity) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Email: identity.Email,
		Role:  string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sm.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(sm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a session token and resolves it to an identity.
func (sm *SessionManager) Validate(tokenString string) (*Identity, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return sm.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}

	role, err := ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("session carries %w", err)
	}

	return &Identity{
		Email: strings.ToLower(claims.Email),
		Role:  role,
	}, nil
}

// TokenFromRequest extracts the session token from the Authorization header
// (preferred) or the session cookie. Returns "" when neither is present.
func (sm *SessionManager) TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" && strings.TrimSpace(parts[1]) != "" {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(sm.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// SetCookie writes the session cookie on a login or first-run response.
func (sm *SessionManager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie on logout.
func (sm *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
