package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netfusion/netfusion/pkg/auth"
	"github.com/netfusion/netfusion/pkg/store"
)

func TestEndpointAPI(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin@example.com", auth.RoleAdmin)
	_, userToken := env.createUser(t, "user@example.com", auth.RoleUser)

	var created store.Endpoint

	t.Run("admin creates endpoint", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/endpoints", adminToken, map[string]string{
			"name":      "hq-unifi",
			"kind":      "unifi",
			"address":   "https://unifi.example.com",
			"auth_type": "userpass",
			"username":  "svc",
			"password":  "secret",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		decodeBody(t, rec, &created)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "unifi", created.Kind)
	})

	t.Run("secrets are not serialized", func(t *testing.T) {
		rec := env.do(t, "GET", "/api/endpoints", userToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "secret")
	})

	t.Run("invalid kind rejected", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/endpoints", adminToken, map[string]string{
			"name":      "bad",
			"kind":      "meraki",
			"address":   "https://x",
			"auth_type": "token",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid auth type rejected", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/endpoints", adminToken, map[string]string{
			"name":      "bad",
			"kind":      "generic",
			"address":   "https://x",
			"auth_type": "oauth",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("listing requires user role", func(t *testing.T) {
		_, viewerToken := env.createUser(t, "viewer@example.com", auth.RoleReadOnly)

		rec := env.do(t, "GET", "/api/endpoints", viewerToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(t, "GET", "/api/endpoints", userToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("non-admin cannot create", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/endpoints", userToken, map[string]string{
			"name":      "rogue",
			"kind":      "generic",
			"address":   "https://x",
			"auth_type": "token",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("update keeps secret when omitted", func(t *testing.T) {
		rec := env.do(t, "PATCH", "/api/endpoints/"+created.ID, adminToken, map[string]string{
			"name":      "hq-unifi-renamed",
			"kind":      "unifi",
			"address":   "https://unifi.example.com",
			"auth_type": "userpass",
			"username":  "svc",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		stored, err := env.store.GetEndpoint(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, "hq-unifi-renamed", stored.Name)
		require.NotNil(t, stored.Password)
		assert.Equal(t, "secret", *stored.Password)
	})

	t.Run("admin deletes endpoint", func(t *testing.T) {
		rec := env.do(t, "DELETE", "/api/endpoints/"+created.ID, adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, "DELETE", "/api/endpoints/"+created.ID, adminToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
