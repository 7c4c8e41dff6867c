package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netfusion/netfusion/pkg/auth"
	"github.com/netfusion/netfusion/pkg/store"
)

func uploadImage(t *testing.T, env *testEnv, token, mapID, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/maps/"+mapID+"/image", bytes.NewReader(data))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func TestMapAPI(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin@example.com", auth.RoleAdmin)
	_, userToken := env.createUser(t, "user@example.com", auth.RoleUser)

	var created store.NetworkMap

	t.Run("create", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/maps", adminToken, map[string]string{"name": "Floor 1"})
		require.Equal(t, http.StatusCreated, rec.Code)
		decodeBody(t, rec, &created)
		assert.NotEmpty(t, created.ID)
	})

	t.Run("list visible to users", func(t *testing.T) {
		rec := env.do(t, "GET", "/api/maps", userToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var maps []store.NetworkMap
		decodeBody(t, rec, &maps)
		assert.Len(t, maps, 1)
	})

	t.Run("no active map initially", func(t *testing.T) {
		rec := env.do(t, "GET", "/api/maps/active", userToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]*store.NetworkMap
		decodeBody(t, rec, &body)
		assert.Nil(t, body["map"])
	})

	t.Run("set active", func(t *testing.T) {
		rec := env.do(t, "PATCH", "/api/maps/active", adminToken, map[string]string{"map_id": created.ID})
		require.Equal(t, http.StatusOK, rec.Code)

		get := env.do(t, "GET", "/api/maps/active", userToken, nil)
		require.Equal(t, http.StatusOK, get.Code)

		var body map[string]*store.NetworkMap
		decodeBody(t, get, &body)
		require.NotNil(t, body["map"])
		assert.Equal(t, created.ID, body["map"].ID)
	})

	t.Run("set active to unknown map", func(t *testing.T) {
		rec := env.do(t, "PATCH", "/api/maps/active", adminToken, map[string]string{"map_id": "nope"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("image upload and serve", func(t *testing.T) {
		rec := uploadImage(t, env, adminToken, created.ID, "image/png", []byte("png-bytes"))
		require.Equal(t, http.StatusOK, rec.Code)

		get := env.do(t, "GET", "/api/maps/"+created.ID+"/image", userToken, nil)
		require.Equal(t, http.StatusOK, get.Code)
		assert.Equal(t, "image/png", get.Header().Get("Content-Type"))
		assert.Equal(t, "png-bytes", get.Body.String())
	})

	t.Run("upload rejects unsupported type", func(t *testing.T) {
		rec := uploadImage(t, env, adminToken, created.ID, "image/gif", []byte("gif"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("upload to unknown map", func(t *testing.T) {
		rec := uploadImage(t, env, adminToken, "nope", "image/png", []byte("png"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("reads require user role", func(t *testing.T) {
		_, viewerToken := env.createUser(t, "viewer@example.com", auth.RoleReadOnly)

		for _, path := range []string{"/api/maps", "/api/maps/active", "/api/maps/" + created.ID + "/image"} {
			rec := env.do(t, "GET", path, viewerToken, nil)
			assert.Equal(t, http.StatusForbidden, rec.Code, path)
		}
	})

	t.Run("delete clears image and active pointer", func(t *testing.T) {
		rec := env.do(t, "DELETE", "/api/maps/"+created.ID, adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		active := env.do(t, "GET", "/api/maps/active", userToken, nil)
		require.Equal(t, http.StatusOK, active.Code)

		var body map[string]*store.NetworkMap
		decodeBody(t, active, &body)
		assert.Nil(t, body["map"])

		img := env.do(t, "GET", "/api/maps/"+created.ID+"/image", userToken, nil)
		assert.Equal(t, http.StatusNotFound, img.Code)
	})
}
