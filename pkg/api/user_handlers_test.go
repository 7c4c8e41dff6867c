package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netfusion/netfusion/pkg/auth"
	"github.com/netfusion/netfusion/pkg/store"
)

func TestUserAPI(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin@example.com", auth.RoleAdmin)
	_, userToken := env.createUser(t, "user@example.com", auth.RoleUser)

	t.Run("non-admin cannot list", func(t *testing.T) {
		rec := env.do(t, "GET", "/api/users", userToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin lists users", func(t *testing.T) {
		rec := env.do(t, "GET", "/api/users", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var users []store.User
		decodeBody(t, rec, &users)
		assert.Len(t, users, 2)
	})

	t.Run("admin creates user", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/users", adminToken, map[string]string{
			"email":    "New@Example.com",
			"role":     "read_only",
			"password": "password123",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var user store.User
		decodeBody(t, rec, &user)
		assert.Equal(t, "new@example.com", user.Email)
		assert.Equal(t, auth.RoleReadOnly, user.Role)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/users", adminToken, map[string]string{
			"email":    "new@example.com",
			"role":     "user",
			"password": "password123",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid role rejected", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/users", adminToken, map[string]string{
			"email":    "another@example.com",
			"role":     "superadmin",
			"password": "password123",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("short password rejected", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/users", adminToken, map[string]string{
			"email":    "another@example.com",
			"role":     "user",
			"password": "short",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("admin disables a user", func(t *testing.T) {
		var users []store.User
		rec := env.do(t, "GET", "/api/users", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		decodeBody(t, rec, &users)

		var target store.User
		for _, u := range users {
			if u.Email == "user@example.com" {
				target = u
			}
		}
		require.NotZero(t, target.ID)

		enabled := false
		rec = env.do(t, "PATCH", "/api/users/"+itoa(target.ID), adminToken,
			map[string]interface{}{"enabled": enabled})
		require.Equal(t, http.StatusOK, rec.Code)

		// The disabled user can no longer log in.
		login := env.do(t, "POST", "/api/auth/login", "", map[string]string{
			"email":    "user@example.com",
			"password": "password123",
		})
		assert.Equal(t, http.StatusUnauthorized, login.Code)
	})
}
