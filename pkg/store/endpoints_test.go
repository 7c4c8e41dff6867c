package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateEndpoint(ctx, &Endpoint{
		Name:     "hq-unifi",
		Kind:     "unifi",
		Address:  "https://unifi.example.com",
		AuthType: "userpass",
		Username: strPtr("svc"),
		Password: strPtr("secret"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := s.GetEndpoint(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "hq-unifi", got.Name)
	require.NotNil(t, got.Password)
	assert.Equal(t, "secret", *got.Password)

	got.Name = "hq-unifi-2"
	got.AuthType = "apikey"
	got.APIKey = strPtr("key-123")
	require.NoError(t, s.UpdateEndpoint(ctx, got))

	updated, err := s.GetEndpoint(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "hq-unifi-2", updated.Name)
	assert.Equal(t, "apikey", updated.AuthType)

	require.NoError(t, s.DeleteEndpoint(ctx, created.ID))

	_, err = s.GetEndpoint(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEndpointNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.DeleteEndpoint(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMapsAndSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m, err := s.CreateMap(ctx, "Floor 1")
	require.NoError(t, err)

	maps, err := s.ListMaps(ctx)
	require.NoError(t, err)
	require.Len(t, maps, 1)
	assert.Equal(t, m.ID, maps[0].ID)

	t.Run("unset setting reads empty", func(t *testing.T) {
		v, err := s.GetSetting(ctx, ActiveMapKey)
		require.NoError(t, err)
		assert.Empty(t, v)
	})

	t.Run("set and overwrite", func(t *testing.T) {
		require.NoError(t, s.SetSetting(ctx, ActiveMapKey, m.ID))
		require.NoError(t, s.SetSetting(ctx, ActiveMapKey, "other"))

		v, err := s.GetSetting(ctx, ActiveMapKey)
		require.NoError(t, err)
		assert.Equal(t, "other", v)
	})

	t.Run("delete map and setting", func(t *testing.T) {
		require.NoError(t, s.DeleteMap(ctx, m.ID))
		require.NoError(t, s.DeleteSetting(ctx, ActiveMapKey))
		require.NoError(t, s.DeleteSetting(ctx, ActiveMapKey), "deleting a missing key is fine")
	})
}
