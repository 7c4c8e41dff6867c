package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netfusion/netfusion/pkg/auth"
)

func TestCountEntities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	counts, err := s.CountEntities(ctx)
	require.NoError(t, err)
	assert.Equal(t, EntityCounts{}, counts)

	_, err = s.CreateUser(ctx, "owner@example.com", auth.RoleOwner, "hash")
	require.NoError(t, err)
	_, err = s.CreateSite(ctx, "HQ")
	require.NoError(t, err)
	_, err = s.UpsertDeviceByMAC(ctx, "aa:bb:cc:dd:ee:01", nil, nil, nil)
	require.NoError(t, err)
	_, err = s.UpsertDeviceByMAC(ctx, "aa:bb:cc:dd:ee:02", nil, nil, nil)
	require.NoError(t, err)

	counts, err = s.CountEntities(ctx)
	require.NoError(t, err)
	assert.Equal(t, EntityCounts{Users: 1, Sites: 1, Devices: 2}, counts)
}

func TestObserverReceivesOperations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	type outcome struct {
		operation string
		failed    bool
	}
	var observed []outcome
	s.SetObserver(func(operation string, err error, _ time.Duration) {
		observed = append(observed, outcome{operation, err != nil})
	})

	_, err := s.CreateUser(ctx, "ops@example.com", auth.RoleUser, "hash")
	require.NoError(t, err)
	_, err = s.CreateSite(ctx, "HQ")
	require.NoError(t, err)

	// Duplicate email fails and must be reported as such.
	_, err = s.CreateUser(ctx, "ops@example.com", auth.RoleUser, "hash")
	require.ErrorIs(t, err, ErrConflict)

	assert.Contains(t, observed, outcome{"create_user", false})
	assert.Contains(t, observed, outcome{"create_site", false})
	assert.Contains(t, observed, outcome{"create_user", true})
}
