package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netwatch-oss/triggerkit/internal/datastore/entities"
)

func TestHostRepository_CreateWithItems(t *testing.T) {
	db := setupTriggerTestDB(t)
	repo := NewHostRepository(db)
	ctx := t.Context()

	host := &entities.Host{
		Hostname: "core-sw-01",
		Items: []entities.Item{
			{Name: "mem_used", OID: "1.3.6.1.4.1.9.9.48.1.1.1.5", Unit: "%", Interval: 60},
			{Name: "cpu_load", OID: "1.3.6.1.4.1.9.2.1.58.0", Unit: "%", Interval: 30},
		},
	}
	require.NoError(t, repo.CreateHost(ctx, host))
	assert.NotEmpty(t, host.ID)

	got, err := repo.GetHost(ctx, host.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "cpu_load", got.Items[0].Name, "items sorted by name")
	assert.NotEmpty(t, got.Items[0].ID)
	assert.Equal(t, 30, got.Items[0].Interval)
}

func TestHostRepository_AddItem(t *testing.T) {
	db := setupTriggerTestDB(t)
	repo := NewHostRepository(db)
	ctx := t.Context()
	host := createTestHost(t, db, "edge-rtr-02")

	require.NoError(t, repo.AddItem(ctx, host.ID, &entities.Item{Name: "if_in_errors"}))
	require.ErrorIs(t, repo.AddItem(ctx, "missing", &entities.Item{Name: "x"}), ErrHostNotFound)

	got, err := repo.GetHost(ctx, host.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, host.ID, got.Items[0].HostID)
}

func TestHostRepository_ListAndNotFound(t *testing.T) {
	db := setupTriggerTestDB(t)
	repo := NewHostRepository(db)
	ctx := t.Context()
	createTestHost(t, db, "zeta")
	createTestHost(t, db, "alpha")

	hosts, err := repo.ListHosts(ctx)
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	assert.Equal(t, "alpha", hosts[0].Hostname)

	_, err = repo.GetHost(ctx, "missing")
	require.ErrorIs(t, err, ErrHostNotFound)
}
