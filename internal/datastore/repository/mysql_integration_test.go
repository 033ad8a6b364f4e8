//go:build integration

package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/netwatch-oss/triggerkit/internal/conf"
	"github.com/netwatch-oss/triggerkit/internal/datastore"
	"github.com/netwatch-oss/triggerkit/internal/datastore/entities"
	"github.com/netwatch-oss/triggerkit/internal/datastore/repository"
	"github.com/netwatch-oss/triggerkit/internal/testutil/containers"
)

var (
	mysqlContainer *containers.MySQLContainer
	testDB         *gorm.DB
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	mysqlContainer, err = containers.NewMySQLContainer(ctx, nil)
	if err != nil {
		panic("failed to create MySQL container: " + err.Error())
	}

	testDB, err = datastore.Open(conf.DatabaseSettings{Driver: "mysql", DSN: mysqlContainer.DSN(), MaxOpenConns: 5})
	if err != nil {
		_ = mysqlContainer.Terminate(ctx)
		panic("failed to open gorm database: " + err.Error())
	}

	code := m.Run()

	if sqlDB, err := testDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := mysqlContainer.Terminate(ctx); err != nil {
		panic("failed to terminate MySQL container: " + err.Error())
	}
	os.Exit(code)
}

func resetTables(t *testing.T) {
	t.Helper()
	require.NoError(t, mysqlContainer.Truncate(t.Context(),
		"trigger_recovery_parts", "trigger_expression_parts", "triggers", "items", "hosts"))
}

func TestMySQL_TriggerLifecycle(t *testing.T) {
	resetTables(t)
	ctx := t.Context()
	hosts := repository.NewHostRepository(testDB)
	triggers := repository.NewTriggerRepository(testDB)

	host := &entities.Host{Hostname: "core-sw-01", Items: []entities.Item{{Name: "cpu_load", Unit: "%"}}}
	require.NoError(t, hosts.CreateHost(ctx, host))

	tr := &entities.Trigger{
		HostID:             host.ID,
		Name:               "High CPU",
		Severity:           "high",
		Expression:         "avg(cpu_load,15m) > 90",
		OKEventGeneration:  "recovery expression",
		RecoveryExpression: "avg(cpu_load,15m) < 50",
		Enabled:            true,
		CreatedBy:          "alice",
		ExpressionParts: []entities.ExpressionPart{
			{Part: entities.Part{Item: "cpu_load", FunctionOfItem: "avg", Duration: 15, Operation: ">", Value: "90"}},
		},
		RecoveryParts: []entities.RecoveryPart{
			{Part: entities.Part{Item: "cpu_load", FunctionOfItem: "avg", Duration: 15, Operation: "<", Value: "50"}},
		},
	}
	require.NoError(t, triggers.CreateTrigger(ctx, tr))

	groups, err := triggers.ListGrouped(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "core-sw-01", groups[0].Host.Hostname)
	require.Len(t, groups[0].Triggers, 1)
	assert.Len(t, groups[0].Triggers[0].RecoveryParts, 1)

	tr.OKEventGeneration = "none"
	tr.RecoveryExpression = ""
	tr.RecoveryParts = nil
	tr.UpdatedBy = "bob"
	require.NoError(t, triggers.UpdateTrigger(ctx, tr))

	got, err := triggers.GetTrigger(ctx, tr.ID)
	require.NoError(t, err)
	assert.Empty(t, got.RecoveryParts)
	assert.Equal(t, "alice", got.CreatedBy)
	assert.Equal(t, "bob", got.UpdatedBy)

	require.NoError(t, triggers.ToggleTrigger(ctx, tr.ID, false))
	require.NoError(t, triggers.DeleteTrigger(ctx, tr.ID))
	_, err = triggers.GetTrigger(ctx, tr.ID)
	require.ErrorIs(t, err, repository.ErrTriggerNotFound)

	var orphans int64
	require.NoError(t, testDB.Model(&entities.ExpressionPart{}).Count(&orphans).Error)
	assert.Zero(t, orphans, "parts cascade with their trigger")
}
