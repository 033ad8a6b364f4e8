package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/netwatch-oss/triggerkit/internal/api"
	"github.com/netwatch-oss/triggerkit/internal/datastore"
	"github.com/netwatch-oss/triggerkit/internal/datastore/entities"
	"github.com/netwatch-oss/triggerkit/internal/datastore/repository"
	"github.com/netwatch-oss/triggerkit/internal/lifecycle"
	"github.com/netwatch-oss/triggerkit/internal/trigger"
)

func TestParseClauseSpec(t *testing.T) {
	t.Parallel()

	spec, err := parseClauseSpec("item=cpu_load, fn=avg,window=15m,op=>,value=90")
	require.NoError(t, err)
	assert.Equal(t, clauseSpec{
		trigger.FieldItem:      "cpu_load",
		trigger.FieldFunction:  "avg",
		trigger.FieldWindow:    "15m",
		trigger.FieldOperation: ">",
		trigger.FieldThreshold: "90",
	}, spec)

	_, err = parseClauseSpec("item")
	require.Error(t, err)
	_, err = parseClauseSpec("colour=red")
	require.ErrorIs(t, err, trigger.ErrUnknownField)
	_, err = parseClauseSpec(" , ")
	require.Error(t, err)
}

func TestParseItemSpec(t *testing.T) {
	t.Parallel()

	it, err := parseItemSpec("cpu_load:%")
	require.NoError(t, err)
	assert.Equal(t, trigger.Item{Name: "cpu_load", Unit: "%"}, it)

	it, err = parseItemSpec("if_in_octets")
	require.NoError(t, err)
	assert.Empty(t, it.Unit)

	_, err = parseItemSpec(":ms")
	require.Error(t, err)
}

func TestReplaceChain(t *testing.T) {
	t.Parallel()

	s := lifecycle.NewSession(nil, nil)
	d := s.NewDraft("h1")
	blank := d.Chain(lifecycle.ChainPrimary)[0].ID

	err := replaceChain(d, lifecycle.ChainPrimary, []string{
		"item=cpu_load,fn=avg,window=15m,op=>,value=90,join=and",
		"item=mem_used,fn=last,op=>=,value=80",
	})
	require.NoError(t, err)

	chain := d.Chain(lifecycle.ChainPrimary)
	require.Len(t, chain, 2)
	assert.NotEqual(t, blank, chain[0].ID)
	assert.Equal(t, "cpu_load", chain[0].Item)
	assert.Equal(t, "mem_used", chain[1].Item)
	assert.Equal(t, "avg(cpu_load,15m) > 90 and last(mem_used) >= 80", trigger.Compile(chain))

	err = replaceChain(d, lifecycle.ChainPrimary, []string{"item=x,op=~"})
	require.Error(t, err)
}

func TestDescribeReport(t *testing.T) {
	t.Parallel()

	r := trigger.ValidationReport{
		Name:    true,
		Clauses: map[string]trigger.ClauseErrors{"c1": {Operation: true, Threshold: true}},
	}
	err := describeReport(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trigger_name")
	assert.Contains(t, err.Error(), "clause c1: operation, value")
}

type cliFixture struct {
	url  string
	host *entities.Host
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=ON", t.Name())),
		&gorm.Config{Logger: gorm_logger.Default.LogMode(gorm_logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, datastore.Migrate(db))

	host := &entities.Host{Hostname: "core-sw-01", Items: []entities.Item{{Name: "cpu_load", Unit: "%"}}}
	require.NoError(t, repository.NewHostRepository(db).CreateHost(t.Context(), host))

	srv := httptest.NewServer(api.New(db).Echo)
	t.Cleanup(srv.Close)
	return &cliFixture{url: srv.URL, host: host}
}

func (f *cliFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand(&out)
	root.SetArgs(append([]string{"--base-url", f.url, "--user", "alice", "--log-level", "error"}, args...))
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestTriggersCommands(t *testing.T) {
	f := newCLIFixture(t)

	out, err := f.run(t, "triggers", "create", "--json",
		"--host", f.host.ID,
		"--name", "High CPU",
		"--severity", "high",
		"--clause", "item=cpu_load,fn=avg,window=15m,op=>,value=90")
	require.NoError(t, err)
	var created trigger.Trigger
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "avg(cpu_load,15m) > 90", created.Expression)
	assert.True(t, created.Enabled)

	out, err = f.run(t, "triggers", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "High CPU")
	assert.Contains(t, out, "core-sw-01")
	assert.Contains(t, out, "avg(cpu_load,15m) > 90")

	out, err = f.run(t, "triggers", "update", created.ID, "--name", "CPU saturated",
		"--clause", "item=cpu_load,fn=last,op=>=,value=95")
	require.NoError(t, err)
	assert.Contains(t, out, "CPU saturated")
	assert.Contains(t, out, "last(cpu_load) >= 95")

	out, err = f.run(t, "triggers", "toggle", created.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "enabled=false")

	out, err = f.run(t, "triggers", "groups", "--json")
	require.NoError(t, err)
	var groups []trigger.HostGroup
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "core-sw-01", groups[0].Hostname)
	require.Len(t, groups[0].Triggers, 1)
	assert.False(t, groups[0].Triggers[0].Enabled)

	out, err = f.run(t, "triggers", "delete", created.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+created.ID)

	out, err = f.run(t, "triggers", "list", "--json")
	require.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(out))
}

func TestTriggersCreate_ValidationFailure(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.run(t, "triggers", "create", "--host", f.host.ID,
		"--severity", "high", "--clause", "item=cpu_load,op=>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trigger_name")
	assert.Contains(t, err.Error(), "value")
}

func TestHostsCommands(t *testing.T) {
	f := newCLIFixture(t)

	out, err := f.run(t, "hosts", "create", "edge-rtr-02", "--item", "if_in_octets:bps", "--item", "uptime")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out, err = f.run(t, "hosts", "items", id, "--json")
	require.NoError(t, err)
	var items []trigger.Item
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "if_in_octets", items[0].Name)
	assert.Equal(t, "bps", items[0].Unit)

	_, err = f.run(t, "hosts", "items", "missing")
	require.Error(t, err)
}
