package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/netwatch-oss/triggerkit/internal/datastore"
	"github.com/netwatch-oss/triggerkit/internal/datastore/entities"
	"github.com/netwatch-oss/triggerkit/internal/observability/metrics"
	"github.com/netwatch-oss/triggerkit/internal/publish"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []publish.Change
}

func (p *recordingPublisher) Publish(c publish.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
}

func (p *recordingPublisher) actions() []publish.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publish.Action, 0, len(p.changes))
	for _, c := range p.changes {
		out = append(out, c.Action)
	}
	return out
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=ON", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, datastore.Migrate(db))
	return db
}

type testServer struct {
	ctrl  *Controller
	pub   *recordingPublisher
	stats *metrics.Metrics
	host  *entities.Host
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	db := setupTestDB(t)
	ts := &testServer{pub: &recordingPublisher{}, stats: metrics.New(false)}
	opts = append([]Option{WithPublisher(ts.pub), WithMetrics(ts.stats)}, opts...)
	ts.ctrl = New(db, opts...)

	ts.host = &entities.Host{Hostname: "core-sw-01", Items: []entities.Item{{Name: "cpu_load"}, {Name: "mem_used"}}}
	require.NoError(t, ts.ctrl.hosts.CreateHost(t.Context(), ts.host))
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	ts.ctrl.Echo.ServeHTTP(rec, req)
	return rec
}

func validWrite(hostID, name string) entities.TriggerWrite {
	return entities.TriggerWrite{
		HostID:            hostID,
		TriggerName:       name,
		Severity:          "high",
		OKEventGeneration: "expression",
		Enabled:           true,
		ExpressionPart: []entities.Part{
			{Item: "cpu_load", FunctionOfItem: "avg", Duration: 15, Operation: ">", Value: "90", Operator: "and"},
			{Item: "mem_used", FunctionOfItem: "max", Operation: ">=", Value: "80"},
		},
		UserName: "alice",
		UserRole: "admin",
	}
}

func decodeEnvelope[T any](t *testing.T, rec *httptest.ResponseRecorder) entities.Envelope[T] {
	t.Helper()
	var env entities.Envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestCreateTrigger_StoresRecompiledExpression(t *testing.T) {
	ts := newTestServer(t)

	w := validWrite(ts.host.ID, "High CPU")
	w.Expression = "something stale"
	rec := ts.do(t, http.MethodPost, "/trigger", w)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	env := decodeEnvelope[entities.Trigger](t, rec)
	assert.Equal(t, entities.StatusSuccess, env.Status)
	assert.NotEmpty(t, env.Data.ID)
	assert.Equal(t, "avg(cpu_load,15m) > 90 and max(mem_used) >= 80", env.Data.Expression)
	assert.Equal(t, "alice", env.Data.CreatedBy)
	assert.Len(t, env.Data.ExpressionParts, 2)
	assert.Equal(t, []publish.Action{publish.ActionCreated}, ts.pub.actions())
}

func TestCreateTrigger_ValidationFailure(t *testing.T) {
	ts := newTestServer(t)

	w := validWrite(ts.host.ID, "")
	w.Severity = "catastrophic"
	w.ExpressionPart = []entities.Part{{Item: "cpu_load", FunctionOfItem: "avg"}}
	rec := ts.do(t, http.MethodPost, "/trigger", w)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeEnvelope[validationFailure](t, rec)
	assert.Equal(t, entities.StatusError, env.Status)
	assert.True(t, env.Data.Report.Name)
	assert.True(t, env.Data.Report.Severity)
	assert.True(t, env.Data.Report.Expression)
	assert.Len(t, env.Data.Report.Clauses, 1)
	assert.Contains(t, env.Message, "trigger_name")
	assert.Empty(t, ts.pub.actions(), "nothing published for rejected writes")
}

func TestCreateTrigger_Errors(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/trigger", validWrite(ts.host.ID, "dup")).Code)

	tests := []struct {
		name string
		body entities.TriggerWrite
		code int
	}{
		{"missing host", validWrite("", "x"), http.StatusBadRequest},
		{"unknown host", validWrite("nope", "x"), http.StatusNotFound},
		{"duplicate name", validWrite(ts.host.ID, "dup"), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/trigger", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Equal(t, entities.StatusError, decodeEnvelope[any](t, rec).Status)
		})
	}
}

func TestListTriggers_GroupedByHost(t *testing.T) {
	ts := newTestServer(t)
	other := &entities.Host{Hostname: "edge-rtr-02"}
	require.NoError(t, ts.ctrl.hosts.CreateHost(t.Context(), other))

	for _, w := range []entities.TriggerWrite{
		validWrite(ts.host.ID, "T1"),
		validWrite(other.ID, "T2"),
		validWrite(ts.host.ID, "T3"),
	} {
		require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/trigger", w).Code)
	}

	env := decodeEnvelope[[]entities.HostGroup](t, ts.do(t, http.MethodGet, "/trigger", nil))
	require.Len(t, env.Data, 2)
	assert.Equal(t, "core-sw-01", env.Data[0].Host.Hostname)
	require.Len(t, env.Data[0].Triggers, 2)
	assert.Equal(t, "T1", env.Data[0].Triggers[0].Name)
	assert.Equal(t, "T3", env.Data[0].Triggers[1].Name)
	assert.Equal(t, "edge-rtr-02", env.Data[1].Host.Hostname)

	filtered := decodeEnvelope[[]entities.HostGroup](t, ts.do(t, http.MethodGet, "/trigger?host_id="+other.ID, nil))
	require.Len(t, filtered.Data, 1)
	assert.Equal(t, "T2", filtered.Data[0].Triggers[0].Name)
}

func TestUpdateTrigger(t *testing.T) {
	ts := newTestServer(t)
	created := decodeEnvelope[entities.Trigger](t, ts.do(t, http.MethodPost, "/trigger", validWrite(ts.host.ID, "T1")))

	w := validWrite("ignored-host", "T1 renamed")
	w.OKEventGeneration = "recovery expression"
	w.ExpressionRecoveryPart = []entities.Part{{Item: "cpu_load", FunctionOfItem: "avg", Operation: "<", Value: "50"}}
	w.UserName = "bob"
	rec := ts.do(t, http.MethodPut, "/trigger/"+created.Data.ID, w)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decodeEnvelope[entities.Trigger](t, rec)
	assert.Equal(t, "T1 renamed", env.Data.Name)
	assert.Equal(t, ts.host.ID, env.Data.HostID)
	assert.Equal(t, "avg(cpu_load) < 50", env.Data.RecoveryExpression)
	assert.Equal(t, "alice", env.Data.CreatedBy)
	assert.Equal(t, "bob", env.Data.UpdatedBy)

	w2 := w
	w2.Enabled = false
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, "/trigger/"+created.Data.ID, w2).Code)
	assert.Equal(t, []publish.Action{publish.ActionCreated, publish.ActionUpdated, publish.ActionToggled}, ts.pub.actions())

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPut, "/trigger/missing", w).Code)
}

func TestToggleTrigger(t *testing.T) {
	ts := newTestServer(t)
	created := decodeEnvelope[entities.Trigger](t, ts.do(t, http.MethodPost, "/trigger", validWrite(ts.host.ID, "T1")))

	rec := ts.do(t, http.MethodPatch, "/trigger/"+created.Data.ID+"/toggle", map[string]any{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeEnvelope[entities.Trigger](t, rec).Data.Enabled)

	assert.Equal(t, http.StatusNotFound,
		ts.do(t, http.MethodPatch, "/trigger/missing/toggle", map[string]any{"enabled": true}).Code)
}

func TestDeleteTrigger(t *testing.T) {
	ts := newTestServer(t)
	created := decodeEnvelope[entities.Trigger](t, ts.do(t, http.MethodPost, "/trigger", validWrite(ts.host.ID, "T1")))
	path := "/trigger/" + created.Data.ID

	rec := ts.do(t, http.MethodDelete, path, entities.TriggerDelete{UserName: "alice", UserRole: "admin", TriggerName: "other"})
	assert.Equal(t, http.StatusConflict, rec.Code, "name mismatch is rejected")

	rec = ts.do(t, http.MethodDelete, path, entities.TriggerDelete{UserName: "alice", UserRole: "admin", TriggerName: "T1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, path, nil).Code)
	assert.Equal(t, []publish.Action{publish.ActionCreated, publish.ActionDeleted}, ts.pub.actions())
}

func TestWriteEndpointsRequireToken(t *testing.T) {
	ts := newTestServer(t, WithToken("s3cret"))

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/trigger", validWrite(ts.host.ID, "T1")).Code)
	assert.Equal(t, http.StatusUnauthorized,
		ts.do(t, http.MethodPost, "/trigger", validWrite(ts.host.ID, "T1"), "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusCreated,
		ts.do(t, http.MethodPost, "/trigger", validWrite(ts.host.ID, "T1"), "Authorization", "Bearer s3cret").Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/trigger", nil).Code, "reads stay open")
}

func TestHosts(t *testing.T) {
	ts := newTestServer(t)

	env := decodeEnvelope[entities.Host](t, ts.do(t, http.MethodGet, "/host/"+ts.host.ID, nil))
	require.Len(t, env.Data.Items, 2)
	assert.Equal(t, "cpu_load", env.Data.Items[0].Name)

	rec := ts.do(t, http.MethodPost, "/host/"+ts.host.ID+"/item", entities.Item{Name: "if_in_errors", Unit: "pps"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPost, "/host", entities.Host{Hostname: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/host", entities.Host{Hostname: "lab-ap-07"})
	require.Equal(t, http.StatusCreated, rec.Code)

	list := decodeEnvelope[[]entities.Host](t, ts.do(t, http.MethodGet, "/host", nil))
	require.Len(t, list.Data, 2)
	assert.Equal(t, "core-sw-01", list.Data[0].Hostname)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/host/missing", nil).Code)
}

func TestSchemaAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/trigger/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "recovery expression")

	rec = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `triggerkit_http_requests_total{method="GET",route="/trigger/schema",status="200"} 1`)
}
