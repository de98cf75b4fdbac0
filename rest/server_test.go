package rest_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/tommyyama2020/corda/cluster"
	"github.com/tommyyama2020/corda/config"
	"github.com/tommyyama2020/corda/container"
	"github.com/tommyyama2020/corda/executor"
	"github.com/tommyyama2020/corda/flow"
	"github.com/tommyyama2020/corda/model"
	"github.com/tommyyama2020/corda/rest"
	"github.com/tommyyama2020/corda/service"
)

func newTestServer(t *testing.T) *rest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	ring := cluster.NewRing(cluster.RingConfig{PartitionCount: 4})
	require.NoError(t, ring.Join("local", "", true))

	c := container.NewDiContainer(ring)
	conf := config.Config{
		RedisConfig: config.RedisStorageConfig{
			Addrs:     []string{mr.Addr()},
			Namespace: "test",
		},
		StorageType:        config.STORAGE_TYPE_REDIS,
		EncoderDecoderType: config.JSON_ENCODER_DECODER,
	}
	require.NoError(t, c.Init(conf))
	t.Cleanup(func() { c.GetTimerManager().Stop() })

	ex := executor.NewActionExecutor(c, 16, nil)
	manager := flow.NewManager(c, ex, time.Minute, time.Second)
	svc := service.NewFlowExecutionService(c, manager)
	server, err := rest.NewServer(0, c, svc)
	require.NoError(t, err)
	return server
}

func TestStartAndQueryFlow(t *testing.T) {
	server := newTestServer(t)

	body := `{"name":"payment","input":{"amount":100}}`
	req := httptest.NewRequest(http.MethodPost, "/flow", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var started map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	flowId := started["flowId"]
	require.NotEmpty(t, flowId)

	req = httptest.NewRequest(http.MethodGet, "/flow/"+flowId, nil)
	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		FlowId string          `json:"flowId"`
		State  model.FlowState `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, flowId, status.FlowId)
	require.Equal(t, model.RUNNING, status.State)
}

func TestGetUnknownFlow(t *testing.T) {
	server := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/flow/no-such-flow", nil)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommitTransactionEndpoint(t *testing.T) {
	server := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/transaction/ABCD/commit", nil)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "flows_checkpointing_rate")
}
