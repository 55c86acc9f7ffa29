package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pharmasim-go/internal/adapters/httpapi"
	"github.com/andrescamacho/pharmasim-go/internal/adapters/metrics"
	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/bootstrap"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/config"
	"github.com/andrescamacho/pharmasim-go/test/helpers"
)

type apiFixture struct {
	server *httptest.Server
	logs   *helpers.MockSimulationLogRepository
	stop   func()
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	cfg := config.Default()
	cfg.Simulation.SessionID = "http-test"
	cfg.Simulation.TickInterval = 5 * time.Millisecond

	engine, err := bootstrap.NewEngine(context.Background(), cfg, bootstrap.Options{
		Snapshots: helpers.NewMemorySnapshotRepository(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Runner.Run(ctx) }()
	require.Eventually(t, func() bool {
		return engine.Runner.Status().Lifecycle == shared.SessionStatusRunning
	}, time.Second, 5*time.Millisecond)

	metrics.InitRegistry()
	collector := metrics.NewHTTPMetricsCollector()
	require.NoError(t, collector.Register())

	logs := helpers.NewMockSimulationLogRepository()
	require.NoError(t, logs.Log(ctx, "http-test", "Task stuck", common.LevelWarning, nil))

	api := httpapi.NewServer(simulation.NewController(engine.Runner))
	api.EnableMetrics("/metrics", collector)
	api.SetLogRepository(logs)
	server := httptest.NewServer(api.Handler())

	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		<-done
	}
	t.Cleanup(func() {
		server.Close()
		stop()
		metrics.Registry = nil
	})
	return &apiFixture{server: server, logs: logs, stop: stop}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp.StatusCode, decoded
}

func TestHealthz_ReflectsRunnerLifecycle(t *testing.T) {
	// Arrange
	f := newAPIFixture(t)

	// Act
	okCode, _ := f.do(t, http.MethodGet, "/healthz", "")
	f.stop()
	downCode, body := f.do(t, http.MethodGet, "/healthz", "")

	// Assert
	assert.Equal(t, http.StatusOK, okCode)
	assert.Equal(t, http.StatusServiceUnavailable, downCode)
	assert.Equal(t, string(shared.SessionStatusStopped), body["status"])
}

func TestStatus_ReturnsSession(t *testing.T) {
	f := newAPIFixture(t)

	code, body := f.do(t, http.MethodGet, "/status?fresh=true", "")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "http-test", body["session_id"])
	assert.Equal(t, true, body["active"])
}

func TestControl_PauseSpeedResume(t *testing.T) {
	// Arrange
	f := newAPIFixture(t)

	// Act
	_, paused := f.do(t, http.MethodPost, "/control/pause", "")
	_, fast := f.do(t, http.MethodPost, "/control/speed", `{"speed": 4}`)
	_, resumed := f.do(t, http.MethodPost, "/control/resume", "")

	// Assert
	assert.Equal(t, true, paused["paused"])
	assert.Equal(t, 4.0, fast["speed"])
	assert.Equal(t, false, resumed["paused"])
}

func TestControl_RejectsBadInput(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"speed out of range", http.MethodPost, "/control/speed", `{"speed": 500}`, http.StatusBadRequest},
		{"speed malformed", http.MethodPost, "/control/speed", `{speed`, http.StatusBadRequest},
		{"start day while open", http.MethodPost, "/control/start-day", "", http.StatusBadRequest},
		{"unknown task type", http.MethodPost, "/tasks", `{"type": "DANCE"}`, http.StatusBadRequest},
		{"force complete missing", http.MethodPost, "/tasks/nope/force-complete", "", http.StatusNotFound},
		{"bad log limit", http.MethodGet, "/logs?limit=-1", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := f.do(t, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.want, code)
			assert.Contains(t, body, "error")
		})
	}
}

func TestTasks_AddListForceComplete(t *testing.T) {
	// Arrange
	f := newAPIFixture(t)
	f.do(t, http.MethodPost, "/control/pause", "")

	// Act
	addCode, added := f.do(t, http.MethodPost, "/tasks", `{"id": "api-1", "type": "consultation"}`)
	dupCode, _ := f.do(t, http.MethodPost, "/tasks", `{"id": "api-1", "type": "consultation"}`)
	_, listed := f.do(t, http.MethodGet, "/tasks", "")
	doneCode, _ := f.do(t, http.MethodPost, "/tasks/api-1/force-complete", "")

	// Assert
	assert.Equal(t, http.StatusCreated, addCode)
	assert.Equal(t, "CONSULTATION", added["type"])
	assert.Equal(t, http.StatusConflict, dupCode)
	assert.GreaterOrEqual(t, listed["count"], 1.0)
	assert.Equal(t, http.StatusOK, doneCode)
}

func TestSweepAndSnapshot(t *testing.T) {
	f := newAPIFixture(t)

	sweepCode, report := f.do(t, http.MethodPost, "/control/sweep", "")
	snapCode, saved := f.do(t, http.MethodPost, "/control/snapshot", "")

	assert.Equal(t, http.StatusOK, sweepCode)
	assert.Contains(t, report, "At")
	assert.Equal(t, http.StatusOK, snapCode)
	assert.Equal(t, "saved", saved["status"])
}

func TestLogs_DefaultsToCurrentSession(t *testing.T) {
	f := newAPIFixture(t)

	code, body := f.do(t, http.MethodGet, "/logs?level=WARNING", "")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "http-test", body["session_id"])
	assert.Len(t, body["logs"], 1)
}

func TestMetrics_ExposesEngineAndHTTPSeries(t *testing.T) {
	// Arrange
	f := newAPIFixture(t)
	f.do(t, http.MethodGet, "/status", "")

	// Act
	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, buf.String(), `pharmasim_http_requests_total{code="200",method="GET",route="/status"}`)
}
