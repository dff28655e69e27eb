package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docmesh/config"
	"github.com/hupe1980/docmesh/core"
	"github.com/hupe1980/docmesh/internal/testutil"
	"github.com/hupe1980/docmesh/metrics"
	"github.com/hupe1980/docmesh/model"
	"github.com/hupe1980/docmesh/orchestrator"
	"github.com/hupe1980/docmesh/runner"
)

func newDocServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	o := orchestrator.New(func(o *orchestrator.Options) {
		o.Listeners = []core.Listener{metrics.NewCollector(reg)}
	})
	agents, err := runner.NewDocumentationAgents(model.NewMockModel("mock", "mock"), config.Default(), nil)
	require.NoError(t, err)
	for _, a := range agents {
		require.NoError(t, o.RegisterAgent(a))
	}

	s := New(o, func(opts *Options) {
		opts.Pipeline = runner.New(o)
		opts.Gatherer = reg
		opts.Version = "test"
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestHealthAndAgents(t *testing.T) {
	ts := newDocServer(t)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/agents", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	agents := body["agents"].([]any)
	require.Len(t, agents, 3)
	first := agents[0].(map[string]any)
	assert.Equal(t, "research", first["id"])
	assert.NotEmpty(t, first["capabilities"])
}

func TestDocumentationFlow(t *testing.T) {
	ts := newDocServer(t)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/documentation", DocumentationRequest{Topic: "Go channels"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["evaluation"].(map[string]any)["success"])
	assert.Len(t, body["results"], 3)
	contextID := body["context_id"].(string)
	require.NotEmpty(t, contextID)

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/contexts/"+contextID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Go channels", body["data"].(map[string]any)["topic"])
	assert.Contains(t, body["metadata"], "documentation")

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/history?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["count"])

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newDocServer(t)
	doJSON(t, http.MethodPost, ts.URL+"/api/v1/documentation", DocumentationRequest{Topic: "x"})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "docmesh_agent_calls_total")
	assert.Contains(t, buf.String(), "docmesh_orchestrations_total")
}

func TestErrorEnvelope(t *testing.T) {
	ts := newDocServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"empty topic", http.MethodPost, "/api/v1/documentation", DocumentationRequest{}, http.StatusBadRequest, "invalid_request"},
		{"bad json", http.MethodPost, "/api/v1/documentation", "{", http.StatusBadRequest, "invalid_request"},
		{"bad mode", http.MethodPost, "/api/v1/documentation", DocumentationRequest{Topic: "x", Mode: "random"}, http.StatusBadRequest, "invalid_request"},
		{"bad limit", http.MethodGet, "/api/v1/history?limit=abc", nil, http.StatusBadRequest, "invalid_request"},
		{"unknown context", http.MethodGet, "/api/v1/contexts/nope", nil, http.StatusNotFound, "not_found"},
		{"unknown orchestration mode", http.MethodPost, "/api/v1/orchestrate", OrchestrateRequest{Mode: "bogus"}, http.StatusBadRequest, "invalid_request"},
		{"unknown route", http.MethodGet, "/api/v2/nothing", nil, http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, tt.method, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestOrchestrate(t *testing.T) {
	o := orchestrator.New()
	require.NoError(t, o.RegisterAgent(testutil.NewAgentBuilder("a").Output("done").Build()))
	ts := httptest.NewServer(New(o).Handler())
	defer ts.Close()

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/orchestrate", OrchestrateRequest{
		Mode: "parallel",
		Data: map[string]any{"k": "v"},
		Plans: []PlanRequest{
			{AgentID: "a", Actions: []core.Action{{Type: "run"}}},
			{AgentID: "ghost"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "parallel", body["mode"])
	results := body["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, true, results[0].(map[string]any)["success"])
	assert.Equal(t, "done", results[0].(map[string]any)["output"])
	assert.Equal(t, "agent not found", results[1].(map[string]any)["error"])
	assert.Equal(t, false, body["evaluation"].(map[string]any)["success"])

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/orchestrate", OrchestrateRequest{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["results"], 1)
}

func TestStrictPipelineFailure(t *testing.T) {
	o := orchestrator.New()
	require.NoError(t, o.RegisterAgent(testutil.NewAgentBuilder("bad").Fail(errors.New("boom")).Build()))
	p := runner.New(o, func(opts *runner.Options) {
		opts.AgentIDs = []string{"bad"}
		opts.ErrorHandling = runner.Strict
	})
	ts := httptest.NewServer(New(o, func(opts *Options) { opts.Pipeline = p }).Handler())
	defer ts.Close()

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/documentation", DocumentationRequest{Topic: "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "pipeline_failed", body["error"])
	assert.Contains(t, body["message"], "boom")
	assert.NotNil(t, body["details"])
}

func TestRecoveryMiddleware(t *testing.T) {
	s := New(orchestrator.New())
	h := s.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("kaboom") }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_error")
}

func TestDocumentationUnavailable(t *testing.T) {
	ts := httptest.NewServer(New(orchestrator.New()).Handler())
	defer ts.Close()

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/documentation", DocumentationRequest{Topic: "x"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unavailable", body["error"])
}
