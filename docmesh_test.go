package docmesh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docmesh/config"
	"github.com/hupe1980/docmesh/core"
	tu "github.com/hupe1980/docmesh/internal/testutil"
	"github.com/hupe1980/docmesh/runner"
)

func TestNew_Defaults(t *testing.T) {
	rec := &tu.EventRecorder{}
	m := New(func(o *Options) {
		o.Listeners = []core.Listener{rec}
		o.Pipeline = []func(o *runner.Options){func(o *runner.Options) { o.AgentIDs = []string{"a"} }}
	})
	assert.Nil(t, m.Metrics())
	require.NoError(t, m.RegisterAgent(tu.NewAgentBuilder("a").Output("x").Build()))

	res, err := m.Generate(context.Background(), "topic", runner.ModeSequential)
	require.NoError(t, err)
	assert.True(t, res.Evaluation.Success)
	assert.NotEmpty(t, rec.OfType(core.EventOrchestrationComplete))
	assert.NoError(t, m.Close(context.Background()))
}

func TestFromConfig_Mock(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Provider = "mock"
	cfg.Log.Level = "error"
	reg := prometheus.NewRegistry()

	m, err := FromConfig(context.Background(), cfg, reg)
	require.NoError(t, err)
	defer m.Close(context.Background())

	assert.Len(t, m.Orchestrator().Agents(), 3)

	res, err := m.Generate(context.Background(), "Go generics", runner.ModeParallel)
	require.NoError(t, err)
	assert.Len(t, res.Results, 3)
	require.NotNil(t, m.Metrics())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().Orchestrations.WithLabelValues(string(core.ModeParallel))))

	ts := httptest.NewServer(m.Handler(reg))
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFromConfig_MissingCredential(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := config.Default()
	cfg.Model.Provider = "openai"
	cfg.Model.APIKey = ""

	_, err := FromConfig(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, core.ErrMissingCredential)
}
