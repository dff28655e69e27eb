package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docmesh/agent"
	"github.com/hupe1980/docmesh/config"
	"github.com/hupe1980/docmesh/core"
	"github.com/hupe1980/docmesh/history"
	"github.com/hupe1980/docmesh/internal/testutil"
	"github.com/hupe1980/docmesh/model"
	"github.com/hupe1980/docmesh/orchestrator"
)

func newOrchestrator(t *testing.T, agents ...core.Agent) *orchestrator.Orchestrator {
	t.Helper()
	o := orchestrator.New()
	for _, a := range agents {
		require.NoError(t, o.RegisterAgent(a))
	}
	return o
}

// flakyAgent fails its first n executions.
type flakyAgent struct {
	agent.BaseAgent
	failures int32
	calls    atomic.Int32
}

func (a *flakyAgent) Execute(_ context.Context, rc *core.RunContext, plan *core.Plan) (*core.ExecutionResult, error) {
	if a.calls.Add(1) <= a.failures {
		return nil, errors.New("transient")
	}
	rc.SetMetadata(a.ID(), "ok")
	res := core.NewSuccessResult(a.ID(), "ok", time.Now())
	res.PlanID = plan.ID
	return res, nil
}

func TestPipeline_Sequential(t *testing.T) {
	m := model.NewMockModel("gpt-4o", "mock")
	agents, err := NewDocumentationAgents(m, config.Default(), nil)
	require.NoError(t, err)

	o := newOrchestrator(t, agents...)
	res, err := New(o).Run(context.Background(), Request{Topic: "Go channels", Data: map[string]any{"content": "notes"}})
	require.NoError(t, err)

	assert.Equal(t, ModeSequential, res.Mode)
	assert.Equal(t, 1, res.Attempts)
	require.Len(t, res.Results, 3)
	for i, id := range DefaultAgentIDs {
		assert.Equal(t, id, res.Results[i].AgentID)
		assert.True(t, res.Results[i].Success, res.Results[i].Error)
	}
	assert.True(t, res.Evaluation.Success)
	require.NotNil(t, res.Document)
	require.NotNil(t, res.Prompt)
	assert.Equal(t, "Go channels", res.Document.Topic)
	assert.Contains(t, res.Outputs, agent.ResearchAgentID)
	assert.Greater(t, res.Usage.Tokens, int64(0))
	assert.Len(t, m.Calls(), 2)

	rc, ok := o.Context(res.ContextID)
	require.True(t, ok)
	assert.Equal(t, "Go channels", rc.GetString("topic"))
	assert.Equal(t, "notes", rc.GetString("content"))

	n, err := o.History().Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPipeline_Autonomous(t *testing.T) {
	agents, err := NewDocumentationAgents(model.NewMockModel("mock", "mock"), config.Default(), nil)
	require.NoError(t, err)

	o := newOrchestrator(t, agents[2], agents[0], agents[1])
	res, err := New(o).Run(context.Background(), Request{Topic: "gRPC", Mode: ModeAutonomous})
	require.NoError(t, err)

	require.Len(t, res.Results, 3)
	for i, id := range DefaultAgentIDs {
		assert.Equal(t, id, res.Results[i].AgentID)
	}
	assert.True(t, res.Evaluation.Success)
}

func TestPipeline_ParallelErrorHandling(t *testing.T) {
	o := newOrchestrator(t,
		testutil.NewAgentBuilder("a").Delay(20*time.Millisecond).Build(),
		testutil.NewAgentBuilder("b").Fail(errors.New("boom")).Build(),
	)
	ids := []string{"a", "b", "missing"}

	lenient := New(o, func(o *Options) { o.AgentIDs = ids })
	res, err := lenient.Run(context.Background(), Request{Topic: "x", Mode: ModeParallel})
	require.NoError(t, err)
	require.Len(t, res.Results, 3)
	assert.True(t, res.Results[0].Success)
	assert.Equal(t, "boom", res.Results[1].Error)
	assert.Contains(t, res.Results[2].Error, "agent not found")
	assert.False(t, res.Evaluation.Success)
	assert.Equal(t, 1, res.Attempts)

	strict := New(o, func(o *Options) {
		o.AgentIDs = ids
		o.ErrorHandling = Strict
		o.MaxRetries = 3
	})
	res, err = strict.Run(context.Background(), Request{Topic: "x", Mode: ModeParallel})
	assert.ErrorIs(t, err, ErrPipelineFailed)
	require.NotNil(t, res)
	// retries only apply to sequential runs
	assert.Equal(t, 1, res.Attempts)
}

func TestPipeline_Retries(t *testing.T) {
	flaky := &flakyAgent{BaseAgent: agent.NewBaseAgent("flaky", "Flaky"), failures: 2}
	o := newOrchestrator(t, flaky)

	p := New(o, func(o *Options) {
		o.AgentIDs = []string{"flaky"}
		o.MaxRetries = 2
		o.ErrorHandling = Strict
	})
	res, err := p.Run(context.Background(), Request{Topic: "x"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.True(t, res.Evaluation.Success)
	assert.Equal(t, "ok", res.Outputs["flaky"])

	rc, ok := o.Context(res.ContextID)
	require.True(t, ok)
	require.NotNil(t, rc.Parent)
	assert.Equal(t, rc.ParentID, rc.Parent.ID)

	flaky.calls.Store(0)
	p = New(o, func(o *Options) {
		o.AgentIDs = []string{"flaky"}
		o.MaxRetries = 1
		o.ErrorHandling = Strict
	})
	_, err = p.Run(context.Background(), Request{Topic: "x"})
	assert.ErrorIs(t, err, ErrPipelineFailed)
}

func TestPipeline_InvalidRequest(t *testing.T) {
	p := New(orchestrator.New())

	_, err := p.Run(context.Background(), Request{Topic: "  "})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = p.Run(context.Background(), Request{Topic: "x", Mode: "random"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	assert.Error(t, p.Cancel("unknown"))
	assert.Empty(t, p.ActiveRuns())
}

func TestPipeline_Cancel(t *testing.T) {
	o := newOrchestrator(t, testutil.NewAgentBuilder("slow").Delay(5*time.Second).Build())
	p := New(o, func(o *Options) { o.AgentIDs = []string{"slow"} })

	done := make(chan *Result, 1)
	go func() {
		res, _ := p.Run(context.Background(), Request{Topic: "x"})
		done <- res
	}()

	require.Eventually(t, func() bool { return len(p.ActiveRuns()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, p.Cancel(p.ActiveRuns()[0]))

	select {
	case res := <-done:
		require.NotNil(t, res)
		assert.False(t, res.Evaluation.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop after cancel")
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("", ModeParallel)
	require.NoError(t, err)
	assert.Equal(t, ModeParallel, m)

	m, err = ParseMode(" Autonomous ", ModeSequential)
	require.NoError(t, err)
	assert.Equal(t, ModeAutonomous, m)
}

func TestNewModel(t *testing.T) {
	_, err := NewModel(config.ModelConfig{Provider: "openai"})
	assert.ErrorIs(t, err, core.ErrMissingCredential)

	_, err = NewModel(config.ModelConfig{Provider: "anthropic"})
	assert.ErrorIs(t, err, core.ErrMissingCredential)

	_, err = NewModel(config.ModelConfig{Provider: "cohere"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	m, err := NewModel(config.ModelConfig{Provider: "openai", APIKey: "sk-test", Name: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", m.Info().Name)

	m, err = NewModel(config.ModelConfig{Provider: "mock", MaxCalls: 1})
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), model.NewRequest("", "hi"))
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), model.NewRequest("", "hi"))
	assert.ErrorIs(t, err, core.ErrModelCallLimit)
}

func TestNewHistory(t *testing.T) {
	s, err := NewHistory(context.Background(), config.HistoryConfig{Backend: "memory", Capacity: 5})
	require.NoError(t, err)
	assert.IsType(t, &history.InMemoryStore{}, s)

	mr := miniredis.RunT(t)
	s, err = NewHistory(context.Background(), config.HistoryConfig{Backend: "redis", RedisURL: "redis://" + mr.Addr(), Capacity: 5})
	require.NoError(t, err)
	assert.IsType(t, &history.RedisStore{}, s)

	_, err = NewHistory(context.Background(), config.HistoryConfig{Backend: "etcd"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestNewDocumentationAgents(t *testing.T) {
	_, err := NewDocumentationAgents(nil, nil, nil)
	assert.ErrorIs(t, err, core.ErrMissingCredential)

	cfg := config.Default()
	cfg.Documentation.TechnicalLevel = "expert"
	_, err = NewDocumentationAgents(model.NewMockModel("m", "mock"), cfg, nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	agents, err := NewDocumentationAgents(model.NewMockModel("m", "mock"), nil, nil)
	require.NoError(t, err)
	ids := make([]string, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID())
	}
	assert.Equal(t, DefaultAgentIDs, ids)
}
