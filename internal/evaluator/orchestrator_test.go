// internal/evaluator/orchestrator_test.go
package evaluator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dsoriano-dev/webknow/api/schemas"
	"github.com/dsoriano-dev/webknow/internal/config"
	"github.com/dsoriano-dev/webknow/internal/navgraph"
	"github.com/dsoriano-dev/webknow/internal/planstore"
)

// scriptedAgent returns canned traces (or errors) in order and records the
// guidance text it was handed on each call.
type scriptedAgent struct {
	traces   []*schemas.Trace
	errs     []error
	call     int
	guidance []string
}

func (a *scriptedAgent) Run(_ context.Context, _, guidance string, _ int) (*schemas.Trace, error) {
	a.guidance = append(a.guidance, guidance)
	idx := a.call
	a.call++
	if idx < len(a.errs) && a.errs[idx] != nil {
		return nil, a.errs[idx]
	}
	if idx >= len(a.traces) {
		panic("scripted agent exhausted")
	}
	return a.traces[idx], nil
}

type scriptedLLM struct {
	completions []string
	call        int
	requests    []schemas.GenerationRequest
}

func (l *scriptedLLM) Generate(_ context.Context, req schemas.GenerationRequest) (string, error) {
	l.requests = append(l.requests, req)
	idx := l.call
	if idx >= len(l.completions) {
		idx = len(l.completions) - 1
	}
	l.call++
	return l.completions[idx], nil
}

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(_ context.Context, _ string, _ schemas.EmbeddingInput) ([]float64, error) {
	return []float64{1, 0, 0}, nil
}

func sampleTrace(url string) *schemas.Trace {
	shot := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	click := json.RawMessage(`{"index": 3}`)
	return &schemas.Trace{
		Steps: []schemas.Step{
			{
				State:   schemas.StepState{URL: url, Screenshot: shot},
				Actions: []schemas.Action{{"click_element_by_index": click}},
			},
		},
	}
}

const graphBlock = "```json\n{\"Home\": {\"url\": \"https://shop.example.com\", \"layout\": \"Landing page\", \"elements\": [], \"outgoing_links\": []}}\n```"

func failureCompletion(guide string) string {
	return "The trajectory stalled.\n" + graphBlock +
		"\n<verdict>FAILURE: the goal page was never reached</verdict>\n<guide>" + guide + "</guide>"
}

func successCompletion() string {
	return "The goal was reached.\n" + graphBlock +
		"\n<verdict>SUCCESS ('SUCCESS', 'https://shop.example.com', 'Buy wool socks')</verdict>\n" +
		"```json\n{\"Buy wool socks\": \"1. Open the shop.\\n2. Add socks to the cart.\\n3. Check out.\"}\n```"
}

func impossibleCompletion() string {
	return "No path exists.\n" + graphBlock +
		"\n<verdict>IMPOSSIBLE: the site does not offer this feature</verdict>"
}

func newTestOrchestrator(t *testing.T, agent schemas.AgentRunner, llm schemas.LLMClient, plans *planstore.Store, maxAttempts int) (*Orchestrator, string) {
	t.Helper()
	dataDir := t.TempDir()
	graphs, err := navgraph.NewStore(filepath.Join(dataDir, "graphs"), nil, false, zap.NewNop())
	require.NoError(t, err)

	cfg := config.EvaluatorConfig{MaxAttempts: maxAttempts, MaxSteps: 25, RetrievalTopK: 3}
	return NewOrchestrator(agent, llm, graphs, plans, cfg, dataDir, zap.NewNop()), dataDir
}

func TestOrchestratorRetriesUntilSuccess(t *testing.T) {
	agent := &scriptedAgent{traces: []*schemas.Trace{
		sampleTrace("https://shop.example.com/"),
		sampleTrace("https://shop.example.com/cart"),
		sampleTrace("https://shop.example.com/checkout"),
	}}
	llm := &scriptedLLM{completions: []string{
		failureCompletion("Use the cart icon in the header."),
		failureCompletion("Log in before adding items."),
		successCompletion(),
	}}

	orch, dataDir := newTestOrchestrator(t, agent, llm, nil, 3)

	run, err := orch.Run(context.Background(), "Buy wool socks", "https://shop.example.com")
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, schemas.StateSucceeded, run.FinalState)
	require.Len(t, run.Attempts, 3)
	assert.Equal(t, schemas.AttemptFailure, run.Attempts[0].Status)
	assert.Equal(t, schemas.AttemptFailure, run.Attempts[1].Status)
	assert.Equal(t, schemas.AttemptSuccess, run.Attempts[2].Status)
	assert.NotEmpty(t, run.RunID)
	assert.NotEmpty(t, run.SuccessfulPlan)

	// The first attempt runs without guidance; later attempts carry the
	// previous failure guide wrapped in the precedent-user preamble.
	require.Len(t, agent.guidance, 3)
	assert.Empty(t, agent.guidance[0])
	assert.Contains(t, agent.guidance[1], "Use the cart icon in the header.")
	assert.Contains(t, agent.guidance[1], "A precedent user already tried this task before")
	assert.Contains(t, agent.guidance[2], "Log in before adding items.")

	// Every evaluation goes to the powerful tier with the goal in the
	// system prompt.
	require.Len(t, llm.requests, 3)
	for _, req := range llm.requests {
		assert.Equal(t, schemas.TierPowerful, req.Tier)
		assert.Contains(t, req.SystemPrompt, "Buy wool socks")
	}

	runDir := filepath.Join(dataDir, "runs", run.RunID)
	for _, name := range []string{
		"attempt_1_trace.json",
		"attempt_1_graph.json",
		filepath.Join("attempt_1_screenshots", "step_0.png"),
		"completion_status.json",
		"final_result.txt",
	} {
		_, err := os.Stat(filepath.Join(runDir, name))
		assert.NoError(t, err, "missing artifact %s", name)
	}

	var persisted schemas.TaskRun
	data, err := os.ReadFile(filepath.Join(runDir, "completion_status.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, run.RunID, persisted.RunID)
	assert.Equal(t, schemas.StateSucceeded, persisted.FinalState)
}

func TestOrchestratorExhaustsAttemptBudget(t *testing.T) {
	agent := &scriptedAgent{traces: []*schemas.Trace{
		sampleTrace("https://shop.example.com/"),
		sampleTrace("https://shop.example.com/"),
	}}
	llm := &scriptedLLM{completions: []string{failureCompletion("Scroll further down.")}}

	orch, _ := newTestOrchestrator(t, agent, llm, nil, 2)

	run, err := orch.Run(context.Background(), "Find the returns policy", "https://shop.example.com")
	require.NoError(t, err)

	assert.Equal(t, schemas.StateExhausted, run.FinalState)
	require.Len(t, run.Attempts, 2)
	for _, rec := range run.Attempts {
		assert.Equal(t, schemas.AttemptFailure, rec.Status)
	}
}

func TestOrchestratorStopsOnImpossible(t *testing.T) {
	agent := &scriptedAgent{traces: []*schemas.Trace{sampleTrace("https://news.example.org/")}}
	llm := &scriptedLLM{completions: []string{impossibleCompletion()}}

	orch, _ := newTestOrchestrator(t, agent, llm, nil, 5)

	run, err := orch.Run(context.Background(), "Delete another user's account", "https://news.example.org")
	require.NoError(t, err)

	assert.Equal(t, schemas.StateImpossible, run.FinalState)
	require.Len(t, run.Attempts, 1)
	assert.Equal(t, schemas.AttemptImpossible, run.Attempts[0].Status)
}

func TestOrchestratorAgentErrorKeepsGuide(t *testing.T) {
	agent := &scriptedAgent{
		traces: []*schemas.Trace{
			sampleTrace("https://shop.example.com/"),
			nil,
			sampleTrace("https://shop.example.com/checkout"),
		},
		errs: []error{nil, errors.New("browser crashed"), nil},
	}
	llm := &scriptedLLM{completions: []string{
		failureCompletion("Use the search bar."),
		successCompletion(),
	}}

	orch, _ := newTestOrchestrator(t, agent, llm, nil, 3)

	run, err := orch.Run(context.Background(), "Buy wool socks", "https://shop.example.com")
	require.NoError(t, err)

	assert.Equal(t, schemas.StateSucceeded, run.FinalState)
	require.Len(t, run.Attempts, 3)
	assert.Equal(t, schemas.AttemptError, run.Attempts[1].Status)
	assert.Contains(t, run.Attempts[1].Error, "browser crashed")

	// The errored attempt does not disturb the guide accumulated so far.
	require.Len(t, agent.guidance, 3)
	assert.Contains(t, agent.guidance[1], "Use the search bar.")
	assert.Contains(t, agent.guidance[2], "Use the search bar.")
}

func TestOrchestratorEmptyFailureGuideKeepsPrior(t *testing.T) {
	agent := &scriptedAgent{traces: []*schemas.Trace{
		sampleTrace("https://shop.example.com/"),
		sampleTrace("https://shop.example.com/"),
		sampleTrace("https://shop.example.com/checkout"),
	}}
	llm := &scriptedLLM{completions: []string{
		failureCompletion("Use the cart icon in the header."),
		failureCompletion(""),
		successCompletion(),
	}}

	orch, _ := newTestOrchestrator(t, agent, llm, nil, 3)

	run, err := orch.Run(context.Background(), "Buy wool socks", "https://shop.example.com")
	require.NoError(t, err)
	require.Equal(t, schemas.StateSucceeded, run.FinalState)

	// A failure verdict without guide text must not erase the guidance
	// accumulated from earlier attempts.
	require.Len(t, agent.guidance, 3)
	assert.Contains(t, agent.guidance[1], "Use the cart icon in the header.")
	assert.Contains(t, agent.guidance[2], "Use the cart icon in the header.")
}

func TestOrchestratorUnparseableCompletionBurnsAttempt(t *testing.T) {
	agent := &scriptedAgent{traces: []*schemas.Trace{
		sampleTrace("https://shop.example.com/"),
		sampleTrace("https://shop.example.com/"),
	}}
	llm := &scriptedLLM{completions: []string{
		"I could not come to a conclusion.",
		successCompletion(),
	}}

	orch, _ := newTestOrchestrator(t, agent, llm, nil, 2)

	run, err := orch.Run(context.Background(), "Buy wool socks", "https://shop.example.com")
	require.NoError(t, err)

	assert.Equal(t, schemas.StateSucceeded, run.FinalState)
	require.Len(t, run.Attempts, 2)
	assert.Equal(t, schemas.AttemptError, run.Attempts[0].Status)
	assert.Equal(t, schemas.AttemptSuccess, run.Attempts[1].Status)
}

func TestOrchestratorAbortsOnCanceledContext(t *testing.T) {
	agent := &scriptedAgent{traces: []*schemas.Trace{sampleTrace("https://shop.example.com/")}}
	llm := &scriptedLLM{completions: []string{successCompletion()}}

	orch, dataDir := newTestOrchestrator(t, agent, llm, nil, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := orch.Run(ctx, "Buy wool socks", "https://shop.example.com")
	require.Error(t, err)
	require.NotNil(t, run)

	assert.Equal(t, schemas.StateAborted, run.FinalState)
	assert.Empty(t, run.Attempts)
	assert.Zero(t, agent.call)

	// Terminal artifacts are written even on abort.
	_, statErr := os.Stat(filepath.Join(dataDir, "runs", run.RunID, "completion_status.json"))
	assert.NoError(t, statErr)
}

func TestOrchestratorPersistsLessonsAsPlans(t *testing.T) {
	dataDir := t.TempDir()
	plans, err := planstore.Open(filepath.Join(dataDir, "plans.db"), fixedEmbedder{}, zap.NewNop())
	require.NoError(t, err)
	defer plans.Close()

	agent := &scriptedAgent{traces: []*schemas.Trace{sampleTrace("https://shop.example.com/")}}
	llm := &scriptedLLM{completions: []string{successCompletion()}}

	orch, _ := newTestOrchestrator(t, agent, llm, plans, 3)

	run, err := orch.Run(context.Background(), "Buy wool socks", "https://shop.example.com")
	require.NoError(t, err)
	require.Equal(t, schemas.StateSucceeded, run.FinalState)

	stored, err := plans.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Buy wool socks", stored[0].TaskTitle)
	assert.Contains(t, stored[0].Body, "Add socks to the cart")
	assert.Equal(t, run.RunID, stored[0].TaskID)
	assert.Equal(t, "https://shop.example.com", stored[0].WebsiteURL)
}
