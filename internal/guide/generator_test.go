// internal/guide/generator_test.go
package guide

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dsoriano-dev/webknow/api/schemas"
	"github.com/dsoriano-dev/webknow/internal/navgraph"
)

type scriptedLLM struct {
	reply string
	err   error
	calls int
	last  schemas.GenerationRequest
}

func (s *scriptedLLM) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	s.calls++
	s.last = req
	return s.reply, s.err
}

func TestClassifyTask(t *testing.T) {
	cases := []struct {
		task string
		want TaskType
	}{
		{"Sign in to your account", TaskAuthentication},
		{"Search for a laptop under 500 euros", TaskSearch},
		{"Book a room for two nights", TaskCreation},
		{"Cancel my subscription", TaskDeletion},
		{"Go to the settings page", TaskNavigation},
		{"Compare the two offers", TaskGeneral},
		// First match wins.
		{"Search for the order and delete it", TaskSearch},
	}
	for _, tc := range cases {
		t.Run(tc.task, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyTask(tc.task))
		})
	}
}

func TestGenerateSkipsLLMWithoutKnowledge(t *testing.T) {
	llm := &scriptedLLM{reply: "should not be called"}
	gen := NewGenerator(llm, zap.NewNop())

	t.Run("all empty", func(t *testing.T) {
		out := gen.Generate(context.Background(), Inputs{Task: "Book a flight", WebsiteURL: "https://x.com/"})
		assert.Empty(t, out)
		assert.Zero(t, llm.calls)
	})

	t.Run("placeholder nav context counts as empty", func(t *testing.T) {
		out := gen.Generate(context.Background(), Inputs{
			Task:              "Book a flight",
			NavigationContext: navgraph.EmptyContextPlaceholder,
		})
		assert.Empty(t, out)
		assert.Zero(t, llm.calls)
	})
}

func TestGenerateCallsLLMWithContexts(t *testing.T) {
	llm := &scriptedLLM{reply: "### Task Analysis\nDo the thing."}
	gen := NewGenerator(llm, zap.NewNop())

	out := gen.Generate(context.Background(), Inputs{
		Task:              "Book a hotel room in Paris",
		WebsiteURL:        "https://www.booking.com/",
		PlanContext:       "### Guide 1: Book a hotel\nsteps...",
		NavigationContext: `{"Home Page": {}}`,
		PreviousGuide:     "Try the filters sidebar next time.",
		AttemptCount:      1,
	})

	require.Equal(t, 1, llm.calls)
	assert.Equal(t, "### Task Analysis\nDo the thing.", out)
	assert.Equal(t, schemas.TierPowerful, llm.last.Tier)
	assert.Equal(t, generationSystemPrompt, llm.last.SystemPrompt)

	prompt := llm.last.Messages[0].Text
	assert.Contains(t, prompt, "Book a hotel room in Paris")
	assert.Contains(t, prompt, "### Guide 1: Book a hotel")
	assert.Contains(t, prompt, `{"Home Page": {}}`)
	assert.Contains(t, prompt, "Try the filters sidebar next time.")
	assert.Contains(t, prompt, "Task type: Creation/Booking")
}

func TestGenerateFallsBackOnLLMError(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("model overloaded")}
	gen := NewGenerator(llm, zap.NewNop())

	out := gen.Generate(context.Background(), Inputs{
		Task:          "Download an invoice",
		PlanContext:   "### Guide 1: something",
		PreviousGuide: "Open the account menu first.",
	})

	assert.Contains(t, out, "## Fallback Guide")
	assert.Contains(t, out, "**Task:** Download an invoice")
	assert.Contains(t, out, "### Previous Attempt Insights:")
	assert.Contains(t, out, "Open the account menu first.")
}

func TestFallbackGuideWithoutPrevious(t *testing.T) {
	out := FallbackGuide("Book a flight", "")
	assert.Contains(t, out, "### Basic Approach:")
	assert.NotContains(t, out, "Previous Attempt Insights")
}
