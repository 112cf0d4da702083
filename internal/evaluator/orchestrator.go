// internal/evaluator/orchestrator.go
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dsoriano-dev/webknow/api/schemas"
	"github.com/dsoriano-dev/webknow/internal/config"
	"github.com/dsoriano-dev/webknow/internal/evaluation"
	"github.com/dsoriano-dev/webknow/internal/navgraph"
	"github.com/dsoriano-dev/webknow/internal/planstore"
)

// guidanceTemplate is the enrichment block prepended to a retry attempt.
const guidanceTemplate = `## A precedent user already tried this task before and let some recommendations that might be helpful.

%s

Use this guide to improve your approach.`

// Orchestrator drives the execute -> evaluate -> branch-on-verdict loop for
// one task, accumulating the evaluator's guide across attempts and persisting
// knowledge into the graph and plan stores.
type Orchestrator struct {
	agent  schemas.AgentRunner
	llm    schemas.LLMClient
	graphs *navgraph.Store
	plans  *planstore.Store
	cfg    config.EvaluatorConfig
	runs   string
	logger *zap.Logger
}

// NewOrchestrator wires the orchestrator. plans may be nil; successful plans
// are then not persisted (graph knowledge still is).
func NewOrchestrator(
	agent schemas.AgentRunner,
	llm schemas.LLMClient,
	graphs *navgraph.Store,
	plans *planstore.Store,
	cfg config.EvaluatorConfig,
	dataDir string,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		agent:  agent,
		llm:    llm,
		graphs: graphs,
		plans:  plans,
		cfg:    cfg,
		runs:   filepath.Join(dataDir, "runs"),
		logger: logger.Named("evaluator"),
	}
}

// Run executes the task until it succeeds, proves impossible, exhausts the
// attempt budget, or the context is canceled. The returned TaskRun always
// carries a terminal final state; the error is non-nil only for the aborted
// case and for run-level setup failures.
func (o *Orchestrator) Run(ctx context.Context, task, websiteURL string) (*schemas.TaskRun, error) {
	run := &schemas.TaskRun{
		RunID:     uuid.NewString(),
		Task:      task,
		StartedAt: time.Now().UTC(),
	}

	runDir := filepath.Join(o.runs, run.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory %s: %w", runDir, err)
	}

	logger := o.logger.With(zap.String("run_id", run.RunID))
	logger.Info("Starting task run",
		zap.String("task", task),
		zap.Int("max_attempts", o.cfg.MaxAttempts))

	var currentGuide string

	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return o.finish(run, runDir, schemas.StateAborted, logger), ctx.Err()
		}

		logger.Info("Attempt starting",
			zap.Int("attempt", attempt),
			zap.String("state", string(schemas.StateAttempting)),
			zap.Bool("has_guide", currentGuide != ""))

		result, record, err := o.attempt(ctx, runDir, task, currentGuide, attempt)
		if err != nil {
			if ctx.Err() != nil {
				run.Attempts = append(run.Attempts, record)
				return o.finish(run, runDir, schemas.StateAborted, logger), err
			}
			// Parse, agent and store errors burn an attempt without a
			// guide update.
			logger.Error("Attempt errored", zap.Int("attempt", attempt), zap.Error(err))
			run.Attempts = append(run.Attempts, record)
			continue
		}

		run.Attempts = append(run.Attempts, record)
		logger.Info("Attempt evaluated",
			zap.Int("attempt", attempt),
			zap.String("status", string(result.Status)))

		site := websiteURL
		if result.WebsiteURL != "" {
			site = result.WebsiteURL
		}

		switch result.Status {
		case schemas.StatusSuccess:
			o.saveGraph(ctx, result, site, logger)
			o.savePlans(ctx, run, result, task, site, logger)
			run.SuccessfulPlan = successBody(result)
			return o.finish(run, runDir, schemas.StateSucceeded, logger), nil

		case schemas.StatusFailure:
			o.saveGraph(ctx, result, site, logger)
			if g := extractedGuide(result); g != "" {
				currentGuide = g
			}
			logger.Info("Attempt failed, guide carried to next attempt",
				zap.String("state", string(schemas.StateRetrying)))

		case schemas.StatusImpossible:
			o.saveGraph(ctx, result, site, logger)
			return o.finish(run, runDir, schemas.StateImpossible, logger), nil

		default:
			// UNKNOWN burns the attempt like an error, without guide update.
			logger.Warn("Evaluator verdict inconclusive", zap.Int("attempt", attempt))
		}
	}

	return o.finish(run, runDir, schemas.StateExhausted, logger), nil
}

// attempt runs the agent once and evaluates its trace. Failures are reported
// both as an error and as a pre-filled ERROR attempt record.
func (o *Orchestrator) attempt(ctx context.Context, runDir, task, currentGuide string, attempt int) (*schemas.EvaluationResult, schemas.AttemptRecord, error) {
	errRecord := func(err error) schemas.AttemptRecord {
		return schemas.AttemptRecord{
			AttemptNumber: attempt,
			Status:        schemas.AttemptError,
			Error:         err.Error(),
		}
	}

	guidance := ""
	if currentGuide != "" {
		guidance = fmt.Sprintf(guidanceTemplate, currentGuide)
	}

	trace, err := o.agent.Run(ctx, task, guidance, o.cfg.MaxSteps)
	if err != nil {
		wrapped := &EvaluationError{Attempt: attempt, Stage: "agent", Err: err}
		return nil, errRecord(wrapped), wrapped
	}

	o.persistTrace(runDir, attempt, trace)
	screenshots := o.persistScreenshots(runDir, attempt, trace)

	result, err := o.evaluate(ctx, trace, task)
	if err != nil {
		wrapped := &EvaluationError{Attempt: attempt, Stage: "evaluation", Err: err}
		rec := errRecord(wrapped)
		rec.Screenshots = screenshots
		return nil, rec, wrapped
	}

	graphFile := o.persistGraph(runDir, attempt, result)

	record := schemas.AttemptRecord{
		AttemptNumber: attempt,
		Status:        schemas.AttemptStatus(result.Status),
		Verdict:       result.Verdict,
		Guide:         extractedGuide(result),
		GraphFile:     graphFile,
		Screenshots:   screenshots,
	}
	return result, record, nil
}

func (o *Orchestrator) evaluate(ctx context.Context, trace *schemas.Trace, task string) (*schemas.EvaluationResult, error) {
	systemPrompt := fmt.Sprintf("%s\n\n## The user try to reach this goal:\n%s\n\nPlease evaluate the user trajectory for this goal.",
		evaluation.SystemPromptStructured, task)

	completion, err := o.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		Messages:     evaluation.TraceToMessages(trace),
		Tier:         schemas.TierPowerful,
	})
	if err != nil {
		return nil, err
	}

	return evaluation.Parse(completion)
}

func (o *Orchestrator) saveGraph(ctx context.Context, result *schemas.EvaluationResult, site string, logger *zap.Logger) {
	if result.RawGraph == "" || site == "" {
		return
	}
	if err := o.graphs.Save(ctx, result.RawGraph, site); err != nil {
		logger.Error("Failed to persist navigation graph", zap.Error(err))
	}
}

// savePlans stores the success knowledge: the structured dialect's lessons
// map when present, otherwise the guide under the task title.
func (o *Orchestrator) savePlans(ctx context.Context, run *schemas.TaskRun, result *schemas.EvaluationResult, task, site string, logger *zap.Logger) {
	if o.plans == nil {
		return
	}

	plans := result.Lessons
	if len(plans) == 0 {
		body := successBody(result)
		if body == "" {
			return
		}
		title := result.TaskTitle
		if title == "" {
			title = task
		}
		plans = map[string]string{title: body}
	}

	if _, err := o.plans.Store(ctx, plans, run.RunID, site); err != nil {
		logger.Error("Failed to persist successful plans", zap.Error(err))
	}
}

func (o *Orchestrator) persistTrace(runDir string, attempt int, trace *schemas.Trace) {
	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		o.logger.Error("Failed to encode trace snapshot", zap.Error(err))
		return
	}
	path := filepath.Join(runDir, fmt.Sprintf("attempt_%d_trace.json", attempt))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		o.logger.Error("Failed to write trace snapshot", zap.String("path", path), zap.Error(err))
	}
}

func (o *Orchestrator) persistGraph(runDir string, attempt int, result *schemas.EvaluationResult) string {
	if result.RawGraph == "" {
		return ""
	}
	path := filepath.Join(runDir, fmt.Sprintf("attempt_%d_graph.json", attempt))
	if err := os.WriteFile(path, []byte(result.RawGraph), 0o644); err != nil {
		o.logger.Error("Failed to write graph snapshot", zap.String("path", path), zap.Error(err))
		return ""
	}
	return filepath.Base(path)
}

func (o *Orchestrator) persistScreenshots(runDir string, attempt int, trace *schemas.Trace) []string {
	dir := filepath.Join(runDir, fmt.Sprintf("attempt_%d_screenshots", attempt))
	paths, err := evaluation.SaveScreenshots(trace, dir)
	if err != nil {
		o.logger.Error("Failed to extract screenshots", zap.String("dir", dir), zap.Error(err))
		return nil
	}
	return paths
}

// finish stamps the terminal state and writes the per-run result artifacts.
func (o *Orchestrator) finish(run *schemas.TaskRun, runDir string, state schemas.RunState, logger *zap.Logger) *schemas.TaskRun {
	run.FinalState = state
	run.FinishedAt = time.Now().UTC()

	if data, err := json.MarshalIndent(run, "", "  "); err == nil {
		if err := os.WriteFile(filepath.Join(runDir, "completion_status.json"), data, 0o644); err != nil {
			logger.Error("Failed to write completion status", zap.Error(err))
		}
	}

	summary := fmt.Sprintf("Task: %s\nFinal status: %s\nAttempts: %d\n", run.Task, run.FinalState, len(run.Attempts))
	if run.SuccessfulPlan != "" {
		summary += "\nSuccessful plan:\n" + run.SuccessfulPlan + "\n"
	}
	if err := os.WriteFile(filepath.Join(runDir, "final_result.txt"), []byte(summary), 0o644); err != nil {
		logger.Error("Failed to write final result", zap.Error(err))
	}

	logger.Info("Task run finished",
		zap.String("final_status", string(state)),
		zap.Int("attempts", len(run.Attempts)))
	return run
}

// extractedGuide returns the dialect-appropriate guide text of a result.
func extractedGuide(result *schemas.EvaluationResult) string {
	if result.Structured() {
		return result.FailureGuide
	}
	return result.Guide
}

// successBody picks the plan body persisted on success.
func successBody(result *schemas.EvaluationResult) string {
	if result.Guide != "" {
		return result.Guide
	}
	// The structured dialect has no single success guide; fall back to the
	// verdict rationale so the run artifact is never empty.
	return result.Verdict
}
