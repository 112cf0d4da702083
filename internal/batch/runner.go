// internal/batch/runner.go
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dsoriano-dev/webknow/api/schemas"
	"github.com/dsoriano-dev/webknow/internal/config"
)

// TaskExecutor is the per-task evaluation loop the runner drives. The
// orchestrator satisfies it.
type TaskExecutor interface {
	Run(ctx context.Context, task, websiteURL string) (*schemas.TaskRun, error)
}

// Runner executes dataset tasks sequentially. Tasks run one at a time on
// purpose: the external agent holds a single browser session and the shared
// knowledge stores benefit from each task seeing its predecessors' graphs.
type Runner struct {
	executor TaskExecutor
	cfg      config.BatchConfig
	limiter  *rate.Limiter
	logger   *zap.Logger
}

func NewRunner(executor TaskExecutor, cfg config.BatchConfig, logger *zap.Logger) *Runner {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.InterTaskDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.InterTaskDelay), 1)
	}
	return &Runner{
		executor: executor,
		cfg:      cfg,
		limiter:  limiter,
		logger:   logger.Named("batch"),
	}
}

// Execute runs every task and writes execution_summary.json into the output
// directory. A task-level failure is recorded and the batch continues; only
// context cancellation stops it early, returning the partial summary.
func (r *Runner) Execute(ctx context.Context, tasks []schemas.BatchTask) (*schemas.ExecutionSummary, error) {
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create batch output directory %s: %w", r.cfg.OutputDir, err)
	}

	summary := &schemas.ExecutionSummary{TotalTasks: len(tasks)}

	for i, task := range tasks {
		if err := r.limiter.Wait(ctx); err != nil {
			r.logger.Warn("Batch interrupted", zap.Int("completed_tasks", i), zap.Error(err))
			r.writeSummary(summary)
			return summary, err
		}

		r.logger.Info("Executing batch task",
			zap.Int("position", i+1),
			zap.Int("total", len(tasks)),
			zap.String("task_id", task.ID),
			zap.String("category", task.Category),
			zap.String("starting_url", task.StartingURL))

		result := r.executeOne(ctx, task)
		summary.TaskResults = append(summary.TaskResults, result)
		r.tally(summary, result)
	}

	r.writeSummary(summary)
	r.logger.Info("Batch finished",
		zap.Int("total_tasks", summary.TotalTasks),
		zap.Int("successful_executions", summary.SuccessfulExecutions),
		zap.Int("failed_executions", summary.FailedExecutions),
		zap.Int("successful_completions", summary.SuccessfulCompletions),
		zap.Int("total_screenshots", summary.TotalScreenshots))
	return summary, nil
}

func (r *Runner) executeOne(ctx context.Context, task schemas.BatchTask) schemas.TaskResult {
	run, err := r.executor.Run(ctx, task.Description, task.StartingURL)
	if err != nil {
		result := schemas.TaskResult{TaskID: task.ID, Error: err.Error()}
		if run != nil {
			result.TotalAttempts = len(run.Attempts)
			result.FinalState = run.FinalState
			result.ScreenshotCount = screenshotCount(run)
		}
		r.logger.Error("Batch task failed", zap.String("task_id", task.ID), zap.Error(err))
		return result
	}

	return schemas.TaskResult{
		TaskID:          task.ID,
		Executed:        true,
		TotalAttempts:   len(run.Attempts),
		FinalState:      run.FinalState,
		ScreenshotCount: screenshotCount(run),
	}
}

// tally folds one result into the aggregate counters. "Completed" means the
// run reached a verdict of its own (not aborted mid-flight); "successful
// completion" means the task itself succeeded.
func (r *Runner) tally(summary *schemas.ExecutionSummary, result schemas.TaskResult) {
	if result.Executed {
		summary.SuccessfulExecutions++
	} else {
		summary.FailedExecutions++
	}
	if result.FinalState.Terminal() && result.FinalState != schemas.StateAborted {
		summary.CompletedTasks++
	}
	if result.FinalState == schemas.StateSucceeded {
		summary.SuccessfulCompletions++
	}
	if result.Error != "" {
		summary.TasksWithErrors++
	}
	summary.TotalScreenshots += result.ScreenshotCount
}

func (r *Runner) writeSummary(summary *schemas.ExecutionSummary) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		r.logger.Error("Failed to encode execution summary", zap.Error(err))
		return
	}
	path := filepath.Join(r.cfg.OutputDir, "execution_summary.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		r.logger.Error("Failed to write execution summary", zap.String("path", path), zap.Error(err))
		return
	}
	r.logger.Info("Execution summary written", zap.String("path", path))
}

func screenshotCount(run *schemas.TaskRun) int {
	n := 0
	for _, attempt := range run.Attempts {
		n += len(attempt.Screenshots)
	}
	return n
}
