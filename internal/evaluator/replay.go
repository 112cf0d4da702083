// internal/evaluator/replay.go
package evaluator

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dsoriano-dev/webknow/api/schemas"
	"github.com/dsoriano-dev/webknow/internal/evaluation"
)

// ReplayRunner implements schemas.AgentRunner by replaying pre-recorded
// browser-agent history files. Each Run call consumes the next file; the
// last file repeats once the list is exhausted. This keeps the knowledge
// loop usable without driving a live browser, which is out of scope here.
type ReplayRunner struct {
	mu     sync.Mutex
	paths  []string
	next   int
	logger *zap.Logger
}

func NewReplayRunner(logger *zap.Logger, historyPaths ...string) (*ReplayRunner, error) {
	if len(historyPaths) == 0 {
		return nil, fmt.Errorf("replay runner requires at least one history file")
	}
	return &ReplayRunner{
		paths:  historyPaths,
		logger: logger.Named("replay_agent"),
	}, nil
}

var _ schemas.AgentRunner = (*ReplayRunner)(nil)

// Run loads the next recorded trace. guidance is logged but cannot influence
// a pre-recorded run; maxSteps truncates overlong traces.
func (r *ReplayRunner) Run(ctx context.Context, task, guidance string, maxSteps int) (*schemas.Trace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	path := r.paths[r.next]
	if r.next < len(r.paths)-1 {
		r.next++
	}
	r.mu.Unlock()

	r.logger.Info("Replaying recorded trace",
		zap.String("history_file", path),
		zap.Bool("guidance_provided", guidance != ""))

	trace, err := evaluation.LoadTrace(path)
	if err != nil {
		return nil, err
	}
	if maxSteps > 0 && len(trace.Steps) > maxSteps {
		trace.Steps = trace.Steps[:maxSteps]
	}
	return trace, nil
}
