package schemas

import (
	"encoding/json"
	"time"
)

// -- Navigation Graph Schemas --

// NavigationGraph maps a generalized page name to its description. A graph is
// scoped to a single website domain; page names are human-chosen labels
// produced by the evaluator and are not guaranteed unique across sites.
type NavigationGraph map[string]PageNode

// PageNode describes one logical page of a website. The evaluator is asked to
// generalize per-instance pages (e.g. individual product pages) into one
// canonical template node, so URL may contain placeholders.
type PageNode struct {
	// URL is a representative example URL for the page.
	URL string `json:"url"`
	// Layout is a short free-text summary of the page purpose and structure.
	Layout string `json:"layout"`
	// Elements holds opaque DSL strings describing UI affordances
	// (e.g. "C: Login button @top-right"). The core never parses these;
	// it only stores, truncates and forwards them.
	Elements []string `json:"elements"`
	// OutgoingLinks lists observed transitions to other pages in the graph.
	OutgoingLinks []OutgoingLink `json:"outgoing_links"`
	// VisitedSteps records which trace steps were grouped under this page.
	VisitedSteps []int `json:"visited_steps,omitempty"`
}

// OutgoingLink is a directed edge in the navigation graph. Target should name
// a page present in the same graph; the merge step repairs dangling targets on
// a best-effort basis, a schema validator does not.
type OutgoingLink struct {
	Target string `json:"target"`
	Action string `json:"action"`
}

// -- Plan Schemas --

// Plan is one stored successful task plan. Plans are immutable once stored and
// multiple plans may share a title; retrieval ranks, it does not dedupe.
type Plan struct {
	ID        string    `json:"id"`
	TaskTitle string    `json:"task_title"`
	Body      string    `json:"body"`
	TaskID    string    `json:"task_id"`
	// WebsiteURL is the main site the plan applies to, when known.
	WebsiteURL string    `json:"website_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// RankedPlan annotates a plan with its retrieval distance. Lower distance
// means more similar; no absolute relevance threshold is applied.
type RankedPlan struct {
	Plan
	Distance float64 `json:"distance"`
}

// -- Evaluation Schemas --

// EvalStatus is the verdict extracted from an evaluator completion.
type EvalStatus string

const (
	StatusSuccess    EvalStatus = "SUCCESS"
	StatusFailure    EvalStatus = "FAILURE"
	StatusImpossible EvalStatus = "IMPOSSIBLE"
	StatusUnknown    EvalStatus = "UNKNOWN"
)

// EvaluationResult is the structured form of one evaluator completion. The two
// response dialects are mutually exclusive variants of this type: the simple
// dialect fills Guide, the structured dialect fills TaskLabel/WebsiteURL/
// TaskTitle/Lessons/FailureGuide.
type EvaluationResult struct {
	Status  EvalStatus `json:"status"`
	Verdict string     `json:"verdict"`
	// RawGraph is the verbatim fenced JSON block; Graph the parsed form.
	RawGraph string          `json:"-"`
	Graph    NavigationGraph `json:"navigation_graph"`

	// Simple dialect.
	Guide string `json:"guide,omitempty"`

	// Structured dialect.
	TaskLabel    string            `json:"task_label,omitempty"`
	WebsiteURL   string            `json:"website_url,omitempty"`
	TaskTitle    string            `json:"task_title,omitempty"`
	Lessons      map[string]string `json:"lessons,omitempty"`
	FailureGuide string            `json:"failure_guide,omitempty"`
}

// Structured reports whether the completion carried the structured dialect's
// embedded (LABEL, url, title) tuple.
func (r *EvaluationResult) Structured() bool { return r.TaskLabel != "" }

// -- Trace Schemas --

// Trace is the ordered step record produced by one browser-agent attempt.
// The core never inspects the agent's reasoning, only URL/screenshot/actions.
type Trace struct {
	Steps []Step `json:"history"`
}

// Step pairs the observed page state with the actions taken on it.
type Step struct {
	State   StepState  `json:"state"`
	Actions []Action   `json:"actions,omitempty"`
	Model   *StepModel `json:"model_output,omitempty"`
}

// StepState captures the page as the agent saw it.
type StepState struct {
	URL string `json:"url"`
	// Screenshot is a base64-encoded PNG, empty when none was captured.
	Screenshot string `json:"screenshot,omitempty"`
}

// StepModel mirrors the browser-agent history format, where actions live under
// model_output. StepActions resolves either representation.
type StepModel struct {
	Action []Action `json:"action"`
}

// Action is a single named agent action with free-form parameters.
type Action map[string]json.RawMessage

// StepActions returns the actions of a step regardless of which field the
// producing agent populated.
func (s Step) StepActions() []Action {
	if len(s.Actions) > 0 {
		return s.Actions
	}
	if s.Model != nil {
		return s.Model.Action
	}
	return nil
}

// -- Task Run Schemas --

// RunState is the orchestrator's position in the retry state machine.
type RunState string

const (
	StateAttempting RunState = "ATTEMPTING"
	StateEvaluating RunState = "EVALUATING"
	StateRetrying   RunState = "RETRYING"
	StateSucceeded  RunState = "SUCCEEDED"
	StateImpossible RunState = "IMPOSSIBLE"
	StateExhausted  RunState = "EXHAUSTED"
	StateAborted    RunState = "ABORTED"
)

// Terminal reports whether the state ends a task run.
func (s RunState) Terminal() bool {
	switch s {
	case StateSucceeded, StateImpossible, StateExhausted, StateAborted:
		return true
	}
	return false
}

// AttemptStatus classifies the outcome of a single attempt.
type AttemptStatus string

const (
	AttemptSuccess    AttemptStatus = "SUCCESS"
	AttemptFailure    AttemptStatus = "FAILURE"
	AttemptImpossible AttemptStatus = "IMPOSSIBLE"
	AttemptError      AttemptStatus = "ERROR"
	AttemptUnknown    AttemptStatus = "UNKNOWN"
)

// AttemptRecord is the persisted outcome of one execute+evaluate cycle.
type AttemptRecord struct {
	AttemptNumber int           `json:"attempt_number"`
	Status        AttemptStatus `json:"status"`
	Verdict       string        `json:"verdict,omitempty"`
	Guide         string        `json:"guide,omitempty"`
	Error         string        `json:"error,omitempty"`
	GraphFile     string        `json:"navigation_graph_file,omitempty"`
	Screenshots   []string      `json:"screenshots,omitempty"`
}

// TaskRun aggregates all attempts for one task.
type TaskRun struct {
	RunID          string          `json:"run_id"`
	Task           string          `json:"task"`
	Attempts       []AttemptRecord `json:"attempts"`
	FinalState     RunState        `json:"final_status"`
	SuccessfulPlan string          `json:"successful_plan,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
}

// -- Batch Schemas --

// BatchTask is one row of a benchmark dataset.
type BatchTask struct {
	ID          string `json:"id"`
	StartingURL string `json:"starting_url"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
	Description string `json:"task_description"`
}

// TaskResult summarizes the execution of one batch task.
type TaskResult struct {
	TaskID          string   `json:"task_id"`
	Executed        bool     `json:"success"`
	TotalAttempts   int      `json:"total_attempts"`
	FinalState      RunState `json:"final_status"`
	ScreenshotCount int      `json:"screenshots_count"`
	Error           string   `json:"error,omitempty"`
}

// ExecutionSummary is the aggregate written after a batch run. The four
// failure-ish counters are deliberately distinct so operators can triage
// without re-reading individual traces.
type ExecutionSummary struct {
	TotalTasks            int          `json:"total_tasks"`
	SuccessfulExecutions  int          `json:"successful_executions"`
	FailedExecutions      int          `json:"failed_executions"`
	CompletedTasks        int          `json:"completed_tasks"`
	SuccessfulCompletions int          `json:"successful_completions"`
	TasksWithErrors       int          `json:"tasks_with_errors"`
	TotalScreenshots      int          `json:"total_screenshots"`
	TaskResults           []TaskResult `json:"task_results"`
}
