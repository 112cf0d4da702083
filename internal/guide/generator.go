// internal/guide/generator.go
package guide

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dsoriano-dev/webknow/api/schemas"
	"github.com/dsoriano-dev/webknow/internal/navgraph"
)

// TaskType is an informational annotation added to the guide prompt. It
// never changes control flow.
type TaskType string

const (
	TaskAuthentication TaskType = "Authentication"
	TaskSearch         TaskType = "Search"
	TaskCreation       TaskType = "Creation/Booking"
	TaskDeletion       TaskType = "Deletion/Cancellation"
	TaskNavigation     TaskType = "Navigation"
	TaskGeneral        TaskType = "General"
)

// Inputs collects the knowledge contexts a guide is synthesized from.
type Inputs struct {
	Task       string
	WebsiteURL string
	// PlanContext is the plan store rendering, empty when no similar plans.
	PlanContext string
	// NavigationContext is the graph store rendering, which is a fixed
	// placeholder rather than empty when no graph is known.
	NavigationContext string
	PreviousGuide     string
	AttemptCount      int
}

// Generator synthesizes pre-attempt guidance from accumulated knowledge.
type Generator struct {
	llm    schemas.LLMClient
	logger *zap.Logger
}

func NewGenerator(llm schemas.LLMClient, logger *zap.Logger) *Generator {
	return &Generator{llm: llm, logger: logger.Named("guide")}
}

// Generate returns a guide for the task. With no knowledge at all it returns
// an empty string without calling the LLM; an agent gains nothing from a
// guide synthesized out of nothing. Any LLM failure degrades to a fixed
// fallback template, never an error.
func (g *Generator) Generate(ctx context.Context, in Inputs) string {
	if g.empty(in) {
		g.logger.Info("No accumulated knowledge for task, skipping guide generation",
			zap.String("website_url", in.WebsiteURL))
		return ""
	}

	userPrompt := g.buildUserPrompt(in)
	completion, err := g.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: generationSystemPrompt,
		Messages:     []schemas.Message{{Text: userPrompt}},
		Tier:         schemas.TierPowerful,
	})
	if err != nil {
		g.logger.Error("Guide generation failed, using fallback guide", zap.Error(err))
		return FallbackGuide(in.Task, in.PreviousGuide)
	}

	g.logger.Info("Guide generated", zap.String("task_type", string(ClassifyTask(in.Task))))
	return completion
}

func (g *Generator) empty(in Inputs) bool {
	navEmpty := in.NavigationContext == "" || in.NavigationContext == navgraph.EmptyContextPlaceholder
	return in.PlanContext == "" && navEmpty && in.PreviousGuide == ""
}

func (g *Generator) buildUserPrompt(in Inputs) string {
	planContext := in.PlanContext
	if planContext == "" {
		planContext = "No similar successful plans found."
	}
	navContext := in.NavigationContext
	if navContext == "" {
		navContext = navgraph.EmptyContextPlaceholder
	}

	previous := "No previous attempt guide available."
	if in.PreviousGuide != "" {
		previous = fmt.Sprintf("Previous attempt guide:\n%s\n\nUse this guide to understand what was tried before and avoid repeating unsuccessful approaches.", in.PreviousGuide)
	}

	return fmt.Sprintf(generationUserPromptTemplate,
		in.Task, planContext, navContext, previous, in.WebsiteURL, ClassifyTask(in.Task), in.AttemptCount)
}

// ClassifyTask tags a task description by keyword. First match wins, so a
// "search and delete" task classifies as Search.
func ClassifyTask(task string) TaskType {
	lower := strings.ToLower(task)
	containsAny := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	switch {
	case containsAny("login", "sign in", "authenticate"):
		return TaskAuthentication
	case containsAny("search", "find", "look for"):
		return TaskSearch
	case containsAny("save", "add", "create", "book"):
		return TaskCreation
	case containsAny("remove", "delete", "cancel"):
		return TaskDeletion
	case containsAny("navigate", "go to", "visit"):
		return TaskNavigation
	default:
		return TaskGeneral
	}
}

// FallbackGuide is the degraded output used when guide synthesis fails.
func FallbackGuide(task, previousGuide string) string {
	var sb strings.Builder
	sb.WriteString("## Fallback Guide (Generated due to system error)\n\n")
	fmt.Fprintf(&sb, "**Task:** %s\n\n", task)
	sb.WriteString("### Basic Approach:\n")
	sb.WriteString("1. Navigate to the website\n")
	sb.WriteString("2. Identify the main elements needed for the task\n")
	sb.WriteString("3. Follow a logical sequence of actions\n")
	sb.WriteString("4. Verify each step before proceeding\n")
	sb.WriteString("5. Check for success indicators\n\n")

	if previousGuide != "" {
		sb.WriteString("### Previous Attempt Insights:\n")
		sb.WriteString(previousGuide)
		sb.WriteString("\n\n")
	}

	sb.WriteString("**Note:** This is a fallback guide. Consider reviewing the task and previous attempts for better guidance.")
	return sb.String()
}
