// -- cmd/guide.go --
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dsoriano-dev/webknow/internal/guide"
	"github.com/dsoriano-dev/webknow/internal/navgraph"
	"github.com/dsoriano-dev/webknow/internal/observability"
	"github.com/dsoriano-dev/webknow/internal/planstore"
)

// newGuideCmd creates the standalone `guide` command: synthesize pre-attempt
// guidance from the accumulated knowledge stores without running a task.
func newGuideCmd() *cobra.Command {
	guideCmd := &cobra.Command{
		Use:   "guide [task description]",
		Short: "Generates task guidance from accumulated knowledge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			task := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			websiteURL, _ := cmd.Flags().GetString("url")
			previousGuideFile, _ := cmd.Flags().GetString("previous-guide")
			attempts, _ := cmd.Flags().GetInt("attempts")

			previousGuide := ""
			if previousGuideFile != "" {
				data, err := os.ReadFile(previousGuideFile)
				if err != nil {
					return fmt.Errorf("failed to read previous guide file: %w", err)
				}
				previousGuide = string(data)
			}

			components, err := initKnowledgeComponents(cfg, logger)
			if err != nil {
				return err
			}
			defer components.Shutdown(logger)

			planContext := buildPlanContext(cmd, components.Plans, task, cfg.Evaluator.RetrievalTopK, logger)
			navContext := buildNavContext(components.Graphs, websiteURL, cfg.Knowledge.GraphMaxAge, logger)

			generator := guide.NewGenerator(components.LLM, logger)
			text := generator.Generate(ctx, guide.Inputs{
				Task:              task,
				WebsiteURL:        websiteURL,
				PlanContext:       planContext,
				NavigationContext: navContext,
				PreviousGuide:     previousGuide,
				AttemptCount:      attempts,
			})

			if text == "" {
				fmt.Println("No accumulated knowledge for this task; no guide generated.")
				return nil
			}
			fmt.Println(text)
			return nil
		},
	}

	guideCmd.Flags().StringP("url", "u", "", "Website URL the task targets.")
	guideCmd.Flags().String("previous-guide", "", "File holding the guide from a previous failed attempt.")
	guideCmd.Flags().Int("attempts", 0, "Number of attempts already made.")

	return guideCmd
}

// buildPlanContext retrieves similar successful plans. Retrieval failures
// degrade to an empty context; guidance is best-effort.
func buildPlanContext(cmd *cobra.Command, plans *planstore.Store, task string, topK int, logger *zap.Logger) string {
	ranked, err := plans.FindSimilar(cmd.Context(), task, topK)
	if err != nil {
		logger.Warn("Plan retrieval failed, continuing without plan context", zap.Error(err))
		return ""
	}
	return plans.BuildContext(ranked)
}

// buildNavContext renders the known navigation graph for the target site.
func buildNavContext(graphs *navgraph.Store, websiteURL string, maxAge time.Duration, logger *zap.Logger) string {
	if websiteURL == "" {
		return ""
	}
	record, found, err := graphs.Find(websiteURL, maxAge)
	if err != nil {
		logger.Warn("Navigation graph lookup failed, continuing without graph context", zap.Error(err))
		return ""
	}
	if !found {
		return ""
	}
	return graphs.BuildContext([]*navgraph.Record{record}, 1)
}
