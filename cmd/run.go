// -- cmd/run.go --
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dsoriano-dev/webknow/internal/evaluator"
	"github.com/dsoriano-dev/webknow/internal/observability"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [task description]",
		Short: "Runs one task through the execute/evaluate retry loop",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their Viper keys so they override config file and
			// environment values with the right precedence.
			if err := viper.BindPFlag("evaluator.max_attempts", cmd.Flags().Lookup("max-attempts")); err != nil {
				return err
			}
			return viper.BindPFlag("evaluator.max_steps", cmd.Flags().Lookup("max-steps"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			websiteURL, _ := cmd.Flags().GetString("url")
			historyFiles, _ := cmd.Flags().GetStringSlice("history")
			if len(historyFiles) == 0 {
				return fmt.Errorf("at least one --history file is required; the evaluation loop replays recorded agent traces")
			}

			components, err := initKnowledgeComponents(cfg, logger)
			if err != nil {
				return err
			}
			defer components.Shutdown(logger)

			agent, err := evaluator.NewReplayRunner(logger, historyFiles...)
			if err != nil {
				return err
			}

			orch := evaluator.NewOrchestrator(agent, components.LLM, components.Graphs, components.Plans,
				cfg.Evaluator, cfg.Knowledge.DataDir, logger)

			run, err := orch.Run(ctx, args[0], websiteURL)
			if err != nil {
				if errors.Is(err, context.Canceled) && run != nil {
					logger.Warn("Task run aborted", zap.String("run_id", run.RunID))
					return fmt.Errorf("task run aborted by user signal")
				}
				return err
			}

			fmt.Printf("\nRun complete. Run ID: %s\n", run.RunID)
			fmt.Printf("Final status: %s after %d attempt(s)\n", run.FinalState, len(run.Attempts))
			if run.SuccessfulPlan != "" {
				fmt.Printf("\nSuccessful plan:\n%s\n", run.SuccessfulPlan)
			}
			return nil
		},
	}

	runCmd.Flags().StringP("url", "u", "", "Website URL the task targets. Defaults to the URL the evaluator extracts.")
	runCmd.Flags().StringSlice("history", nil, "Recorded agent history JSON file, one per attempt (last file repeats).")
	runCmd.Flags().Int("max-attempts", 0, "Maximum retry attempts. (Overrides config/env)")
	runCmd.Flags().Int("max-steps", 0, "Maximum agent steps per attempt. (Overrides config/env)")

	return runCmd
}
