// -- cmd/batch.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dsoriano-dev/webknow/internal/batch"
	"github.com/dsoriano-dev/webknow/internal/evaluator"
	"github.com/dsoriano-dev/webknow/internal/observability"
)

// newBatchCmd creates and configures the `batch` command.
func newBatchCmd() *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Runs a benchmark dataset through the evaluation loop",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("batch.dataset_file", cmd.Flags().Lookup("dataset")); err != nil {
				return err
			}
			if err := viper.BindPFlag("batch.difficulty", cmd.Flags().Lookup("difficulty")); err != nil {
				return err
			}
			return viper.BindPFlag("batch.output_dir", cmd.Flags().Lookup("output"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Batch.DatasetFile == "" {
				return fmt.Errorf("no dataset file configured; pass --dataset or set batch.dataset_file")
			}

			historyFiles, _ := cmd.Flags().GetStringSlice("history")
			if len(historyFiles) == 0 {
				return fmt.Errorf("at least one --history file is required; the evaluation loop replays recorded agent traces")
			}

			tasks, err := batch.LoadDataset(cfg.Batch.DatasetFile, cfg.Batch.Difficulty, logger)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Println("No tasks matched the difficulty filter; nothing to do.")
				return nil
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
			runner := batch.NewRunner(orch, cfg.Batch, logger)

			summary, err := runner.Execute(ctx, tasks)
			if summary != nil {
				fmt.Printf("\nBatch complete: %d task(s)\n", summary.TotalTasks)
				fmt.Printf("Successful executions:  %d\n", summary.SuccessfulExecutions)
				fmt.Printf("Failed executions:      %d\n", summary.FailedExecutions)
				fmt.Printf("Successful completions: %d\n", summary.SuccessfulCompletions)
				fmt.Printf("Tasks with errors:      %d\n", summary.TasksWithErrors)
				fmt.Printf("Summary written to:     %s/execution_summary.json\n", cfg.Batch.OutputDir)
			}
			return err
		},
	}

	batchCmd.Flags().StringP("dataset", "d", "", "Benchmark CSV file. (Overrides config/env)")
	batchCmd.Flags().String("difficulty", "", "Difficulty filter; empty keeps all rows. (Overrides config/env)")
	batchCmd.Flags().StringP("output", "o", "", "Directory for batch artifacts. (Overrides config/env)")
	batchCmd.Flags().StringSlice("history", nil, "Recorded agent history JSON file, one per attempt (last file repeats).")

	return batchCmd
}
