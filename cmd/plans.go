// -- cmd/plans.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dsoriano-dev/webknow/internal/navgraph"
	"github.com/dsoriano-dev/webknow/internal/observability"
	"github.com/dsoriano-dev/webknow/internal/planstore"
)

// newPlansCmd creates the `plans` command group for plan store maintenance.
func newPlansCmd() *cobra.Command {
	plansCmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspects and maintains the stored successful plans",
	}

	plansCmd.AddCommand(
		newPlansListCmd(),
		newPlansStatsCmd(),
		newPlansClearCmd(),
		newPlansDeleteTitleCmd(),
		newPlansDeleteDomainCmd(),
		newPlansDomainKeyCmd(),
	)
	return plansCmd
}

// withPlanStore opens the plan store for a maintenance subcommand and closes
// it afterwards.
func withPlanStore(cmd *cobra.Command, fn func(*planstore.Store, *zap.Logger) error) error {
	logger := observability.GetLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	components, err := initKnowledgeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Shutdown(logger)

	return fn(components.Plans, logger)
}

func newPlansListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lists all stored plans, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPlanStore(cmd, func(plans *planstore.Store, _ *zap.Logger) error {
				stored, err := plans.ListAll(cmd.Context())
				if err != nil {
					return err
				}
				if len(stored) == 0 {
					fmt.Println("No plans stored.")
					return nil
				}
				for _, plan := range stored {
					fmt.Printf("%s  %s\n", plan.CreatedAt.Format("2006-01-02 15:04"), plan.TaskTitle)
					if plan.WebsiteURL != "" {
						fmt.Printf("    site: %s\n", plan.WebsiteURL)
					}
					fmt.Printf("    id: %s  task: %s\n", plan.ID, plan.TaskID)
				}
				fmt.Printf("\n%d plan(s) total\n", len(stored))
				return nil
			})
		},
	}
}

func newPlansStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Prints aggregate plan store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPlanStore(cmd, func(plans *planstore.Store, _ *zap.Logger) error {
				stats, err := plans.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Total plans:     %d\n", stats.TotalPlans)
				fmt.Printf("Unique titles:   %d\n", stats.UniqueTitles)
				fmt.Printf("Unique websites: %d\n", stats.UniqueWebsites)
				for _, title := range stats.Titles {
					fmt.Printf("  - %s\n", title)
				}
				return nil
			})
		},
	}
}

func newPlansClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Deletes every stored plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			confirmed, _ := cmd.Flags().GetBool("yes")
			if !confirmed {
				return fmt.Errorf("refusing to clear the plan store without --yes")
			}
			return withPlanStore(cmd, func(plans *planstore.Store, logger *zap.Logger) error {
				n, err := plans.ClearAll(cmd.Context())
				if err != nil {
					return err
				}
				logger.Info("Plan store cleared", zap.Int64("deleted", n))
				fmt.Printf("Deleted %d plan(s).\n", n)
				return nil
			})
		},
	}
	cmd.Flags().Bool("yes", false, "Confirm deletion of all plans.")
	return cmd
}

func newPlansDeleteTitleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-title [title]",
		Short: "Deletes every plan with the exact title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPlanStore(cmd, func(plans *planstore.Store, _ *zap.Logger) error {
				n, err := plans.DeleteByTitle(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Deleted %d plan(s) titled %q.\n", n, args[0])
				return nil
			})
		},
	}
}

func newPlansDeleteDomainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-domain [url]",
		Short: "Deletes every plan recorded for the URL's domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPlanStore(cmd, func(plans *planstore.Store, _ *zap.Logger) error {
				n, err := plans.DeleteByDomain(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Deleted %d plan(s) for domain %q.\n", n, navgraph.DomainKey(args[0]))
				return nil
			})
		},
	}
}

// newPlansDomainKeyCmd exposes the domain normalization for debugging which
// key a URL maps to.
func newPlansDomainKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "domain-key [url]",
		Short: "Prints the normalized domain key for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := navgraph.DomainKey(args[0])
			if key == "" {
				return fmt.Errorf("could not derive a domain key from %q", args[0])
			}
			fmt.Println(key)
			return nil
		},
	}
}
