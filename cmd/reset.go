package cmd

import (
	"fmt"

	"github.com/abhisek/cognitioflux/internal/ui/theme"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset learner data",
	Long: "Reset every topic of the learner set with --learner back to unreviewed lessons. " +
		"With --all, forget every learner. A new snapshot is written; older snapshots are pruned.",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if all {
			n := len(e.app.Learners())
			e.app.Reset(ctx)
			if err := e.save(ctx); err != nil {
				return err
			}
			fmt.Printf("%s forgot %d learners\n", theme.Ok.Render("✓"), n)
			return nil
		}

		learner, err := e.learner()
		if err != nil {
			return err
		}
		topics, err := e.app.Topics(ctx, learner)
		if err != nil {
			return err
		}
		for _, t := range topics {
			if _, err := e.app.ResetTopic(ctx, learner, t.ID); err != nil {
				return err
			}
		}
		if err := e.save(ctx); err != nil {
			return err
		}
		fmt.Printf("%s reset %d topics\n", theme.Ok.Render("✓"), len(topics))
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("all", false, "Forget every learner")
}
