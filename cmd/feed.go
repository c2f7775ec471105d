package cmd

import (
	"fmt"

	"github.com/abhisek/cognitioflux/internal/feed"
	"github.com/abhisek/cognitioflux/internal/spacedrep"
	"github.com/abhisek/cognitioflux/internal/ui/theme"
	"github.com/spf13/cobra"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show today's lesson feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		learner, err := e.learner()
		if err != nil {
			return err
		}
		maxNew := e.cfg.MaxNewItems
		if cmd.Flags().Changed("max-new") {
			maxNew, _ = cmd.Flags().GetInt("max-new")
		}
		df, err := e.app.DailyFeedWith(ctx, learner, maxNew)
		if err != nil {
			return err
		}

		fmt.Println(theme.Title.Render(df.Greeting))
		if len(df.Result.AllEntries) == 0 {
			return nil
		}
		fmt.Println()
		for _, entry := range df.Result.AllEntries {
			fmt.Println(feedLine(entry))
		}
		fmt.Println(theme.Rule(72))
		fmt.Println(theme.Hint.Render(fmt.Sprintf("%d lessons, about %d min", len(df.Result.AllEntries), df.Result.EstimatedMinutes)))
		return nil
	},
}

func feedLine(e feed.Entry) string {
	var tag string
	switch e.Classification {
	case spacedrep.ClassOverdue:
		tag = theme.Overdue.Render(fmt.Sprintf("%-9s", fmt.Sprintf("+%dd", e.DaysOverdue)))
	case spacedrep.ClassReview:
		tag = theme.Review.Render(fmt.Sprintf("%-9s", "review"))
	default:
		tag = theme.New.Render(fmt.Sprintf("%-9s", "new"))
	}
	return fmt.Sprintf("%3.0f  %s %-40s %s",
		e.Priority, tag, truncate(e.Record.Title, 40),
		theme.Hint.Render(fmt.Sprintf("%s · %d min · %s", e.TopicName, e.Record.EstimatedMinutes, e.Record.ID)))
}

func init() {
	feedCmd.Flags().Int("max-new", 0, "New lessons to include (defaults to the max-new-items setting)")
}
