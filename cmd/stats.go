package cmd

import (
	"fmt"

	"github.com/abhisek/cognitioflux/internal/ui/theme"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
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
		st, err := e.app.Statistics(ctx, learner)
		if err != nil {
			return err
		}

		rows := []struct {
			label string
			value string
		}{
			{"Current streak", fmt.Sprintf("%d days", st.CurrentStreak)},
			{"Longest streak", fmt.Sprintf("%d days", st.LongestStreak)},
			{"Study time", fmt.Sprintf("%d min", st.TotalStudyTimeMinutes)},
			{"Retention", fmt.Sprintf("%.0f%%", st.AverageRetention*100)},
			{"Topics", fmt.Sprint(st.TotalTopics)},
			{"Lessons", fmt.Sprint(st.TotalLessons)},
			{"Sections done", fmt.Sprint(st.CompletedSections)},
			{"Reviews today", fmt.Sprint(st.ReviewsToday)},
			{"Due today", fmt.Sprint(st.DueToday)},
			{"Overdue", fmt.Sprint(st.OverdueCount)},
			{"New", fmt.Sprint(st.NewCount)},
			{"Graduated", fmt.Sprint(st.GraduatedCount)},
		}

		var out string
		for i, r := range rows {
			if i > 0 {
				out += "\n"
			}
			out += theme.Label.Render(r.label) + theme.Body.Render(r.value)
		}
		fmt.Println(theme.Title.Render("Statistics"))
		fmt.Println(theme.Card.Render(out))
		return nil
	},
}
