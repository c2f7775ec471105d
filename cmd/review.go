package cmd

import (
	"fmt"

	"github.com/abhisek/cognitioflux/internal/spacedrep"
	"github.com/abhisek/cognitioflux/internal/ui/theme"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review <topic-id> <lesson-id>",
	Short: "Grade a lesson review with an SM-2 quality from 0 to 5",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, _ := cmd.Flags().GetInt("quality")

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
		rec, err := e.app.Review(ctx, learner, args[0], args[1], spacedrep.Quality(q))
		if err != nil {
			return err
		}

		mark := theme.Ok.Render("✓")
		if !spacedrep.Quality(q).Passed() {
			mark = theme.Fail.Render("✗")
		}
		fmt.Printf("%s %s\n", mark, rec.Title)
		fmt.Println(theme.Label.Render("Repetitions") + fmt.Sprint(rec.RepetitionCount))
		fmt.Println(theme.Label.Render("Interval") + fmt.Sprintf("%d days", rec.IntervalDays))
		fmt.Println(theme.Label.Render("Easiness") + fmt.Sprintf("%.2f", rec.EasinessFactor))
		fmt.Println(theme.Label.Render("Next review") + rec.NextDueAt.In(e.app.Now().Location()).Format("Mon 2006-01-02"))
		return e.save(ctx)
	},
}

func init() {
	reviewCmd.Flags().IntP("quality", "q", int(spacedrep.QualityCorrectHesitant), "Recall quality (0 blackout, 5 perfect)")
}
