package cmd

import (
	"fmt"
	"strings"

	"github.com/abhisek/cognitioflux/internal/app"
	"github.com/abhisek/cognitioflux/internal/ui/theme"
	"github.com/spf13/cobra"
)

var topicCmd = &cobra.Command{
	Use:   "topic",
	Short: "Manage a learner's topics",
}

var topicAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a topic and generate its course outline",
	Args:  cobra.MinimumNArgs(1),
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
		name := strings.Join(args, " ")

		if empty, _ := cmd.Flags().GetBool("empty"); empty {
			t, err := e.app.CreateTopic(ctx, learner, name)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s %s\n", theme.Ok.Render("✓"), t.Name, theme.Hint.Render(t.ID))
			return e.save(ctx)
		}

		background, _ := cmd.Flags().GetString("context")
		difficulty, _ := cmd.Flags().GetString("difficulty")
		sum, err := e.app.CreateCourse(ctx, app.CreateCourseInput{
			Topic:      name,
			Email:      learner,
			Context:    background,
			Difficulty: difficulty,
		})
		if err != nil {
			return err
		}

		fmt.Println(theme.Title.Render(sum.CourseTitle))
		fmt.Println(theme.Label.Render("Course ID") + sum.CourseID)
		fmt.Println(theme.Label.Render("Modules") + fmt.Sprint(sum.TotalModules))
		fmt.Println(theme.Label.Render("Lessons") + fmt.Sprint(sum.TotalLessons))
		fmt.Println(theme.Label.Render("Estimated time") + fmt.Sprintf("%d min", sum.EstimatedDuration))
		return e.save(ctx)
	},
}

var topicListCmd = &cobra.Command{
	Use:   "list",
	Short: "List topics with retention and cognitive load",
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
		topics, err := e.app.Topics(ctx, learner)
		if err != nil {
			return err
		}
		if len(topics) == 0 {
			fmt.Println("No topics yet. Add one with: cognitioflux topic add <name>")
			return nil
		}

		fmt.Printf("%-36s  %-28s  %8s  %9s  %-8s\n", "ID", "Name", "Sections", "Retention", "Load")
		fmt.Println(theme.Rule(98))
		for _, t := range topics {
			fmt.Printf("%-36s  %-28s  %8d  %8.0f%%  %-8s\n",
				t.ID, truncate(t.Name, 28), t.CompletedSectionCount, t.RetentionScore*100, t.CognitiveLoad)
		}
		return nil
	},
}

var topicLessonsCmd = &cobra.Command{
	Use:   "lessons <topic-id>",
	Short: "List a topic's lessons and their review schedule",
	Args:  cobra.ExactArgs(1),
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
		records, err := e.app.Lessons(ctx, learner, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%-48s  %-32s  %-9s  %4s  %5s  %s\n", "ID", "Title", "State", "Reps", "EF", "Next due")
		fmt.Println(theme.Rule(120))
		for _, r := range records {
			fmt.Printf("%-48s  %-32s  %-9s  %4d  %5.2f  %s\n",
				truncate(r.ID, 48), truncate(r.Title, 32), r.State, r.RepetitionCount, r.EasinessFactor,
				r.NextDueAt.In(e.app.Now().Location()).Format("2006-01-02"))
		}
		return nil
	},
}

var topicCompleteCmd = &cobra.Command{
	Use:   "complete <topic-id>",
	Short: "Record a completed section",
	Args:  cobra.ExactArgs(1),
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
		t, err := e.app.RecordSection(ctx, learner, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s %s: %d sections completed\n", theme.Ok.Render("✓"), t.Name, t.CompletedSectionCount)
		return e.save(ctx)
	},
}

var topicResetCmd = &cobra.Command{
	Use:   "reset <topic-id>",
	Short: "Return every lesson of a topic to the new state",
	Args:  cobra.ExactArgs(1),
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
		t, err := e.app.ResetTopic(ctx, learner, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s %s reset\n", theme.Ok.Render("✓"), t.Name)
		return e.save(ctx)
	},
}

var topicRemoveCmd = &cobra.Command{
	Use:     "rm <topic-id>",
	Aliases: []string{"remove"},
	Short:   "Delete a topic and its lessons",
	Args:    cobra.ExactArgs(1),
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
		if err := e.app.DeleteTopic(ctx, learner, args[0]); err != nil {
			return err
		}
		fmt.Printf("%s deleted %s\n", theme.Ok.Render("✓"), args[0])
		return e.save(ctx)
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func init() {
	topicAddCmd.Flags().String("context", "", "Learner background used to tailor the outline")
	topicAddCmd.Flags().String("difficulty", "", "beginner, intermediate or advanced")
	topicAddCmd.Flags().Bool("empty", false, "Create the topic without generating lessons")

	topicCmd.AddCommand(topicAddCmd)
	topicCmd.AddCommand(topicListCmd)
	topicCmd.AddCommand(topicLessonsCmd)
	topicCmd.AddCommand(topicCompleteCmd)
	topicCmd.AddCommand(topicResetCmd)
	topicCmd.AddCommand(topicRemoveCmd)
}
