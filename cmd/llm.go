package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/abhisek/cognitioflux/internal/llm"
	"github.com/abhisek/cognitioflux/internal/store"
	"github.com/abhisek/cognitioflux/internal/syllabus"
	"github.com/abhisek/cognitioflux/internal/ui/theme"
	"github.com/spf13/cobra"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect course generation calls made to the LLM provider",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM calls with the outlines they produced",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		failed, _ := cmd.Flags().GetBool("failed")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(context.Background(), store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		events = filterLLMEvents(events, purpose, failed)
		if len(events) == 0 {
			fmt.Println(theme.Hint.Render("No LLM calls recorded."))
			return nil
		}

		fmt.Println(theme.Title.Render(fmt.Sprintf("%d LLM calls", len(events))))
		fmt.Println(theme.Rule(96))
		for _, e := range events {
			fmt.Println(llmEventLine(e))
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show one LLM call and the course outline it returned",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid event ID %q", args[0])
		}
		raw, _ := cmd.Flags().GetBool("raw")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(context.Background(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}

		status := theme.Ok.Render("ok")
		if !e.Success {
			status = theme.Fail.Render("failed: " + e.ErrorMessage)
		}
		fmt.Println(theme.Card.Render(strings.Join([]string{
			theme.Label.Render("Event") + strconv.Itoa(e.ID),
			theme.Label.Render("Time") + e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			theme.Label.Render("Model") + e.Provider + " / " + e.Model,
			theme.Label.Render("Purpose") + e.Purpose,
			theme.Label.Render("Tokens") + fmt.Sprintf("%d in, %d out", e.InputTokens, e.OutputTokens),
			theme.Label.Render("Latency") + fmt.Sprintf("%dms", e.LatencyMs),
			theme.Label.Render("Status") + status,
		}, "\n")))

		if o, ok := decodeOutline(*e); ok && !raw {
			fmt.Println()
			fmt.Print(renderOutline(o))
			return nil
		}

		for _, part := range []struct{ name, body string }{
			{"Request", e.RequestBody},
			{"Response", e.ResponseBody},
		} {
			fmt.Println()
			fmt.Println(theme.Title.Render(part.name))
			fmt.Println(theme.Rule(60))
			if part.body == "" {
				fmt.Println(theme.Hint.Render("not captured"))
				continue
			}
			fmt.Println(prettyJSON(part.body))
		}
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize course generation and token usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()
		events, err := s.EventRepo().QueryLLMEvents(ctx, store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println(theme.Hint.Render("No LLM usage recorded yet."))
			return nil
		}

		cs := summarizeCourses(events)
		fmt.Println(theme.Card.Render(strings.Join([]string{
			theme.Title.Render("Course generation"),
			theme.Label.Render("Outlines") + strconv.Itoa(cs.Outlines),
			theme.Label.Render("Failed calls") + strconv.Itoa(cs.Failed),
			theme.Label.Render("Avg modules") + fmt.Sprintf("%.1f", cs.avg(cs.Modules)),
			theme.Label.Render("Avg lessons") + fmt.Sprintf("%.1f", cs.avg(cs.Lessons)),
			theme.Label.Render("Avg course") + fmt.Sprintf("%.0f min", cs.avg(cs.Minutes)),
		}, "\n")))

		byPurpose, err := s.EventRepo().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		byModel, err := s.EventRepo().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		printUsage("By purpose", byPurpose)
		printUsage("By model", byModel)
		return nil
	},
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only show calls with this purpose (e.g. "+llm.PurposeCourseOutline+")")
	llmListCmd.Flags().Bool("failed", false, "Only show failed calls")
	llmViewCmd.Flags().Bool("raw", false, "Print request and response bodies instead of the outline")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}

func filterLLMEvents(events []store.LLMEventRecord, purpose string, failedOnly bool) []store.LLMEventRecord {
	out := events[:0:0]
	for _, e := range events {
		if purpose != "" && e.Purpose != purpose {
			continue
		}
		if failedOnly && e.Success {
			continue
		}
		out = append(out, e)
	}
	return out
}

// llmEventLine renders one call: what it produced for course outlines,
// the error otherwise.
func llmEventLine(e store.LLMEventRecord) string {
	var result string
	switch o, ok := decodeOutline(e); {
	case !e.Success:
		result = theme.Fail.Render("✗ " + truncate(e.ErrorMessage, 40))
	case ok:
		result = theme.Ok.Render("✓ ") + truncate(o.Title, 30) + " " + theme.Hint.Render(outlineSize(o))
	default:
		result = theme.Ok.Render("✓")
	}
	return fmt.Sprintf("%4d  %s  %-24s %6d/%-6d %6dms  %s",
		e.ID,
		e.Timestamp.Local().Format("01-02 15:04"),
		truncate(e.Model, 24),
		e.InputTokens, e.OutputTokens,
		e.LatencyMs,
		result)
}

// decodeOutline returns the course outline carried by a successful
// course-outline call.
func decodeOutline(e store.LLMEventRecord) (*syllabus.Outline, bool) {
	if !e.Success || e.Purpose != llm.PurposeCourseOutline || e.ResponseBody == "" {
		return nil, false
	}
	var o syllabus.Outline
	if err := json.Unmarshal([]byte(e.ResponseBody), &o); err != nil || len(o.Modules) == 0 {
		return nil, false
	}
	return &o, true
}

func outlineSize(o *syllabus.Outline) string {
	return fmt.Sprintf("%d modules · %d lessons · %d min", len(o.Modules), o.TotalLessons(), o.TotalMinutes())
}

func renderOutline(o *syllabus.Outline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", theme.Title.Render(o.Title), theme.Hint.Render(outlineSize(o)))
	if o.Overview != "" {
		fmt.Fprintln(&b, theme.Body.Render(o.Overview))
	}
	for i, m := range o.Modules {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, m.Title)
		for j, l := range m.Lessons {
			fmt.Fprintf(&b, "   %d.%d %-48s %s\n", i+1, j+1, truncate(l.Title, 48), theme.Hint.Render(fmt.Sprintf("%d min", l.Minutes)))
		}
	}
	return b.String()
}

// courseSummary aggregates course-outline calls.
type courseSummary struct {
	Outlines int
	Failed   int
	Modules  int
	Lessons  int
	Minutes  int
}

func (c courseSummary) avg(total int) float64 {
	if c.Outlines == 0 {
		return 0
	}
	return float64(total) / float64(c.Outlines)
}

func summarizeCourses(events []store.LLMEventRecord) courseSummary {
	var cs courseSummary
	for _, e := range events {
		if e.Purpose != llm.PurposeCourseOutline {
			continue
		}
		if !e.Success {
			cs.Failed++
			continue
		}
		o, ok := decodeOutline(e)
		if !ok {
			continue
		}
		cs.Outlines++
		cs.Modules += len(o.Modules)
		cs.Lessons += o.TotalLessons()
		cs.Minutes += o.TotalMinutes()
	}
	return cs
}

func printUsage(title string, rows []store.LLMUsage) {
	fmt.Println()
	fmt.Println(theme.Title.Render(title))
	fmt.Printf("%-32s %6s %10s %10s %8s\n", "", "Calls", "In", "Out", "Avg ms")
	fmt.Println(theme.Rule(70))
	for _, u := range rows {
		fmt.Printf("%-32s %6d %10d %10d %8d\n",
			truncate(u.Key, 32), u.Calls, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
	}
}

// prettyJSON indents body when it is JSON and returns it unchanged
// otherwise.
func prettyJSON(body string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(body), "", "  "); err != nil {
		return body
	}
	return buf.String()
}

// openStore opens the configured database without restoring learner state.
func openStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}
