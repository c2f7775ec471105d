package syllabus

import (
	"fmt"
	"strings"
)

const outlineSystemPrompt = `You design short self-paced courses made of bite-sized lessons that are reviewed with spaced repetition. Each lesson should be readable in a few minutes and cover one idea.`

func buildOutlineUserMessage(in Input, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\n", in.Topic)
	fmt.Fprintf(&b, "Difficulty: %s\n", in.Difficulty)
	if in.Context != "" {
		fmt.Fprintf(&b, "Learner background: %s\n", in.Context)
	}

	fmt.Fprintf(&b, `
Instructions:
1. Split the topic into about %d modules that build on each other.
2. Give each module about %d lessons, ordered from foundational to advanced.
3. Lesson titles are specific (name the idea, person or event), 3-8 words.
4. Estimate reading time per lesson between %d and %d minutes.
5. List 3-5 learning objectives and any prerequisites.`,
		cfg.Modules, cfg.LessonsPerModule, MinLessonMinutes, MaxLessonMinutes)

	return b.String()
}
