package syllabus

import (
	"context"
	"fmt"
)

var moduleTemplates = []string{
	"Foundations of %s",
	"Core Ideas in %s",
	"Key Figures and Works in %s",
	"%s in Practice",
	"Debates and Open Questions in %s",
	"Connecting %s to Other Fields",
}

var lessonTemplates = []string{
	"What is %s?",
	"The Vocabulary of %s",
	"A Short History of %s",
	"First Principles of %s",
	"Common Misconceptions about %s",
	"Worked Examples in %s",
	"Review: %s So Far",
}

// TemplateGenerator builds an outline from fixed title patterns. Output
// depends only on the input and the configured shape.
type TemplateGenerator struct {
	cfg Config
}

func NewTemplateGenerator(cfg Config) *TemplateGenerator {
	if cfg.Modules < 1 {
		cfg.Modules = DefaultConfig().Modules
	}
	if cfg.LessonsPerModule < 1 {
		cfg.LessonsPerModule = DefaultConfig().LessonsPerModule
	}
	return &TemplateGenerator{cfg: cfg}
}

func (g *TemplateGenerator) Generate(_ context.Context, in Input) (*Outline, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}

	out := &Outline{
		Title:      fmt.Sprintf("Introduction to %s", in.Topic),
		Overview:   fmt.Sprintf("A %s-level course on %s in short daily lessons.", in.Difficulty, in.Topic),
		Difficulty: in.Difficulty,
		Objectives: []string{
			fmt.Sprintf("Explain the central ideas of %s", in.Topic),
			fmt.Sprintf("Recall the key terms of %s", in.Topic),
			fmt.Sprintf("Apply %s to new examples", in.Topic),
		},
		Source: SourceTemplate,
	}

	n := 0
	for mi := 0; mi < g.cfg.Modules; mi++ {
		m := Module{Title: fmt.Sprintf(moduleTemplates[mi%len(moduleTemplates)], in.Topic)}
		for li := 0; li < g.cfg.LessonsPerModule; li++ {
			title := fmt.Sprintf(lessonTemplates[n%len(lessonTemplates)], in.Topic)
			if n >= len(lessonTemplates) {
				title = fmt.Sprintf("%s (part %d)", title, n/len(lessonTemplates)+1)
			}
			m.Lessons = append(m.Lessons, Lesson{Title: title, Minutes: 3 + li%3})
			n++
		}
		out.Modules = append(out.Modules, m)
	}

	if err := Normalize(out); err != nil {
		return nil, err
	}
	return out, nil
}
