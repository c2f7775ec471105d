package syllabus

import (
	"fmt"
	"strings"

	"github.com/abhisek/cognitioflux/internal/apperr"
)

// normalizeInput trims the input and fills defaults.
func normalizeInput(in Input) (Input, error) {
	in.Topic = strings.TrimSpace(in.Topic)
	in.Context = strings.TrimSpace(in.Context)
	in.Difficulty = strings.ToLower(strings.TrimSpace(in.Difficulty))

	if in.Topic == "" {
		return in, apperr.Validation("topic", "must not be empty")
	}
	switch in.Difficulty {
	case "":
		in.Difficulty = Beginner
	case Beginner, Intermediate, Advanced:
	default:
		return in, apperr.Validation("difficulty", fmt.Sprintf("must be one of %s, %s, %s", Beginner, Intermediate, Advanced))
	}
	return in, nil
}

// Normalize trims titles, drops untitled lessons, clamps lesson minutes
// to [MinLessonMinutes, MaxLessonMinutes] and rejects outlines without a
// title or without lessons.
func Normalize(o *Outline) error {
	o.Title = strings.TrimSpace(o.Title)
	if o.Title == "" {
		return apperr.Validation("title", "outline has no title")
	}
	o.Overview = strings.TrimSpace(o.Overview)
	o.Objectives = compact(o.Objectives)
	o.Prerequisites = compact(o.Prerequisites)

	modules := o.Modules[:0]
	for _, m := range o.Modules {
		m.Title = strings.TrimSpace(m.Title)
		lessons := m.Lessons[:0]
		for _, l := range m.Lessons {
			l.Title = strings.TrimSpace(l.Title)
			if l.Title == "" {
				continue
			}
			l.Minutes = clamp(l.Minutes, MinLessonMinutes, MaxLessonMinutes)
			lessons = append(lessons, l)
		}
		if len(lessons) == 0 {
			continue
		}
		if m.Title == "" {
			m.Title = fmt.Sprintf("Module %d", len(modules)+1)
		}
		m.Lessons = lessons
		modules = append(modules, m)
	}
	o.Modules = modules

	if len(o.Modules) == 0 {
		return apperr.Validation("modules", "outline has no lessons")
	}
	return nil
}

func compact(items []string) []string {
	out := items[:0]
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
