// Package syllabus turns a topic into a course outline of modules and
// lessons.
package syllabus

import "context"

// Difficulty levels accepted in Input.Difficulty.
const (
	Beginner     = "beginner"
	Intermediate = "intermediate"
	Advanced     = "advanced"
)

// Input describes the course a learner asked for.
type Input struct {
	Topic      string
	Context    string // free-text background from the learner
	Difficulty string // defaults to Beginner
}

// Outline is a generated course.
type Outline struct {
	Title         string   `json:"title"`
	Overview      string   `json:"overview"`
	Difficulty    string   `json:"difficulty"`
	Objectives    []string `json:"learning_objectives"`
	Prerequisites []string `json:"prerequisites"`
	Modules       []Module `json:"modules"`

	// Source names the generator that produced the outline.
	Source string `json:"-"`
}

type Module struct {
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

type Lesson struct {
	Title   string `json:"title"`
	Minutes int    `json:"estimated_minutes"`
}

// TotalLessons counts lessons across all modules.
func (o *Outline) TotalLessons() int {
	n := 0
	for _, m := range o.Modules {
		n += len(m.Lessons)
	}
	return n
}

// TotalMinutes sums the estimated minutes of every lesson.
func (o *Outline) TotalMinutes() int {
	n := 0
	for _, m := range o.Modules {
		for _, l := range m.Lessons {
			n += l.Minutes
		}
	}
	return n
}

// Generator produces an outline for a topic.
type Generator interface {
	Generate(ctx context.Context, in Input) (*Outline, error)
}
