package syllabus

// Lesson duration bounds in minutes. Generated values are clamped.
const (
	MinLessonMinutes = 1
	MaxLessonMinutes = 30
)

type Config struct {
	MaxTokens   int
	Temperature float64

	// Shape of the outline requested from the model and produced by the
	// template generator.
	Modules          int
	LessonsPerModule int
}

func DefaultConfig() Config {
	return Config{
		MaxTokens:        2048,
		Temperature:      0.4,
		Modules:          4,
		LessonsPerModule: 3,
	}
}
