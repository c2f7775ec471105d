package syllabus

import "github.com/abhisek/cognitioflux/internal/llm"

// OutlineSchema is the structured output requested from the model.
var OutlineSchema = &llm.Schema{
	Name:        "course-outline",
	Description: "A course outline split into modules of short lessons",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Course title (3-10 words)",
			},
			"overview": map[string]any{
				"type":        "string",
				"description": "Two or three sentences describing the course",
			},
			"learning_objectives": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "3-5 things the learner will be able to do",
			},
			"prerequisites": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Prior knowledge assumed, possibly empty",
			},
			"modules": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{"type": "string"},
						"lessons": map[string]any{
							"type":     "array",
							"minItems": 1,
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"title": map[string]any{"type": "string"},
									"estimated_minutes": map[string]any{
										"type":        "integer",
										"description": "Reading time in minutes (1-30)",
									},
								},
								"required":             []any{"title", "estimated_minutes"},
								"additionalProperties": false,
							},
						},
					},
					"required":             []any{"title", "lessons"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"title", "overview", "learning_objectives", "prerequisites", "modules"},
		"additionalProperties": false,
	},
}
