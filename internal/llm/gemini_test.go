package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGeminiModelAliases(t *testing.T) {
	assert.Equal(t, "gemini-2.0-flash", resolveModel("gemini-flash", geminiModels))
	assert.Equal(t, "gemini-2.0-pro", resolveModel("gemini-pro", geminiModels))
	assert.Equal(t, "gemini-2.5-flash", resolveModel("gemini-2.5-flash", geminiModels))
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(outlineSchema().Definition)

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.ElementsMatch(t, []string{"title", "modules"}, s.Required)

	modules := s.Properties["modules"]
	require.NotNil(t, modules)
	assert.Equal(t, genai.TypeArray, modules.Type)
	require.NotNil(t, modules.MinItems)
	assert.Equal(t, int64(1), *modules.MinItems)

	item := modules.Items
	require.NotNil(t, item)
	assert.Equal(t, genai.TypeObject, item.Type)
	assert.Equal(t, genai.TypeInteger, item.Properties["minutes"].Type)
	require.NotNil(t, item.Properties["minutes"].Minimum)
	assert.Equal(t, 1.0, *item.Properties["minutes"].Minimum)
}

func TestGeminiSchema_EnumAndUnknownType(t *testing.T) {
	s := geminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"kind":  map[string]any{"type": "string", "enum": []any{"reading", "quiz"}},
			"blob":  map[string]any{"type": "null"},
			"score": map[string]any{"type": "number", "maximum": 5},
		},
	})
	assert.Equal(t, []string{"reading", "quiz"}, s.Properties["kind"].Enum)
	assert.Equal(t, genai.TypeString, s.Properties["blob"].Type)
	assert.Equal(t, 5.0, *s.Properties["score"].Maximum)
}
