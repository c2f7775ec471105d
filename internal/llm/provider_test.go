package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outlineSchema() *Schema {
	return &Schema{
		Name:        "test-outline",
		Description: "A course outline",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{"type": "string"},
				"modules": map[string]any{
					"type":     "array",
					"minItems": 1,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"title":   map[string]any{"type": "string"},
							"minutes": map[string]any{"type": "integer", "minimum": 1},
						},
						"required": []any{"title"},
					},
				},
			},
			"required": []any{"title", "modules"},
		},
	}
}

func TestMockProvider_ReplaysInOrder(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5}},
		MockResponse{Content: json.RawMessage(`{"b":2}`)},
	)

	first, err := mock.Generate(context.Background(), Prompt("", "first", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(first.Content))
	assert.Equal(t, 15, first.Usage.TotalTokens)
	assert.Equal(t, StopEnd, first.StopReason)

	second, err := mock.Generate(context.Background(), Prompt("", "second", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":2}`, string(second.Content))
	assert.Equal(t, 2, mock.CallCount())
	assert.Equal(t, "second", mock.Calls[1].Messages[0].Content)
}

func TestMockProvider_Exhausted(t *testing.T) {
	_, err := NewMockProvider().Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	assert.ErrorAs(t, err, &unavail)
}

func TestMockProvider_ValidatesSchema(t *testing.T) {
	mock := NewMockProvider(MockJSON(map[string]any{"title": "Stoicism"}))
	_, err := mock.Generate(context.Background(), Prompt("sys", "outline", outlineSchema()))
	var inv *ErrInvalidResponse
	assert.ErrorAs(t, err, &inv)
}

func TestMockProvider_ScriptedError(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrRateLimit{}})
	_, err := mock.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	assert.ErrorAs(t, err, &rl)
	assert.Equal(t, "mock", mock.ModelID())
}

func TestResponseDecode(t *testing.T) {
	resp := &Response{Content: json.RawMessage(`{"title":"Logic"}`)}
	var out struct{ Title string }
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, "Logic", out.Title)
}

func TestFinish_TruncatedStructuredOutput(t *testing.T) {
	_, err := finish(Prompt("", "x", outlineSchema()), json.RawMessage(`{"title":`), Usage{}, "m", StopMaxTokens)
	var maxTok *ErrMaxTokensExceeded
	assert.ErrorAs(t, err, &maxTok)

	resp, err := finish(Prompt("", "x", nil), json.RawMessage(`"partial`), Usage{}, "m", StopMaxTokens)
	require.NoError(t, err)
	assert.Equal(t, StopMaxTokens, resp.StopReason)
}

func TestRequestMaxTokensDefault(t *testing.T) {
	assert.Equal(t, DefaultMaxTokens, Request{}.maxTokens())
	assert.Equal(t, 99, Request{MaxTokens: 99}.maxTokens())
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, PurposeUnknown, PurposeFrom(ctx))
	assert.Equal(t, PurposeCourseOutline, PurposeFrom(WithPurpose(ctx, PurposeCourseOutline)))
}

func TestClassifyStatus(t *testing.T) {
	base := errors.New("boom")

	var rl *ErrRateLimit
	assert.ErrorAs(t, classifyStatus(429, base), &rl)

	var req *ErrRequest
	require.ErrorAs(t, classifyStatus(401, base), &req)
	assert.Equal(t, 401, req.StatusCode)

	var unavail *ErrProviderUnavailable
	assert.ErrorAs(t, classifyStatus(503, base), &unavail)
	assert.ErrorAs(t, classifyStatus(0, base), &unavail)
	assert.ErrorIs(t, classifyStatus(503, base), base)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"anthropic without key", Config{Provider: ProviderAnthropic}, true},
		{"anthropic with key", Config{Provider: ProviderAnthropic, Anthropic: AnthropicConfig{APIKey: "sk"}}, false},
		{"openai without key", Config{Provider: ProviderOpenAI}, true},
		{"openrouter with key", Config{Provider: ProviderOpenRouter, OpenRouter: OpenRouterConfig{APIKey: "sk"}}, false},
		{"gemini without key", Config{Provider: ProviderGemini}, true},
		{"mock needs no key", Config{Provider: ProviderMock}, false},
		{"unknown provider", Config{Provider: "parrot"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigFromLookup(t *testing.T) {
	env := map[string]string{
		"COGNITIOFLUX_LLM_PROVIDER":       "openrouter",
		"COGNITIOFLUX_OPENROUTER_API_KEY": "sk-or",
		"COGNITIOFLUX_OPENROUTER_MODEL":   "meta-llama/llama-3-8b",
		"COGNITIOFLUX_LLM_TIMEOUT":        "15s",
		"COGNITIOFLUX_LLM_MAX_ATTEMPTS":   "5",
		"COGNITIOFLUX_OPENAI_MODEL":       "",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg := configFromLookup(lookup)
	assert.Equal(t, ProviderOpenRouter, cfg.Provider)
	assert.Equal(t, "sk-or", cfg.OpenRouter.APIKey)
	assert.Equal(t, "meta-llama/llama-3-8b", cfg.OpenRouter.Model)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model, "empty values keep defaults")
	assert.NoError(t, cfg.Validate())
}

func TestDiscoverFromLookup(t *testing.T) {
	env := map[string]string{"OPENAI_API_KEY": "sk-oa", "ANTHROPIC_API_KEY": "sk-ant"}
	cfg, ok := discoverFromLookup(func(k string) (string, bool) { v, ok := env[k]; return v, ok })
	require.True(t, ok)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "sk-oa", cfg.OpenAI.APIKey)

	_, ok = discoverFromLookup(func(string) (string, bool) { return "", false })
	assert.False(t, ok)
}

func TestNewProvider_Mock(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: ProviderMock, Timeout: time.Second}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "mock", p.ModelID())

	_, err = NewProvider(context.Background(), Config{Provider: ProviderOpenAI}, nil, nil)
	assert.Error(t, err)
}

func TestWithTimeout(t *testing.T) {
	slow := providerFunc(func(ctx context.Context, _ Request) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, err := WithTimeout(slow, 5*time.Millisecond).Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, wrapped := WithTimeout(slow, 0).(*timeoutProvider)
	assert.False(t, wrapped)
}

type providerFunc func(ctx context.Context, req Request) (*Response, error)

func (f providerFunc) Generate(ctx context.Context, req Request) (*Response, error) { return f(ctx, req) }
func (f providerFunc) ModelID() string                                              { return "func" }
