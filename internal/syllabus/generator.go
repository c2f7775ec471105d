package syllabus

import (
	"context"
	"fmt"

	"github.com/abhisek/cognitioflux/internal/llm"
	"github.com/abhisek/cognitioflux/internal/logger"
)

// Generator sources recorded in Outline.Source.
const (
	SourceLLM      = "llm"
	SourceTemplate = "template"
)

// LLMGenerator asks a provider for a structured outline.
type LLMGenerator struct {
	provider llm.Provider
	cfg      Config
}

func NewLLMGenerator(provider llm.Provider, cfg Config) *LLMGenerator {
	return &LLMGenerator{provider: provider, cfg: cfg}
}

func (g *LLMGenerator) Generate(ctx context.Context, in Input) (*Outline, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}

	req := llm.Prompt(outlineSystemPrompt, buildOutlineUserMessage(in, g.cfg), OutlineSchema)
	req.MaxTokens = g.cfg.MaxTokens
	req.Temperature = g.cfg.Temperature

	resp, err := g.provider.Generate(llm.WithPurpose(ctx, llm.PurposeCourseOutline), req)
	if err != nil {
		return nil, fmt.Errorf("course outline generation: %w", err)
	}

	var out Outline
	if err := resp.Decode(&out); err != nil {
		return nil, fmt.Errorf("parse course outline: %w", err)
	}
	if out.Difficulty == "" {
		out.Difficulty = in.Difficulty
	}
	if err := Normalize(&out); err != nil {
		return nil, fmt.Errorf("course outline: %w", err)
	}
	out.Source = SourceLLM
	return &out, nil
}

type fallback struct {
	primary   Generator
	secondary Generator
	log       *logger.Logger
}

// Fallback uses secondary whenever primary fails, except for invalid
// input and cancellation, which are returned as is.
func Fallback(primary, secondary Generator, log *logger.Logger) Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &fallback{primary: primary, secondary: secondary, log: log.With("component", "syllabus")}
}

func (f *fallback) Generate(ctx context.Context, in Input) (*Outline, error) {
	if _, err := normalizeInput(in); err != nil {
		return nil, err
	}
	out, err := f.primary.Generate(ctx, in)
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	f.log.Warn("outline generation failed, using template", "topic", in.Topic, "error", err)
	return f.secondary.Generate(ctx, in)
}
