package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/rolodex/ai"
	"github.com/poiesic/rolodex/core"
)

// Generator produces an answer to query from the retrieved records.
type Generator interface {
	Generate(ctx context.Context, query string, records []core.Record) (string, error)
}

const promptTemplate = `You are an HR assistant. The user asked: "%s".
Based on the employee data below, suggest suitable candidates with reasoning.

Employee data:
%s

Response:`

// BuildPrompt returns the HR-assistant prompt for query and records.
func BuildPrompt(query string, records []core.Record) string {
	return fmt.Sprintf(promptTemplate, query, FormatProfiles(records))
}

// LLMGenerator answers by prompting a text generation model.
type LLMGenerator struct {
	model ai.TextGenerator
}

var _ Generator = (*LLMGenerator)(nil)

// NewLLMGenerator creates a generator backed by model.
func NewLLMGenerator(model ai.TextGenerator) (*LLMGenerator, error) {
	if core.IsNil(model) {
		return nil, ErrGeneratorRequired
	}
	return &LLMGenerator{model: model}, nil
}

// Generate prompts the model and returns its trimmed completion.
func (g *LLMGenerator) Generate(ctx context.Context, query string, records []core.Record) (string, error) {
	completion, err := g.model.Generate(ctx, BuildPrompt(query, records))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return strings.TrimSpace(completion), nil
}
