// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/rolodex/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Generator implements ai.TextGenerator using an Ollama server.
type Generator struct {
	client llms.Model
	model  string
	logger *slog.Logger
}

// NewGenerator creates a generator for config.GeneratorModel on
// config.GeneratorHost. The provider field must be "ollama".
//
// Returns ai.TextGenerator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.TextGenerator, error) {
	if err := config.ValidateGenerator(); err != nil {
		return nil, err
	}
	if config.GeneratorProvider != ai.ProviderOllama {
		return nil, fmt.Errorf("ollama: generator provider is %q", config.GeneratorProvider)
	}

	// Host was checked by ValidateGenerator; WithServerURL exits the process on a bad URL.
	client, err := ollama.New(
		ollama.WithServerURL(config.GeneratorHost),
		ollama.WithModel(config.GeneratorModel),
	)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client: client,
		model:  config.GeneratorModel,
		logger: slog.Default().With("component", "ollama-generator"),
	}, nil
}

// Generate returns the model's completion for prompt with surrounding
// whitespace removed.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	g.logger.Debug("generating completion", "model", g.model, "prompt_length", len(prompt))

	response, err := llms.GenerateFromSinglePrompt(ctx, g.client, prompt)
	if err != nil {
		g.logger.Error("failed to generate completion", "model", g.model, "err", err)
		return "", err
	}
	return strings.TrimSpace(response), nil
}
