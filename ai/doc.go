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


// Package ai provides abstractions for AI services used in rolodex.
//
// This package defines interfaces for the two model-backed operations the
// system needs: turning text into vectors and turning a prompt into an
// answer. Retrieval and answer generation depend on these abstractions
// rather than on any particular model server.
//
// # Interfaces
//
//   - Embedder: Generates vector embeddings from text and reports its model ID
//   - TextGenerator: Produces a completion for a prompt
//   - AIProvider: Aggregates both services for lifecycle management
//
// # Implementation Packages
//
//   - ai/openai: Embedder and TextGenerator for OpenAI-compatible APIs
//   - ai/ollama: TextGenerator for the native Ollama API
//   - ai/hashing: Local deterministic feature-hashing Embedder
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// INTERFACE types to enforce abstraction and prevent accidental coupling to
// concrete implementations.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Test utility constructors (mock.NewMockEmbedder, mock.NewMockGenerator)
// return CONCRETE types to enable test assertions and behavior injection via
// the mock's public fields and methods (CallCount, Reset, etc.).
//
// Services from different backends are combined with Compose:
//
//	embedder, _ := hashing.NewEmbedder(config)
//	generator, _ := ollama.NewGenerator(config)
//	provider := ai.Compose(embedder, generator)
//	defer provider.Close()
//
// # Configuration
//
// Config is built with functional options and validated in two halves:
// Validate covers embedding (needed by every command), ValidateGenerator
// covers generation (needed only when answering chat requests).
package ai
