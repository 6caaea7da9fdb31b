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


package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"

	"github.com/poiesic/rolodex/ai"
)

// Embedder implements ai.Embedder with feature hashing.
// It holds no mutable state and is safe for concurrent use.
type Embedder struct {
	dim    int
	logger *slog.Logger
}

// MaxDimension bounds the bucket count so every 32-bit hash maps to a bucket.
const MaxDimension = math.MaxInt32

// New creates an embedder producing vectors of dimension dim, which must be
// in [1, MaxDimension].
func New(dim int) (*Embedder, error) {
	if dim <= 0 || dim > MaxDimension {
		return nil, fmt.Errorf("hashing: dimension must be in [1, %d], got %d", MaxDimension, dim)
	}
	return &Embedder{
		dim:    dim,
		logger: slog.Default().With("component", "hashing-embedder"),
	}, nil
}

// NewEmbedder creates an embedder from config.EmbeddingDimension.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.EmbeddingProvider != ai.ProviderHashing {
		return nil, fmt.Errorf("hashing: embedding provider is %q", config.EmbeddingProvider)
	}
	return New(config.EmbeddingDimension)
}

// EmbedText returns the unit-length token count vector of text. Text without
// any token maps to the zero vector.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(text), nil
}

// EmbedTexts embeds each text in order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

// ModelID identifies the hashing scheme and dimension.
func (e *Embedder) ModelID() string {
	return fmt.Sprintf("hashing-fnv1a-%d", e.dim)
}

// Dim returns the vector dimension.
func (e *Embedder) Dim() int {
	return e.dim
}

func (e *Embedder) embed(text string) []float32 {
	counts := make([]float64, e.dim)
	h := fnv.New32a()
	for _, token := range Tokenize(text) {
		h.Reset()
		_, _ = h.Write([]byte(token))
		counts[h.Sum32()%uint32(e.dim)]++
	}

	var sumSquares float64
	for _, c := range counts {
		sumSquares += c * c
	}

	vector := make([]float32, e.dim)
	if sumSquares == 0 {
		return vector
	}
	norm := math.Sqrt(sumSquares)
	for i, c := range counts {
		vector[i] = float32(c / norm)
	}
	return vector
}
